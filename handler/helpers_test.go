package handler_test

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/hasbyte1/go-crypt-handlers/codec"
	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// toyFormat is "$toy$<rounds>$<salt>$<sha256 hex>", cheap enough for tests.
type toyFormat struct{}

func (toyFormat) Parse(_ *handler.Config, record string) (handler.Settings, error) {
	rounds, salt, chk, err := mcf.Parse3(record, "$toy$")
	if err != nil {
		return handler.Settings{}, err
	}
	return handler.Settings{
		Rounds:    rounds,
		HasRounds: true,
		Salt:      []byte(salt),
		HasSalt:   true,
		Checksum:  []byte(chk),
	}, nil
}

func (toyFormat) Render(r *handler.Record) string {
	return mcf.Render3("$toy$", r.Rounds(), r.SaltString(), string(r.Checksum()))
}

func (toyFormat) Checksum(r *handler.Record, secret string) ([]byte, error) {
	h := sha256.New()
	fmt.Fprintf(h, "%d$%s$%s", r.Rounds(), r.SaltString(), secret)
	return []byte(hex.EncodeToString(h.Sum(nil))), nil
}

func toyConfig() handler.Config {
	return handler.Config{
		Name:          "toy",
		Ident:         "$toy$",
		ChecksumSize:  64,
		ChecksumChars: codec.LowerHexChars,
		Salt: &handler.SaltPolicy{
			MinSize:     4,
			MaxSize:     16,
			DefaultSize: 8,
			Chars:       codec.Hash64Chars,
		},
		Rounds: &handler.RoundsPolicy{
			Min:        1,
			Max:        1000,
			Default:    100,
			MinDesired: 50,
			MaxDesired: 500,
		},
	}
}

func newToy(t *testing.T) *handler.Handler {
	t.Helper()
	h, err := handler.New(toyConfig(), toyFormat{})
	if err != nil {
		t.Fatalf("handler.New: %v", err)
	}
	return h
}

// captureLogger records every log line written through it.
type captureLogger struct {
	mu    sync.Mutex
	lines []string
}

func (c *captureLogger) logger() logr.Logger {
	return funcr.New(func(prefix, args string) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.lines = append(c.lines, args)
	}, funcr.Options{})
}

func (c *captureLogger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}
