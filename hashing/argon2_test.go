package hashing_test

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/argon2"

	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/hashing"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// fastArgon2Opts returns minimal Argon2 parameters for unit tests.
// These are intentionally weak; do NOT use in production.
func fastArgon2Opts(extra ...handler.ConfigOption) []handler.ConfigOption {
	return append([]handler.ConfigOption{
		hashing.Argon2Memory(8 * 2), // 8 × parallelism minimum
		hashing.Argon2Parallelism(2),
		hashing.Argon2KeyLen(16),
		handler.DefaultRounds(1),
		handler.DefaultSaltSize(8),
	}, extra...)
}

func newTestArgon2(t *testing.T, extra ...handler.ConfigOption) *handler.Handler {
	t.Helper()
	h, err := hashing.Argon2(fastArgon2Opts(extra...)...)
	if err != nil {
		t.Fatalf("Argon2: %v", err)
	}
	return h
}

// ──────────────────────────────────────────────────────────────────────────────
// Configuration
// ──────────────────────────────────────────────────────────────────────────────

func TestArgon2_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []handler.ConfigOption
	}{
		{"parallelism=0", []handler.ConfigOption{hashing.Argon2Parallelism(0)}},
		{"memory too low", []handler.ConfigOption{hashing.Argon2Memory(1), hashing.Argon2Parallelism(2)}},
		{"key_len<4", []handler.ConfigOption{hashing.Argon2KeyLen(3)}},
		{"unknown ident", []handler.ConfigOption{handler.DefaultIdent("d")}},
		{"salt_size<8", []handler.ConfigOption{handler.DefaultSaltSize(7)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hashing.Argon2(tt.opts...)
			if !errors.Is(err, mcf.ErrInvalidOption) && !errors.Is(err, mcf.ErrBoundsViolation) {
				t.Errorf("expected a configuration error, got %v", err)
			}
		})
	}
}

func TestDefaultArgon2Config(t *testing.T) {
	h, err := hashing.Argon2()
	if err != nil {
		t.Fatalf("Argon2: %v", err)
	}
	cfg := h.Config()
	if got := cfg.Extra["memory"]; got != hashing.DefaultArgon2Memory {
		t.Errorf("memory = %v, want %d", got, hashing.DefaultArgon2Memory)
	}
	if got := cfg.Extra["parallelism"]; got != hashing.DefaultArgon2Threads {
		t.Errorf("parallelism = %v, want %d", got, hashing.DefaultArgon2Threads)
	}
	if got := cfg.Rounds.Default; got != hashing.DefaultArgon2Time {
		t.Errorf("time = %d, want %d", got, hashing.DefaultArgon2Time)
	}
	if got := cfg.Salt.DefaultSize; got != hashing.DefaultArgon2SaltLen {
		t.Errorf("salt size = %d, want %d", got, hashing.DefaultArgon2SaltLen)
	}
	if got := cfg.Idents.Default; got != hashing.Argon2idIdent {
		t.Errorf("ident = %q, want %q", got, hashing.Argon2idIdent)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Hash / Verify / NeedsUpdate
// ──────────────────────────────────────────────────────────────────────────────

func TestArgon2_Hash_PHCFormat(t *testing.T) {
	h := newTestArgon2(t)
	record, err := h.Hash("password")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(record, "$argon2id$v=19$m=16,t=1,p=2$") {
		t.Errorf("unexpected record %q", record)
	}
	record, err = h.Hash("password", handler.WithIdent("i"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(record, "$argon2i$v=19$") {
		t.Errorf("record should start with $argon2i$, got %q", record)
	}
}

func TestArgon2_Hash_UniqueRecords(t *testing.T) {
	h := newTestArgon2(t)
	h1, _ := h.Hash("same")
	h2, _ := h.Hash("same")
	if h1 == h2 {
		t.Error("two Hash calls must produce different records (different salts)")
	}
}

func TestArgon2_Verify(t *testing.T) {
	h := newTestArgon2(t)
	for _, ident := range []string{"i", "id"} {
		t.Run(ident, func(t *testing.T) {
			record, err := h.Hash("secret", handler.WithIdent(ident))
			if err != nil {
				t.Fatal(err)
			}
			if ok, err := h.Verify("secret", record); err != nil || !ok {
				t.Fatalf("Verify correct password: ok=%v err=%v", ok, err)
			}
			if ok, err := h.Verify("wrong", record); err != nil || ok {
				t.Fatalf("Verify wrong password: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestArgon2_Verify_EmptyPassword(t *testing.T) {
	h := newTestArgon2(t)
	record, _ := h.Hash("")
	ok, err := h.Verify("", record)
	if err != nil || !ok {
		t.Fatalf("empty password round-trip: ok=%v err=%v", ok, err)
	}
}

func TestArgon2_MatchesPrimitive(t *testing.T) {
	h := newTestArgon2(t)
	salt := []byte("saltsalt")
	record, err := h.Hash("pw", handler.WithSalt(salt), handler.WithRounds(2))
	if err != nil {
		t.Fatal(err)
	}
	key := argon2.IDKey([]byte("pw"), salt, 2, 16, 2, 16)
	want := "$argon2id$v=19$m=16,t=2,p=2$" +
		base64.RawStdEncoding.EncodeToString(salt) + "$" +
		base64.RawStdEncoding.EncodeToString(key)
	if record != want {
		t.Fatalf("record = %q, want %q", record, want)
	}
}

func TestArgon2_ParseErrors(t *testing.T) {
	h := newTestArgon2(t)
	tests := []struct {
		name   string
		record string
		want   error
	}{
		{"foreign", "not-a-hash", mcf.ErrInvalidRecord},
		{"argon2d", "$argon2d$v=19$m=16,t=1,p=2$c2FsdHNhbHQ", mcf.ErrInvalidRecord},
		{"no version", "$argon2id$m=16,t=1,p=2$c2FsdHNhbHQ", mcf.ErrMalformedRecord},
		{"old version", "$argon2id$v=16$m=16,t=1,p=2$c2FsdHNhbHQ", mcf.ErrMalformedRecord},
		{"param order", "$argon2id$v=19$t=1,m=16,p=2$c2FsdHNhbHQ", mcf.ErrMalformedRecord},
		{"zero padded", "$argon2id$v=19$m=016,t=1,p=2$c2FsdHNhbHQ", mcf.ErrMalformedRecord},
		{"bad salt", "$argon2id$v=19$m=16,t=1,p=2$c2F*dHNhbHQ", mcf.ErrMalformedRecord},
		{"short salt", "$argon2id$v=19$m=16,t=1,p=2$c2FsdA", mcf.ErrSizeViolation},
		{"memory too low", "$argon2id$v=19$m=8,t=1,p=2$c2FsdHNhbHQ", mcf.ErrBoundsViolation},
		{"zero time", "$argon2id$v=19$m=16,t=0,p=2$c2FsdHNhbHQ", mcf.ErrBoundsViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.Parse(tt.record); !errors.Is(err, tt.want) {
				t.Errorf("Parse(%q): expected %v, got %v", tt.record, tt.want, err)
			}
		})
	}
}

func TestArgon2_Template(t *testing.T) {
	h := newTestArgon2(t)
	cfg, err := h.GenConfig(handler.WithSalt([]byte("saltsalt")))
	if err != nil {
		t.Fatal(err)
	}
	if cfg != "$argon2id$v=19$m=16,t=1,p=2$c2FsdHNhbHQ" {
		t.Fatalf("GenConfig = %q", cfg)
	}
	record, err := h.GenHash("pw", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := h.Verify("pw", record); err != nil || !ok {
		t.Fatalf("Verify(GenHash) = %v, %v", ok, err)
	}
}

func TestArgon2_NeedsUpdate(t *testing.T) {
	h := newTestArgon2(t)
	record, _ := h.Hash("pw")
	if needs, err := h.NeedsUpdate(record); err != nil || needs {
		t.Errorf("NeedsUpdate same params: needs=%v err=%v", needs, err)
	}

	tests := []struct {
		name string
		opt  handler.ConfigOption
	}{
		{"memory", hashing.Argon2Memory(32)},
		{"parallelism", hashing.Argon2Parallelism(1)},
		{"key_len", hashing.Argon2KeyLen(32)},
		{"variant", handler.DefaultIdent("i")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := h.Derive(tt.opt)
			if err != nil {
				t.Fatalf("Derive: %v", err)
			}
			needs, err := d.NeedsUpdate(record)
			if err != nil || !needs {
				t.Errorf("expected NeedsUpdate=true when %s differs: needs=%v err=%v", tt.name, needs, err)
			}
			// the record still verifies under the new configuration
			if ok, err := d.Verify("pw", record); err != nil || !ok {
				t.Errorf("Verify under derived config: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestArgon2_Inspect(t *testing.T) {
	h := newTestArgon2(t)
	record, _ := h.Hash("pw", handler.WithIdent("i"))
	info, err := hashing.Inspect(h, record)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.Name != hashing.NameArgon2 {
		t.Errorf("Name = %q, want %q", info.Name, hashing.NameArgon2)
	}
	want := map[string]any{
		"ident":       hashing.Argon2iIdent,
		"rounds":      1,
		"salt_size":   8,
		"memory":      16,
		"parallelism": 2,
		"key_len":     16,
		"template":    false,
	}
	for k, v := range want {
		if got := info.Params[k]; got != v {
			t.Errorf("%s = %v, want %v", k, got, v)
		}
	}
}

func TestArgon2_SatisfiesPasswordHash(t *testing.T) {
	h := newTestArgon2(t)
	var _ handler.PasswordHash = h
}
