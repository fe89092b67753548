package handler

import (
	"fmt"
	"strings"

	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// StaticFormat is a format without settings: the record is an optional
// constant prefix followed by the checksum.
type StaticFormat struct {
	// Prefix is required when non-empty.
	Prefix string

	// NormHash canonicalizes the checksum text on parse, e.g.
	// strings.ToLower for hex digests.  Optional.
	NormHash func(string) string

	// Calc computes the checksum text for secret.
	Calc func(r *Record, secret string) ([]byte, error)
}

// NewStatic builds a handler for a settings-free format.  cfg.Ident
// defaults to the prefix.
func NewStatic(cfg Config, f StaticFormat) (*Handler, error) {
	if f.Calc == nil {
		return nil, fmt.Errorf("%w: static format %s has no checksum function", mcf.ErrInvalidOption, cfg.Name)
	}
	if cfg.Salt != nil || cfg.Rounds != nil || cfg.Idents != nil {
		return nil, fmt.Errorf("%w: static format %s cannot carry settings", mcf.ErrInvalidOption, cfg.Name)
	}
	if cfg.Ident == "" {
		cfg.Ident = f.Prefix
	}
	return New(cfg, &f)
}

// Parse strips the prefix and treats the remainder as the checksum.
func (f *StaticFormat) Parse(cfg *Config, record string) (Settings, error) {
	rest, ok := strings.CutPrefix(record, f.Prefix)
	if !ok {
		return Settings{}, fmt.Errorf("%w: %s record must start with %q", mcf.ErrInvalidRecord, cfg.Name, f.Prefix)
	}
	if f.NormHash != nil {
		rest = f.NormHash(rest)
	}
	// a static record has no settings to template, so an empty
	// remainder is the checksum of an empty secret
	return Settings{Checksum: []byte(rest), emptyChecksum: cfg.ChecksumSize == 0}, nil
}

// Render re-prepends the prefix.
func (f *StaticFormat) Render(r *Record) string {
	return f.Prefix + string(r.checksum)
}

// Checksum calls Calc.
func (f *StaticFormat) Checksum(r *Record, secret string) ([]byte, error) {
	return f.Calc(r, secret)
}
