package hashing

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/hasbyte1/go-crypt-handlers/codec"
	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// ──────────────────────────────────────────────────────────────────────────────
// Options
// ──────────────────────────────────────────────────────────────────────────────

const (
	// DefaultArgon2Memory is the default memory cost in KiB (64 MiB).
	// OWASP ASVS Level 2 requires ≥ 19 MiB; 64 MiB is the standard production
	// recommendation for Argon2id.
	DefaultArgon2Memory = 64 * 1024

	// DefaultArgon2Time is the default number of iterations, stored as the
	// record's rounds.
	DefaultArgon2Time = 3

	// DefaultArgon2Threads is the default degree of parallelism.
	DefaultArgon2Threads = 2

	// DefaultArgon2KeyLen is the default output key length in bytes.
	DefaultArgon2KeyLen = 32

	// DefaultArgon2SaltLen is the default random salt length in bytes.
	DefaultArgon2SaltLen = 16

	// Argon2iIdent and Argon2idIdent are the two record prefixes.
	Argon2iIdent  = "$argon2i$"
	Argon2idIdent = "$argon2id$"

	// largest uint32 that also fits an int on 32-bit platforms
	maxUint32 = min(math.MaxUint32, math.MaxInt)
)

// Argon2Memory sets the memory cost of new records, in KiB.
func Argon2Memory(kib int) handler.ConfigOption { return handler.Extra("memory", kib) }

// Argon2Parallelism sets the degree of parallelism of new records.
func Argon2Parallelism(p int) handler.ConfigOption { return handler.Extra("parallelism", p) }

// Argon2KeyLen sets the checksum size of new records, in bytes.
func Argon2KeyLen(n int) handler.ConfigOption { return handler.Extra("key_len", n) }

// DefaultArgon2Config returns the Argon2 configuration with the
// recommended defaults.  These exceed OWASP ASVS Level 2 requirements.
//
// The time cost is the rounds setting; memory, parallelism and key length
// are format settings.  [handler.DefaultIdent] selects "i" or "id".
func DefaultArgon2Config() handler.Config {
	return handler.Config{
		Name:        NameArgon2,
		RawChecksum: true,
		Salt: &handler.SaltPolicy{
			MinSize:     8,
			MaxSize:     1024,
			DefaultSize: DefaultArgon2SaltLen,
			Raw:         true,
		},
		Rounds: &handler.RoundsPolicy{
			Min:     1,
			Max:     maxUint32,
			Default: DefaultArgon2Time,
			Cost:    handler.Linear,
		},
		Idents: &handler.IdentPolicy{
			Values: []string{Argon2iIdent, Argon2idIdent},
			Aliases: map[string]string{
				"i": Argon2iIdent, "argon2i": Argon2iIdent,
				"id": Argon2idIdent, "argon2id": Argon2idIdent,
			},
			Default: Argon2idIdent,
		},
		Extra: map[string]any{
			"memory":      DefaultArgon2Memory,
			"parallelism": DefaultArgon2Threads,
			"key_len":     DefaultArgon2KeyLen,
		},
	}
}

// Argon2 returns the Argon2 handler, Argon2id by default.
//
// Output format: PHC string ($argon2id$v=19$m=…,t=…,p=…$<salt>$<hash>),
// standard base64 without padding.  Only version 19 is supported.
func Argon2(opts ...handler.ConfigOption) (*handler.Handler, error) {
	cfg, err := handler.DeriveConfig(DefaultArgon2Config(), opts...)
	if err != nil {
		return nil, err
	}
	return handler.New(cfg, argon2Format{})
}

// ──────────────────────────────────────────────────────────────────────────────
// PHC string format
// ──────────────────────────────────────────────────────────────────────────────

var argon2Keys = []string{"memory", "parallelism", "key_len"}

type argon2Format struct{}

// Parse splits a PHC string:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>[$<hash>]
func (argon2Format) Parse(cfg *handler.Config, record string) (handler.Settings, error) {
	ident, rest, err := cfg.Idents.Parse(record)
	if err != nil {
		return handler.Settings{}, err
	}
	vfield, rest, ok := strings.Cut(rest, "$")
	if !ok {
		return handler.Settings{}, fmt.Errorf("%w: missing argon2 version segment", mcf.ErrMalformedRecord)
	}
	version, err := parseKV(vfield, "v")
	if err != nil {
		return handler.Settings{}, err
	}
	if version != argon2.Version {
		return handler.Settings{}, fmt.Errorf("%w: unsupported argon2 version %d", mcf.ErrMalformedRecord, version)
	}

	params, saltField, chkField, err := mcf.Parse3Opaque(rest, "")
	if err != nil {
		return handler.Settings{}, err
	}
	kvs, err := parseParams(params, "m", "t", "p")
	if err != nil {
		return handler.Settings{}, err
	}
	salt, err := codec.StdBase64.DecodeString(saltField)
	if err != nil {
		return handler.Settings{}, fmt.Errorf("%w: invalid salt base64: %v", mcf.ErrMalformedRecord, err)
	}
	chk, err := codec.StdBase64.DecodeString(chkField)
	if err != nil {
		return handler.Settings{}, fmt.Errorf("%w: invalid hash base64: %v", mcf.ErrMalformedRecord, err)
	}

	s := handler.Settings{
		Ident:     ident,
		Salt:      salt,
		HasSalt:   true,
		Rounds:    kvs["t"],
		HasRounds: true,
		Checksum:  chk,
		Extra:     map[string]any{"memory": kvs["m"], "parallelism": kvs["p"]},
	}
	if len(chk) > 0 {
		s.Extra["key_len"] = len(chk)
	}
	return s, nil
}

func (argon2Format) Render(r *handler.Record) string {
	params := fmt.Sprintf("m=%d,t=%d,p=%d", extraInt(r, "memory"), r.Rounds(), extraInt(r, "parallelism"))
	return mcf.Render3Opaque(
		fmt.Sprintf("%sv=%d$", r.Ident(), argon2.Version),
		params,
		codec.StdBase64.EncodeToString(r.Salt()),
		codec.StdBase64.EncodeToString(r.Checksum()),
	)
}

func (argon2Format) Checksum(r *handler.Record, secret string) ([]byte, error) {
	time := uint32(r.Rounds())
	memory := uint32(extraInt(r, "memory"))
	threads := uint8(extraInt(r, "parallelism"))
	keyLen := uint32(extraInt(r, "key_len"))
	if r.Ident() == Argon2iIdent {
		return argon2.Key([]byte(secret), r.Salt(), time, memory, threads, keyLen), nil
	}
	return argon2.IDKey([]byte(secret), r.Salt(), time, memory, threads, keyLen), nil
}

// NormalizeExtra fills memory, parallelism and key length from the
// configuration and checks the relations between them.
func (argon2Format) NormalizeExtra(cfg *handler.Config, extra map[string]any, _ bool) (map[string]any, error) {
	v, err := intSettings(cfg, extra, argon2Keys...)
	if err != nil {
		return nil, err
	}
	p, m, k := v["parallelism"], v["memory"], v["key_len"]
	if p < 1 || p > 255 {
		return nil, fmt.Errorf("%w: argon2 parallelism must be in [1, 255], got %d", mcf.ErrBoundsViolation, p)
	}
	if m < 8*p || m > maxUint32 {
		return nil, fmt.Errorf("%w: argon2 memory (%d KiB) must be ≥ 8×parallelism (%d KiB)",
			mcf.ErrBoundsViolation, m, 8*p)
	}
	if k < 4 || k > maxUint32 {
		return nil, fmt.Errorf("%w: argon2 key_len must be ≥ 4, got %d", mcf.ErrBoundsViolation, k)
	}
	return map[string]any{"memory": m, "parallelism": p, "key_len": k}, nil
}

func (f argon2Format) ValidateConfig(cfg *handler.Config) error {
	extra, err := f.NormalizeExtra(cfg, cfg.Extra, true)
	if err != nil {
		return fmt.Errorf("%w: %w", mcf.ErrInvalidOption, err)
	}
	cfg.Extra = extra
	return nil
}

// NeedsUpdate flags records whose variant, memory, parallelism or key
// length differ from the configuration.
func (argon2Format) NeedsUpdate(r *handler.Record, _ *string) (bool, error) {
	cfg := r.Config()
	return r.Ident() != cfg.Idents.Default ||
		extraInt(r, "memory") != configInt(cfg, "memory") ||
		extraInt(r, "parallelism") != configInt(cfg, "parallelism") ||
		extraInt(r, "key_len") != configInt(cfg, "key_len"), nil
}

// parseKV parses a "key=value" field.
func parseKV(s, key string) (int, error) {
	v, ok := strings.CutPrefix(s, key+"=")
	if !ok {
		return 0, fmt.Errorf("%w: expected %q prefix in %q", mcf.ErrMalformedRecord, key+"=", s)
	}
	return mcf.ParseInt(v, mcf.Param(key))
}

// parseParams splits "m=65536,t=3,p=2" into a map.  keys lists the
// parameters in the order they must appear.
func parseParams(s string, keys ...string) (map[string]int, error) {
	fields := strings.Split(s, ",")
	if len(fields) != len(keys) {
		return nil, fmt.Errorf("%w: expected %d parameters in %q", mcf.ErrMalformedRecord, len(keys), s)
	}
	out := make(map[string]int, len(keys))
	for i, kv := range fields {
		n, err := parseKV(kv, keys[i])
		if err != nil {
			return nil, err
		}
		out[keys[i]] = n
	}
	return out, nil
}
