package hashing

import (
	"fmt"

	"golang.org/x/crypto/scrypt"

	"github.com/hasbyte1/go-crypt-handlers/codec"
	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// Scrypt defaults.  Rounds is log2 of the CPU/memory cost N.
const (
	DefaultScryptRounds      = 16
	DefaultScryptBlockSize   = 8
	DefaultScryptParallelism = 1
	ScryptKeyLen             = 32
)

const scryptIdent = "$scrypt$"

var scryptKeys = []string{"block_size", "parallelism"}

// ScryptBlockSize sets the block size r of new records.
func ScryptBlockSize(r int) handler.ConfigOption { return handler.Extra("block_size", r) }

// ScryptParallelism sets the parallelism p of new records.
func ScryptParallelism(p int) handler.ConfigOption { return handler.Extra("parallelism", p) }

// DefaultScryptConfig returns the configuration of
// "$scrypt$ln=<rounds>,r=<block size>,p=<parallelism>$<salt>$<checksum>"
// records, salt and checksum in standard base64 without padding.
func DefaultScryptConfig() handler.Config {
	return handler.Config{
		Name:         NameScrypt,
		Ident:        scryptIdent,
		RawChecksum:  true,
		ChecksumSize: ScryptKeyLen,
		Salt: &handler.SaltPolicy{
			MinSize:     0,
			MaxSize:     1024,
			DefaultSize: 16,
			Raw:         true,
		},
		Rounds: &handler.RoundsPolicy{
			Min:     1,
			Max:     31,
			Default: DefaultScryptRounds,
			Cost:    handler.Log2,
		},
		Extra: map[string]any{
			"block_size":  DefaultScryptBlockSize,
			"parallelism": DefaultScryptParallelism,
		},
	}
}

// Scrypt returns the scrypt handler.
func Scrypt(opts ...handler.ConfigOption) (*handler.Handler, error) {
	cfg, err := handler.DeriveConfig(DefaultScryptConfig(), opts...)
	if err != nil {
		return nil, err
	}
	return handler.New(cfg, scryptFormat{})
}

type scryptFormat struct{}

func (scryptFormat) Parse(_ *handler.Config, record string) (handler.Settings, error) {
	params, saltField, chkField, err := mcf.Parse3Opaque(record, scryptIdent)
	if err != nil {
		return handler.Settings{}, err
	}
	kvs, err := parseParams(params, "ln", "r", "p")
	if err != nil {
		return handler.Settings{}, err
	}
	salt, err := codec.StdBase64.DecodeString(saltField)
	if err != nil {
		return handler.Settings{}, fmt.Errorf("%w: invalid salt: %v", mcf.ErrMalformedRecord, err)
	}
	chk, err := codec.StdBase64.DecodeString(chkField)
	if err != nil {
		return handler.Settings{}, fmt.Errorf("%w: invalid checksum: %v", mcf.ErrMalformedRecord, err)
	}
	return handler.Settings{
		Salt:      salt,
		HasSalt:   true,
		Rounds:    kvs["ln"],
		HasRounds: true,
		Checksum:  chk,
		Extra:     map[string]any{"block_size": kvs["r"], "parallelism": kvs["p"]},
	}, nil
}

func (scryptFormat) Render(r *handler.Record) string {
	params := fmt.Sprintf("ln=%d,r=%d,p=%d", r.Rounds(), extraInt(r, "block_size"), extraInt(r, "parallelism"))
	return mcf.Render3Opaque(scryptIdent, params,
		codec.StdBase64.EncodeToString(r.Salt()),
		codec.StdBase64.EncodeToString(r.Checksum()))
}

func (scryptFormat) Checksum(r *handler.Record, secret string) ([]byte, error) {
	n := 1 << r.Rounds()
	return scrypt.Key([]byte(secret), r.Salt(), n, extraInt(r, "block_size"), extraInt(r, "parallelism"), ScryptKeyLen)
}

// NormalizeExtra fills block size and parallelism from the configuration.
// Their product must stay below 2^30.
func (scryptFormat) NormalizeExtra(cfg *handler.Config, extra map[string]any, _ bool) (map[string]any, error) {
	v, err := intSettings(cfg, extra, scryptKeys...)
	if err != nil {
		return nil, err
	}
	r, p := v["block_size"], v["parallelism"]
	if r < 1 || p < 1 || r*p >= 1<<30 {
		return nil, fmt.Errorf("%w: scrypt needs r ≥ 1, p ≥ 1 and r×p < 2^30, got r=%d p=%d",
			mcf.ErrBoundsViolation, r, p)
	}
	return map[string]any{"block_size": r, "parallelism": p}, nil
}

func (f scryptFormat) ValidateConfig(cfg *handler.Config) error {
	extra, err := f.NormalizeExtra(cfg, cfg.Extra, true)
	if err != nil {
		return fmt.Errorf("%w: %w", mcf.ErrInvalidOption, err)
	}
	cfg.Extra = extra
	return nil
}

// NeedsUpdate flags records whose block size or parallelism differ from
// the configuration.
func (scryptFormat) NeedsUpdate(r *handler.Record, _ *string) (bool, error) {
	cfg := r.Config()
	return extraInt(r, "block_size") != configInt(cfg, "block_size") ||
		extraInt(r, "parallelism") != configInt(cfg, "parallelism"), nil
}
