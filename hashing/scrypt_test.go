package hashing_test

import (
	"encoding/base64"
	"errors"
	"testing"

	"golang.org/x/crypto/scrypt"

	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/hashing"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

func newTestScrypt(t *testing.T, opts ...handler.ConfigOption) *handler.Handler {
	t.Helper()
	h, err := hashing.Scrypt(append([]handler.ConfigOption{handler.DefaultRounds(4)}, opts...)...)
	if err != nil {
		t.Fatalf("Scrypt: %v", err)
	}
	return h
}

func TestScrypt_MatchesPrimitive(t *testing.T) {
	h := newTestScrypt(t, hashing.ScryptBlockSize(2), hashing.ScryptParallelism(3))
	salt := []byte("NaCl")
	record, err := h.Hash("password", handler.WithSalt(salt))
	if err != nil {
		t.Fatal(err)
	}
	key, err := scrypt.Key([]byte("password"), salt, 1<<4, 2, 3, hashing.ScryptKeyLen)
	if err != nil {
		t.Fatal(err)
	}
	want := "$scrypt$ln=4,r=2,p=3$" + base64.RawStdEncoding.EncodeToString(salt) + "$" +
		base64.RawStdEncoding.EncodeToString(key)
	if record != want {
		t.Fatalf("record = %q, want %q", record, want)
	}
	if ok, err := h.Verify("password", record); err != nil || !ok {
		t.Errorf("Verify = %v, %v", ok, err)
	}
	if ok, _ := h.Verify("Password", record); ok {
		t.Error("wrong password verified")
	}
}

func TestScrypt_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts []handler.ConfigOption
		want error
	}{
		{"block size", []handler.ConfigOption{hashing.ScryptBlockSize(0)}, mcf.ErrInvalidOption},
		{"parallelism", []handler.ConfigOption{hashing.ScryptParallelism(0)}, mcf.ErrInvalidOption},
		{"product", []handler.ConfigOption{hashing.ScryptBlockSize(1 << 15), hashing.ScryptParallelism(1 << 15)}, mcf.ErrInvalidOption},
		{"rounds", []handler.ConfigOption{handler.DefaultRounds(32)}, mcf.ErrBoundsViolation},
		{"unknown setting", []handler.ConfigOption{handler.Extra("memory", 1)}, mcf.ErrTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := hashing.Scrypt(tt.opts...); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestScrypt_TextualSettings(t *testing.T) {
	opts, err := handler.ParseConfigOptions(map[string]string{
		"default_rounds": "5",
		"block_size":     "4",
		"parallelism":    "2",
	})
	if err != nil {
		t.Fatal(err)
	}
	h, err := hashing.Scrypt(opts...)
	if err != nil {
		t.Fatal(err)
	}
	record, err := h.GenConfig(handler.WithSalt([]byte("salt")))
	if err != nil {
		t.Fatal(err)
	}
	if record != "$scrypt$ln=5,r=4,p=2$c2FsdA" {
		t.Errorf("GenConfig = %q", record)
	}
}

func TestScrypt_NeedsUpdate(t *testing.T) {
	h := newTestScrypt(t)
	record, _ := h.Hash("pw")
	if needs, err := h.NeedsUpdate(record); err != nil || needs {
		t.Errorf("same config: needs=%v err=%v", needs, err)
	}
	d, err := h.Derive(hashing.ScryptBlockSize(4))
	if err != nil {
		t.Fatal(err)
	}
	if needs, err := d.NeedsUpdate(record); err != nil || !needs {
		t.Errorf("block size drift: needs=%v err=%v", needs, err)
	}
}

func TestScrypt_ParseErrors(t *testing.T) {
	h := newTestScrypt(t)
	tests := []struct {
		name   string
		record string
		want   error
	}{
		{"foreign", "$7$CU..../....abc", mcf.ErrInvalidRecord},
		{"missing param", "$scrypt$ln=4,r=8$c2FsdA", mcf.ErrMalformedRecord},
		{"param order", "$scrypt$r=8,ln=4,p=1$c2FsdA", mcf.ErrMalformedRecord},
		{"zero block size", "$scrypt$ln=4,r=0,p=1$c2FsdA", mcf.ErrBoundsViolation},
		{"short checksum", "$scrypt$ln=4,r=8,p=1$c2FsdA$c2FsdA", mcf.ErrSizeViolation},
		{"log2 too large", "$scrypt$ln=32,r=8,p=1$c2FsdA", mcf.ErrBoundsViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.Parse(tt.record); !errors.Is(err, tt.want) {
				t.Errorf("Parse(%q): expected %v, got %v", tt.record, tt.want, err)
			}
		})
	}
}
