package hashing

import (
	"crypto/fips140"
	stdpbkdf2 "crypto/pbkdf2"
	"fmt"
	"hash"

	"golang.org/x/crypto/pbkdf2"

	"github.com/hasbyte1/go-crypt-handlers/codec"
	"github.com/hasbyte1/go-crypt-handlers/digest"
	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// PBKDF2Func derives a key with PBKDF2 over HMAC-h.
type PBKDF2Func func(h func() hash.Hash, secret string, salt []byte, rounds, keyLen int) ([]byte, error)

// Backend names of the PBKDF2 formats.
const (
	PBKDF2BackendStdlib  = "stdlib"
	PBKDF2BackendXCrypto = "xcrypto"
)

// PBKDF2Backends is the backend set shared by all PBKDF2 formats.  The
// standard library implementation is preferred; the x/crypto one refuses
// to load in FIPS 140-3 mode.
var PBKDF2Backends = handler.BackendsFor(handler.DefaultBackends, "pbkdf2",
	handler.Backend[PBKDF2Func]{
		Name: PBKDF2BackendStdlib,
		Load: func() (PBKDF2Func, error) {
			return func(h func() hash.Hash, secret string, salt []byte, rounds, keyLen int) ([]byte, error) {
				return stdpbkdf2.Key(h, secret, salt, rounds, keyLen)
			}, nil
		},
	},
	handler.Backend[PBKDF2Func]{
		Name: PBKDF2BackendXCrypto,
		Load: func() (PBKDF2Func, error) {
			if fips140.Enabled() {
				return nil, fmt.Errorf("%w: x/crypto pbkdf2 is not FIPS 140-3 validated",
					mcf.ErrBackendSecurityRefusal)
			}
			return func(h func() hash.Hash, secret string, salt []byte, rounds, keyLen int) ([]byte, error) {
				return pbkdf2.Key([]byte(secret), salt, rounds, keyLen, h), nil
			}, nil
		},
	},
)

// Default rounds of the PBKDF2 formats, scaled to the cost of each digest.
const (
	DefaultPBKDF2SHA1Rounds   = 131000
	DefaultPBKDF2SHA256Rounds = 29000
	DefaultPBKDF2SHA512Rounds = 25000
)

// pbkdf2Format lays out "$pbkdf2[-<digest>]$<rounds>$<salt>$<checksum>"
// with salt and checksum in adapted base64.
type pbkdf2Format struct {
	ident string
	alg   string
}

func (f pbkdf2Format) Parse(_ *handler.Config, record string) (handler.Settings, error) {
	rounds, saltField, chkField, err := mcf.Parse3(record, f.ident)
	if err != nil {
		return handler.Settings{}, err
	}
	salt, err := codec.AdaptedBase64.DecodeString(saltField)
	if err != nil {
		return handler.Settings{}, fmt.Errorf("%w: invalid salt: %v", mcf.ErrMalformedRecord, err)
	}
	chk, err := codec.AdaptedBase64.DecodeString(chkField)
	if err != nil {
		return handler.Settings{}, fmt.Errorf("%w: invalid checksum: %v", mcf.ErrMalformedRecord, err)
	}
	return handler.Settings{
		Salt:      salt,
		HasSalt:   true,
		Rounds:    rounds,
		HasRounds: true,
		Checksum:  chk,
	}, nil
}

func (f pbkdf2Format) Render(r *handler.Record) string {
	return mcf.Render3(f.ident, r.Rounds(),
		codec.AdaptedBase64.EncodeToString(r.Salt()),
		codec.AdaptedBase64.EncodeToString(r.Checksum()))
}

func (f pbkdf2Format) Checksum(r *handler.Record, secret string) ([]byte, error) {
	impl, err := PBKDF2Backends.Current()
	if err != nil {
		return nil, err
	}
	info, err := digest.Lookup(f.alg)
	if err != nil {
		return nil, err
	}
	return impl(info.New, secret, r.Salt(), r.Rounds(), info.Size)
}

func (pbkdf2Format) Backends() handler.BackendSelector { return PBKDF2Backends }

func pbkdf2Config(name, ident, alg string, rounds int) handler.Config {
	info, _ := digest.Lookup(alg)
	return handler.Config{
		Name:         name,
		Ident:        ident,
		RawChecksum:  true,
		ChecksumSize: info.Size,
		Salt: &handler.SaltPolicy{
			MinSize:     0,
			MaxSize:     1024,
			DefaultSize: 16,
			Raw:         true,
		},
		Rounds: &handler.RoundsPolicy{
			Min:     1,
			Max:     maxUint32,
			Default: rounds,
			Cost:    handler.Linear,
		},
	}
}

func newPBKDF2(cfg handler.Config, alg string, opts []handler.ConfigOption) (*handler.Handler, error) {
	cfg, err := handler.DeriveConfig(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return handler.New(cfg, pbkdf2Format{ident: cfg.Ident, alg: alg})
}

// DefaultPBKDF2SHA1Config returns the configuration of "$pbkdf2$" records.
func DefaultPBKDF2SHA1Config() handler.Config {
	return pbkdf2Config(NamePBKDF2SHA1, "$pbkdf2$", "sha-1", DefaultPBKDF2SHA1Rounds)
}

// DefaultPBKDF2SHA256Config returns the configuration of "$pbkdf2-sha256$"
// records.
func DefaultPBKDF2SHA256Config() handler.Config {
	return pbkdf2Config(NamePBKDF2SHA256, "$pbkdf2-sha256$", "sha-256", DefaultPBKDF2SHA256Rounds)
}

// DefaultPBKDF2SHA512Config returns the configuration of "$pbkdf2-sha512$"
// records.
func DefaultPBKDF2SHA512Config() handler.Config {
	return pbkdf2Config(NamePBKDF2SHA512, "$pbkdf2-sha512$", "sha-512", DefaultPBKDF2SHA512Rounds)
}

// PBKDF2SHA1 returns the PBKDF2-HMAC-SHA1 handler.
func PBKDF2SHA1(opts ...handler.ConfigOption) (*handler.Handler, error) {
	return newPBKDF2(DefaultPBKDF2SHA1Config(), "sha-1", opts)
}

// PBKDF2SHA256 returns the PBKDF2-HMAC-SHA256 handler.
func PBKDF2SHA256(opts ...handler.ConfigOption) (*handler.Handler, error) {
	return newPBKDF2(DefaultPBKDF2SHA256Config(), "sha-256", opts)
}

// PBKDF2SHA512 returns the PBKDF2-HMAC-SHA512 handler.
func PBKDF2SHA512(opts ...handler.ConfigOption) (*handler.Handler, error) {
	return newPBKDF2(DefaultPBKDF2SHA512Config(), "sha-512", opts)
}
