package hashing

import (
	"crypto/hmac"
	"crypto/sha1"
	"strconv"

	"github.com/hasbyte1/go-crypt-handlers/codec"
	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// DefaultSHA1CryptRounds is the iteration count of new sha1_crypt records.
const DefaultSHA1CryptRounds = 480000

const sha1CryptIdent = "$sha1$"

// sha1CryptOffsets orders the 20 digest bytes, plus one repeated, into
// seven groups of three for the hash64 encoding.
var sha1CryptOffsets = []int{2, 1, 0, 5, 4, 3, 8, 7, 6, 11, 10, 9, 14, 13, 12, 17, 16, 15, 0, 19, 18}

// DefaultSHA1CryptConfig returns the configuration of NetBSD's
// "$sha1$<rounds>$<salt>$<checksum>" records.
func DefaultSHA1CryptConfig() handler.Config {
	return handler.Config{
		Name:          NameSHA1Crypt,
		Ident:         sha1CryptIdent,
		ChecksumSize:  28,
		ChecksumChars: codec.Hash64Chars,
		Salt: &handler.SaltPolicy{
			MinSize:     0,
			MaxSize:     64,
			DefaultSize: 8,
			Chars:       codec.Hash64Chars,
		},
		Rounds: &handler.RoundsPolicy{
			Min:     1,
			Max:     maxUint32,
			Default: DefaultSHA1CryptRounds,
			Cost:    handler.Linear,
		},
	}
}

// SHA1Crypt returns the sha1_crypt handler: an HMAC-SHA1 chain keyed with
// the secret, seeded with "<salt>$sha1$<rounds>".
func SHA1Crypt(opts ...handler.ConfigOption) (*handler.Handler, error) {
	cfg, err := handler.DeriveConfig(DefaultSHA1CryptConfig(), opts...)
	if err != nil {
		return nil, err
	}
	return handler.New(cfg, sha1CryptFormat{})
}

type sha1CryptFormat struct{}

func (sha1CryptFormat) Parse(_ *handler.Config, record string) (handler.Settings, error) {
	rounds, salt, chk, err := mcf.Parse3(record, sha1CryptIdent)
	if err != nil {
		return handler.Settings{}, err
	}
	return handler.Settings{
		Salt:      []byte(salt),
		HasSalt:   true,
		Rounds:    rounds,
		HasRounds: true,
		Checksum:  []byte(chk),
	}, nil
}

func (sha1CryptFormat) Render(r *handler.Record) string {
	return mcf.Render3(sha1CryptIdent, r.Rounds(), r.SaltString(), string(r.Checksum()))
}

func (sha1CryptFormat) Checksum(r *handler.Record, secret string) ([]byte, error) {
	result := []byte(r.SaltString() + sha1CryptIdent + strconv.Itoa(r.Rounds()))
	mac := hmac.New(sha1.New, []byte(secret))
	for range r.Rounds() {
		mac.Reset()
		mac.Write(result)
		result = mac.Sum(result[:0])
	}
	return []byte(codec.EncodeTransposedHash64(result, sha1CryptOffsets)), nil
}
