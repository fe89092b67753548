package hashing

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/hasbyte1/go-crypt-handlers/codec"
	"github.com/hasbyte1/go-crypt-handlers/digest"
	"github.com/hasbyte1/go-crypt-handlers/handler"
)

// newHexDigest builds an unsalted "<hex digest>" format.  Records are
// matched case-insensitively and rendered in lowercase.
func newHexDigest(name, alg string, opts []handler.ConfigOption) (*handler.Handler, error) {
	info, err := digest.Lookup(alg)
	if err != nil {
		return nil, err
	}
	size := 2 * info.Size
	cfg, err := handler.DeriveConfig(handler.Config{
		Name:          name,
		ChecksumSize:  size,
		ChecksumChars: codec.LowerHexChars,
		Pattern:       regexp.MustCompile(fmt.Sprintf(`^[0-9a-fA-F]{%d}$`, size)),
	}, opts...)
	if err != nil {
		return nil, err
	}
	return handler.NewStatic(cfg, handler.StaticFormat{
		NormHash: strings.ToLower,
		Calc: func(_ *handler.Record, secret string) ([]byte, error) {
			sum, err := digest.Sum(info.Name, []byte(secret))
			if err != nil {
				return nil, err
			}
			return []byte(hex.EncodeToString(sum)), nil
		},
	})
}

// HexMD5 returns the handler for bare hexadecimal MD5 digests.
func HexMD5(opts ...handler.ConfigOption) (*handler.Handler, error) {
	return newHexDigest(NameHexMD5, "md5", opts)
}

// HexSHA1 returns the handler for bare hexadecimal SHA-1 digests.
func HexSHA1(opts ...handler.ConfigOption) (*handler.Handler, error) {
	return newHexDigest(NameHexSHA1, "sha-1", opts)
}

// HexSHA256 returns the handler for bare hexadecimal SHA-256 digests.
func HexSHA256(opts ...handler.ConfigOption) (*handler.Handler, error) {
	return newHexDigest(NameHexSHA256, "sha-256", opts)
}

// HexSHA512 returns the handler for bare hexadecimal SHA-512 digests.
func HexSHA512(opts ...handler.ConfigOption) (*handler.Handler, error) {
	return newHexDigest(NameHexSHA512, "sha-512", opts)
}
