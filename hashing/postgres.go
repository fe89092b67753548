package hashing

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/hasbyte1/go-crypt-handlers/codec"
	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// PostgresMD5 returns the handler for PostgreSQL's "md5<hex>" password
// records: MD5 over the secret followed by the user name.  The user is
// required on every call:
//
//	h.Hash(secret, handler.WithUser("alice"))
//	h.Verify(secret, record, handler.WithUser("alice"))
func PostgresMD5(opts ...handler.ConfigOption) (*handler.Handler, error) {
	cfg, err := handler.DeriveConfig(handler.Config{
		Name:          NamePostgresMD5,
		ChecksumSize:  2 * md5.Size,
		ChecksumChars: codec.LowerHexChars,
		Context:       handler.ContextPolicy{User: true},
	}, opts...)
	if err != nil {
		return nil, err
	}
	return handler.NewStatic(cfg, handler.StaticFormat{
		Prefix: "md5",
		Calc: func(r *handler.Record, secret string) ([]byte, error) {
			if r.User() == "" {
				return nil, fmt.Errorf("%w: %s requires a user", mcf.ErrTypeMismatch, NamePostgresMD5)
			}
			sum := md5.Sum([]byte(secret + r.User()))
			return []byte(hex.EncodeToString(sum[:])), nil
		},
	})
}
