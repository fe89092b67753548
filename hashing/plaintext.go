package hashing

import (
	"fmt"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// DefaultPlaintextEncoding is the encoding assumed for secrets.
const DefaultPlaintextEncoding = "utf-8"

// Plaintext returns the handler that stores the secret itself.  The secret
// is decoded from its encoding, any WHATWG label, into UTF-8 first:
//
//	h.Hash(latin1Secret, handler.WithEncoding("iso-8859-1"))
//
// It identifies every record, so register it last.
func Plaintext(opts ...handler.ConfigOption) (*handler.Handler, error) {
	cfg, err := handler.DeriveConfig(handler.Config{
		Name: NamePlaintext,
		Context: handler.ContextPolicy{
			Encoding:        true,
			DefaultEncoding: DefaultPlaintextEncoding,
		},
	}, opts...)
	if err != nil {
		return nil, err
	}
	return handler.NewStatic(cfg, handler.StaticFormat{
		Calc: func(r *handler.Record, secret string) ([]byte, error) {
			enc, err := htmlindex.Get(r.Encoding())
			if err != nil {
				return nil, fmt.Errorf("%w: unknown encoding %q", mcf.ErrInvalidOption, r.Encoding())
			}
			text, err := enc.NewDecoder().String(secret)
			if err != nil {
				return nil, fmt.Errorf("%w: secret is not valid %s: %v", mcf.ErrInvalidSecret, r.Encoding(), err)
			}
			return []byte(text), nil
		},
	})
}
