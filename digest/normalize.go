package digest

import (
	"fmt"

	"golang.org/x/text/secure/precis"

	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// NormalizeCredential prepares a password for key derivation using the
// PRECIS OpaqueString profile (RFC 8265), the successor of SASLprep: non-ASCII
// spaces become U+0020, the result is NFC-normalized, and control or
// unassigned code points are rejected with [mcf.ErrInvalidSecret].
//
// The empty string normalizes to itself.
func NormalizeCredential(secret string) (string, error) {
	if secret == "" {
		return "", nil
	}
	out, err := precis.OpaqueString.String(secret)
	if err != nil {
		return "", fmt.Errorf("%w: %v", mcf.ErrInvalidSecret, err)
	}
	return out, nil
}
