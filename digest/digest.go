// Package digest resolves message-digest names and derives keys from them.
//
// Names are accepted in any of the spellings found in the wild ("SHA1",
// "sha-1", "SCRAM-SHA-1", "hmac-sha256", "sha3_256") and canonicalized to
// either the IANA registry form used by SCRAM ("sha-1", "sha-256") or the
// underscore-free library form ("sha1", "sha256").
package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/sha3"

	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// Namespace selects the spelling returned by [Canonical].
type Namespace int

const (
	// IANA is the hash function textual name registry spelling, e.g. "sha-256".
	IANA Namespace = iota
	// Hashlib is the compact library spelling, e.g. "sha256".
	Hashlib
)

// Info describes a supported digest.
type Info struct {
	// Name is the IANA spelling.
	Name string
	// Hashlib is the compact spelling.
	Hashlib string
	// Size is the digest size in bytes.
	Size int
	// New returns a fresh hash state.
	New func() hash.Hash
}

func blake2b512() hash.Hash {
	h, err := blake2b.New512(nil)
	if err != nil {
		// only fails for oversized keys
		panic(err)
	}
	return h
}

var registry = []Info{
	{"md5", "md5", md5.Size, md5.New},
	{"sha-1", "sha1", sha1.Size, sha1.New},
	{"sha-224", "sha224", sha256.Size224, sha256.New224},
	{"sha-256", "sha256", sha256.Size, sha256.New},
	{"sha-384", "sha384", sha512.Size384, sha512.New384},
	{"sha-512", "sha512", sha512.Size, sha512.New},
	{"sha3-224", "sha3_224", 28, sha3.New224},
	{"sha3-256", "sha3_256", 32, sha3.New256},
	{"sha3-384", "sha3_384", 48, sha3.New384},
	{"sha3-512", "sha3_512", 64, sha3.New512},
	{"blake2b-512", "blake2b", blake2b.Size, blake2b512},
}

// aliases maps a folded spelling (lowercase, no '-' or '_') to its entry.
var aliases = func() map[string]*Info {
	m := make(map[string]*Info, 2*len(registry))
	for i := range registry {
		e := &registry[i]
		m[fold(e.Name)] = e
		m[fold(e.Hashlib)] = e
	}
	m["sha"] = m["sha1"]
	return m
}()

func fold(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.TrimPrefix(name, "scram-")
	name = strings.TrimPrefix(name, "hmac-")
	return strings.NewReplacer("-", "", "_", "").Replace(name)
}

// Lookup returns the entry for name in any accepted spelling.
func Lookup(name string) (Info, error) {
	e, ok := aliases[fold(name)]
	if !ok {
		return Info{}, fmt.Errorf("%w: unknown digest %q", mcf.ErrInvalidOption, name)
	}
	return *e, nil
}

// Canonical returns name in the spelling of ns.
//
//	digest.Canonical("SCRAM-SHA-1", digest.IANA)   // "sha-1"
//	digest.Canonical("sha-256", digest.Hashlib)    // "sha256"
func Canonical(name string, ns Namespace) (string, error) {
	e, err := Lookup(name)
	if err != nil {
		return "", err
	}
	if ns == Hashlib {
		return e.Hashlib, nil
	}
	return e.Name, nil
}

// Names lists every supported digest in IANA spelling, sorted.
func Names() []string {
	out := make([]string, len(registry))
	for i, e := range registry {
		out[i] = e.Name
	}
	sort.Strings(out)
	return out
}

// Sum returns the digest of data under the named algorithm.
func Sum(name string, data []byte) ([]byte, error) {
	e, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	h := e.New()
	h.Write(data)
	return h.Sum(nil), nil
}

// PBKDF2HMAC derives a key from password with PBKDF2 over HMAC-alg.  A
// keyLen of zero selects the digest size, which is what SCRAM stores as
// SaltedPassword.
func PBKDF2HMAC(alg, password string, salt []byte, rounds, keyLen int) ([]byte, error) {
	e, err := Lookup(alg)
	if err != nil {
		return nil, err
	}
	if rounds < 1 {
		return nil, fmt.Errorf("%w: pbkdf2 rounds must be ≥ 1, got %d", mcf.ErrBoundsViolation, rounds)
	}
	if keyLen < 0 {
		return nil, fmt.Errorf("%w: negative pbkdf2 key length %d", mcf.ErrInvalidOption, keyLen)
	}
	if keyLen == 0 {
		keyLen = e.Size
	}
	return pbkdf2.Key([]byte(password), salt, rounds, keyLen, e.New), nil
}
