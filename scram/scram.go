// Package scram stores SCRAM credentials as hash records.
//
// A record keeps the SaltedPassword of one or more digest algorithms, so a
// SCRAM server can authenticate clients with any of them:
//
//	$scram$<rounds>$<salt>$sha-1=<digest>,sha-256=<digest>,...
//
// Salt and digests are base64url without padding.  A template record lists
// bare algorithm names instead of digests.  The "sha-1" digest is mandatory
// and algorithm names are limited to 9 characters.
package scram

import (
	"crypto/subtle"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/hasbyte1/go-crypt-handlers/codec"
	"github.com/hasbyte1/go-crypt-handlers/digest"
	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

const (
	// Ident is the record prefix.
	Ident = "$scram$"

	// Name is the handler name.
	Name = "scram"

	// MaxAlgLen is the longest algorithm name the protocol allows.
	MaxAlgLen = 9

	// MaxRounds is the largest iteration count a record may carry, capped
	// at the int range of the platform.
	MaxRounds = min(math.MaxUint32, math.MaxInt)

	// DefaultRounds is the iteration count of new records.
	DefaultRounds = 100000

	// DefaultSaltSize is the salt size of new records, in bytes.
	DefaultSaltSize = 12

	algsKey = "algs"
)

var (
	defaultAlgs = []string{"sha-1", "sha-256", "sha-512"}

	// preference orders the algorithms tried by a fast verify.
	preference = []string{"sha-256", "sha-512", "sha-224", "sha-384", "sha-1"}
)

// DefaultAlgs returns the algorithms stored by default.
func DefaultAlgs() []string { return slices.Clone(defaultAlgs) }

// WithAlgs selects the algorithms stored in a new record.
func WithAlgs(algs ...string) handler.Option {
	return handler.WithExtra(algsKey, algs)
}

// Algs sets the algorithms stored by default in a derived configuration.
func Algs(algs ...string) handler.ConfigOption {
	return handler.Extra(algsKey, algs)
}

// DefaultConfig returns the default SCRAM configuration.
func DefaultConfig() handler.Config {
	return handler.Config{
		Name:        Name,
		Ident:       Ident,
		RawChecksum: true,
		Salt: &handler.SaltPolicy{
			MinSize:     0,
			MaxSize:     1024,
			DefaultSize: DefaultSaltSize,
			Raw:         true,
		},
		Rounds: &handler.RoundsPolicy{
			Min:     1,
			Max:     MaxRounds,
			Default: DefaultRounds,
			Cost:    handler.Linear,
		},
		Extra: map[string]any{algsKey: DefaultAlgs()},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Derivation
// ──────────────────────────────────────────────────────────────────────────────

// DeriveDigest computes SCRAM's SaltedPassword: PBKDF2 over HMAC-alg of the
// normalized secret.
func DeriveDigest(secret string, salt []byte, rounds int, alg string) ([]byte, error) {
	norm, err := digest.NormalizeCredential(secret)
	if err != nil {
		return nil, err
	}
	name, err := digest.Canonical(alg, digest.IANA)
	if err != nil {
		return nil, err
	}
	return digest.PBKDF2HMAC(name, norm, salt, rounds, 0)
}

// normalizeAlgs canonicalizes an algorithm list given as []string or as a
// comma-separated string, and enforces the SCRAM rules.
func normalizeAlgs(v any) ([]string, error) {
	var raw []string
	switch algs := v.(type) {
	case []string:
		raw = algs
	case string:
		raw = strings.Split(algs, ",")
	default:
		return nil, fmt.Errorf("%w: algs must be a list of names, got %T", mcf.ErrTypeMismatch, v)
	}
	out := make([]string, 0, len(raw))
	for _, a := range raw {
		name, err := digest.Canonical(a, digest.IANA)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out, checkAlgs(out)
}

func checkAlgs(algs []string) error {
	for _, a := range algs {
		if len(a) > MaxAlgLen {
			return fmt.Errorf("%w: scram limits algorithm names to %d characters, got %q",
				mcf.ErrInvalidOption, MaxAlgLen, a)
		}
	}
	if !slices.Contains(algs, "sha-1") {
		return fmt.Errorf("%w: sha-1 must be in the scram algorithm list", mcf.ErrInvalidOption)
	}
	return nil
}

func configAlgs(cfg *handler.Config) []string {
	algs, _ := cfg.Extra[algsKey].([]string)
	return algs
}

// algsOf returns the algorithms of a record, from its digests when present.
func algsOf(r *handler.Record) []string {
	if r.HasChecksum() {
		return r.DigestNames()
	}
	v, _ := r.Extra(algsKey)
	algs, _ := v.([]string)
	return algs
}

// ──────────────────────────────────────────────────────────────────────────────
// Format
// ──────────────────────────────────────────────────────────────────────────────

// Format is the SCRAM record layout.  Codec encodes salt and digests; nil
// selects base64url without padding.
type Format struct {
	Codec codec.Codec
}

func (f *Format) codec() codec.Codec {
	if f.Codec == nil {
		return codec.URLBase64
	}
	return f.Codec
}

// Parse implements handler.Format.
func (f *Format) Parse(_ *handler.Config, record string) (handler.Settings, error) {
	rounds, saltField, chk, err := mcf.Parse3(record, Ident)
	if err != nil {
		return handler.Settings{}, err
	}
	if chk == "" {
		return handler.Settings{}, fmt.Errorf("%w: scram record has no algorithm field", mcf.ErrMalformedRecord)
	}
	salt, err := f.codec().DecodeString(saltField)
	if err != nil {
		return handler.Settings{}, fmt.Errorf("%w: invalid scram salt: %v", mcf.ErrMalformedRecord, err)
	}
	s := handler.Settings{
		Rounds:    rounds,
		HasRounds: true,
		Salt:      salt,
		HasSalt:   true,
	}

	if !strings.Contains(chk, "=") {
		algs := strings.Split(chk, ",")
		for i, alg := range algs {
			if err := checkStoredAlg(alg, algs[:i]); err != nil {
				return handler.Settings{}, err
			}
		}
		s.Extra = map[string]any{algsKey: algs}
		return s, nil
	}
	pairs := strings.Split(chk, ",")
	algs := make([]string, 0, len(pairs))
	s.Digests = make(map[string][]byte, len(pairs))
	for _, pair := range pairs {
		alg, enc, ok := strings.Cut(pair, "=")
		if !ok || alg == "" {
			return handler.Settings{}, fmt.Errorf("%w: malformed scram digest %q", mcf.ErrMalformedRecord, pair)
		}
		if err := checkStoredAlg(alg, algs); err != nil {
			return handler.Settings{}, err
		}
		d, err := f.codec().DecodeString(enc)
		if err != nil {
			return handler.Settings{}, fmt.Errorf("%w: invalid %s digest: %v", mcf.ErrMalformedRecord, alg, err)
		}
		s.Digests[alg] = d
		algs = append(algs, alg)
	}
	// kept so a record stripped of its digests still knows its algorithms
	s.Extra = map[string]any{algsKey: algs}
	return s, nil
}

// checkStoredAlg rejects a record algorithm name that is not in canonical
// IANA spelling, e.g. "sha1" or "SHA-1", or that repeats an earlier one.
func checkStoredAlg(alg string, seen []string) error {
	if name, err := digest.Canonical(alg, digest.IANA); err != nil || name != alg {
		return fmt.Errorf("%w: non-canonical scram algorithm %q", mcf.ErrMalformedRecord, alg)
	}
	if slices.Contains(seen, alg) {
		return fmt.Errorf("%w: duplicate scram algorithm %q", mcf.ErrMalformedRecord, alg)
	}
	return nil
}

// Render implements handler.Format.  Algorithms are emitted sorted.
func (f *Format) Render(r *handler.Record) string {
	c := f.codec()
	var chk string
	if d := r.Digests(); d != nil {
		names := r.DigestNames()
		parts := make([]string, len(names))
		for i, alg := range names {
			parts[i] = alg + "=" + c.EncodeToString(d[alg])
		}
		chk = strings.Join(parts, ",")
	} else {
		chk = strings.Join(algsOf(r), ",")
	}
	return mcf.Render3(Ident, r.Rounds(), c.EncodeToString(r.Salt()), chk)
}

// Digests implements handler.MultiDigester.
func (f *Format) Digests(r *handler.Record, secret string) (map[string][]byte, error) {
	algs := algsOf(r)
	out := make(map[string][]byte, len(algs))
	for _, alg := range algs {
		d, err := DeriveDigest(secret, r.Salt(), r.Rounds(), alg)
		if err != nil {
			return nil, err
		}
		out[alg] = d
	}
	return out, nil
}

// NormalizeDigests implements handler.MultiDigester.
func (f *Format) NormalizeDigests(_ *handler.Config, d map[string][]byte) (map[string][]byte, error) {
	out := make(map[string][]byte, len(d))
	for alg, v := range d {
		name, err := digest.Canonical(alg, digest.IANA)
		if err != nil {
			return nil, err
		}
		info, _ := digest.Lookup(name)
		if len(v) != info.Size {
			return nil, fmt.Errorf("%w: %s digest must be %d bytes, got %d",
				mcf.ErrSizeViolation, name, info.Size, len(v))
		}
		out[name] = slices.Clone(v)
	}
	names := make([]string, 0, len(out))
	for name := range out {
		names = append(names, name)
	}
	if err := checkAlgs(names); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeExtra implements handler.ExtraNormalizer.  The only setting is
// the algorithm list, defaulting to the configured one.
func (f *Format) NormalizeExtra(cfg *handler.Config, extra map[string]any, useDefaults bool) (map[string]any, error) {
	for key := range extra {
		if key != algsKey {
			return nil, fmt.Errorf("%w: scram does not support %s", mcf.ErrTypeMismatch, key)
		}
	}
	v, ok := extra[algsKey]
	if !ok {
		if !useDefaults {
			return nil, nil
		}
		return map[string]any{algsKey: slices.Clone(configAlgs(cfg))}, nil
	}
	algs, err := normalizeAlgs(v)
	if err != nil {
		return nil, err
	}
	return map[string]any{algsKey: algs}, nil
}

// ValidateConfig implements handler.ConfigValidator.
func (f *Format) ValidateConfig(cfg *handler.Config) error {
	v, ok := cfg.Extra[algsKey]
	if !ok {
		return fmt.Errorf("%w: scram config has no default algorithms", mcf.ErrInvalidOption)
	}
	algs, err := normalizeAlgs(v)
	if err != nil {
		return err
	}
	cfg.Extra[algsKey] = algs
	return nil
}

// Verify implements handler.Verifier: only the strongest stored digest in
// the fixed preference order is checked.
func (f *Format) Verify(r *handler.Record, secret string) (bool, error) {
	d := r.Digests()
	for _, alg := range preference {
		want, ok := d[alg]
		if !ok {
			continue
		}
		got, err := DeriveDigest(secret, r.Salt(), r.Rounds(), alg)
		if err != nil {
			return false, err
		}
		return subtle.ConstantTimeCompare(got, want) == 1, nil
	}
	return false, fmt.Errorf("%w: no preferred scram digest in record", mcf.ErrMissingDigest)
}

// NeedsUpdate implements handler.UpdateChecker: a record storing fewer
// algorithms than the configured default set is stale.
func (f *Format) NeedsUpdate(r *handler.Record, _ *string) (bool, error) {
	have := algsOf(r)
	for _, alg := range configAlgs(r.Config()) {
		if !slices.Contains(have, alg) {
			return true, nil
		}
	}
	return false, nil
}
