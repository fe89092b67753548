package handler

import "maps"

// Settings carries the per-call values used to build a record.  Formats
// also return a Settings from their Parse method; every field a format does
// not support must be left at its zero value.
type Settings struct {
	Ident string

	Salt     []byte
	HasSalt  bool
	SaltSize int

	Rounds    int
	HasRounds bool

	// Checksum is the single digest of the record.  Text checksums are
	// carried as their UTF-8 bytes.  Empty means absent, except for static
	// formats without a fixed checksum size.
	Checksum []byte

	emptyChecksum bool

	// Digests is the checksum of multi-digest formats.
	Digests map[string][]byte

	User     string
	Encoding string

	// Relaxed clips out-of-bounds values with a warning instead of failing.
	Relaxed bool

	Secret    string
	HasSecret bool

	// Extra holds format-specific settings, e.g. the digest list of a
	// SCRAM record.
	Extra map[string]any
}

// Option adjusts the [Settings] of a single call.
type Option func(*Settings)

func buildSettings(opts []Option) Settings {
	var s Settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithIdent selects one of the format's identifiers.  Aliases are accepted.
func WithIdent(ident string) Option {
	return func(s *Settings) { s.Ident = ident }
}

// WithSalt supplies an explicit salt.  For text-salt formats the bytes must
// be valid text in the format's salt alphabet.
func WithSalt(salt []byte) Option {
	return func(s *Settings) {
		s.Salt = append([]byte(nil), salt...)
		s.HasSalt = true
	}
}

// WithSaltString is [WithSalt] for text salts.
func WithSaltString(salt string) Option {
	return WithSalt([]byte(salt))
}

// WithSaltSize overrides the size of a generated salt.
func WithSaltSize(n int) Option {
	return func(s *Settings) { s.SaltSize = n }
}

// WithRounds supplies an explicit cost.
func WithRounds(n int) Option {
	return func(s *Settings) {
		s.Rounds = n
		s.HasRounds = true
	}
}

// WithChecksum supplies an explicit checksum (strict construction only).
func WithChecksum(chk []byte) Option {
	return func(s *Settings) { s.Checksum = append([]byte(nil), chk...) }
}

// WithDigests supplies the digest map of a multi-digest format.
func WithDigests(d map[string][]byte) Option {
	return func(s *Settings) {
		s.Digests = make(map[string][]byte, len(d))
		for k, v := range d {
			s.Digests[k] = append([]byte(nil), v...)
		}
	}
}

// WithUser sets the user context threaded into digest computation.
func WithUser(user string) Option {
	return func(s *Settings) { s.User = user }
}

// WithEncoding sets the character encoding used to turn the secret into
// bytes, for formats that support it.
func WithEncoding(enc string) Option {
	return func(s *Settings) { s.Encoding = enc }
}

// Relaxed clips out-of-bounds rounds and oversized salts, reporting a
// [WarnCorrected] warning, instead of failing.
func Relaxed() Option {
	return func(s *Settings) { s.Relaxed = true }
}

// WithSecret passes the secret to [Handler.NeedsUpdate] for formats whose
// migration check depends on it.
func WithSecret(secret string) Option {
	return func(s *Settings) {
		s.Secret = secret
		s.HasSecret = true
	}
}

// WithExtra sets a format-specific setting.
func WithExtra(key string, value any) Option {
	return func(s *Settings) {
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[key] = value
	}
}

func cloneExtra(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
