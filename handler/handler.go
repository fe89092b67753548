package handler

import (
	"crypto/subtle"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// MaxSecretSize is the largest secret accepted, in bytes.  Longer secrets
// fail with [mcf.ErrSecretTooLarge] before any digest work starts.
const MaxSecretSize = 4096

// ──────────────────────────────────────────────────────────────────────────────
// Format contracts
// ──────────────────────────────────────────────────────────────────────────────

// Format is the fixed behaviour of a concrete hash format: how its records
// are laid out.  Everything tunable lives in [Config].
//
// A Format must also implement [Checksummer] or [MultiDigester].
type Format interface {
	// Parse splits record into raw settings.  It must report
	// [mcf.ErrInvalidRecord] for foreign records and [mcf.ErrMalformedRecord]
	// for broken ones; range checks are left to the handler.
	Parse(cfg *Config, record string) (Settings, error)

	// Render is the inverse of Parse.  A record without checksum renders
	// as a template.
	Render(r *Record) string
}

// Checksummer computes the single checksum of a record.
type Checksummer interface {
	Checksum(r *Record, secret string) ([]byte, error)
}

// MultiDigester is implemented by formats whose checksum is a map of
// algorithm name to digest.
type MultiDigester interface {
	Digests(r *Record, secret string) (map[string][]byte, error)
	NormalizeDigests(cfg *Config, d map[string][]byte) (map[string][]byte, error)
}

// Verifier overrides the default constant-time comparison.
type Verifier interface {
	Verify(r *Record, secret string) (bool, error)
}

// UpdateChecker adds format-specific migration checks to
// [Handler.NeedsUpdate].  secret is nil unless the caller passed
// [WithSecret].
type UpdateChecker interface {
	NeedsUpdate(r *Record, secret *string) (bool, error)
}

// ExtraNormalizer validates format-specific settings and fills their
// defaults.
type ExtraNormalizer interface {
	NormalizeExtra(cfg *Config, extra map[string]any, useDefaults bool) (map[string]any, error)
}

// ConfigValidator checks format-specific configuration after derivation.
// cfg is a private copy and may be adjusted in place.
type ConfigValidator interface {
	ValidateConfig(cfg *Config) error
}

// BackendProvider exposes the backend set of a format.
type BackendProvider interface {
	Backends() BackendSelector
}

// ──────────────────────────────────────────────────────────────────────────────
// Handler
// ──────────────────────────────────────────────────────────────────────────────

// Handler runs the record lifecycle of one format: parse, build, hash,
// verify and migration checks.
//
// # Thread safety
//
// A Handler is immutable and safe for concurrent use.  Deriving a new
// configuration yields a new Handler.
type Handler struct {
	cfg    Config
	format Format
}

// New builds a handler for format under cfg.
func New(cfg Config, format Format) (*Handler, error) {
	if format == nil {
		return nil, fmt.Errorf("%w: nil format", mcf.ErrInvalidOption)
	}
	_, single := format.(Checksummer)
	_, multi := format.(MultiDigester)
	if !single && !multi {
		return nil, fmt.Errorf("%w: format %s computes no checksum", mcf.ErrInvalidOption, cfg.Name)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: config name must not be empty", mcf.ErrInvalidOption)
	}
	cfg = cfg.Clone()
	if v, ok := format.(ConfigValidator); ok {
		if err := v.ValidateConfig(&cfg); err != nil {
			return nil, err
		}
	}
	return &Handler{cfg: cfg, format: format}, nil
}

// Name returns the format name.
func (h *Handler) Name() string { return h.cfg.Name }

// Config returns a copy of the handler's configuration.
func (h *Handler) Config() Config { return h.cfg.Clone() }

// Format returns the format behind the handler.
func (h *Handler) Format() Format { return h.format }

// RoundsPolicy returns a copy of the rounds bounds, or nil.
func (h *Handler) RoundsPolicy() *RoundsPolicy { return h.cfg.Rounds.clone() }

// SaltPolicy returns a copy of the salt bounds, or nil.
func (h *Handler) SaltPolicy() *SaltPolicy { return h.cfg.Salt.clone() }

// Backends returns the backend selector of the format, or nil.
func (h *Handler) Backends() BackendSelector {
	if p, ok := h.format.(BackendProvider); ok {
		return p.Backends()
	}
	return nil
}

// Derive returns a handler whose configuration is derived from this one.
func (h *Handler) Derive(opts ...ConfigOption) (*Handler, error) {
	cfg, err := DeriveConfig(h.cfg, opts...)
	if err != nil {
		return nil, err
	}
	return New(cfg, h.format)
}

// Using is [Handler.Derive] behind the [Deriver] interface.
func (h *Handler) Using(opts ...ConfigOption) (PasswordHash, error) {
	d, err := h.Derive(opts...)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// WithConfig returns a handler for the same format under cfg.
func (h *Handler) WithConfig(cfg Config) (*Handler, error) {
	return New(cfg, h.format)
}

// ──────────────────────────────────────────────────────────────────────────────
// Record construction
// ──────────────────────────────────────────────────────────────────────────────

// Parse reads a stored record.  Parsed values are checked strictly.
func (h *Handler) Parse(record string) (*Record, error) {
	s, err := h.format.Parse(&h.cfg, record)
	if err != nil {
		return nil, err
	}
	s.Relaxed = false
	return h.build(s, false, true)
}

// NewRecord builds a record from explicit values only: every setting the
// format uses must be supplied.
func (h *Handler) NewRecord(opts ...Option) (*Record, error) {
	return h.build(buildSettings(opts), false, false)
}

// BeginRecord builds a template from opts, generating whatever is not
// supplied.  The checksum is added later with [Template.Fill] or
// [Template.WithChecksum].
func (h *Handler) BeginRecord(opts ...Option) (*Template, error) {
	s := buildSettings(opts)
	s.Checksum, s.Digests, s.emptyChecksum = nil, nil, false
	r, err := h.build(s, true, false)
	if err != nil {
		return nil, err
	}
	return &Template{rec: r}, nil
}

func (h *Handler) build(s Settings, useDefaults, fromRecord bool) (*Record, error) {
	cfg := &h.cfg
	r := &Record{h: h}
	report := logReporter(cfg.Logger, cfg.Name, &r.warnings)

	switch {
	case cfg.Idents != nil:
		ident, err := cfg.Idents.Normalize(s.Ident, useDefaults)
		if err != nil {
			return nil, err
		}
		r.ident = ident
	case s.Ident != "":
		return nil, unsupported(cfg, "ident")
	}

	switch {
	case cfg.Salt != nil:
		salt, err := h.buildSalt(s, useDefaults, report)
		if err != nil {
			return nil, err
		}
		r.salt, r.hasSalt = salt, true
	case s.HasSalt || s.SaltSize != 0:
		return nil, unsupported(cfg, "salt")
	}

	switch {
	case cfg.Rounds != nil:
		rounds, err := h.buildRounds(s, useDefaults, fromRecord, report)
		if err != nil {
			return nil, err
		}
		r.rounds, r.hasRounds = rounds, true
	case s.HasRounds:
		return nil, unsupported(cfg, "rounds")
	}

	switch {
	case cfg.Context.User:
		r.user = s.User
	case s.User != "":
		return nil, unsupported(cfg, "user")
	}
	switch {
	case cfg.Context.Encoding:
		r.encoding = s.Encoding
		if r.encoding == "" {
			r.encoding = cfg.Context.DefaultEncoding
		}
	case s.Encoding != "":
		return nil, unsupported(cfg, "encoding")
	}

	if n, ok := h.format.(ExtraNormalizer); ok {
		extra, err := n.NormalizeExtra(cfg, cloneExtra(s.Extra), useDefaults)
		if err != nil {
			return nil, err
		}
		r.extra = extra
	} else if len(s.Extra) > 0 {
		return nil, unsupported(cfg, strings.Join(slices.Sorted(maps.Keys(s.Extra)), ", "))
	}

	if len(s.Checksum) > 0 || s.emptyChecksum {
		chk, err := h.normChecksum(s.Checksum)
		if err != nil {
			return nil, err
		}
		r.checksum, r.complete = chk, true
	}
	if len(s.Digests) > 0 {
		md, ok := h.format.(MultiDigester)
		if !ok {
			return nil, unsupported(cfg, "digests")
		}
		d, err := md.NormalizeDigests(cfg, s.Digests)
		if err != nil {
			return nil, err
		}
		r.digests, r.complete = d, true
	}
	return r, nil
}

func (h *Handler) buildSalt(s Settings, useDefaults bool, report Reporter) ([]byte, error) {
	p := h.cfg.Salt
	if s.HasSalt {
		return p.Normalize(s.Salt, s.Relaxed, report)
	}
	if !useDefaults {
		return nil, fmt.Errorf("%w: no salt specified", mcf.ErrTypeMismatch)
	}
	size := p.DefaultSize
	if s.SaltSize != 0 {
		n, err := p.SizeFor(s.SaltSize, s.Relaxed, report)
		if err != nil {
			return nil, err
		}
		size = n
	}
	return p.Generate(size)
}

func (h *Handler) buildRounds(s Settings, useDefaults, fromRecord bool, report Reporter) (int, error) {
	p := h.cfg.Rounds
	if s.HasRounds {
		return p.Normalize(s.Rounds, !fromRecord, s.Relaxed, report)
	}
	if !useDefaults {
		return 0, fmt.Errorf("%w: no rounds specified", mcf.ErrTypeMismatch)
	}
	return p.Generate()
}

func (h *Handler) normChecksum(chk []byte) ([]byte, error) {
	cfg := &h.cfg
	if cfg.RawChecksum {
		if cfg.ChecksumSize > 0 && len(chk) != cfg.ChecksumSize {
			return nil, fmt.Errorf("%w: checksum must be %d bytes, got %d",
				mcf.ErrSizeViolation, cfg.ChecksumSize, len(chk))
		}
		return append([]byte(nil), chk...), nil
	}
	if !utf8.Valid(chk) {
		return nil, fmt.Errorf("%w: checksum must be text", mcf.ErrTypeMismatch)
	}
	if n := utf8.RuneCount(chk); cfg.ChecksumSize > 0 && n != cfg.ChecksumSize {
		return nil, fmt.Errorf("%w: checksum must be %d chars, got %d",
			mcf.ErrSizeViolation, cfg.ChecksumSize, n)
	}
	if cfg.ChecksumChars != "" {
		for _, c := range string(chk) {
			if !strings.ContainsRune(cfg.ChecksumChars, c) {
				return nil, fmt.Errorf("%w: invalid character %q in checksum", mcf.ErrMalformedRecord, c)
			}
		}
	}
	return append([]byte(nil), chk...), nil
}

func unsupported(cfg *Config, what string) error {
	return fmt.Errorf("%w: %s does not support %s", mcf.ErrTypeMismatch, cfg.Name, what)
}

func checkSecret(secret string) error {
	if len(secret) > MaxSecretSize {
		return fmt.Errorf("%w: %d bytes, max %d", mcf.ErrSecretTooLarge, len(secret), MaxSecretSize)
	}
	return nil
}

// fill computes the checksum of the template r for secret.
func (h *Handler) fill(r *Record, secret string) (*Record, error) {
	if err := checkSecret(secret); err != nil {
		return nil, err
	}
	out := r.clone()
	if md, ok := h.format.(MultiDigester); ok {
		d, err := md.Digests(out, secret)
		if err != nil {
			return nil, err
		}
		if d, err = md.NormalizeDigests(&h.cfg, d); err != nil {
			return nil, err
		}
		out.digests, out.checksum, out.complete = d, nil, true
		return out, nil
	}
	chk, err := h.format.(Checksummer).Checksum(out, secret)
	if err != nil {
		return nil, err
	}
	if out.checksum, err = h.normChecksum(chk); err != nil {
		return nil, err
	}
	out.complete = true
	return out, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────────────────────────────────

// Hash builds a fresh record for secret and renders it.
func (h *Handler) Hash(secret string, opts ...Option) (string, error) {
	r, err := h.HashRecord(secret, opts...)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}

// HashRecord is [Handler.Hash] returning the record itself.
func (h *Handler) HashRecord(secret string, opts ...Option) (*Record, error) {
	if err := checkSecret(secret); err != nil {
		return nil, err
	}
	t, err := h.BeginRecord(opts...)
	if err != nil {
		return nil, err
	}
	return t.Fill(secret)
}

// Verify reports whether secret matches record.  A template record fails
// with [mcf.ErrMissingDigest].  Only the context options [WithUser] and
// [WithEncoding] are honored.
func (h *Handler) Verify(secret, record string, opts ...Option) (bool, error) {
	if err := checkSecret(secret); err != nil {
		return false, err
	}
	r, err := h.parseWithContext(record, opts)
	if err != nil {
		return false, err
	}
	if !r.HasChecksum() {
		return false, fmt.Errorf("%w: %s record is a template", mcf.ErrMissingDigest, h.cfg.Name)
	}
	if v, ok := h.format.(Verifier); ok {
		return v.Verify(r, secret)
	}
	computed, err := h.fill(r, secret)
	if err != nil {
		return false, err
	}
	if r.digests != nil {
		return equalDigests(computed.digests, r.digests), nil
	}
	return subtle.ConstantTimeCompare(computed.checksum, r.checksum) == 1, nil
}

// parseWithContext parses record and attaches the caller's user and
// encoding, which records never carry.
func (h *Handler) parseWithContext(record string, opts []Option) (*Record, error) {
	r, err := h.Parse(record)
	if err != nil {
		return nil, err
	}
	s := buildSettings(opts)
	switch {
	case h.cfg.Context.User:
		r.user = s.User
	case s.User != "":
		return nil, unsupported(&h.cfg, "user")
	}
	switch {
	case h.cfg.Context.Encoding:
		if s.Encoding != "" {
			r.encoding = s.Encoding
		}
	case s.Encoding != "":
		return nil, unsupported(&h.cfg, "encoding")
	}
	return r, nil
}

func equalDigests(a, b map[string][]byte) bool {
	ok := len(a) == len(b)
	for k, v := range b {
		if subtle.ConstantTimeCompare(a[k], v) != 1 {
			ok = false
		}
	}
	return ok
}

// NeedsUpdate reports whether record should be re-hashed under the current
// configuration: rounds outside the desired range, or a format-specific
// reason.
func (h *Handler) NeedsUpdate(record string, opts ...Option) (bool, error) {
	r, err := h.Parse(record)
	if err != nil {
		return false, err
	}
	if h.cfg.Rounds != nil && h.cfg.Rounds.NeedsUpdate(r.rounds) {
		return true, nil
	}
	if uc, ok := h.format.(UpdateChecker); ok {
		s := buildSettings(opts)
		var secret *string
		if s.HasSecret {
			secret = &s.Secret
		}
		return uc.NeedsUpdate(r, secret)
	}
	return false, nil
}

// Identify reports whether record looks like it belongs to this format:
// by identifier prefix when configured, else by pattern, else by a full
// parse.
func (h *Handler) Identify(record string) bool {
	switch {
	case h.cfg.Idents != nil:
		return h.cfg.Idents.Identify(record)
	case h.cfg.Ident != "":
		return strings.HasPrefix(record, h.cfg.Ident)
	case h.cfg.Pattern != nil:
		return h.cfg.Pattern.MatchString(record)
	}
	_, err := h.Parse(record)
	return err == nil
}

// GenConfig renders a template record: settings without checksum.
func (h *Handler) GenConfig(opts ...Option) (string, error) {
	t, err := h.BeginRecord(opts...)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// GenHash computes the record for secret using the settings of config,
// which may be a template or a full record.  Context options apply as in
// [Handler.Verify].
func (h *Handler) GenHash(secret, config string, opts ...Option) (string, error) {
	r, err := h.parseWithContext(config, opts)
	if err != nil {
		return "", err
	}
	r.checksum, r.digests, r.complete = nil, nil, false
	out, err := h.fill(r, secret)
	if err != nil {
		return "", err
	}
	return out.String(), nil
}
