package handler

import (
	"fmt"
	"maps"
	"slices"

	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// Record is a normalized hash record.  It is immutable: accessors return
// copies.
type Record struct {
	h *Handler

	ident     string
	salt      []byte
	hasSalt   bool
	rounds    int
	hasRounds bool
	checksum  []byte
	digests   map[string][]byte
	complete  bool
	user      string
	encoding  string
	extra     map[string]any

	warnings []Warning
}

func (r *Record) clone() *Record {
	c := *r
	c.salt = slices.Clone(r.salt)
	c.checksum = slices.Clone(r.checksum)
	if r.digests != nil {
		c.digests = make(map[string][]byte, len(r.digests))
		for k, v := range r.digests {
			c.digests[k] = slices.Clone(v)
		}
	}
	c.extra = cloneExtra(r.extra)
	c.warnings = slices.Clone(r.warnings)
	return &c
}

// Handler returns the handler that built the record.
func (r *Record) Handler() *Handler { return r.h }

// Config returns the configuration the record was built under.  It is
// shared with the handler and must not be modified.
func (r *Record) Config() *Config { return &r.h.cfg }

// Ident returns the identifier prefix, or "" for single-ident formats.
func (r *Record) Ident() string { return r.ident }

// Salt returns the salt, or nil for unsalted formats.
func (r *Record) Salt() []byte { return slices.Clone(r.salt) }

// SaltString returns the salt as text.
func (r *Record) SaltString() string { return string(r.salt) }

// HasSalt reports whether the format carries a salt.
func (r *Record) HasSalt() bool { return r.hasSalt }

// Rounds returns the cost parameter.
func (r *Record) Rounds() int { return r.rounds }

// HasRounds reports whether the format carries a cost parameter.
func (r *Record) HasRounds() bool { return r.hasRounds }

// Checksum returns the single checksum, or nil.
func (r *Record) Checksum() []byte { return slices.Clone(r.checksum) }

// Digests returns a copy of the digest map of multi-digest formats.
func (r *Record) Digests() map[string][]byte {
	if r.digests == nil {
		return nil
	}
	out := make(map[string][]byte, len(r.digests))
	for k, v := range r.digests {
		out[k] = slices.Clone(v)
	}
	return out
}

// DigestNames returns the digest algorithms, sorted.
func (r *Record) DigestNames() []string {
	return slices.Sorted(maps.Keys(r.digests))
}

// HasChecksum reports whether the record is complete rather than a
// template.
func (r *Record) HasChecksum() bool { return r.complete }

// User returns the user context.
func (r *Record) User() string { return r.user }

// Encoding returns the secret encoding context.
func (r *Record) Encoding() string { return r.encoding }

// Extra returns a format-specific setting.
func (r *Record) Extra(key string) (any, bool) {
	v, ok := r.extra[key]
	return v, ok
}

// Warnings returns the warnings raised while building the record.
func (r *Record) Warnings() []Warning { return slices.Clone(r.warnings) }

// String renders the record.
func (r *Record) String() string { return r.h.format.Render(r) }

// ──────────────────────────────────────────────────────────────────────────────
// Template
// ──────────────────────────────────────────────────────────────────────────────

// Template is a record whose settings are fixed but whose checksum is not
// known yet.
type Template struct {
	rec *Record
}

// Record returns the template as a checksum-less record.
func (t *Template) Record() *Record { return t.rec.clone() }

// String renders the template (configuration string).
func (t *Template) String() string { return t.rec.String() }

// Fill computes the checksum for secret.
func (t *Template) Fill(secret string) (*Record, error) {
	return t.rec.h.fill(t.rec, secret)
}

// WithChecksum completes the template with a known checksum.
func (t *Template) WithChecksum(chk []byte) (*Record, error) {
	if len(chk) == 0 {
		return nil, fmt.Errorf("%w: empty checksum", mcf.ErrSizeViolation)
	}
	h := t.rec.h
	if _, ok := h.format.(MultiDigester); ok {
		return nil, fmt.Errorf("%w: %s stores a digest map", mcf.ErrTypeMismatch, h.cfg.Name)
	}
	norm, err := h.normChecksum(chk)
	if err != nil {
		return nil, err
	}
	out := t.rec.clone()
	out.checksum, out.complete = norm, true
	return out, nil
}

// WithDigests completes the template of a multi-digest format.
func (t *Template) WithDigests(d map[string][]byte) (*Record, error) {
	h := t.rec.h
	md, ok := h.format.(MultiDigester)
	if !ok {
		return nil, fmt.Errorf("%w: %s stores a single checksum", mcf.ErrTypeMismatch, h.cfg.Name)
	}
	norm, err := md.NormalizeDigests(&h.cfg, d)
	if err != nil {
		return nil, err
	}
	out := t.rec.clone()
	out.digests, out.complete = norm, true
	return out, nil
}
