// Package mcf parses and renders the "modular crypt format" family of
// password hash records:
//
//	<prefix><settings>[$<checksum>]                  (two fields)
//	<prefix>[<rounds>]$<settings>[$<checksum>]       (three fields, numeric)
//	<prefix><params>$<settings>[$<checksum>]         (three fields, opaque)
//
// The helpers are stateless and strict: a record with the wrong prefix fails
// with [ErrInvalidRecord]; the wrong number of fields, a zero-padded number or
// an empty required field fails with [ErrMalformedRecord].  Every helper has a
// render counterpart so that render(parse(text)) == text for valid input.
//
// An absent checksum is reported as the empty string.  Rendering an empty
// checksum omits the trailing field entirely, which yields a template
// (configuration) record instead of a record ending in a bare separator.
package mcf

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultSeparator is the field separator used by most formats.
const DefaultSeparator = "$"

// options carries the tunables shared by the parse and render helpers.
type options struct {
	sep        string
	base       int
	def        int
	hasDefault bool
	param      string
}

// Option adjusts a parse or render helper.
type Option func(*options)

// Separator overrides the field separator (default "$").
func Separator(sep string) Option {
	return func(o *options) { o.sep = sep }
}

// Base sets the numeric base of the rounds field (default 10).
func Base(base int) Option {
	return func(o *options) { o.base = base }
}

// Default supplies the value used when a numeric field is empty.  Without it
// an empty numeric field is malformed.
func Default(n int) Option {
	return func(o *options) {
		o.def = n
		o.hasDefault = true
	}
}

// Param names the numeric field in error messages (default "rounds").
func Param(name string) Option {
	return func(o *options) { o.param = name }
}

func buildOptions(opts []Option) options {
	o := options{sep: DefaultSeparator, base: 10, param: "rounds"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ──────────────────────────────────────────────────────────────────────────────
// Parsing
// ──────────────────────────────────────────────────────────────────────────────

// Parse2 parses "<prefix><settings>[<sep><checksum>]".
//
// A record with a single field after the prefix is a template and returns an
// empty checksum.
func Parse2(record, prefix string, opts ...Option) (settings, checksum string, err error) {
	o := buildOptions(opts)
	rest, err := stripPrefix(record, prefix)
	if err != nil {
		return "", "", err
	}
	parts := strings.Split(rest, o.sep)
	switch len(parts) {
	case 2:
		return parts[0], parts[1], nil
	case 1:
		return parts[0], "", nil
	default:
		return "", "", fmt.Errorf("%w: expected 1 or 2 fields after %q, got %d",
			ErrMalformedRecord, prefix, len(parts))
	}
}

// Parse3 parses "<prefix>[<rounds>]<sep><settings>[<sep><checksum>]".
//
// The rounds field must not be zero-padded ("0" itself is allowed) and must
// parse in the configured [Base].  An empty rounds field is only accepted when
// a [Default] is supplied.
//
//	rounds, salt, chk, err := mcf.Parse3("$5$10000$abc$def", "$5$")
//	// rounds == 10000, salt == "abc", chk == "def"
func Parse3(record, prefix string, opts ...Option) (rounds int, settings, checksum string, err error) {
	field, settings, checksum, err := Parse3Opaque(record, prefix, opts...)
	if err != nil {
		return 0, "", "", err
	}
	rounds, err = ParseInt(field, opts...)
	if err != nil {
		return 0, "", "", err
	}
	return rounds, settings, checksum, nil
}

// Parse3Opaque is the structural variant of [Parse3]: the first field is
// returned unparsed so the caller can interpret composite parameter strings
// such as "ln=16,r=8,p=1".
func Parse3Opaque(record, prefix string, opts ...Option) (params, settings, checksum string, err error) {
	o := buildOptions(opts)
	rest, err := stripPrefix(record, prefix)
	if err != nil {
		return "", "", "", err
	}
	parts := strings.Split(rest, o.sep)
	switch len(parts) {
	case 3:
		return parts[0], parts[1], parts[2], nil
	case 2:
		return parts[0], parts[1], "", nil
	default:
		return "", "", "", fmt.Errorf("%w: expected 2 or 3 fields after %q, got %d",
			ErrMalformedRecord, prefix, len(parts))
	}
}

// ParseInt parses a numeric field with the zero-padding rule shared by all
// formats: a leading '0' is only allowed for the value "0" itself.  Signs are
// not accepted.
func ParseInt(field string, opts ...Option) (int, error) {
	o := buildOptions(opts)
	if field == "" {
		if o.hasDefault {
			return o.def, nil
		}
		return 0, fmt.Errorf("%w: empty %s field", ErrMalformedRecord, o.param)
	}
	if field[0] == '0' && field != "0" {
		return 0, fmt.Errorf("%w: zero-padded %s field %q", ErrMalformedRecord, o.param, field)
	}
	if field[0] == '+' || field[0] == '-' {
		return 0, fmt.Errorf("%w: signed %s field %q", ErrMalformedRecord, o.param, field)
	}
	n, err := strconv.ParseUint(field, o.base, strconv.IntSize-1)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s field %q", ErrMalformedRecord, o.param, field)
	}
	return int(n), nil
}

func stripPrefix(record, prefix string) (string, error) {
	rest, ok := strings.CutPrefix(record, prefix)
	if !ok {
		return "", fmt.Errorf("%w: missing %q prefix", ErrInvalidRecord, prefix)
	}
	return rest, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Rendering
// ──────────────────────────────────────────────────────────────────────────────

// Render2 is the inverse of [Parse2].  An empty checksum renders a template.
func Render2(prefix, settings, checksum string, opts ...Option) string {
	o := buildOptions(opts)
	if checksum == "" {
		return prefix + settings
	}
	return prefix + settings + o.sep + checksum
}

// Render3 is the inverse of [Parse3].  The rounds value is encoded in the
// configured [Base].
func Render3(prefix string, rounds int, settings, checksum string, opts ...Option) string {
	o := buildOptions(opts)
	return Render3Opaque(prefix, strconv.FormatInt(int64(rounds), o.base), settings, checksum, opts...)
}

// Render3Opaque is the inverse of [Parse3Opaque].
func Render3Opaque(prefix, params, settings, checksum string, opts ...Option) string {
	o := buildOptions(opts)
	var b strings.Builder
	b.Grow(len(prefix) + len(params) + len(settings) + len(checksum) + 2*len(o.sep))
	b.WriteString(prefix)
	b.WriteString(params)
	b.WriteString(o.sep)
	b.WriteString(settings)
	if checksum != "" {
		b.WriteString(o.sep)
		b.WriteString(checksum)
	}
	return b.String()
}
