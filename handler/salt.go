package handler

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hasbyte1/go-crypt-handlers/internal/random"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// SaltPolicy bounds and generates the salt of a format.
//
// Sizes are counted in bytes for raw salts and in characters for text salts.
type SaltPolicy struct {
	// MinSize is the hard floor.  Salts below it are always rejected.
	MinSize int

	// MaxSize is the ceiling; zero means unbounded.  Oversized salts are
	// rejected, or truncated in relaxed mode.
	MaxSize int

	// DefaultSize is the size of generated salts.
	DefaultSize int

	// Chars is the alphabet a text salt must be drawn from.  Empty accepts
	// any valid UTF-8.
	Chars string

	// DefaultChars is the alphabet used for generation; defaults to Chars.
	DefaultChars string

	// Raw marks a byte salt: no charset check, generation draws bytes.
	Raw bool
}

func (p *SaltPolicy) unit() string {
	if p.Raw {
		return "bytes"
	}
	return "chars"
}

func (p *SaltPolicy) size(salt []byte) int {
	if p.Raw {
		return len(salt)
	}
	return utf8.RuneCount(salt)
}

// Describe returns a short human-readable summary of the bounds.
func (p *SaltPolicy) Describe() string {
	hi := "∞"
	if p.MaxSize > 0 {
		hi = fmt.Sprint(p.MaxSize)
	}
	return fmt.Sprintf("salt %d..%s %s, default %d", p.MinSize, hi, p.unit(), p.DefaultSize)
}

// Normalize validates a supplied salt and returns a private copy.
func (p *SaltPolicy) Normalize(salt []byte, relaxed bool, report Reporter) ([]byte, error) {
	if !p.Raw {
		if !utf8.Valid(salt) {
			return nil, fmt.Errorf("%w: salt must be valid text", mcf.ErrTypeMismatch)
		}
		if p.Chars != "" {
			for _, c := range string(salt) {
				if !strings.ContainsRune(p.Chars, c) {
					return nil, fmt.Errorf("%w: invalid character %q in salt", mcf.ErrMalformedRecord, c)
				}
			}
		}
	}

	n := p.size(salt)
	if n < p.MinSize {
		return nil, fmt.Errorf("%w: salt too small (%d %s, min %d)", mcf.ErrSizeViolation, n, p.unit(), p.MinSize)
	}
	out := append([]byte(nil), salt...)
	if p.MaxSize > 0 && n > p.MaxSize {
		if !relaxed {
			return nil, fmt.Errorf("%w: salt too large (%d %s, max %d)", mcf.ErrBoundsViolation, n, p.unit(), p.MaxSize)
		}
		report.report(WarnCorrected, "salt too large (%d %s, max %d), truncated", n, p.unit(), p.MaxSize)
		out = p.truncate(out)
	}
	return out, nil
}

func (p *SaltPolicy) truncate(salt []byte) []byte {
	if p.Raw {
		return salt[:p.MaxSize]
	}
	count := 0
	for i := range string(salt) {
		if count == p.MaxSize {
			return salt[:i]
		}
		count++
	}
	return salt
}

// SizeFor checks a requested salt size against the bounds.  Strictly, an
// out-of-range size fails with [mcf.ErrBoundsViolation]; relaxed, it is
// clipped and reported.
func (p *SaltPolicy) SizeFor(n int, relaxed bool, report Reporter) (int, error) {
	clipped := n
	if n < p.MinSize {
		clipped = p.MinSize
	}
	if p.MaxSize > 0 && n > p.MaxSize {
		clipped = p.MaxSize
	}
	if clipped == n {
		return n, nil
	}
	if !relaxed {
		return 0, fmt.Errorf("%w: salt size %d outside %s", mcf.ErrBoundsViolation, n, p.Describe())
	}
	report.report(WarnCorrected, "salt size %d clipped to %d", n, clipped)
	return clipped, nil
}

// Generate draws a fresh salt of n units.
func (p *SaltPolicy) Generate(n int) ([]byte, error) {
	if p.Raw {
		return random.Bytes(n)
	}
	chars := p.DefaultChars
	if chars == "" {
		chars = p.Chars
	}
	if chars == "" {
		return nil, fmt.Errorf("%w: text salt policy has no alphabet to generate from", mcf.ErrInvalidOption)
	}
	s, err := random.Text(chars, n)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (p *SaltPolicy) clone() *SaltPolicy {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
