package handler

import (
	"fmt"
	"math"

	"github.com/hasbyte1/go-crypt-handlers/internal/random"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// CostModel tells how a rounds value maps to work.
type CostModel int

const (
	// Linear cost: work grows with the rounds value.
	Linear CostModel = iota
	// Log2 cost: work grows with 2^rounds.
	Log2
)

func (c CostModel) String() string {
	if c == Log2 {
		return "log2"
	}
	return "linear"
}

// Vary is the jitter applied to generated rounds.  Count is an absolute
// number of rounds; Fraction is relative to the default (0.1 is 10%).  Both
// are measured on the linear scale.  At most one should be set.
type Vary struct {
	Count    int
	Fraction float64
}

// IsZero reports whether no jitter is configured.
func (v Vary) IsZero() bool { return v.Count == 0 && v.Fraction == 0 }

func (v Vary) String() string {
	if v.Fraction != 0 {
		return fmt.Sprintf("%g%%", v.Fraction*100)
	}
	return fmt.Sprint(v.Count)
}

// RoundsPolicy bounds and generates the cost parameter of a format.
//
// Min and Max are enforced at construction.  MinDesired and MaxDesired are
// advisory: they drive warnings and [Handler.NeedsUpdate] but never reject a
// record.
type RoundsPolicy struct {
	Min int
	Max int // zero means unbounded

	Default int // zero means unset; generation then fails

	MinDesired int // zero means unset
	MaxDesired int // zero means unset

	Vary Vary
	Cost CostModel
}

// Describe returns a short human-readable summary of the bounds.
func (p *RoundsPolicy) Describe() string {
	hi := "∞"
	if p.Max > 0 {
		hi = fmt.Sprint(p.Max)
	}
	return fmt.Sprintf("rounds %d..%s (%s), default %d", p.Min, hi, p.Cost, p.Default)
}

// Normalize enforces the hard bounds.  Strictly, a value outside [Min, Max]
// fails with [mcf.ErrBoundsViolation]; relaxed, it is clamped and reported.
// An explicit value outside the desired range is reported in either mode.
func (p *RoundsPolicy) Normalize(rounds int, explicit, relaxed bool, report Reporter) (int, error) {
	switch {
	case rounds < p.Min:
		if !relaxed {
			return 0, fmt.Errorf("%w: rounds %d below minimum %d", mcf.ErrBoundsViolation, rounds, p.Min)
		}
		report.report(WarnCorrected, "rounds %d below minimum, clipped to %d", rounds, p.Min)
		rounds = p.Min
	case p.Max > 0 && rounds > p.Max:
		if !relaxed {
			return 0, fmt.Errorf("%w: rounds %d above maximum %d", mcf.ErrBoundsViolation, rounds, p.Max)
		}
		report.report(WarnCorrected, "rounds %d above maximum, clipped to %d", rounds, p.Max)
		rounds = p.Max
	}
	if explicit {
		if p.MinDesired > 0 && rounds < p.MinDesired {
			report.report(WarnConfig, "rounds %d below desired minimum %d", rounds, p.MinDesired)
		}
		if p.MaxDesired > 0 && rounds > p.MaxDesired {
			report.report(WarnConfig, "rounds %d above desired maximum %d", rounds, p.MaxDesired)
		}
	}
	return rounds, nil
}

// Generate returns the default rounds, perturbed by [Vary] when configured.
func (p *RoundsPolicy) Generate() (int, error) {
	if p.Default == 0 {
		return 0, fmt.Errorf("%w: no default rounds configured", mcf.ErrTypeMismatch)
	}
	if p.Vary.IsZero() {
		return p.Default, nil
	}
	lo, hi := p.VaryRange()
	return random.IntRange(lo, hi)
}

// VaryRange returns the inclusive window generated rounds are drawn from.
//
// For a log2 cost the jitter is applied to 2^Default and converted back; the
// lower bound is rounded down and the upper bound up so the window never
// shrinks below the intended range.  The result is clipped to the desired
// range, falling back to the hard bounds.
func (p *RoundsPolicy) VaryRange() (lo, hi int) {
	def := p.Default
	if p.Cost == Log2 {
		lin := math.Ldexp(1, def)
		delta := float64(p.Vary.Count)
		if p.Vary.Fraction != 0 {
			delta = lin * p.Vary.Fraction
		}
		lo = 0
		if lin-delta >= 1 {
			lo = int(math.Floor(math.Log2(lin - delta)))
		}
		hi = int(math.Ceil(math.Log2(lin + delta)))
	} else {
		delta := p.Vary.Count
		if p.Vary.Fraction != 0 {
			delta = int(float64(def) * p.Vary.Fraction)
		}
		lo, hi = def-delta, def+delta
	}

	floor, ceil := p.Min, p.Max
	if p.MinDesired > 0 {
		floor = max(floor, p.MinDesired)
	}
	if p.MaxDesired > 0 && (ceil == 0 || p.MaxDesired < ceil) {
		ceil = p.MaxDesired
	}
	lo = max(lo, floor)
	if ceil > 0 {
		hi = min(hi, ceil)
	}
	if hi < lo {
		return def, def
	}
	return lo, hi
}

// NeedsUpdate reports whether rounds falls outside the desired range.
func (p *RoundsPolicy) NeedsUpdate(rounds int) bool {
	if p.MinDesired > 0 && rounds < p.MinDesired {
		return true
	}
	return p.MaxDesired > 0 && rounds > p.MaxDesired
}

func (p *RoundsPolicy) clone() *RoundsPolicy {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
