package handler

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// ContextPolicy declares which auxiliary call parameters a format accepts.
// Context values feed the digest but are never rendered into the record.
type ContextPolicy struct {
	User            bool
	Encoding        bool
	DefaultEncoding string
}

// Config is the validation policy of one format variant.
//
// A Config is treated as immutable once a [Handler] is built from it: the
// handler keeps a private deep copy and [DeriveConfig] always returns a new
// value.
type Config struct {
	// Name identifies the format, e.g. "pbkdf2_sha256".
	Name string

	// Ident is the literal prefix used by Identify.  Formats with several
	// prefixes use Idents instead.
	Ident string

	// Pattern is an optional Identify fallback for prefix-less formats.
	Pattern *regexp.Regexp

	// ChecksumSize is the exact checksum size, in bytes for raw checksums
	// and characters for text ones.  Zero accepts any size.
	ChecksumSize int

	// ChecksumChars restricts text checksums.  Empty accepts any text.
	ChecksumChars string

	// RawChecksum marks the checksum as raw bytes.
	RawChecksum bool

	Salt    *SaltPolicy
	Rounds  *RoundsPolicy
	Idents  *IdentPolicy
	Context ContextPolicy

	// Extra holds format-specific configuration, e.g. the default SCRAM
	// digest list.
	Extra map[string]any

	// Logger receives warnings.  The zero value discards them.
	Logger logr.Logger
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	out := c
	out.Salt = c.Salt.clone()
	out.Rounds = c.Rounds.clone()
	out.Idents = c.Idents.clone()
	out.Extra = cloneExtra(c.Extra)
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Derivation
// ──────────────────────────────────────────────────────────────────────────────

type overrides struct {
	saltSize      *int
	rounds        *int
	defaultRounds *int
	minDesired    *int
	maxDesired    *int
	vary          *Vary
	ident         *string
	logger        *logr.Logger
	relaxed       bool
	extra         map[string]any
}

// ConfigOption overrides one value in [DeriveConfig].
type ConfigOption func(*overrides)

// DefaultSaltSize sets the size of generated salts.
func DefaultSaltSize(n int) ConfigOption {
	return func(o *overrides) { o.saltSize = &n }
}

// Rounds sets the default rounds and both desired bounds at once, unless
// they are given explicitly.
func Rounds(n int) ConfigOption {
	return func(o *overrides) { o.rounds = &n }
}

// DefaultRounds sets the rounds used for new records.
func DefaultRounds(n int) ConfigOption {
	return func(o *overrides) { o.defaultRounds = &n }
}

// MinDesiredRounds sets the advisory lower bound.
func MinDesiredRounds(n int) ConfigOption {
	return func(o *overrides) { o.minDesired = &n }
}

// MaxDesiredRounds sets the advisory upper bound.
func MaxDesiredRounds(n int) ConfigOption {
	return func(o *overrides) { o.maxDesired = &n }
}

// VaryRounds sets the jitter applied to generated rounds.
func VaryRounds(v Vary) ConfigOption {
	return func(o *overrides) { o.vary = &v }
}

// DefaultIdent sets the identifier used for new records.
func DefaultIdent(ident string) ConfigOption {
	return func(o *overrides) { o.ident = &ident }
}

// WithLogger replaces the logger.
func WithLogger(l logr.Logger) ConfigOption {
	return func(o *overrides) { o.logger = &l }
}

// RelaxedConfig clips out-of-bounds values with a warning instead of
// failing the derivation.
func RelaxedConfig() ConfigOption {
	return func(o *overrides) { o.relaxed = true }
}

// Extra sets a format-specific configuration value.
func Extra(key string, value any) ConfigOption {
	return func(o *overrides) {
		if o.extra == nil {
			o.extra = make(map[string]any)
		}
		o.extra[key] = value
	}
}

// DeriveConfig returns a copy of base with opts applied.  base is never
// modified.
//
// Rounds options are resolved in this order: [Rounds] seeds the desired
// bounds and default; desired bounds are checked against the hard bounds;
// a max below the min fails when the min was explicit and is raised to the
// min otherwise; the default must lie within the desired range.
func DeriveConfig(base Config, opts ...ConfigOption) (Config, error) {
	var o overrides
	for _, opt := range opts {
		opt(&o)
	}

	cfg := base.Clone()
	if o.logger != nil {
		cfg.Logger = *o.logger
	}
	report := logReporter(cfg.Logger, cfg.Name, nil)

	if o.ident != nil {
		if cfg.Idents == nil {
			return Config{}, fmt.Errorf("%w: %s does not support ident", mcf.ErrTypeMismatch, cfg.Name)
		}
		ident, err := cfg.Idents.Normalize(*o.ident, false)
		if err != nil {
			return Config{}, err
		}
		cfg.Idents.Default = ident
	}

	if o.saltSize != nil {
		if cfg.Salt == nil {
			return Config{}, fmt.Errorf("%w: %s does not support salt_size", mcf.ErrTypeMismatch, cfg.Name)
		}
		n, err := cfg.Salt.SizeFor(*o.saltSize, o.relaxed, report)
		if err != nil {
			return Config{}, err
		}
		cfg.Salt.DefaultSize = n
	}

	if o.rounds != nil || o.defaultRounds != nil || o.minDesired != nil || o.maxDesired != nil || o.vary != nil {
		if cfg.Rounds == nil {
			return Config{}, fmt.Errorf("%w: %s does not support rounds", mcf.ErrTypeMismatch, cfg.Name)
		}
		if err := deriveRounds(cfg.Rounds, &o, report); err != nil {
			return Config{}, fmt.Errorf("%s: %w", cfg.Name, err)
		}
	}

	if len(o.extra) > 0 {
		if cfg.Extra == nil {
			cfg.Extra = make(map[string]any, len(o.extra))
		}
		maps.Copy(cfg.Extra, o.extra)
	}
	return cfg, nil
}

func deriveRounds(p *RoundsPolicy, o *overrides, report Reporter) error {
	minDesired, maxDesired, def := o.minDesired, o.maxDesired, o.defaultRounds
	if o.rounds != nil {
		if minDesired == nil {
			minDesired = o.rounds
		}
		if maxDesired == nil {
			maxDesired = o.rounds
		}
		if def == nil {
			def = o.rounds
		}
	}

	if minDesired != nil {
		n, err := p.Normalize(*minDesired, false, o.relaxed, report)
		if err != nil {
			return err
		}
		p.MinDesired = n
	}
	if maxDesired != nil {
		n, err := p.Normalize(*maxDesired, false, o.relaxed, report)
		if err != nil {
			return err
		}
		if p.MinDesired > 0 && n < p.MinDesired {
			if minDesired != nil {
				return fmt.Errorf("%w: max_desired_rounds (%d) below min_desired_rounds (%d)",
					mcf.ErrInvalidOption, n, p.MinDesired)
			}
			report.report(WarnConfig, "max_desired_rounds (%d) below min_desired_rounds (%d), raised", n, p.MinDesired)
			n = p.MinDesired
		}
		p.MaxDesired = n
	}

	if def != nil {
		n, err := p.Normalize(*def, false, o.relaxed, report)
		if err != nil {
			return err
		}
		if p.MinDesired > 0 && n < p.MinDesired {
			return fmt.Errorf("%w: default_rounds (%d) below min_desired_rounds (%d)",
				mcf.ErrInvalidOption, n, p.MinDesired)
		}
		if p.MaxDesired > 0 && n > p.MaxDesired {
			return fmt.Errorf("%w: default_rounds (%d) above max_desired_rounds (%d)",
				mcf.ErrInvalidOption, n, p.MaxDesired)
		}
		p.Default = n
	} else if p.Default != 0 {
		// keep the inherited default inside a narrowed desired range
		clipped := p.Default
		if p.MinDesired > 0 && clipped < p.MinDesired {
			clipped = p.MinDesired
		}
		if p.MaxDesired > 0 && clipped > p.MaxDesired {
			clipped = p.MaxDesired
		}
		if clipped != p.Default {
			report.report(WarnConfig, "default_rounds %d moved to %d to fit the desired range", p.Default, clipped)
			p.Default = clipped
		}
	}

	if o.vary != nil {
		v := *o.vary
		if v.Count < 0 || v.Fraction < 0 {
			return fmt.Errorf("%w: vary_rounds must be ≥ 0, got %s", mcf.ErrInvalidOption, v)
		}
		if v.Fraction > 1 {
			return fmt.Errorf("%w: vary_rounds must be ≤ 100%%, got %s", mcf.ErrInvalidOption, v)
		}
		p.Vary = v
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Textual settings
// ──────────────────────────────────────────────────────────────────────────────

// ParseConfigOptions turns textual settings, as found in a configuration
// file, into options for [DeriveConfig].  Recognised keys are salt_size,
// rounds, default_rounds, min_desired_rounds, max_desired_rounds,
// vary_rounds, ident and relaxed; any other key becomes an [Extra] string.
func ParseConfigOptions(settings map[string]string) ([]ConfigOption, error) {
	keys := slices.Sorted(maps.Keys(settings))
	opts := make([]ConfigOption, 0, len(keys))
	for _, key := range keys {
		value := strings.TrimSpace(settings[key])
		var opt ConfigOption
		switch key {
		case "salt_size", "rounds", "default_rounds", "min_desired_rounds", "max_desired_rounds":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %s must be an integer, got %q", mcf.ErrInvalidOption, key, value)
			}
			opt = map[string]func(int) ConfigOption{
				"salt_size":          DefaultSaltSize,
				"rounds":             Rounds,
				"default_rounds":     DefaultRounds,
				"min_desired_rounds": MinDesiredRounds,
				"max_desired_rounds": MaxDesiredRounds,
			}[key](n)
		case "vary_rounds":
			v, err := ParseVary(value)
			if err != nil {
				return nil, err
			}
			opt = VaryRounds(v)
		case "ident":
			opt = DefaultIdent(value)
		case "relaxed":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("%w: relaxed must be a boolean, got %q", mcf.ErrInvalidOption, value)
			}
			if !b {
				continue
			}
			opt = RelaxedConfig()
		default:
			opt = Extra(key, value)
		}
		opts = append(opts, opt)
	}
	return opts, nil
}

// ParseVary parses a jitter setting: "10%" and "0.1" are fractions of the
// default rounds, "100" is an absolute count.
func ParseVary(s string) (Vary, error) {
	s = strings.TrimSpace(s)
	if pct, ok := strings.CutSuffix(s, "%"); ok {
		f, err := strconv.ParseFloat(pct, 64)
		if err != nil {
			return Vary{}, fmt.Errorf("%w: invalid vary_rounds %q", mcf.ErrInvalidOption, s)
		}
		return Vary{Fraction: f / 100}, nil
	}
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Vary{}, fmt.Errorf("%w: invalid vary_rounds %q", mcf.ErrInvalidOption, s)
		}
		return Vary{Fraction: f}, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return Vary{}, fmt.Errorf("%w: invalid vary_rounds %q", mcf.ErrInvalidOption, s)
	}
	return Vary{Count: n}, nil
}
