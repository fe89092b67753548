package handler

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// IdentPolicy is the set of identifier prefixes a multi-ident format
// accepts, e.g. "$argon2id$" and "$argon2i$".
type IdentPolicy struct {
	Values  []string
	Aliases map[string]string // alias -> member of Values
	Default string
}

// Normalize resolves ident to a member of Values.  An empty ident selects
// Default when useDefaults is set.
func (p *IdentPolicy) Normalize(ident string, useDefaults bool) (string, error) {
	if ident == "" {
		if useDefaults && p.Default != "" {
			return p.Default, nil
		}
		return "", fmt.Errorf("%w: no ident specified", mcf.ErrTypeMismatch)
	}
	if slices.Contains(p.Values, ident) {
		return ident, nil
	}
	if target, ok := p.Aliases[ident]; ok && slices.Contains(p.Values, target) {
		return target, nil
	}
	return "", fmt.Errorf("%w: unknown ident %q", mcf.ErrInvalidOption, ident)
}

// Parse splits record into its identifier and the remainder.  The longest
// matching identifier wins.
func (p *IdentPolicy) Parse(record string) (ident, rest string, err error) {
	for _, v := range p.Values {
		if strings.HasPrefix(record, v) && len(v) > len(ident) {
			ident = v
		}
	}
	if ident == "" {
		return "", "", fmt.Errorf("%w: no known ident prefix", mcf.ErrInvalidRecord)
	}
	return ident, record[len(ident):], nil
}

// Identify reports whether record starts with one of the identifiers.
func (p *IdentPolicy) Identify(record string) bool {
	_, _, err := p.Parse(record)
	return err == nil
}

// Describe returns a short human-readable summary of the identifiers.
func (p *IdentPolicy) Describe() string {
	return fmt.Sprintf("idents %s, default %q", strings.Join(p.Values, " "), p.Default)
}

func (p *IdentPolicy) clone() *IdentPolicy {
	if p == nil {
		return nil
	}
	c := *p
	c.Values = slices.Clone(p.Values)
	c.Aliases = maps.Clone(p.Aliases)
	return &c
}
