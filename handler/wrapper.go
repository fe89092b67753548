package handler

import (
	"fmt"
	"strings"
	"sync"

	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// PrefixWrapper presents an existing handler under a different record
// prefix, e.g. "{SHA}" in front of a hex SHA-1 digest.  Records are
// translated on the way in and out; all work is done by the wrapped handler.
type PrefixWrapper struct {
	name  string
	outer string
	inner string

	resolver    Resolver
	wrappedName string

	mu      sync.Mutex
	wrapped PasswordHash
}

// NewPrefixWrapper wraps h.  Records of h must start with inner (which may
// be empty); the wrapper's records start with outer instead.
func NewPrefixWrapper(name string, h PasswordHash, outer, inner string) (*PrefixWrapper, error) {
	if h == nil {
		return nil, fmt.Errorf("%w: %s: nil wrapped handler", mcf.ErrInvalidOption, name)
	}
	if name == "" || outer == "" {
		return nil, fmt.Errorf("%w: wrapper needs a name and an outer prefix", mcf.ErrInvalidOption)
	}
	return &PrefixWrapper{name: name, outer: outer, inner: inner, wrapped: h}, nil
}

// NewLazyPrefixWrapper defers the lookup of the wrapped handler to first
// use, so wrappers can be declared before the handler they wrap.
func NewLazyPrefixWrapper(name string, r Resolver, wrapped, outer, inner string) *PrefixWrapper {
	return &PrefixWrapper{name: name, outer: outer, inner: inner, resolver: r, wrappedName: wrapped}
}

// Name returns the wrapper's own name.
func (w *PrefixWrapper) Name() string { return w.name }

// Prefix returns the outer prefix.
func (w *PrefixWrapper) Prefix() string { return w.outer }

// Wrapped resolves and returns the wrapped handler.  Only a successful
// lookup is kept; a failed one is retried on the next call.
func (w *PrefixWrapper) Wrapped() (PasswordHash, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wrapped != nil {
		return w.wrapped, nil
	}
	h, err := w.resolver.Lookup(w.wrappedName)
	if err != nil {
		return nil, fmt.Errorf("%s: resolve %q: %w", w.name, w.wrappedName, err)
	}
	w.wrapped = h
	return h, nil
}

// Wrap translates a record of the wrapped handler into this wrapper's form.
func (w *PrefixWrapper) Wrap(record string) (string, error) {
	rest, ok := strings.CutPrefix(record, w.inner)
	if !ok {
		return "", fmt.Errorf("%w: %s: wrapped record must start with %q", mcf.ErrInvalidRecord, w.name, w.inner)
	}
	return w.outer + rest, nil
}

// Unwrap translates a record of this wrapper into the wrapped handler's form.
func (w *PrefixWrapper) Unwrap(record string) (string, error) {
	rest, ok := strings.CutPrefix(record, w.outer)
	if !ok {
		return "", fmt.Errorf("%w: %s record must start with %q", mcf.ErrInvalidRecord, w.name, w.outer)
	}
	return w.inner + rest, nil
}

// Identify checks the outer prefix, then asks the wrapped handler.
func (w *PrefixWrapper) Identify(record string) bool {
	inner, err := w.Unwrap(record)
	if err != nil {
		return false
	}
	h, err := w.Wrapped()
	if err != nil {
		return false
	}
	return h.Identify(inner)
}

// Hash hashes with the wrapped handler and wraps the result.
func (w *PrefixWrapper) Hash(secret string, opts ...Option) (string, error) {
	h, err := w.Wrapped()
	if err != nil {
		return "", err
	}
	record, err := h.Hash(secret, opts...)
	if err != nil {
		return "", err
	}
	return w.Wrap(record)
}

// Verify unwraps record and verifies it with the wrapped handler.
func (w *PrefixWrapper) Verify(secret, record string, opts ...Option) (bool, error) {
	h, err := w.Wrapped()
	if err != nil {
		return false, err
	}
	inner, err := w.Unwrap(record)
	if err != nil {
		return false, err
	}
	return h.Verify(secret, inner, opts...)
}

// NeedsUpdate unwraps record and asks the wrapped handler.
func (w *PrefixWrapper) NeedsUpdate(record string, opts ...Option) (bool, error) {
	h, err := w.Wrapped()
	if err != nil {
		return false, err
	}
	inner, err := w.Unwrap(record)
	if err != nil {
		return false, err
	}
	return h.NeedsUpdate(inner, opts...)
}

// Derive returns a new wrapper around a handler derived from the wrapped
// one.  The receiver is unchanged.
func (w *PrefixWrapper) Derive(opts ...ConfigOption) (*PrefixWrapper, error) {
	h, err := w.Wrapped()
	if err != nil {
		return nil, err
	}
	d, ok := h.(Deriver)
	if !ok {
		return nil, fmt.Errorf("%w: %s: wrapped handler %s cannot be derived", mcf.ErrTypeMismatch, w.name, h.Name())
	}
	derived, err := d.Using(opts...)
	if err != nil {
		return nil, err
	}
	return NewPrefixWrapper(w.name, derived, w.outer, w.inner)
}

// Using is [PrefixWrapper.Derive] behind the [Deriver] interface.
func (w *PrefixWrapper) Using(opts ...ConfigOption) (PasswordHash, error) {
	d, err := w.Derive(opts...)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (w *PrefixWrapper) bounds() BoundsDescriber {
	h, err := w.Wrapped()
	if err != nil {
		return nil
	}
	b, _ := h.(BoundsDescriber)
	return b
}

// RoundsPolicy forwards to the wrapped handler.
func (w *PrefixWrapper) RoundsPolicy() *RoundsPolicy {
	if b := w.bounds(); b != nil {
		return b.RoundsPolicy()
	}
	return nil
}

// SaltPolicy forwards to the wrapped handler.
func (w *PrefixWrapper) SaltPolicy() *SaltPolicy {
	if b := w.bounds(); b != nil {
		return b.SaltPolicy()
	}
	return nil
}

// Backends forwards to the wrapped handler.
func (w *PrefixWrapper) Backends() BackendSelector {
	if b := w.bounds(); b != nil {
		return b.Backends()
	}
	return nil
}
