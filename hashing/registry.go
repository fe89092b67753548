package hashing

import (
	"fmt"
	"slices"
	"sync"

	"github.com/go-logr/logr"

	"github.com/hasbyte1/go-crypt-handlers/handler"
)

// Registry is a thread-safe set of named handlers.  It finds a handler by
// name or by the record it produced; choosing which format an application
// should hash with is left to the caller.
//
// A Registry implements [handler.Resolver], so lazily resolved prefix
// wrappers can name the handler they wrap before it is registered.
//
// # Thread safety
//
// All Registry methods are safe for concurrent use by multiple goroutines.
// A [sync.RWMutex] serialises Register while allowing concurrent lookups.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]handler.PasswordHash
	order    []string
}

var _ handler.Resolver = (*Registry)(nil)

// NewRegistry creates an empty Registry.
//
// Use [NewDefaultRegistry] for the variant that registers every built-in
// format with its recommended defaults.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]handler.PasswordHash)}
}

// NewDefaultRegistry creates a Registry holding every built-in format.
// Warnings of all handlers go to logger.
//
// Formats are identified in registration order: wrappers first, then
// prefixed formats, then the prefix-less hex and plaintext formats, which
// would otherwise claim any record that happens to parse.
//
//	reg, err := hashing.NewDefaultRegistry(logr.Discard())
//	h, err := reg.Identify("$pbkdf2-sha256$29000$...")
func NewDefaultRegistry(logger logr.Logger) (*Registry, error) {
	r := NewRegistry()
	opt := handler.WithLogger(logger)

	for _, w := range []*handler.PrefixWrapper{
		LDAPHexMD5(r),
		LDAPHexSHA1(r),
		RoundupPlaintext(r),
		LDAPPBKDF2SHA1(r),
	} {
		if err := r.Register(w); err != nil {
			return nil, err
		}
	}

	ctors := []func(...handler.ConfigOption) (*handler.Handler, error){
		Argon2, Scrypt, PBKDF2SHA512, PBKDF2SHA256, PBKDF2SHA1, SHA1Crypt,
		PostgresMD5, HexSHA512, HexSHA256, HexSHA1, HexMD5, Plaintext,
	}
	for _, ctor := range ctors {
		h, err := ctor(opt)
		if err != nil {
			return nil, fmt.Errorf("hashing: failed to create default handler: %w", err)
		}
		if err := r.Register(h); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds or replaces a handler under its own name.  A replaced
// handler keeps its position in the identification order.
func (r *Registry) Register(h handler.PasswordHash) error {
	if h == nil {
		return ErrNilHandler
	}
	name := h.Name()
	if name == "" {
		return ErrEmptyName
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[name]; !ok {
		r.order = append(r.order, name)
	}
	r.handlers[name] = h
	return nil
}

// Lookup returns the handler registered under name, or
// [ErrHandlerNotFound].
func (r *Registry) Lookup(name string) (handler.PasswordHash, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrHandlerNotFound, name)
	}
	return h, nil
}

// Has reports whether a handler with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered names in identification order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Identify returns the first handler, in registration order, that claims
// record.  It does not verify anything.
func (r *Registry) Identify(record string) (handler.PasswordHash, error) {
	r.mu.RLock()
	candidates := make([]handler.PasswordHash, len(r.order))
	for i, name := range r.order {
		candidates[i] = r.handlers[name]
	}
	r.mu.RUnlock()

	// Identify may resolve lazy wrappers through this registry, so it runs
	// without the lock held.
	for _, h := range candidates {
		if h.Identify(record) {
			return h, nil
		}
	}
	return nil, fmt.Errorf("%w: no handler identifies the record", ErrHandlerNotFound)
}

// VerifyIdentified verifies secret against record with whichever handler
// identifies it.
//
// This is useful when records of several formats coexist, e.g. during a
// migration.
func (r *Registry) VerifyIdentified(secret, record string, opts ...handler.Option) (bool, error) {
	h, err := r.Identify(record)
	if err != nil {
		return false, err
	}
	return h.Verify(secret, record, opts...)
}
