package handler

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// Backend selection names with special meaning.
const (
	// BackendAny keeps the current selection, or behaves like
	// BackendDefault when nothing is selected yet.
	BackendAny = "any"
	// BackendDefault tries each backend in configured order.
	BackendDefault = "default"
)

// BackendStatus is the result of a non-destructive backend check.
type BackendStatus int

const (
	BackendAvailable BackendStatus = iota
	BackendUnavailable
	// BackendRefused means the backend loads but refuses to run because of
	// a known flaw in the host environment.
	BackendRefused
)

func (s BackendStatus) String() string {
	switch s {
	case BackendAvailable:
		return "available"
	case BackendUnavailable:
		return "unavailable"
	case BackendRefused:
		return "refused"
	default:
		return fmt.Sprintf("BackendStatus(%d)", int(s))
	}
}

// Backend is one interchangeable implementation of a format's checksum.
//
// Load returns the implementation, an error wrapping
// [mcf.ErrBackendSecurityRefusal] when it must not be used, or any other error
// when it is unavailable.
type Backend[F any] struct {
	Name string
	Load func() (F, error)
}

// BackendSelector is the type-independent view of a [BackendSet].
type BackendSelector interface {
	Names() []string
	Selected() (string, bool)
	Select(name string) (string, error)
	Check(name string) (BackendStatus, error)
}

// BackendSet holds the ordered backends of one format and the currently
// selected one.
//
// # Thread safety
//
// Reads (Current, Selected, Check) may run concurrently.  Select is an
// application start-up operation: it takes the write lock, so the selected
// backend is never torn, but callers racing Select against Current may
// observe either selection.
type BackendSet[F any] struct {
	format   string
	backends []Backend[F]

	mu       sync.RWMutex
	selected string
	impl     F
}

// NewBackendSet creates an unregistered set.  Most formats use
// [BackendsFor] to share one set per format through a registry.
func NewBackendSet[F any](format string, backends ...Backend[F]) *BackendSet[F] {
	return &BackendSet[F]{format: format, backends: backends}
}

// Names lists the configured backends in preference order.
func (s *BackendSet[F]) Names() []string {
	out := make([]string, len(s.backends))
	for i, b := range s.backends {
		out[i] = b.Name
	}
	return out
}

// Selected returns the name of the selected backend, if any.
func (s *BackendSet[F]) Selected() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected, s.selected != ""
}

// Current returns the selected implementation, selecting "any" on first use.
func (s *BackendSet[F]) Current() (F, error) {
	s.mu.RLock()
	if s.selected != "" {
		impl := s.impl
		s.mu.RUnlock()
		return impl, nil
	}
	s.mu.RUnlock()

	if _, err := s.Select(BackendAny); err != nil {
		var zero F
		return zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.impl, nil
}

// Select loads and activates a backend and returns its name.
//
//   - "any" keeps the current selection without reloading it.
//   - "default" tries each backend in order.  Unavailable ones are skipped;
//     a security refusal is remembered and returned only if no backend loads.
//   - any other name must load or the call fails.
func (s *BackendSet[F]) Select(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == BackendAny {
		if s.selected != "" {
			return s.selected, nil
		}
		name = BackendDefault
	}

	if name == BackendDefault {
		b, impl, err := s.resolveDefault()
		if err != nil {
			return "", err
		}
		s.selected, s.impl = b.Name, impl
		return b.Name, nil
	}

	b, err := s.lookup(name)
	if err != nil {
		return "", err
	}
	impl, err := s.load(b)
	if err != nil {
		return "", err
	}
	s.selected, s.impl = b.Name, impl
	return b.Name, nil
}

// Check reports whether name (or "any"/"default") would load, without
// changing the selection.
func (s *BackendSet[F]) Check(name string) (BackendStatus, error) {
	if name == BackendAny {
		if _, ok := s.Selected(); ok {
			return BackendAvailable, nil
		}
		name = BackendDefault
	}
	if name == BackendDefault {
		_, _, err := s.resolveDefault()
		return statusOf(err), nil
	}
	b, err := s.lookup(name)
	if err != nil {
		return BackendUnavailable, err
	}
	_, err = s.load(b)
	return statusOf(err), nil
}

func (s *BackendSet[F]) lookup(name string) (Backend[F], error) {
	for _, b := range s.backends {
		if b.Name == name {
			return b, nil
		}
	}
	return Backend[F]{}, fmt.Errorf("%w: %s has no backend %q", mcf.ErrInvalidOption, s.format, name)
}

func (s *BackendSet[F]) load(b Backend[F]) (F, error) {
	impl, err := b.Load()
	switch {
	case err == nil:
		return impl, nil
	case errors.Is(err, mcf.ErrBackendSecurityRefusal):
		return impl, fmt.Errorf("%s backend %q: %w", s.format, b.Name, err)
	case errors.Is(err, mcf.ErrBackendUnavailable):
		return impl, fmt.Errorf("%s backend %q: %w", s.format, b.Name, err)
	default:
		return impl, fmt.Errorf("%w: %s backend %q: %v", mcf.ErrBackendUnavailable, s.format, b.Name, err)
	}
}

func (s *BackendSet[F]) resolveDefault() (Backend[F], F, error) {
	var refusal error
	for _, b := range s.backends {
		impl, err := s.load(b)
		if err == nil {
			return b, impl, nil
		}
		if refusal == nil && errors.Is(err, mcf.ErrBackendSecurityRefusal) {
			refusal = err
		}
	}
	var zero F
	if refusal != nil {
		return Backend[F]{}, zero, refusal
	}
	return Backend[F]{}, zero, fmt.Errorf("%w: no %s backends available", mcf.ErrBackendUnavailable, s.format)
}

func statusOf(err error) BackendStatus {
	switch {
	case err == nil:
		return BackendAvailable
	case errors.Is(err, mcf.ErrBackendSecurityRefusal):
		return BackendRefused
	default:
		return BackendUnavailable
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Registry
// ──────────────────────────────────────────────────────────────────────────────

// BackendRegistry holds one [BackendSet] per format so that every handler
// derived from a format shares its backend selection.
type BackendRegistry struct {
	mu   sync.Mutex
	sets map[string]any
}

// NewBackendRegistry creates an empty registry.
func NewBackendRegistry() *BackendRegistry {
	return &BackendRegistry{sets: make(map[string]any)}
}

// DefaultBackends is the process-wide registry.
var DefaultBackends = NewBackendRegistry()

// BackendsFor returns the set registered for format, creating it from
// backends on first use.  Later calls ignore backends.
//
// It panics if format was registered with a different implementation type,
// which is a programming error.
func BackendsFor[F any](reg *BackendRegistry, format string, backends ...Backend[F]) *BackendSet[F] {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if existing, ok := reg.sets[format]; ok {
		set, ok := existing.(*BackendSet[F])
		if !ok {
			panic(fmt.Sprintf("handler: backend set for %q registered with type %T", format, existing))
		}
		return set
	}
	set := NewBackendSet(format, backends...)
	reg.sets[format] = set
	return set
}
