package handler

// PasswordHash is the lifecycle every hash format offers.  *Handler and
// *PrefixWrapper implement it.
type PasswordHash interface {
	Name() string
	Identify(record string) bool
	Hash(secret string, opts ...Option) (string, error)
	Verify(secret, record string, opts ...Option) (bool, error)
	NeedsUpdate(record string, opts ...Option) (bool, error)
}

// Deriver is a PasswordHash whose configuration can be re-derived.
type Deriver interface {
	PasswordHash
	Using(opts ...ConfigOption) (PasswordHash, error)
}

// BoundsDescriber exposes the tunable bounds of a format.  Any accessor
// may return nil when the format lacks that capability.
type BoundsDescriber interface {
	RoundsPolicy() *RoundsPolicy
	SaltPolicy() *SaltPolicy
	Backends() BackendSelector
}

// Resolver finds a handler by name.
type Resolver interface {
	Lookup(name string) (PasswordHash, error)
}

var (
	_ Deriver         = (*Handler)(nil)
	_ BoundsDescriber = (*Handler)(nil)
	_ Deriver         = (*PrefixWrapper)(nil)
	_ BoundsDescriber = (*PrefixWrapper)(nil)
)
