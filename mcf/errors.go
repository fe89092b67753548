package mcf

import "errors"

// Sentinel errors shared by every handler built on this module.
//
// Use [errors.Is] for comparisons:
//
//	ok, err := h.Verify(secret, record)
//	if errors.Is(err, mcf.ErrMalformedRecord) {
//	    // stored record is damaged
//	}
//
// Only [ErrBoundsViolation] has a relaxed counterpart: when a record is
// constructed in relaxed mode the offending value is clipped and a warning is
// emitted instead.  Every other kind always propagates.
var (
	// ErrInvalidRecord is returned when a record does not belong to the
	// format at all (wrong or missing identifying prefix).
	ErrInvalidRecord = errors.New("mcf: record does not belong to this format")

	// ErrMalformedRecord is returned when a record carries the right prefix
	// but its structure is broken: wrong field count, zero-padded numbers,
	// an empty required field, or undecodable payloads.
	ErrMalformedRecord = errors.New("mcf: malformed record")

	// ErrTypeMismatch is returned when a field has the wrong kind of value,
	// or when a required setting was not supplied and defaults are disabled.
	ErrTypeMismatch = errors.New("mcf: wrong value type")

	// ErrSizeViolation is returned when a checksum has the wrong size or a
	// salt is below its minimum size.  Undersized salts are never corrected.
	ErrSizeViolation = errors.New("mcf: wrong value size")

	// ErrBoundsViolation is returned when rounds or salt size fall outside
	// the configured limits and the record is being constructed strictly.
	ErrBoundsViolation = errors.New("mcf: value outside configured bounds")

	// ErrMissingDigest is returned by verification when the stored record
	// is a template (configuration string) without a checksum.
	ErrMissingDigest = errors.New("mcf: record has no checksum")

	// ErrBackendUnavailable is returned when the requested backend cannot
	// be loaded, or when no backend of a format can be loaded at all.
	ErrBackendUnavailable = errors.New("mcf: backend unavailable")

	// ErrBackendSecurityRefusal is returned when a backend could be loaded
	// but refuses to run because of a known flaw in the host environment.
	ErrBackendSecurityRefusal = errors.New("mcf: backend refused for security reasons")

	// ErrConsistencyViolation is returned when a record holding several
	// digests verifies for some of them and fails for others.  This points
	// to corruption or tampering and is never folded into a boolean result.
	ErrConsistencyViolation = errors.New("mcf: record verified inconsistently")

	// ErrInvalidOption is returned when a configuration or setting value is
	// not acceptable: an unknown identifier, an unknown backend name, an
	// invalid algorithm list, or contradictory derived bounds.
	ErrInvalidOption = errors.New("mcf: invalid option value")

	// ErrSecretTooLarge is returned when a secret exceeds the maximum size
	// accepted before any digest computation starts.
	ErrSecretTooLarge = errors.New("mcf: secret too large")

	// ErrInvalidSecret is returned when credential normalization rejects a
	// secret (invalid UTF-8, prohibited code points).
	ErrInvalidSecret = errors.New("mcf: secret rejected by normalization")
)
