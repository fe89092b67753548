// Package handler is the composable framework behind every hash format in
// this module.
//
// # Architecture
//
// A concrete format is a [Config] value plus a [Format] implementation:
//
//   - [Config] holds the validation policy: checksum size and alphabet, and
//     whichever capability policies the format uses ([SaltPolicy],
//     [RoundsPolicy], [IdentPolicy], [ContextPolicy]).  It is never mutated;
//     [DeriveConfig] returns a new value.
//   - [Format] holds the fixed behaviour: parse a record into raw
//     [Settings], render a [Record], compute a checksum.
//
// A [Handler] ties the two together and runs the lifecycle: Hash, Verify,
// NeedsUpdate, Identify, plus the two-phase [Handler.BeginRecord] /
// [Template.Fill] path for formats that materialize a template before the
// checksum is known.
//
// # Strict and relaxed construction
//
// Records are built strictly by default: rounds outside the hard bounds
// and oversized salts fail with mcf.ErrBoundsViolation.  With [Relaxed] they
// are clipped instead and a [Warning] is logged and attached to the record.
// Undersized salts are a hard floor and always fail.
//
// # Backends
//
// Formats with several implementations keep them in a [BackendSet], one per
// format in a shared [BackendRegistry].  Selection is a start-up operation;
// see [BackendSet.Select].
//
// # Quick start
//
//	h, _ := hashing.PBKDF2SHA256()
//	strong, _ := h.Derive(handler.Rounds(600000))
//
//	record, _ := strong.Hash("my-secret-password")
//	ok, _ := strong.Verify("my-secret-password", record)
//	stale, _ := strong.NeedsUpdate(oldRecord)
package handler
