package scram

import (
	"crypto/subtle"
	"fmt"
	"slices"

	"github.com/hasbyte1/go-crypt-handlers/digest"
	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// Handler is the SCRAM record handler.  Besides the common lifecycle it
// offers a full verify and access to the per-algorithm digests a SCRAM
// server needs.
//
// # Thread safety
//
// A Handler is immutable and safe for concurrent use.
type Handler struct {
	*handler.Handler
	format *Format
}

var _ handler.Deriver = (*Handler)(nil)

// New returns a SCRAM handler with the default configuration adjusted by
// opts.
func New(opts ...handler.ConfigOption) (*Handler, error) {
	return NewWithFormat(&Format{}, opts...)
}

// NewWithFormat is [New] with an explicit record format, e.g. one using the
// adapted base64 alphabet of older records.
func NewWithFormat(f *Format, opts ...handler.ConfigOption) (*Handler, error) {
	cfg, err := handler.DeriveConfig(DefaultConfig(), opts...)
	if err != nil {
		return nil, err
	}
	h, err := handler.New(cfg, f)
	if err != nil {
		return nil, err
	}
	return &Handler{Handler: h, format: f}, nil
}

// Derive returns a SCRAM handler with the configuration adjusted by opts.
func (h *Handler) Derive(opts ...handler.ConfigOption) (*Handler, error) {
	d, err := h.Handler.Derive(opts...)
	if err != nil {
		return nil, err
	}
	return &Handler{Handler: d, format: h.format}, nil
}

// Using implements [handler.Deriver].
func (h *Handler) Using(opts ...handler.ConfigOption) (handler.PasswordHash, error) {
	d, err := h.Derive(opts...)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// VerifyFull checks secret against every digest in record.  Digests that
// disagree with each other fail with [mcf.ErrConsistencyViolation].
func (h *Handler) VerifyFull(secret, record string) (bool, error) {
	if len(secret) > handler.MaxSecretSize {
		return false, fmt.Errorf("%w: %d bytes, max %d", mcf.ErrSecretTooLarge, len(secret), handler.MaxSecretSize)
	}
	r, err := h.Parse(record)
	if err != nil {
		return false, err
	}
	if !r.HasChecksum() {
		return false, fmt.Errorf("%w: scram record is a template", mcf.ErrMissingDigest)
	}
	stored := r.Digests()
	var matched, failed int
	for _, alg := range r.DigestNames() {
		got, err := DeriveDigest(secret, r.Salt(), r.Rounds(), alg)
		if err != nil {
			return false, err
		}
		want := stored[alg]
		if len(got) != len(want) {
			return false, fmt.Errorf("%w: %s digest is %d bytes, computed %d",
				mcf.ErrSizeViolation, alg, len(want), len(got))
		}
		if subtle.ConstantTimeCompare(got, want) == 1 {
			matched++
		} else {
			failed++
		}
	}
	if matched > 0 && failed > 0 {
		return false, fmt.Errorf("%w: scram digests disagree (%d matched, %d failed)",
			mcf.ErrConsistencyViolation, matched, failed)
	}
	return failed == 0, nil
}

// DigestInfo is the material a SCRAM server needs for one algorithm.
type DigestInfo struct {
	Salt   []byte
	Rounds int
	Digest []byte
}

// ExtractDigestInfo returns salt, rounds and the stored SaltedPassword of
// alg from record.  A record without that digest fails with
// [mcf.ErrMissingDigest].
func (h *Handler) ExtractDigestInfo(record, alg string) (DigestInfo, error) {
	name, err := digest.Canonical(alg, digest.IANA)
	if err != nil {
		return DigestInfo{}, err
	}
	r, err := h.Parse(record)
	if err != nil {
		return DigestInfo{}, err
	}
	d, ok := r.Digests()[name]
	if !ok {
		return DigestInfo{}, fmt.Errorf("%w: scram record has no %s digest", mcf.ErrMissingDigest, name)
	}
	return DigestInfo{Salt: r.Salt(), Rounds: r.Rounds(), Digest: d}, nil
}

// ExtractDigestAlgs lists the algorithms of record, template or full, named
// in ns.
func (h *Handler) ExtractDigestAlgs(record string, ns digest.Namespace) ([]string, error) {
	r, err := h.Parse(record)
	if err != nil {
		return nil, err
	}
	algs := slices.Clone(algsOf(r))
	for i, alg := range algs {
		if algs[i], err = digest.Canonical(alg, ns); err != nil {
			return nil, err
		}
	}
	return algs, nil
}
