// Package random draws salts and jitter from the operating system's
// cryptographically strong source.  crypto/rand.Reader is safe for concurrent
// use, so no additional locking is needed here.
package random

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// Bytes returns n random bytes.
func Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("random: negative size %d", n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("random: failed to read %d bytes: %w", n, err)
	}
	return b, nil
}

// Text returns n characters drawn uniformly from alphabet.
func Text(alphabet string, n int) (string, error) {
	if n < 0 {
		return "", fmt.Errorf("random: negative size %d", n)
	}
	if n > 0 && alphabet == "" {
		return "", fmt.Errorf("random: empty alphabet")
	}
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("random: failed to draw character: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

// IntRange returns a uniformly chosen integer in [lo, hi].
func IntRange(lo, hi int) (int, error) {
	if hi < lo {
		return 0, fmt.Errorf("random: empty range [%d, %d]", lo, hi)
	}
	if hi == lo {
		return lo, nil
	}
	span := new(big.Int).Sub(big.NewInt(int64(hi)), big.NewInt(int64(lo)))
	span.Add(span, big.NewInt(1))
	v, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, fmt.Errorf("random: failed to draw integer: %w", err)
	}
	return lo + int(v.Int64()), nil
}
