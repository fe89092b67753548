package hashing_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/hashing"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// Records produced by NetBSD's crypt(3).
var sha1CryptVectors = []struct {
	secret string
	record string
}{
	{"password", "$sha1$19703$iVdJqfSE$v4qYKl1zqYThwpjJAoKX6UvlHq/a"},
	{"password", "$sha1$21773$uV7PTeux$I9oHnvwPZHMO0Nq6/WgyGV/tDJIH"},
}

func newTestSHA1Crypt(t *testing.T, opts ...handler.ConfigOption) *handler.Handler {
	t.Helper()
	h, err := hashing.SHA1Crypt(opts...)
	if err != nil {
		t.Fatalf("SHA1Crypt: %v", err)
	}
	return h
}

func TestSHA1Crypt_KnownRecords(t *testing.T) {
	h := newTestSHA1Crypt(t)
	for _, v := range sha1CryptVectors {
		t.Run(v.record, func(t *testing.T) {
			ok, err := h.Verify(v.secret, v.record)
			if err != nil || !ok {
				t.Fatalf("Verify = %v, %v", ok, err)
			}
			if ok, _ := h.Verify("wrong", v.record); ok {
				t.Error("wrong password verified")
			}
			r, err := h.Parse(v.record)
			if err != nil {
				t.Fatal(err)
			}
			if got := r.String(); got != v.record {
				t.Errorf("render(parse) = %q, want %q", got, v.record)
			}
		})
	}
}

func TestSHA1Crypt_GenHashReproducesRecord(t *testing.T) {
	h := newTestSHA1Crypt(t)
	v := sha1CryptVectors[0]
	got, err := h.GenHash(v.secret, v.record)
	if err != nil {
		t.Fatal(err)
	}
	if got != v.record {
		t.Errorf("GenHash = %q, want %q", got, v.record)
	}
}

func TestSHA1Crypt_HashVerify(t *testing.T) {
	h := newTestSHA1Crypt(t, handler.DefaultRounds(50))
	record, err := h.Hash("s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(record, "$sha1$50$") {
		t.Fatalf("record = %q", record)
	}
	r, err := h.Parse(record)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(r.SaltString()); n != 8 {
		t.Errorf("salt length = %d, want 8", n)
	}
	if n := len(r.Checksum()); n != 28 {
		t.Errorf("checksum length = %d, want 28", n)
	}
	if ok, err := h.Verify("s3cret", record); err != nil || !ok {
		t.Errorf("Verify = %v, %v", ok, err)
	}
}

func TestSHA1Crypt_ParseErrors(t *testing.T) {
	h := newTestSHA1Crypt(t)
	tests := []struct {
		name   string
		record string
		want   error
	}{
		{"foreign", "$sha256$1$abc$", mcf.ErrInvalidRecord},
		{"padded rounds", "$sha1$019703$iVdJqfSE$v4qYKl1zqYThwpjJAoKX6UvlHq/a", mcf.ErrMalformedRecord},
		{"salt charset", "$sha1$19703$iVdJ+fSE$v4qYKl1zqYThwpjJAoKX6UvlHq/a", mcf.ErrMalformedRecord},
		{"short checksum", "$sha1$19703$iVdJqfSE$v4qYKl1zq", mcf.ErrSizeViolation},
		{"checksum charset", "$sha1$19703$iVdJqfSE$v4qYKl1zqYThwpjJAoKX6UvlHq+a", mcf.ErrMalformedRecord},
		{"zero rounds", "$sha1$0$iVdJqfSE", mcf.ErrBoundsViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := h.Parse(tt.record); !errors.Is(err, tt.want) {
				t.Errorf("Parse(%q): expected %v, got %v", tt.record, tt.want, err)
			}
		})
	}
}

func TestSHA1Crypt_RelaxedSaltTruncated(t *testing.T) {
	h := newTestSHA1Crypt(t, handler.DefaultRounds(10))
	long := strings.Repeat("a", 70)
	if _, err := h.Hash("pw", handler.WithSaltString(long)); !errors.Is(err, mcf.ErrBoundsViolation) {
		t.Fatalf("strict oversize salt: expected ErrBoundsViolation, got %v", err)
	}
	r, err := h.HashRecord("pw", handler.WithSaltString(long), handler.Relaxed())
	if err != nil {
		t.Fatal(err)
	}
	if n := len(r.SaltString()); n != 64 {
		t.Errorf("relaxed salt length = %d, want 64", n)
	}
	if len(r.Warnings()) == 0 {
		t.Error("relaxed truncation should report a warning")
	}
}
