package hashing_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"

	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/hashing"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

// testLogger routes handler warnings to the test log.
func testLogger(tb testing.TB) logr.Logger {
	return funcr.New(func(prefix, args string) {
		tb.Log(prefix, args)
	}, funcr.Options{})
}

// newTestRegistry returns a Registry with fast (test-safe) PBKDF2 and
// Argon2 handlers plus the hex formats.  It accepts testing.TB so it can be
// called from both unit tests and benchmarks.
func newTestRegistry(tb testing.TB) *hashing.Registry {
	tb.Helper()
	r := hashing.NewRegistry()
	a2, err := hashing.Argon2(fastArgon2Opts()...)
	if err != nil {
		tb.Fatalf("Argon2: %v", err)
	}
	pb, err := hashing.PBKDF2SHA256(handler.DefaultRounds(100))
	if err != nil {
		tb.Fatalf("PBKDF2SHA256: %v", err)
	}
	md, err := hashing.HexMD5()
	if err != nil {
		tb.Fatalf("HexMD5: %v", err)
	}
	for _, h := range []handler.PasswordHash{a2, pb, md} {
		if err := r.Register(h); err != nil {
			tb.Fatalf("Register(%s): %v", h.Name(), err)
		}
	}
	return r
}

func mustLookup(tb testing.TB, r *hashing.Registry, name string) handler.PasswordHash {
	tb.Helper()
	h, err := r.Lookup(name)
	if err != nil {
		tb.Fatalf("Lookup(%s): %v", name, err)
	}
	return h
}

// ──────────────────────────────────────────────────────────────────────────────
// NewDefaultRegistry
// ──────────────────────────────────────────────────────────────────────────────

func TestNewDefaultRegistry_AllFormatsRegistered(t *testing.T) {
	r, err := hashing.NewDefaultRegistry(testLogger(t))
	if err != nil {
		t.Fatalf("NewDefaultRegistry: %v", err)
	}
	for _, name := range []string{
		hashing.NameArgon2, hashing.NameScrypt,
		hashing.NamePBKDF2SHA1, hashing.NamePBKDF2SHA256, hashing.NamePBKDF2SHA512,
		hashing.NameSHA1Crypt, hashing.NamePostgresMD5, hashing.NamePlaintext,
		hashing.NameHexMD5, hashing.NameHexSHA1, hashing.NameHexSHA256, hashing.NameHexSHA512,
		hashing.NameLDAPHexMD5, hashing.NameLDAPHexSHA1, hashing.NameRoundupPlaintext, hashing.NameLDAPPBKDF2SHA1,
	} {
		if !r.Has(name) {
			t.Errorf("format %q not registered", name)
		}
	}
	names := r.Names()
	if last := names[len(names)-1]; last != hashing.NamePlaintext {
		t.Errorf("plaintext must be identified last, got %q", last)
	}
}

func TestNewDefaultRegistry_Identify(t *testing.T) {
	r, err := hashing.NewDefaultRegistry(testLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		record string
		want   string
	}{
		{"$argon2id$v=19$m=16,t=1,p=2$c2FsdHNhbHQ", hashing.NameArgon2},
		{"$scrypt$ln=4,r=8,p=1$c2FsdA", hashing.NameScrypt},
		{"$pbkdf2$1000$c2FsdA", hashing.NamePBKDF2SHA1},
		{"$pbkdf2-sha256$1000$c2FsdA", hashing.NamePBKDF2SHA256},
		{"$pbkdf2-sha512$1000$c2FsdA", hashing.NamePBKDF2SHA512},
		{"{PBKDF2}1000$c2FsdA", hashing.NameLDAPPBKDF2SHA1},
		{"$sha1$19703$iVdJqfSE$v4qYKl1zqYThwpjJAoKX6UvlHq/a", hashing.NameSHA1Crypt},
		{"md55f4dcc3b5aa765d61d8327deb882cf99", hashing.NamePostgresMD5},
		{"5f4dcc3b5aa765d61d8327deb882cf99", hashing.NameHexMD5},
		{"5baa61e4c9b93f3f0682250b6cf8331b7ee68fd8", hashing.NameHexSHA1},
		{"{MD5}5f4dcc3b5aa765d61d8327deb882cf99", hashing.NameLDAPHexMD5},
		{"{SHA}5baa61e4c9b93f3f0682250b6cf8331b7ee68fd8", hashing.NameLDAPHexSHA1},
		{"hunter2", hashing.NamePlaintext},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			h, err := r.Identify(tt.record)
			if err != nil {
				t.Fatalf("Identify(%q): %v", tt.record, err)
			}
			if h.Name() != tt.want {
				t.Errorf("Identify(%q) = %q, want %q", tt.record, h.Name(), tt.want)
			}
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Register / Lookup
// ──────────────────────────────────────────────────────────────────────────────

func TestRegistry_Register_Nil(t *testing.T) {
	r := hashing.NewRegistry()
	if err := r.Register(nil); !errors.Is(err, hashing.ErrNilHandler) {
		t.Errorf("expected ErrNilHandler, got %v", err)
	}
}

func TestRegistry_Register_EmptyName(t *testing.T) {
	r := hashing.NewRegistry()
	w := handler.NewLazyPrefixWrapper("", r, hashing.NameHexMD5, "{X}", "")
	if err := r.Register(w); !errors.Is(err, hashing.ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
}

func TestRegistry_Register_ReplaceKeepsOrder(t *testing.T) {
	r := newTestRegistry(t)
	before := r.Names()

	pb, _ := hashing.PBKDF2SHA256(handler.DefaultRounds(200))
	if err := r.Register(pb); err != nil {
		t.Fatal(err)
	}
	after := r.Names()
	if len(after) != len(before) {
		t.Fatalf("Names after replace = %v, want %v", after, before)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("Names after replace = %v, want %v", after, before)
		}
	}
	got, _ := r.Lookup(hashing.NamePBKDF2SHA256)
	if got != handler.PasswordHash(pb) {
		t.Error("Lookup did not return the replacement handler")
	}
}

func TestRegistry_Lookup_Unknown(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Lookup("bcrypt"); !errors.Is(err, hashing.ErrHandlerNotFound) {
		t.Errorf("expected ErrHandlerNotFound, got %v", err)
	}
	if r.Has("bcrypt") {
		t.Error("Has(bcrypt) = true")
	}
}

func TestRegistry_LazyWrapperResolvesLate(t *testing.T) {
	r := hashing.NewRegistry()
	w := hashing.LDAPHexMD5(r)
	if err := r.Register(w); err != nil {
		t.Fatal(err)
	}
	// the wrapped handler is not registered yet
	if _, err := w.Hash("password"); !errors.Is(err, hashing.ErrHandlerNotFound) {
		t.Fatalf("expected ErrHandlerNotFound before registration, got %v", err)
	}
	if _, err := r.Identify("{MD5}5f4dcc3b5aa765d61d8327deb882cf99"); err == nil {
		t.Fatal("Identify succeeded before hex_md5 was registered")
	}

	md, _ := hashing.HexMD5()
	if err := r.Register(md); err != nil {
		t.Fatal(err)
	}
	got, err := w.Hash("password")
	if err != nil {
		t.Fatal(err)
	}
	if got != "{MD5}5f4dcc3b5aa765d61d8327deb882cf99" {
		t.Errorf("Hash = %q", got)
	}
	h, err := r.Identify(got)
	if err != nil {
		t.Fatalf("Identify after registration: %v", err)
	}
	if h.Name() != hashing.NameLDAPHexMD5 {
		t.Errorf("Identify = %q, want %q", h.Name(), hashing.NameLDAPHexMD5)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Identify / VerifyIdentified
// ──────────────────────────────────────────────────────────────────────────────

func TestRegistry_Identify_Unknown(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Identify("$2y$10$abcdefghijklmnopqrstuv"); !errors.Is(err, hashing.ErrHandlerNotFound) {
		t.Errorf("expected ErrHandlerNotFound, got %v", err)
	}
}

func TestRegistry_VerifyIdentified(t *testing.T) {
	r := newTestRegistry(t)
	for _, name := range r.Names() {
		t.Run(name, func(t *testing.T) {
			h := mustLookup(t, r, name)
			record, err := h.Hash("user-password")
			if err != nil {
				t.Fatal(err)
			}
			if ok, err := r.VerifyIdentified("user-password", record); err != nil || !ok {
				t.Errorf("correct password: ok=%v err=%v", ok, err)
			}
			if ok, err := r.VerifyIdentified("wrong", record); err != nil || ok {
				t.Errorf("wrong password: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestRegistry_VerifyIdentified_Malformed(t *testing.T) {
	r := newTestRegistry(t)
	_, err := r.VerifyIdentified("pw", "$pbkdf2-sha256$0100$c2FsdA$")
	if !errors.Is(err, mcf.ErrMalformedRecord) {
		t.Errorf("expected ErrMalformedRecord, got %v", err)
	}
}

// TestRegistry_Migration_HexMD5ToPBKDF2 walks through a migration from
// unsalted MD5 to PBKDF2:
//
//   - Legacy records are still verifiable.
//   - On next login the application re-hashes with the current format.
//   - The new record identifies as the current format and is up to date.
func TestRegistry_Migration_HexMD5ToPBKDF2(t *testing.T) {
	r := newTestRegistry(t)

	legacy := "5f4dcc3b5aa765d61d8327deb882cf99"
	ok, err := r.VerifyIdentified("password", legacy)
	if err != nil || !ok {
		t.Fatalf("legacy md5 check failed: ok=%v err=%v", ok, err)
	}

	current := mustLookup(t, r, hashing.NamePBKDF2SHA256)
	record, err := current.Hash("password")
	if err != nil {
		t.Fatalf("re-hash: %v", err)
	}
	h, err := r.Identify(record)
	if err != nil || h.Name() != hashing.NamePBKDF2SHA256 {
		t.Fatalf("Identify(new record) = %v, %v", h, err)
	}
	if needs, err := current.NeedsUpdate(record); err != nil || needs {
		t.Fatalf("new record should be up to date: needs=%v err=%v", needs, err)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrency
// ──────────────────────────────────────────────────────────────────────────────

func TestRegistry_ConcurrentHashVerify(t *testing.T) {
	r := newTestRegistry(t)
	h := mustLookup(t, r, hashing.NameArgon2)
	const goroutines = 20
	var wg sync.WaitGroup
	wg.Add(goroutines)
	errs := make(chan error, goroutines)

	for range goroutines {
		go func() {
			defer wg.Done()
			record, err := h.Hash("concurrent-pw")
			if err != nil {
				errs <- err
				return
			}
			ok, err := r.VerifyIdentified("concurrent-pw", record)
			if err != nil {
				errs <- err
				return
			}
			if !ok {
				errs <- errors.New("VerifyIdentified returned false for correct password")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestRegistry_ConcurrentRegisterAndRead(t *testing.T) {
	r := newTestRegistry(t)
	var wg sync.WaitGroup
	wg.Add(2)

	// Writer goroutine: re-registers the md5 handler.
	go func() {
		defer wg.Done()
		for range 10 {
			h, _ := hashing.HexMD5()
			_ = r.Register(h)
		}
	}()

	// Reader goroutine: looks up and identifies.
	go func() {
		defer wg.Done()
		for range 10 {
			_, _ = r.Lookup(hashing.NameHexMD5)
			_, _ = r.Identify("5f4dcc3b5aa765d61d8327deb882cf99")
		}
	}()

	wg.Wait()
}
