package handler_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hasbyte1/go-crypt-handlers/handler"
	"github.com/hasbyte1/go-crypt-handlers/mcf"
)

type loadCounter map[string]int

func (c loadCounter) backend(name string, err error) handler.Backend[string] {
	return handler.Backend[string]{
		Name: name,
		Load: func() (string, error) {
			c[name]++
			if err != nil {
				return "", err
			}
			return "impl-" + name, nil
		},
	}
}

var (
	errMissing = fmt.Errorf("library not installed: %w", mcf.ErrBackendUnavailable)
	errFlawed  = fmt.Errorf("known wraparound bug: %w", mcf.ErrBackendSecurityRefusal)
)

func TestBackendSet_DefaultSkipsUnavailable(t *testing.T) {
	c := loadCounter{}
	set := handler.NewBackendSet("fmt", c.backend("native", errMissing), c.backend("portable", nil))
	name, err := set.Select(handler.BackendDefault)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if name != "portable" {
		t.Fatalf("selected %q, want portable", name)
	}
	impl, err := set.Current()
	if err != nil || impl != "impl-portable" {
		t.Fatalf("Current = %q, %v", impl, err)
	}
}

func TestBackendSet_AnyKeepsSelection(t *testing.T) {
	c := loadCounter{}
	set := handler.NewBackendSet("fmt", c.backend("a", nil), c.backend("b", nil))
	if _, err := set.Select("b"); err != nil {
		t.Fatalf("Select(b): %v", err)
	}
	name, err := set.Select(handler.BackendAny)
	if err != nil || name != "b" {
		t.Fatalf("Select(any) = %q, %v", name, err)
	}
	if c["b"] != 1 || c["a"] != 0 {
		t.Fatalf("loads = %v, want b loaded once", c)
	}

	c2 := loadCounter{}
	set2 := handler.NewBackendSet("fmt", c2.backend("a", nil))
	if _, err := set2.Select(handler.BackendDefault); err != nil {
		t.Fatalf("Select(default): %v", err)
	}
	if _, err := set2.Select(handler.BackendAny); err != nil {
		t.Fatalf("Select(any): %v", err)
	}
	if c2["a"] != 1 {
		t.Fatalf("any reloaded the backend: %v", c2)
	}
}

func TestBackendSet_RefusalDeferred(t *testing.T) {
	c := loadCounter{}
	set := handler.NewBackendSet("fmt",
		c.backend("flawed", errFlawed),
		c.backend("missing", errMissing),
		c.backend("ok", nil),
	)
	name, err := set.Select(handler.BackendDefault)
	if err != nil || name != "ok" {
		t.Fatalf("Select(default) = %q, %v", name, err)
	}

	only := handler.NewBackendSet("fmt", c.backend("flawed", errFlawed), c.backend("missing", errMissing))
	if _, err := only.Select(handler.BackendDefault); !errors.Is(err, mcf.ErrBackendSecurityRefusal) {
		t.Fatalf("expected ErrBackendSecurityRefusal, got %v", err)
	}

	none := handler.NewBackendSet("fmt", c.backend("missing", errMissing))
	if _, err := none.Select(handler.BackendAny); !errors.Is(err, mcf.ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
	if _, err := none.Current(); !errors.Is(err, mcf.ErrBackendUnavailable) {
		t.Fatalf("Current: expected ErrBackendUnavailable, got %v", err)
	}
}

func TestBackendSet_Explicit(t *testing.T) {
	c := loadCounter{}
	set := handler.NewBackendSet("fmt",
		c.backend("flawed", errFlawed),
		c.backend("missing", errMissing),
		c.backend("broken", errors.New("dlopen failed")),
	)
	cases := map[string]error{
		"flawed":  mcf.ErrBackendSecurityRefusal,
		"missing": mcf.ErrBackendUnavailable,
		"broken":  mcf.ErrBackendUnavailable,
		"nope":    mcf.ErrInvalidOption,
	}
	for name, want := range cases {
		if _, err := set.Select(name); !errors.Is(err, want) {
			t.Errorf("Select(%q): expected %v, got %v", name, want, err)
		}
	}
	if _, ok := set.Selected(); ok {
		t.Fatal("failed selections must not change the selection")
	}
}

func TestBackendSet_CheckIsNonDestructive(t *testing.T) {
	c := loadCounter{}
	set := handler.NewBackendSet("fmt", c.backend("flawed", errFlawed), c.backend("ok", nil))
	cases := []struct {
		name string
		want handler.BackendStatus
	}{
		{"flawed", handler.BackendRefused},
		{"ok", handler.BackendAvailable},
		{handler.BackendDefault, handler.BackendAvailable},
		{handler.BackendAny, handler.BackendAvailable},
	}
	for _, tc := range cases {
		got, err := set.Check(tc.name)
		if err != nil {
			t.Fatalf("Check(%q): %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("Check(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
	if _, ok := set.Selected(); ok {
		t.Fatal("Check changed the selection")
	}
	if _, err := set.Check("nope"); !errors.Is(err, mcf.ErrInvalidOption) {
		t.Fatalf("unknown: expected ErrInvalidOption, got %v", err)
	}

	refusedOnly := handler.NewBackendSet("fmt", c.backend("flawed", errFlawed))
	if got, _ := refusedOnly.Check(handler.BackendAny); got != handler.BackendRefused {
		t.Fatalf("Check(any) = %v, want refused", got)
	}
}

func TestBackendsFor_SharesSet(t *testing.T) {
	reg := handler.NewBackendRegistry()
	c := loadCounter{}
	a := handler.BackendsFor(reg, "fmt", c.backend("x", nil))
	b := handler.BackendsFor[string](reg, "fmt")
	if a != b {
		t.Fatal("expected the same set for the same format")
	}
	if _, err := a.Select("x"); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if name, ok := b.Selected(); !ok || name != "x" {
		t.Fatalf("selection not shared: %q, %v", name, ok)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for a type mismatch")
		}
	}()
	handler.BackendsFor[int](reg, "fmt")
}
