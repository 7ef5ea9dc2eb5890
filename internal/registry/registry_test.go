package registry

import (
	"errors"
	"strings"
	"testing"
)

func spec(name string, deps ...string) *Spec {
	return &Spec{Name: name, Repo: "github.com/iowarp/" + name, Deps: deps}
}

func order(t *testing.T, r *Registry, targets ...string) string {
	t.Helper()
	got, err := r.ResolveOrder(targets...)
	if err != nil {
		t.Fatalf("ResolveOrder(%v): %v", targets, err)
	}
	return strings.Join(got, " ")
}

func TestResolveOrder(t *testing.T) {
	t.Run("chain", func(t *testing.T) {
		r := New()
		r.Add(spec("a"))
		r.Add(spec("b", "a"))
		r.Add(spec("c", "b"))
		if got, want := order(t, r), "a b c"; got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("declared order breaks ties", func(t *testing.T) {
		r := New()
		r.Add(spec("z"))
		r.Add(spec("m"))
		r.Add(spec("a", "z", "m"))
		if got, want := order(t, r), "z m a"; got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("diamond", func(t *testing.T) {
		r := New()
		r.Add(spec("base"))
		r.Add(spec("left", "base"))
		r.Add(spec("right", "base"))
		r.Add(spec("top", "left", "right"))
		if got, want := order(t, r), "base left right top"; got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("target closure only", func(t *testing.T) {
		r := New()
		r.Add(spec("a"))
		r.Add(spec("b", "a"))
		r.Add(spec("c"))
		if got, want := order(t, r, "b"), "a b"; got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		r := New()
		r.Add(spec("a", "c"))
		r.Add(spec("b", "a"))
		r.Add(spec("c", "b"))
		_, err := r.ResolveOrder()
		var cerr *CycleError
		if !errors.As(err, &cerr) {
			t.Fatalf("expected CycleError, got %v", err)
		}
		if len(cerr.Members) != 3 {
			t.Errorf("cycle members = %v, want 3 components", cerr.Members)
		}
	})

	t.Run("unknown dep", func(t *testing.T) {
		r := New()
		r.Add(spec("a", "nope"))
		_, err := r.ResolveOrder()
		var uerr *UnknownDepError
		if !errors.As(err, &uerr) {
			t.Fatalf("expected UnknownDepError, got %v", err)
		}
		if uerr.Component != "a" || uerr.Dep != "nope" {
			t.Errorf("got %s -> %s, want a -> nope", uerr.Component, uerr.Dep)
		}
	})

	t.Run("unknown target", func(t *testing.T) {
		r := New()
		r.Add(spec("a"))
		if _, err := r.ResolveOrder("ghost"); err == nil {
			t.Fatal("expected error for unknown target")
		}
	})
}

func TestDependents(t *testing.T) {
	r := New()
	r.Add(spec("a"))
	r.Add(spec("b", "a"))
	r.Add(spec("c", "b"))
	r.Add(spec("d"))

	if got, want := strings.Join(r.Dependents("a"), " "), "b c"; got != want {
		t.Errorf("Dependents(a) = %q, want %q", got, want)
	}
	if got := r.Dependents("d"); len(got) != 0 {
		t.Errorf("Dependents(d) = %v, want none", got)
	}
}

func TestDefaultCatalog(t *testing.T) {
	r := Default()
	got, err := r.ResolveOrder()
	if err != nil {
		t.Fatal(err)
	}
	want := "context-transport-primitives runtime context-transfer-engine context-assimilation-engine"
	if strings.Join(got, " ") != want {
		t.Errorf("got %q, want %q", strings.Join(got, " "), want)
	}

	ctp := r.Get("context-transport-primitives")
	for _, flag := range []string{"HSHM_ENABLE_CUDA", "HSHM_ENABLE_ROCM", "HSHM_ENABLE_MPI", "HSHM_ENABLE_ZMQ"} {
		if on, ok := ctp.Flags[flag]; !ok || on {
			t.Errorf("flag %s: got (%v, %v), want explicitly off", flag, on, ok)
		}
	}
}

func TestSortedFlags(t *testing.T) {
	s := &Spec{
		Flags:   map[string]bool{"B_FLAG": true, "A_FLAG": false},
		Defines: map[string]string{"C_DEF": "x"},
	}
	got := strings.Join(s.SortedFlags(), ",")
	if want := "A_FLAG=OFF,B_FLAG=ON,C_DEF=x"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
