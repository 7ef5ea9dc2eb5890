// Package registry holds the catalog of buildable components and computes
// the order in which they must be built.
package registry

import (
	"fmt"
	"sort"
	"strings"
)

// Spec describes one buildable component.
type Spec struct {
	// Name uniquely identifies the component.
	Name string `yaml:"name"`

	// Repo is the source repository path, e.g. "github.com/iowarp/runtime".
	Repo string `yaml:"repo"`

	// Rev pins the revision to build. Empty means the default branch HEAD.
	Rev string `yaml:"rev"`

	// Deps lists the names of components that must be installed before
	// this one can configure.
	Deps []string `yaml:"deps"`

	// Flags maps feature toggles to CMake boolean cache entries.
	// Every entry becomes exactly one -D<name>:BOOL=ON|OFF argument.
	Flags map[string]bool `yaml:"flags"`

	// Defines holds extra string cache entries passed as -D<key>:STRING=<value>.
	Defines map[string]string `yaml:"defines"`
}

// SortedFlags renders the flag mapping as a sorted "NAME=ON|OFF" list so two
// flag sets can be compared deterministically.
func (s *Spec) SortedFlags() []string {
	out := make([]string, 0, len(s.Flags)+len(s.Defines))
	for k, v := range s.Flags {
		val := "OFF"
		if v {
			val = "ON"
		}
		out = append(out, k+"="+val)
	}
	for k, v := range s.Defines {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// CycleError reports a dependency cycle in the registry.
type CycleError struct {
	Members []string // components participating in the cycle
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle among components: %s", strings.Join(e.Members, ", "))
}

// UnknownDepError reports a prerequisite that is not present in the registry.
type UnknownDepError struct {
	Component string
	Dep       string
}

func (e *UnknownDepError) Error() string {
	return fmt.Sprintf("component %s depends on unknown component %s", e.Component, e.Dep)
}

// Registry is an insertion-ordered collection of component specs.
type Registry struct {
	order []string
	specs map[string]*Spec
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{specs: make(map[string]*Spec)}
}

// Add registers a spec. Re-adding a name replaces the earlier spec but keeps
// its position in the declared order.
func (r *Registry) Add(spec *Spec) {
	if _, ok := r.specs[spec.Name]; !ok {
		r.order = append(r.order, spec.Name)
	}
	r.specs[spec.Name] = spec
}

// Get returns the spec for name, or nil if absent.
func (r *Registry) Get(name string) *Spec {
	return r.specs[name]
}

// Names returns all component names in declared order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	return len(r.order)
}

// ResolveOrder returns the names of the given targets plus their transitive
// prerequisites, ordered so that every component appears after everything it
// depends on. With no targets, all registered components are resolved.
//
// Components with no ordering constraint between them keep their declared
// order, so the result is reproducible for a fixed registry.
func (r *Registry) ResolveOrder(targets ...string) ([]string, error) {
	if len(targets) == 0 {
		targets = r.order
	}

	// Collect the closure of the requested targets.
	wanted := make(map[string]bool)
	var expand func(name string) error
	expand = func(name string) error {
		if wanted[name] {
			return nil
		}
		spec := r.specs[name]
		if spec == nil {
			return fmt.Errorf("unknown component %s", name)
		}
		wanted[name] = true
		for _, dep := range spec.Deps {
			if r.specs[dep] == nil {
				return &UnknownDepError{Component: name, Dep: dep}
			}
			if err := expand(dep); err != nil {
				return err
			}
		}
		return nil
	}
	for _, name := range targets {
		if err := expand(name); err != nil {
			return nil, err
		}
	}

	// Kahn's algorithm over the closure. Ready components are taken in
	// declared order so ties break deterministically.
	indegree := make(map[string]int, len(wanted))
	dependents := make(map[string][]string, len(wanted))
	for name := range wanted {
		indegree[name] += 0
		for _, dep := range r.specs[name].Deps {
			indegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var order []string
	for len(order) < len(wanted) {
		advanced := false
		for _, name := range r.order {
			if !wanted[name] {
				continue
			}
			if deg, ok := indegree[name]; ok && deg == 0 {
				order = append(order, name)
				delete(indegree, name)
				for _, dep := range dependents[name] {
					indegree[dep]--
				}
				advanced = true
			}
		}
		if !advanced {
			// Whatever is left all sits on a cycle or behind one.
			var members []string
			for _, name := range r.order {
				if _, ok := indegree[name]; ok {
					members = append(members, name)
				}
			}
			return nil, &CycleError{Members: members}
		}
	}
	return order, nil
}

// Dependents returns the names of every component that depends, directly or
// transitively, on name, in declared order.
func (r *Registry) Dependents(name string) []string {
	affected := map[string]bool{name: true}
	// Declared order already places dependencies before dependents in the
	// default catalog, but nothing guarantees that for loaded manifests, so
	// iterate to a fixed point.
	for changed := true; changed; {
		changed = false
		for _, n := range r.order {
			if affected[n] {
				continue
			}
			for _, dep := range r.specs[n].Deps {
				if affected[dep] {
					affected[n] = true
					changed = true
					break
				}
			}
		}
	}
	var out []string
	for _, n := range r.order {
		if n != name && affected[n] {
			out = append(out, n)
		}
	}
	return out
}
