// Package build drives components through the
// fetch/configure/build/install pipeline against a shared prefix, tracking
// per-component state so interrupted or repeated runs pick up where they
// left off.
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/iowarp/corebuild/internal/registry"
	"github.com/iowarp/corebuild/internal/toolchain"
	"github.com/iowarp/corebuild/internal/vcs"
)

// Options configures one orchestrator run.
type Options struct {
	// SkipExisting honors persisted Installed state for components whose
	// pinned revision and flags are unchanged.
	SkipExisting bool

	// ForceRebuild lists components whose persisted state is ignored; their
	// transitive dependents are invalidated too. Takes precedence over
	// SkipExisting for that closure.
	ForceRebuild []string

	// Parallel bounds the number of components built concurrently.
	// Values below 2 mean fully sequential.
	Parallel int

	// KeepGoing continues building branches that do not depend on a failed
	// component instead of aborting on the first failure.
	KeepGoing bool

	// Jobs is the compile parallelism handed to the toolchain.
	Jobs int

	// Generator overrides the CMake generator.
	Generator string
}

// Builder orchestrates component builds. It owns the persisted state record;
// all state writes go through it.
type Builder struct {
	reg      *registry.Registry
	vcs      vcs.VCS
	runner   toolchain.Runner
	cacheDir string
	env      *Environment
	opts     Options
	state    *stateFile

	// Logf receives human-oriented progress lines. Nil discards them.
	Logf func(format string, args ...any)

	mu      sync.Mutex
	rebuilt map[string]bool // components actually rebuilt this run
}

// New returns a Builder over the given registry. cacheDir holds sources,
// build trees and the state record; prefix is the shared install root.
func New(reg *registry.Registry, v vcs.VCS, runner toolchain.Runner, cacheDir, prefix string, opts Options) *Builder {
	return &Builder{
		reg:      reg,
		vcs:      v,
		runner:   runner,
		cacheDir: cacheDir,
		env:      &Environment{Prefix: prefix},
		opts:     opts,
		state:    loadStateFile(cacheDir),
		rebuilt:  make(map[string]bool),
	}
}

func (b *Builder) logf(format string, args ...any) {
	if b.Logf != nil {
		b.Logf(format, args...)
	}
}

// Build drives the requested components (all registered ones when empty)
// through the pipeline in dependency order. The returned error names the
// first failed component; components depending on it are left Pending.
func (b *Builder) Build(ctx context.Context, targets ...string) error {
	order, err := b.reg.ResolveOrder(targets...)
	if err != nil {
		return err
	}

	unlock, err := lockFile(filepath.Join(b.cacheDir, ".lock"))
	if err != nil {
		return fmt.Errorf("lock cache dir: %w", err)
	}
	defer unlock()

	// Another process may have written records while we waited for the
	// lock; a pre-lock snapshot would clobber them on the next save.
	b.state = loadStateFile(b.cacheDir)

	forced, err := b.forcedSet()
	if err != nil {
		return err
	}

	if b.opts.Parallel > 1 {
		return b.buildParallel(ctx, order, forced)
	}

	failed := make(map[string]bool)
	var firstErr error
	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if dep, blocked := b.blockedBy(name, failed); blocked {
			b.logf("skipping %s: depends on failed component %s", name, dep)
			continue
		}
		if err := b.buildOne(ctx, name, forced); err != nil {
			failed[name] = true
			cerr := &ComponentError{Component: name, Err: err}
			if !b.opts.KeepGoing {
				return cerr
			}
			if firstErr == nil {
				firstErr = cerr
			}
		}
	}
	return firstErr
}

// forcedSet expands ForceRebuild into the component-plus-dependents closure.
func (b *Builder) forcedSet() (map[string]bool, error) {
	forced := make(map[string]bool)
	for _, name := range b.opts.ForceRebuild {
		if b.reg.Get(name) == nil {
			return nil, fmt.Errorf("unknown component %s in force-rebuild", name)
		}
		forced[name] = true
		for _, dep := range b.reg.Dependents(name) {
			forced[dep] = true
		}
	}
	return forced, nil
}

// blockedBy reports whether any prerequisite of name, direct or transitive,
// failed this run. Blocked components are never attempted and keep whatever
// state the record already holds.
func (b *Builder) blockedBy(name string, failed map[string]bool) (string, bool) {
	for _, dep := range b.reg.Get(name).Deps {
		if failed[dep] {
			return dep, true
		}
		if root, blocked := b.blockedBy(dep, failed); blocked {
			return root, true
		}
	}
	return "", false
}

// canSkip reports whether a component's previous install is still valid:
// same pin, same flags, no prerequisite rebuilt this run, and the discovery
// metadata actually present in the prefix.
func (b *Builder) canSkip(spec *registry.Spec, forced map[string]bool) bool {
	if !b.opts.SkipExisting || forced[spec.Name] {
		return false
	}
	rec := b.state.get(spec.Name)
	if rec == nil || rec.State != StateInstalled {
		return false
	}
	if rec.Pin != spec.Rev {
		return false
	}
	if !slices.Equal(rec.Flags, spec.SortedFlags()) {
		return false
	}
	// A prerequisite reinstalled as something else since this component was
	// built, possibly by an earlier run, invalidates the install.
	for _, dep := range spec.Deps {
		depRec := b.state.get(dep)
		if depRec == nil || rec.Prereqs[dep] != depRec.stamp() {
			return false
		}
	}
	b.mu.Lock()
	depRebuilt := false
	for _, dep := range spec.Deps {
		if b.rebuilt[dep] {
			depRebuilt = true
			break
		}
	}
	b.mu.Unlock()
	if depRebuilt {
		return false
	}
	return b.env.Installed(spec.Name)
}

// prereqStamps captures the current install stamp of each prerequisite. By
// install time every prerequisite has a record; a missing one is left out
// and fails the skip comparison on the next run.
func (b *Builder) prereqStamps(spec *registry.Spec) map[string]string {
	if len(spec.Deps) == 0 {
		return nil
	}
	out := make(map[string]string, len(spec.Deps))
	for _, dep := range spec.Deps {
		if rec := b.state.get(dep); rec != nil {
			out[dep] = rec.stamp()
		}
	}
	return out
}

func (b *Builder) markRebuilt(name string) {
	b.mu.Lock()
	b.rebuilt[name] = true
	b.mu.Unlock()
}

// buildOne runs the full pipeline for one component, persisting state after
// every successful stage. On failure the component is marked Failed and the
// prefix contents of previously installed components are untouched.
func (b *Builder) buildOne(ctx context.Context, name string, forced map[string]bool) (err error) {
	spec := b.reg.Get(name)

	if b.canSkip(spec, forced) {
		b.logf("%s: up to date", name)
		return nil
	}

	defer func() {
		if err != nil {
			b.state.set(name, StateFailed, nil)
		}
	}()

	b.logf("%s: fetching %s", name, spec.Repo)
	if err := b.state.set(name, StateFetching, func(r *Record) {
		r.Pin = spec.Rev
		r.Rev = ""
		r.Flags = spec.SortedFlags()
	}); err != nil {
		return err
	}
	srcDir, rev, err := b.ensureSource(ctx, spec)
	if err != nil {
		return err
	}
	if err := b.state.set(name, StateFetched, func(r *Record) { r.Rev = rev }); err != nil {
		return err
	}

	if err := b.env.checkPrereqs(spec); err != nil {
		return err
	}

	buildDir := filepath.Join(b.cacheDir, "build", name)
	cm := toolchain.NewCMake(b.runner, srcDir, buildDir, b.env.ComponentDir(name))
	cm.BuildType("Release")
	cm.DefineBool("BUILD_SHARED_LIBS", true)
	cm.DefineBool("BUILD_TESTING", false)
	if b.opts.Generator != "" {
		cm.Generator(b.opts.Generator)
	}
	if b.opts.Jobs > 0 {
		cm.Jobs(b.opts.Jobs)
	}
	for flag, on := range spec.Flags {
		cm.DefineBool(flag, on)
	}
	for key, value := range spec.Defines {
		cm.Define(key, value)
	}
	for _, dep := range spec.Deps {
		cm.Use(b.env.ComponentDir(dep))
	}

	b.logf("%s: configuring", name)
	if err := b.state.set(name, StateConfiguring, nil); err != nil {
		return err
	}
	if out, err := cm.Configure(ctx); err != nil {
		return &BuildError{Component: name, Output: out, Err: err}
	}

	b.logf("%s: building", name)
	if err := b.state.set(name, StateBuilding, nil); err != nil {
		return err
	}
	if out, err := cm.Build(ctx); err != nil {
		return &BuildError{Component: name, Output: out, Err: err}
	}
	if err := b.state.set(name, StateBuilt, nil); err != nil {
		return err
	}

	b.logf("%s: installing", name)
	if err := b.state.set(name, StateInstalling, nil); err != nil {
		return err
	}
	if err := b.installComponent(ctx, name, cm, b.env); err != nil {
		return err
	}
	stamps := b.prereqStamps(spec)
	if err := b.state.set(name, StateInstalled, func(r *Record) {
		r.Prereqs = stamps
	}); err != nil {
		return err
	}

	b.markRebuilt(name)
	b.logf("%s: installed", name)
	return nil
}

// InstalledInfo describes one installed component as recorded in the state
// file, cross-checked against the prefix.
type InstalledInfo struct {
	Name  string
	Pin   string
	Rev   string
	Flags []string
	Time  time.Time
}

// Installed returns the installed components in registry order, with their
// resolved revisions and flag sets. Read-only.
func (b *Builder) Installed() []InstalledInfo {
	var out []InstalledInfo
	for _, name := range b.reg.Names() {
		rec := b.state.get(name)
		if rec == nil || rec.State != StateInstalled || !b.env.Installed(name) {
			continue
		}
		out = append(out, InstalledInfo{
			Name:  name,
			Pin:   rec.Pin,
			Rev:   rec.Rev,
			Flags: rec.Flags,
			Time:  rec.Time,
		})
	}
	return out
}

// States returns the recorded state for every component known to the
// registry, Pending when no record exists. Read-only.
func (b *Builder) States() map[string]State {
	out := make(map[string]State, b.reg.Len())
	for _, name := range b.reg.Names() {
		out[name] = StatePending
		if rec := b.state.get(name); rec != nil {
			out[name] = rec.State
		}
	}
	return out
}

// Clean removes fetched sources, build trees, installed namespaces and the
// state record for every registered component.
func (b *Builder) Clean() error {
	unlock, err := lockFile(filepath.Join(b.cacheDir, ".lock"))
	if err != nil {
		return err
	}
	defer unlock()
	b.state = loadStateFile(b.cacheDir)

	for _, dir := range []string{
		filepath.Join(b.cacheDir, "src"),
		filepath.Join(b.cacheDir, "build"),
		filepath.Join(b.env.Prefix, ".staging"),
	} {
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	for _, name := range b.reg.Names() {
		if err := os.RemoveAll(b.env.ComponentDir(name)); err != nil {
			return err
		}
	}
	return b.state.forget(b.state.names()...)
}
