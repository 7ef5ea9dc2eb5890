package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/iowarp/corebuild/internal/toolchain"
	"github.com/iowarp/corebuild/internal/vcs"
)

// fakeVCS implements vcs.VCS without touching the network. Sync materializes
// an empty checkout and records the resolved revision per directory.
type fakeVCS struct {
	mu        sync.Mutex
	syncCalls int
	headRev   string            // resolved revision for an empty pin
	netFails  map[string]int    // remote -> remaining NetworkError failures
	badRefs   map[string]bool   // refs that do not exist
	checkouts map[string]string // dir -> resolved revision
}

func newFakeVCS() *fakeVCS {
	return &fakeVCS{
		headRev:   "abc123",
		netFails:  make(map[string]int),
		badRefs:   make(map[string]bool),
		checkouts: make(map[string]string),
	}
}

func (f *fakeVCS) Sync(ctx context.Context, remote, ref, dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.syncCalls++
	if f.netFails[remote] > 0 {
		f.netFails[remote]--
		return &vcs.NetworkError{Remote: remote, Err: fmt.Errorf("could not resolve host")}
	}
	if f.badRefs[ref] {
		return &vcs.RevisionNotFoundError{Remote: remote, Rev: ref, Err: fmt.Errorf("couldn't find remote ref")}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	rev := ref
	if rev == "" {
		rev = f.headRev
	}
	f.checkouts[dir] = rev
	return nil
}

func (f *fakeVCS) Head(ctx context.Context, dir string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rev, ok := f.checkouts[dir]
	if !ok {
		return "", fmt.Errorf("no checkout in %s", dir)
	}
	return rev, nil
}

func (f *fakeVCS) Latest(ctx context.Context, remote string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.netFails[remote] > 0 {
		f.netFails[remote]--
		return "", &vcs.NetworkError{Remote: remote, Err: fmt.Errorf("could not resolve host")}
	}
	return f.headRev, nil
}

// fakeRunner implements toolchain.Runner by interpreting cmake argument
// shapes. Install invocations create the discovery metadata an installed
// component would have, so downstream prerequisite checks behave as on a
// real prefix.
type fakeRunner struct {
	mu    sync.Mutex
	calls []runnerCall

	failConfigure map[string]bool // component name -> fail configure
	failBuild     map[string]bool
	failInstall   map[string]bool
	noDiscovery   map[string]bool // install succeeds but writes no metadata
}

type runnerCall struct {
	component string
	phase     string // "configure", "build", "install"
	env       []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		failConfigure: make(map[string]bool),
		failBuild:     make(map[string]bool),
		failInstall:   make(map[string]bool),
		noDiscovery:   make(map[string]bool),
	}
}

func (f *fakeRunner) Run(ctx context.Context, dir string, extraEnv []string, name string, args ...string) ([]byte, error) {
	if name != "cmake" {
		return nil, fmt.Errorf("unexpected command %s", name)
	}
	switch args[0] {
	case "-S":
		// configure: component is the build dir base (-B <cache>/build/<name>)
		component := filepath.Base(argAfter(args, "-B"))
		f.record(component, "configure", extraEnv)
		if f.failConfigure[component] {
			return f.fail("configure", component)
		}
		return nil, nil
	case "--build":
		component := filepath.Base(args[1])
		f.record(component, "build", extraEnv)
		if f.failBuild[component] {
			return f.fail("build", component)
		}
		return nil, nil
	case "--install":
		prefix := argAfter(args, "--prefix")
		component := filepath.Base(prefix)
		f.record(component, "install", extraEnv)
		if f.failInstall[component] {
			return f.fail("install", component)
		}
		// cmake --install always materializes the prefix directory, even
		// for a project that installs no package config.
		if err := os.MkdirAll(prefix, 0o755); err != nil {
			return nil, err
		}
		if !f.noDiscovery[component] {
			cfg := filepath.Join(prefix, "lib", "cmake", component, component+"-config.cmake")
			if err := os.MkdirAll(filepath.Dir(cfg), 0o755); err != nil {
				return nil, err
			}
			if err := os.WriteFile(cfg, []byte("# fake package config\n"), 0o644); err != nil {
				return nil, err
			}
			lib := filepath.Join(prefix, "lib", "lib"+component+".so")
			if err := os.WriteFile(lib, []byte{}, 0o644); err != nil {
				return nil, err
			}
		}
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected cmake args %v", args)
}

func (f *fakeRunner) record(component, phase string, env []string) {
	f.mu.Lock()
	f.calls = append(f.calls, runnerCall{component: component, phase: phase, env: env})
	f.mu.Unlock()
}

func (f *fakeRunner) fail(phase, component string) ([]byte, error) {
	out := []byte(fmt.Sprintf("CMake Error: %s of %s failed\n", phase, component))
	return out, &toolchain.ExitError{Cmd: "cmake", Code: 1, Output: out}
}

// sequence renders recorded calls as "component/phase" strings.
func (f *fakeRunner) sequence() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.component + "/" + c.phase
	}
	return out
}

// callIndex returns the position of the first component/phase call, or -1.
func (f *fakeRunner) callIndex(component, phase string) int {
	for i, s := range f.sequence() {
		if s == component+"/"+phase {
			return i
		}
	}
	return -1
}

// envOf returns the extra environment of the first component/phase call.
func (f *fakeRunner) envOf(component, phase string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c.component == component && c.phase == phase {
			return c.env
		}
	}
	return nil
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(a, flag+"=") {
			return strings.TrimPrefix(a, flag+"=")
		}
	}
	return ""
}
