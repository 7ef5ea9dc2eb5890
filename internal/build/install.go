package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iowarp/corebuild/internal/toolchain"
)

// installComponent publishes a built component into the shared prefix.
// Artifacts land in a staging directory first and are renamed into the
// component's namespace in one step, so an interrupted install leaves the
// namespace absent rather than half-populated.
func (b *Builder) installComponent(ctx context.Context, name string, cm *toolchain.CMake, env *Environment) error {
	staging := env.StagingDir(name)
	final := env.ComponentDir(name)

	if err := os.RemoveAll(staging); err != nil {
		return &InstallError{Component: name, Err: err}
	}
	if err := os.MkdirAll(filepath.Dir(staging), 0o755); err != nil {
		return &InstallError{Component: name, Err: err}
	}

	if out, err := cm.Install(ctx, staging); err != nil {
		os.RemoveAll(staging)
		return &InstallError{Component: name, Err: fmt.Errorf("%w\n%s", err, out)}
	}

	// Drop any previous install of this component before publishing. The
	// rename is atomic within the prefix filesystem.
	if err := os.RemoveAll(final); err != nil {
		os.RemoveAll(staging)
		return &InstallError{Component: name, Err: err}
	}
	if err := os.Rename(staging, final); err != nil {
		os.RemoveAll(staging)
		os.RemoveAll(final)
		return &InstallError{Component: name, Err: err}
	}
	return nil
}
