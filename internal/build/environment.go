package build

import (
	"os"
	"path/filepath"

	"github.com/iowarp/corebuild/internal/registry"
)

// Environment is the read-only view of the shared install prefix handed to a
// component's configure step. Each component owns one namespace directory
// under the prefix, so concurrent installs never touch the same tree.
type Environment struct {
	Prefix string
}

// ComponentDir returns the namespace directory a component installs into.
func (e *Environment) ComponentDir(name string) string {
	return filepath.Join(e.Prefix, name)
}

// StagingDir returns the directory an in-flight install writes to before it
// is atomically published into the component's namespace.
func (e *Environment) StagingDir(name string) string {
	return filepath.Join(e.Prefix, ".staging", name)
}

// DiscoveryFile returns the CMake package config file downstream configure
// steps use to locate an installed component.
func (e *Environment) DiscoveryFile(name string) string {
	return filepath.Join(e.ComponentDir(name), "lib", "cmake", name, name+"-config.cmake")
}

// Installed reports whether a component's discovery metadata is present in
// the prefix. Absence after an interrupted install means the component is
// correctly treated as not installed.
func (e *Environment) Installed(name string) bool {
	_, err := os.Stat(e.DiscoveryFile(name))
	return err == nil
}

// checkPrereqs verifies every prerequisite's discovery file exists before
// configure runs. The build order should guarantee this; detecting it here
// turns a silent misconfigure into a named error.
func (e *Environment) checkPrereqs(spec *registry.Spec) error {
	var missing []string
	for _, dep := range spec.Deps {
		if !e.Installed(dep) {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &MissingDependencyError{Component: spec.Name, Missing: missing}
	}
	return nil
}
