package build

import (
	"fmt"
	"strings"
)

// ComponentError wraps a stage failure with the name of the component it
// happened in. The wrapped error carries the failure kind.
type ComponentError struct {
	Component string
	Err       error
}

func (e *ComponentError) Error() string {
	return fmt.Sprintf("component %s: %v", e.Component, e.Err)
}

func (e *ComponentError) Unwrap() error { return e.Err }

// BuildError reports a non-zero toolchain exit during configure or compile.
// Output holds the toolchain's diagnostics verbatim; these failures are
// deterministic and never retried.
type BuildError struct {
	Component string
	Output    []byte
	Err       error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %v", e.Component, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// InstallError reports a failed or interrupted installation. By the time it
// is returned, the component's namespace under the prefix has been rolled
// back to absent.
type InstallError struct {
	Component string
	Err       error
}

func (e *InstallError) Error() string {
	return fmt.Sprintf("install %s: %v", e.Component, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// MissingDependencyError reports that a prerequisite's discovery metadata is
// absent from the prefix at configure time. The orchestrator's ordering
// should make this impossible; it exists as a last-line consistency check.
type MissingDependencyError struct {
	Component string
	Missing   []string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("component %s: prerequisites not installed in prefix: %s",
		e.Component, strings.Join(e.Missing, ", "))
}
