//go:build !unix

package build

// Cross-process locking is only implemented for unix hosts; elsewhere the
// in-process mutex in stateFile is the sole writer discipline.
func lockFile(path string) (unlock func(), err error) {
	return func() {}, nil
}
