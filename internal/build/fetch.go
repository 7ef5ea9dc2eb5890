package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/module"

	"github.com/iowarp/corebuild/internal/registry"
	"github.com/iowarp/corebuild/internal/vcs"
)

// Transient fetch failures get three attempts with doubling backoff.
const fetchAttempts = 3

// fetchBackoff is the delay before the first retry; tests shrink it.
var fetchBackoff = 2 * time.Second

// revMarker records what a source directory is checked out at, so an
// unchanged pin is a pure no-op on re-entry.
const revMarker = ".corebuild-rev"

// sourceDir returns the per-component source cache directory, keyed by the
// escaped repository path so mixed-case repos cannot collide on
// case-insensitive filesystems.
func (b *Builder) sourceDir(spec *registry.Spec) (string, error) {
	escaped, err := module.EscapePath(spec.Repo)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.cacheDir, "src", escaped), nil
}

// ensureSource makes the component's source present at the pinned revision
// and returns the checkout directory plus the resolved commit. Network
// failures are retried; a missing revision is permanent.
func (b *Builder) ensureSource(ctx context.Context, spec *registry.Spec) (dir, rev string, err error) {
	dir, err = b.sourceDir(spec)
	if err != nil {
		return "", "", err
	}

	remote := "https://" + spec.Repo + ".git"
	markerPath := filepath.Join(dir, revMarker)
	if pin, sha, ok := readRevMarker(markerPath); ok && pin == spec.Rev {
		if spec.Rev != "" {
			return dir, sha, nil
		}
		// An empty pin tracks the default branch head; the checkout is
		// current only while the remote head still matches.
		var latest string
		err = b.retryFetch(ctx, spec.Name, func() error {
			var lerr error
			latest, lerr = b.vcs.Latest(ctx, remote)
			return lerr
		})
		if err != nil {
			return "", "", err
		}
		if latest == sha {
			return dir, sha, nil
		}
	}

	if err := b.retryFetch(ctx, spec.Name, func() error {
		return b.vcs.Sync(ctx, remote, spec.Rev, dir)
	}); err != nil {
		return "", "", err
	}

	rev, err = b.vcs.Head(ctx, dir)
	if err != nil {
		return "", "", err
	}
	if err := writeRevMarker(markerPath, spec.Rev, rev); err != nil {
		return "", "", err
	}
	return dir, rev, nil
}

// retryFetch runs op, retrying transient network failures with doubling
// backoff. Any other failure is permanent and returned as is.
func (b *Builder) retryFetch(ctx context.Context, name string, op func() error) error {
	for attempt := 1; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		var nerr *vcs.NetworkError
		if !errors.As(err, &nerr) || attempt >= fetchAttempts {
			return err
		}
		delay := fetchBackoff << (attempt - 1)
		b.logf("fetch %s: %v (retrying in %s)", name, err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// readRevMarker parses "pin\nsha\n". A missing or malformed marker means the
// checkout state is unknown and the source must be synced.
func readRevMarker(path string) (pin, sha string, ok bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", false
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		return "", "", false
	}
	return lines[0], lines[1], true
}

func writeRevMarker(path, pin, sha string) error {
	return os.WriteFile(path, []byte(pin+"\n"+sha+"\n"), 0o644)
}
