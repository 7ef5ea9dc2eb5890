// Package vcs wraps the git client used to fetch component sources.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// VCS defines the interface for version control operations.
type VCS interface {
	// Sync ensures the local repo exists and is at the specified ref.
	// ref can be branch, tag, or commit hash; empty means the remote HEAD.
	// If dir doesn't exist, clones the repo.
	// If dir exists, fetches updates and checks out the ref.
	Sync(ctx context.Context, remote, ref, dir string) error

	// Head returns the commit hash currently checked out in dir.
	Head(ctx context.Context, dir string) (string, error)

	// Latest returns the latest commit hash (HEAD) from the remote repository.
	Latest(ctx context.Context, remote string) (string, error)
}

// NetworkError reports a transient transport failure talking to a remote.
// Callers may retry these.
type NetworkError struct {
	Remote string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.Remote, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RevisionNotFoundError reports a ref that does not exist in the remote.
// Permanent; never retried.
type RevisionNotFoundError struct {
	Remote string
	Rev    string
	Err    error
}

func (e *RevisionNotFoundError) Error() string {
	return fmt.Sprintf("revision %s not found in %s: %v", e.Rev, e.Remote, e.Err)
}

func (e *RevisionNotFoundError) Unwrap() error { return e.Err }

// gitVCS implements VCS using git.
type gitVCS struct {
	git string
}

// GitOption configures gitVCS.
type GitOption func(*gitVCS)

// WithGitPath sets a custom git executable path.
func WithGitPath(path string) GitOption {
	return func(g *gitVCS) {
		g.git = path
	}
}

// NewGitVCS creates a new git VCS instance.
func NewGitVCS(opts ...GitOption) VCS {
	g := &gitVCS{git: "git"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *gitVCS) ensureInit(ctx context.Context, dir string) error {
	if _, err := os.Stat(filepath.Join(dir, ".git")); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		return g.run(ctx, dir, "init", "--quiet")
	}
	return nil
}

func (g *gitVCS) Sync(ctx context.Context, remote, ref, dir string) error {
	if err := g.ensureInit(ctx, dir); err != nil {
		return err
	}
	if ref == "" {
		ref = "HEAD"
	}
	if err := g.fetch(ctx, remote, dir, ref); err != nil {
		return classifyFetchErr(remote, ref, err)
	}
	return g.checkout(ctx, dir, "FETCH_HEAD")
}

func (g *gitVCS) fetch(ctx context.Context, remote, dir, ref string) error {
	args := []string{"fetch", "--depth", "1", remote, ref}
	if err := g.run(ctx, dir, args...); err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	return nil
}

func (g *gitVCS) checkout(ctx context.Context, dir, ref string) error {
	if err := g.run(ctx, dir, "checkout", "--detach", "--force", ref); err != nil {
		return fmt.Errorf("checkout %s: %w", ref, err)
	}
	return nil
}

func (g *gitVCS) Head(ctx context.Context, dir string) (string, error) {
	output, err := g.output(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return strings.TrimSpace(output), nil
}

func (g *gitVCS) Latest(ctx context.Context, remote string) (string, error) {
	output, err := g.output(ctx, "", "ls-remote", remote, "HEAD")
	if err != nil {
		return "", classifyFetchErr(remote, "HEAD", err)
	}

	output = strings.TrimSpace(output)
	if output == "" {
		return "", fmt.Errorf("no HEAD found in remote %s", remote)
	}

	// format: <hash>\tHEAD
	parts := strings.Split(output, "\t")
	return parts[0], nil
}

func (g *gitVCS) run(ctx context.Context, dir string, args ...string) error {
	_, err := g.output(ctx, dir, args...)
	return err
}

func (g *gitVCS) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.git, args...)
	if dir != "" {
		cmd.Dir = dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("%s", msg)
		}
		return "", err
	}
	return stdout.String(), nil
}

// revisionMarkers match git diagnostics for refs that do not exist.
var revisionMarkers = []string{
	"couldn't find remote ref",
	"unknown revision",
	"did not match any",
	"bad revision",
	"not found",
}

// networkMarkers match git diagnostics for transport failures.
var networkMarkers = []string{
	"could not resolve host",
	"unable to access",
	"connection refused",
	"connection reset",
	"connection timed out",
	"timed out",
	"network is unreachable",
	"could not read from remote",
	"early eof",
	"remote end hung up",
}

// classifyFetchErr maps a git failure onto the retry taxonomy. Revision
// markers are checked first: "repository not found" is permanent even though
// "not found" could otherwise look transport-shaped.
func classifyFetchErr(remote, ref string, err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range revisionMarkers {
		if strings.Contains(msg, marker) {
			return &RevisionNotFoundError{Remote: remote, Rev: ref, Err: err}
		}
	}
	for _, marker := range networkMarkers {
		if strings.Contains(msg, marker) {
			return &NetworkError{Remote: remote, Err: err}
		}
	}
	return err
}
