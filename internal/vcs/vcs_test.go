package vcs

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyFetchErr(t *testing.T) {
	remote := "https://github.com/iowarp/runtime"

	t.Run("network", func(t *testing.T) {
		for _, msg := range []string{
			"fatal: unable to access 'https://github.com/...': Could not resolve host: github.com",
			"fatal: unable to access '...': Connection timed out",
			"ssh: connect to host github.com port 22: Network is unreachable",
			"fatal: the remote end hung up unexpectedly",
		} {
			err := classifyFetchErr(remote, "main", fmt.Errorf("%s", msg))
			var nerr *NetworkError
			if !errors.As(err, &nerr) {
				t.Errorf("%q: expected NetworkError, got %T", msg, err)
			}
		}
	})

	t.Run("revision", func(t *testing.T) {
		for _, msg := range []string{
			"fatal: couldn't find remote ref refs/heads/nope",
			"fatal: 'deadbeef' did not match any file(s) known to git",
			"remote: Repository not found.",
		} {
			err := classifyFetchErr(remote, "nope", fmt.Errorf("%s", msg))
			var rerr *RevisionNotFoundError
			if !errors.As(err, &rerr) {
				t.Errorf("%q: expected RevisionNotFoundError, got %T", msg, err)
			}
		}
	})

	t.Run("revision wins over network wording", func(t *testing.T) {
		err := classifyFetchErr(remote, "v9", fmt.Errorf("remote: Repository not found. unable to access"))
		var rerr *RevisionNotFoundError
		if !errors.As(err, &rerr) {
			t.Fatalf("expected RevisionNotFoundError, got %T", err)
		}
		if rerr.Rev != "v9" {
			t.Errorf("rev = %q, want v9", rerr.Rev)
		}
	})

	t.Run("unclassified passes through", func(t *testing.T) {
		base := fmt.Errorf("fatal: some exotic git failure")
		err := classifyFetchErr(remote, "main", base)
		if err != base {
			t.Errorf("got %v, want the original error", err)
		}
	})
}
