// Package toolchain wraps the external build toolchain behind a narrow
// subprocess interface so the rest of the orchestrator never shells out
// directly.
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Runner executes one external command and returns its combined output.
// extraEnv entries are appended to the inherited process environment.
type Runner interface {
	Run(ctx context.Context, dir string, extraEnv []string, name string, args ...string) ([]byte, error)
}

// ExitError reports a command that ran but exited non-zero. Output holds the
// command's combined stdout and stderr verbatim.
type ExitError struct {
	Cmd    string
	Code   int
	Output []byte
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Cmd, e.Code)
}

// ExecRunner runs commands with os/exec. If Stdout is non-nil the command's
// output is streamed there in addition to being captured.
type ExecRunner struct {
	Stdout io.Writer
}

func (r *ExecRunner) Run(ctx context.Context, dir string, extraEnv []string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}

	var buf bytes.Buffer
	var out io.Writer = &buf
	if r.Stdout != nil {
		out = io.MultiWriter(&buf, r.Stdout)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	if err == nil {
		return buf.Bytes(), nil
	}
	if exit, ok := err.(*exec.ExitError); ok {
		return buf.Bytes(), &ExitError{
			Cmd:    name + " " + strings.Join(args, " "),
			Code:   exit.ExitCode(),
			Output: buf.Bytes(),
		}
	}
	return buf.Bytes(), fmt.Errorf("run %s: %w", name, err)
}
