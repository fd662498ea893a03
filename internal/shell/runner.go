// Package shell provides the exec-based command runner used by the CLI.
//
// The engine itself never spawns processes; it only defines what must run.
// This package is the default collaborator fulfilling that contract.
package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Runner executes task commands through a shell.
type Runner struct {
	// Shell is the interpreter invoked with -c; defaults to "sh".
	Shell string

	// Dir is the working directory; empty means the process's own.
	Dir string
}

// Run invokes command and captures its outcome. A non-zero exit code is
// returned through exitCode with err nil; err is reserved for failures to
// start the process at all.
func (r *Runner) Run(ctx context.Context, command string) (exitCode int, stdout, stderr []byte, err error) {
	shell := r.Shell
	if shell == "" {
		shell = "sh"
	}

	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Dir = r.Dir

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout = outBuf.Bytes()
	stderr = errBuf.Bytes()

	if runErr == nil {
		return 0, stdout, stderr, nil
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return exitErr.ExitCode(), stdout, stderr, nil
	}
	return -1, stdout, stderr, runErr
}
