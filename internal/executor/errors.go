package executor

import (
	"errors"
	"fmt"
)

var (
	// ErrGraphNotFound indicates the graph file could not be opened.
	ErrGraphNotFound = errors.New("task graph not found")

	// ErrNoGraph indicates an operation was attempted before Load.
	ErrNoGraph = errors.New("no task graph loaded")

	// ErrTaskNotFound indicates a task index or (package, name) pair that is
	// not present in the loaded graph.
	ErrTaskNotFound = errors.New("task not found")
)

// DependencyError reports an Execute attempt whose dependencies are not all
// completed. The task is not run and its completion bit is untouched.
type DependencyError struct {
	From   uint32
	Reason string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %d failed: %s", e.From, e.Reason)
}

// ExecutionError reports an infrastructure failure invoking a task's command
// (the process could not be started at all, as opposed to exiting non-zero).
// Captured stderr is preserved verbatim.
type ExecutionError struct {
	ExitCode int
	Stderr   string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed (exit %d): %s", e.ExitCode, e.Stderr)
}
