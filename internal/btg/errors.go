package btg

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCorrupted indicates a structurally invalid buffer: short header,
	// bad magic, out-of-range offsets, or a content hash mismatch.
	ErrCorrupted = errors.New("corrupted task graph")

	// ErrUnsupportedVersion indicates a valid header with an unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported task graph version")

	// ErrCycleFound indicates the dependency edges form a cycle.
	ErrCycleFound = errors.New("cycle detected")
)

// FormatError wraps deterministic structural decode failures with enough
// context (offset, observed bytes) to diagnose a corrupted artifact.
type FormatError struct {
	Kind error
	Msg  string
}

func (e *FormatError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *FormatError) Unwrap() error { return e.Kind }

func corruptedf(format string, args ...any) error {
	return &FormatError{Kind: ErrCorrupted, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	msg := "cycle"
	if len(path) > 0 {
		msg = "cycle: " + strings.Join(path, " -> ")
	}
	return &FormatError{Kind: ErrCycleFound, Msg: msg}
}
