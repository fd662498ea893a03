package dxl

import (
	"errors"
	"fmt"
)

var (
	// ErrCorrupted indicates a structurally invalid lockfile buffer.
	ErrCorrupted = errors.New("corrupted lockfile")

	// ErrUnsupportedVersion indicates a valid header with an unknown format version.
	ErrUnsupportedVersion = errors.New("unsupported lockfile version")

	// ErrVersionOverflow indicates a package version whose components do not
	// fit the packed encoding (major 12 bits, minor and patch 10 bits each).
	ErrVersionOverflow = errors.New("package version overflows packed encoding")
)

func corruptedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupted, fmt.Sprintf(format, args...))
}
