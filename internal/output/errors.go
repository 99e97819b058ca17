package output

import "errors"

var (
	// ErrOutputWrite wraps every failure to create a directory or write a file.
	ErrOutputWrite = errors.New("output write error")

	// ErrOutputRoot marks a write that failed because the output root is
	// gone or no longer a directory. Every later write would fail the same way.
	ErrOutputRoot = errors.New("output directory unavailable")
)
