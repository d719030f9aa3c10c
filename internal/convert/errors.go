// Package convert drives the tiered document conversion pipeline: a primary
// external engine invoked as a child process, output discovery and encoding
// normalization for its artifacts, and a chain of progressively simpler
// extraction strategies used when the engine is unavailable or fails.
package convert

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEngineUnavailable indicates the primary engine executable is missing
	// or its version probe failed.
	ErrEngineUnavailable = errors.New("primary conversion engine unavailable")

	// ErrOutputNotFound indicates the engine reported success but no usable
	// Markdown file could be discovered under its output tree.
	ErrOutputNotFound = errors.New("no markdown output found")

	// ErrDecodeFailure indicates content could not be decoded under any
	// attempted encoding.
	ErrDecodeFailure = errors.New("content undecodable under all attempted encodings")
)

// TimeoutError reports that the primary engine exceeded its wall-clock timeout.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("engine timed out after %s", e.Timeout)
}

// ExitError reports a non-zero exit from the primary engine process.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("engine exited with code %d: %s", e.Code, e.Stderr)
	}
	return fmt.Sprintf("engine exited with code %d", e.Code)
}

// Attempt records a single failed strategy in the fallback chain.
type Attempt struct {
	Strategy string
	Err      error
}

// FallbackError is the only error surfaced to callers of Process. It carries
// the primary engine's failure and every fallback attempt for diagnostics.
type FallbackError struct {
	PrimaryErr error
	Attempts   []Attempt
}

func (e *FallbackError) Error() string {
	parts := make([]string, 0, len(e.Attempts)+1)
	if e.PrimaryErr != nil {
		parts = append(parts, fmt.Sprintf("primary: %v", e.PrimaryErr))
	}
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Strategy, a.Err))
	}
	return "all conversion strategies failed: " + strings.Join(parts, "; ")
}

func (e *FallbackError) Unwrap() error { return e.PrimaryErr }
