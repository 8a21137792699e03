package internal

import (
	"errors"
	"fmt"
)

// ErrBudgetExhausted signals that the iteration or time budget ran out before
// convergence. The accumulated partial result is still returned.
var ErrBudgetExhausted = errors.New("extraction budget exhausted")

// SnapshotError represents a transient DOM read failure. It is retried within
// the same iteration and never surfaced past the convergence loop.
type SnapshotError struct {
	ChatID string
	Err    error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot error [%s]: %v", e.ChatID, e.Err)
}

func (e *SnapshotError) Unwrap() error {
	return e.Err
}

// ContextLostError means the browsing context became unusable (navigated
// away, closed, crashed). It is fatal for the current chat's loop; the
// partial result accumulated so far travels on the session, not on the error.
type ContextLostError struct {
	ChatID string
	Err    error
}

func (e *ContextLostError) Error() string {
	return fmt.Sprintf("browsing context lost [%s]: %v", e.ChatID, e.Err)
}

func (e *ContextLostError) Unwrap() error {
	return e.Err
}

// ResolutionError represents a single failed media resolution. It is
// per-image, non-fatal, and only counted in the session's image stats.
type ResolutionError struct {
	Locator string
	Scheme  Scheme
	Reason  string
	Err     error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("image resolution failed [%s] %s: %s: %v", e.Scheme, e.Locator, e.Reason, e.Err)
	}
	return fmt.Sprintf("image resolution failed [%s] %s: %s", e.Scheme, e.Locator, e.Reason)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// ExportError represents errors writing export files.
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
