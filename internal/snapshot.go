package internal

import (
	"context"
	"errors"
	"time"
)

// ChatView is the handle to the currently open chat inside the browsing
// context. It is a single serially-accessed resource: the convergence loop
// owns it exclusively for the duration of one chat and no two calls run
// concurrently.
type ChatView interface {
	// Snapshot returns the message-like nodes currently materialized in the
	// virtualized DOM, in paint order. This is a partial, changing window of
	// the history, not the full history. Nodes detached mid-read are skipped,
	// not surfaced as errors.
	Snapshot(ctx context.Context) ([]RawMessage, error)

	// RevealMore issues one reveal-more-history action (scroll to the top of
	// the loaded window, or click a show-more control when present).
	RevealMore(ctx context.Context) error

	// WaitSettle waits up to max for the view to stabilize after a reveal.
	// The wait is a fixed-budget poll; hitting the budget is not an error,
	// the caller just reads whatever is there.
	WaitSettle(ctx context.Context, max time.Duration) error

	// AtTop reports whether the UI signals that the beginning of the history
	// has been reached. Best effort: false on any doubt.
	AtTop(ctx context.Context) (bool, error)
}

// readSnapshot reads the current window, retrying transient failures a small
// bounded number of times within the same iteration. A context-lost error is
// never retried.
func readSnapshot(ctx context.Context, view ChatView, retries int) ([]RawMessage, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		raws, err := view.Snapshot(ctx)
		if err == nil {
			return raws, nil
		}
		var lost *ContextLostError
		if errors.As(err, &lost) {
			return nil, err
		}
		lastErr = err
		LogDebug("snapshot attempt %d/%d failed: %v", attempt+1, retries+1, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return nil, lastErr
}
