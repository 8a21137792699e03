package internal

import (
	"context"
	"errors"
	"time"
)

// CollectorOptions bound the convergence loop. Zero values take defaults.
type CollectorOptions struct {
	// NoProgressThreshold is the number of consecutive reveal iterations that
	// must admit zero new messages before the loop declares convergence.
	NoProgressThreshold int
	// MaxIterations is a hard safety cap against pathological non-termination.
	MaxIterations int
	// SettleWait bounds the per-iteration wait for the view to stabilize
	// after a reveal.
	SettleWait time.Duration
	// SnapshotRetries bounds transient read retries within one iteration.
	SnapshotRetries int
	// ChatBudget bounds the wall-clock time for one chat. Zero means no
	// time budget (the iteration cap still applies).
	ChatBudget time.Duration
}

func (o *CollectorOptions) setDefaults() {
	if o.NoProgressThreshold <= 0 {
		o.NoProgressThreshold = 3
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = 100
	}
	if o.SettleWait <= 0 {
		o.SettleWait = 2 * time.Second
	}
	if o.SnapshotRetries <= 0 {
		o.SnapshotRetries = 2
	}
}

// Collector runs the scroll convergence loop over a ChatSession: it reveals
// history, re-reads the virtualized window, merges unseen messages into the
// session, and stops when reveals stop yielding anything new. Repeated reads
// of an unchanged window return already-known messages, so consecutive
// no-progress iterations are the real convergence signal; the iteration cap
// is only a backstop.
type Collector struct {
	view     ChatView
	norm     *Normalizer
	resolver *Resolver
	opts     CollectorOptions
}

// NewCollector creates a Collector. resolver may be nil when image
// extraction is disabled.
func NewCollector(view ChatView, resolver *Resolver, opts CollectorOptions) *Collector {
	opts.setDefaults()
	return &Collector{
		view:     view,
		norm:     NewNormalizer(),
		resolver: resolver,
		opts:     opts,
	}
}

// Collect drives the loop until convergence or budget exhaustion. The
// session always holds whatever was accumulated, whatever the return:
//
//   - nil: converged (no-progress threshold hit, or top of history reached)
//   - ErrBudgetExhausted: iteration/time cap hit; partial result, marked
//     aborted, still exportable
//   - *ContextLostError: browsing context died; partial result preserved
//   - ctx.Err(): caller cancelled between iterations
func (c *Collector) Collect(ctx context.Context, session *ChatSession) error {
	var deadline time.Time
	if c.opts.ChatBudget > 0 {
		deadline = time.Now().Add(c.opts.ChatBudget)
	}

	for {
		// Cooperative cancellation checkpoint between iterations. An
		// in-flight iteration is allowed to finish.
		if err := ctx.Err(); err != nil {
			session.Aborted = true
			return err
		}
		if session.iterations >= c.opts.MaxIterations ||
			(!deadline.IsZero() && time.Now().After(deadline)) {
			session.Aborted = true
			LogWarn("chat %s: budget exhausted after %d iterations, keeping %d messages",
				session.ChatID, session.iterations, len(session.Messages))
			return ErrBudgetExhausted
		}
		session.iterations++

		// LOADING_MORE
		if err := c.view.RevealMore(ctx); err != nil {
			if lost := asContextLost(err); lost != nil {
				session.Aborted = true
				return lost
			}
			LogDebug("chat %s: reveal failed: %v", session.ChatID, err)
			if c.noProgress(session) {
				return nil
			}
			continue
		}
		if err := c.view.WaitSettle(ctx, c.opts.SettleWait); err != nil {
			if lost := asContextLost(err); lost != nil {
				session.Aborted = true
				return lost
			}
		}

		// READING
		raws, err := readSnapshot(ctx, c.view, c.opts.SnapshotRetries)
		if err != nil {
			if lost := asContextLost(err); lost != nil {
				session.Aborted = true
				return lost
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				session.Aborted = true
				return err
			}
			LogDebug("chat %s: snapshot read failed, counting as no progress: %v", session.ChatID, err)
			if c.noProgress(session) {
				return nil
			}
			continue
		}

		// MERGING
		admitted := c.merge(ctx, session, raws)
		LogDebug("chat %s: iteration %d admitted %d new messages (%d total)",
			session.ChatID, session.iterations, admitted, len(session.Messages))

		if admitted == 0 {
			if c.noProgress(session) {
				LogInfo("chat %s: converged after %d iterations with %d messages",
					session.ChatID, session.iterations, len(session.Messages))
				return nil
			}
		} else {
			session.noProgress = 0
		}

		if top, err := c.view.AtTop(ctx); err == nil && top {
			LogInfo("chat %s: top of history reached, %d messages",
				session.ChatID, len(session.Messages))
			return nil
		}
	}
}

// noProgress bumps the counter and reports whether the threshold was hit.
func (c *Collector) noProgress(session *ChatSession) bool {
	session.noProgress++
	LogDebug("chat %s: no progress (%d/%d)",
		session.ChatID, session.noProgress, c.opts.NoProgressThreshold)
	return session.noProgress >= c.opts.NoProgressThreshold
}

// merge normalizes the window in paint order, admits unseen messages, and
// splices them into the session's result. The loop reveals history backwards,
// so new messages that appear before the previously-earliest known message
// are prepended; the earliest known message's identity serves as the anchor.
func (c *Collector) merge(ctx context.Context, session *ChatSession, raws []RawMessage) int {
	msgs := make([]Message, 0, len(raws))
	for _, raw := range raws {
		msgs = append(msgs, c.norm.Normalize(raw))
	}

	anchorIdx := -1
	if len(session.Messages) > 0 {
		anchor := session.Messages[0].IdentityHash
		for i := range msgs {
			if msgs[i].IdentityHash == anchor {
				anchorIdx = i
				break
			}
		}
	}

	var before, after []Message
	for i := range msgs {
		if !session.seen.Admit(&msgs[i]) {
			continue
		}
		session.newHashes = append(session.newHashes, msgs[i].IdentityHash)
		if anchorIdx == -1 || i < anchorIdx {
			before = append(before, msgs[i])
		} else {
			after = append(after, msgs[i])
		}
	}
	admitted := len(before) + len(after)
	if admitted == 0 {
		return 0
	}

	if c.resolver != nil {
		for i := range before {
			c.resolver.ResolveMessage(ctx, session.ChatID, &before[i], &session.ImageStats)
		}
		for i := range after {
			c.resolver.ResolveMessage(ctx, session.ChatID, &after[i], &session.ImageStats)
		}
	}

	merged := make([]Message, 0, admitted+len(session.Messages))
	merged = append(merged, before...)
	merged = append(merged, session.Messages...)
	merged = append(merged, after...)
	session.Messages = merged
	return admitted
}

func asContextLost(err error) *ContextLostError {
	var lost *ContextLostError
	if errors.As(err, &lost) {
		return lost
	}
	return nil
}
