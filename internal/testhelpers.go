package internal

import (
	"context"
	"fmt"
	"time"
)

// ScriptedView is a ChatView whose snapshots follow a fixed script. Each
// RevealMore advances to the next step; the view then serves that step's
// snapshot until the next reveal. Used by the convergence tests.
type ScriptedView struct {
	Steps []ViewStep

	step        int
	RevealCalls int
	SettleCalls int
}

// ViewStep is one scripted state of the view.
type ViewStep struct {
	Raws        []RawMessage
	Top         bool
	RevealErr   error
	SnapshotErr error
	// SnapshotErrOnce makes SnapshotErr fire only on the first read of this
	// step, so a retried read can recover within the same iteration.
	SnapshotErrOnce bool
}

func (v *ScriptedView) current() *ViewStep {
	if v.step >= len(v.Steps) {
		return &v.Steps[len(v.Steps)-1]
	}
	return &v.Steps[v.step]
}

func (v *ScriptedView) Snapshot(ctx context.Context) ([]RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := v.current()
	if s.SnapshotErr != nil {
		err := s.SnapshotErr
		if s.SnapshotErrOnce {
			s.SnapshotErr = nil
		}
		return nil, err
	}
	return s.Raws, nil
}

func (v *ScriptedView) RevealMore(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	v.RevealCalls++
	if v.step+1 < len(v.Steps) {
		v.step++
	}
	if err := v.current().RevealErr; err != nil {
		return err
	}
	return nil
}

func (v *ScriptedView) WaitSettle(ctx context.Context, max time.Duration) error {
	v.SettleCalls++
	return ctx.Err()
}

func (v *ScriptedView) AtTop(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s := v.current()
	return s.Top, nil
}

// testRaw builds a plain text message for scripted snapshots.
func testRaw(author, timestamp, body string) RawMessage {
	return RawMessage{
		Author:    author,
		HasAuthor: author != "",
		Timestamp: timestamp,
		Body:      body,
	}
}

// testRaws builds n sequential messages with the given prefix, oldest first.
func testRaws(prefix string, n int) []RawMessage {
	raws := make([]RawMessage, n)
	for i := 0; i < n; i++ {
		raws[i] = testRaw("Alice", fmt.Sprintf("10:%02d", i), fmt.Sprintf("%s %d", prefix, i))
	}
	return raws
}
