package watchtower

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kallanis/watchtower/backplane"
)

// startUp starts every spec in [fromIndex, len(specs)) in order, recording
// each one's state as it succeeds. If a child fails to start, startUp tears
// down every child it managed to start during this call — shutDown on
// indices beyond the failure point is a no-op, since those slots were never
// populated — before returning the StartupFailedError.
func (s *Supervisor) startUp(ctx context.Context, self *backplane.Device, fromIndex int) error {
	for i := fromIndex; i < len(s.specs); i++ {
		state, err := s.startLink(ctx, self, i)
		if err != nil {
			s.shutDown(ctx, self, fromIndex)
			return err
		}
		s.states[i] = state
	}
	return nil
}

// startLink creates a fresh device for the child at index i, links it to
// self before invoking StartFn (so a child that dies mid-start is still
// observed), and races StartFn against the child's StartGrace.
func (s *Supervisor) startLink(ctx context.Context, self *backplane.Device, i int) (*childState, error) {
	spec := s.specs[i]
	device, line, id := backplane.NewDevice()
	backplane.Link(self, device, backplane.Monitor)

	s.logger.Debug("starting child", zap.Int("index", i), zap.String("child_id", id.String()))

	outcome, err := s.runStart(ctx, spec, device)
	if err != nil {
		s.logger.Warn("child failed to start", zap.Int("index", i), zap.Error(err))
		return nil, &StartupFailedError{Index: i, Err: err}
	}

	switch outcome {
	case Completed:
		return nil, nil
	case Running:
		return &childState{id: id, line: line}, nil
	default:
		return nil, &StartupFailedError{Index: i, Err: fmt.Errorf("unrecognized start outcome %v", outcome)}
	}
}

// runStart invokes spec.StartFn, enforcing spec.StartGrace. Forever skips
// the race entirely and calls StartFn inline; a fixed grace runs StartFn on
// its own goroutine and races it against a deadline timer. If the timer
// wins, runStart returns ErrStartTimeout immediately — the losing
// goroutine's side effects are still tracked, since the monitor link was
// installed before this call began.
func (s *Supervisor) runStart(ctx context.Context, spec Spec, device *backplane.Device) (StartOutcome, error) {
	if spec.StartGrace.Forever {
		return spec.StartFn(ctx, device)
	}

	type result struct {
		outcome StartOutcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := spec.StartFn(ctx, device)
		done <- result{outcome: outcome, err: err}
	}()

	select {
	case r := <-done:
		return r.outcome, r.err
	case <-backplane.Timer(spec.StartGrace.Duration):
		return Completed, ErrStartTimeout
	}
}
