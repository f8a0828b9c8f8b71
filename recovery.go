package watchtower

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kallanis/watchtower/backplane"
)

// handleTerminated reacts to one child's termination: it clears that
// child's state, decides whether its RestartPolicy calls for a restart
// given whether the termination carried a Fault, and if so hands off to
// attemptRestart. A Terminated event for a ChildId the supervisor is no
// longer tracking (one it already tore down itself) is logged and ignored.
func (s *Supervisor) handleTerminated(ctx context.Context, self *backplane.Device, evt backplane.TerminatedEvent) error {
	index := s.indexOf(evt.ID)
	if index < 0 {
		s.logger.Debug("stale terminated event ignored", zap.String("child_id", evt.ID.String()))
		return nil
	}

	s.states[index] = nil

	var shouldRestart bool
	switch s.specs[index].Restart {
	case RestartNever:
		shouldRestart = false
	case RestartOnFailure:
		shouldRestart = evt.Fault != nil
	case RestartAlways:
		shouldRestart = true
	}

	if !shouldRestart {
		return nil
	}

	return s.attemptRestart(ctx, self, index)
}

// attemptRestart consults the restart-rate budget exactly once per
// invocation — regardless of how many children the chosen RecoveryPolicy
// ends up restarting — and, if admitted, dispatches to the policy-specific
// restart shape.
func (s *Supervisor) attemptRestart(ctx context.Context, self *backplane.Device, index int) error {
	if !s.limiter.Check() {
		s.logger.Warn("restart rate exceeded, giving up", zap.Int("index", index))
		return ThrottledError{}
	}

	switch s.policy {
	case Isolated:
		return s.restartIsolated(ctx, self, index)
	case CascadeNewer:
		s.shutDown(ctx, self, index+1)
		return s.startUp(ctx, self, index)
	case CascadeAll:
		s.shutDown(ctx, self, 0)
		return s.startUp(ctx, self, 0)
	default:
		return fmt.Errorf("unrecognized recovery policy %v", s.policy)
	}
}

// restartIsolated restarts only the single terminated child. Unlike
// CascadeNewer, whose failed startUp tears down only the slice it started,
// a failure here tears down every other child too (shutDown(0)), since a lone
// failed restart still leaves the supervisor unable to guarantee the
// invariants the rest of the tree was relying on.
func (s *Supervisor) restartIsolated(ctx context.Context, self *backplane.Device, index int) error {
	state, err := s.startLink(ctx, self, index)
	if err != nil {
		s.shutDown(ctx, self, 0)
		return err
	}
	s.states[index] = state
	return nil
}
