package watchtower

import (
	"context"

	"go.uber.org/zap"

	"github.com/kallanis/watchtower/backplane"
)

// watch is the supervisor's steady-state loop: it reads events off self's
// mailbox one at a time and reacts to the only two kinds that matter. Any
// other event is ignored — the backplane is shared infrastructure and the
// supervisor only ever cares about Shutdown and Terminated.
func (s *Supervisor) watch(ctx context.Context, self *backplane.Device) error {
	for {
		evt, ok := self.Next(ctx)
		if !ok {
			return nil
		}

		switch e := evt.(type) {
		case backplane.ShutdownEvent:
			s.logger.Info("shutdown requested", zap.String("requester", e.Requester.String()))
			s.shutDown(ctx, self, 0)
			return &PowerOffError{Requester: e.Requester}

		case backplane.TerminatedEvent:
			if err := s.handleTerminated(ctx, self, e); err != nil {
				return err
			}
		}
	}
}
