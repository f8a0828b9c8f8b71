package watchtower

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kallanis/watchtower/backplane"
)

// waitEntry tracks one child the collector is still waiting to hear back
// from. hasDeadline is false for a child shut down with Gracefully(Forever),
// which waits with no timeout at all.
type waitEntry struct {
	deadline    time.Time
	hasDeadline bool
}

// shutDown tears children down in reverse index order, from the last index
// back to fromIndex, so that later children (which may depend on earlier
// ones) are always stopped first. Each child is sent a ShutdownEvent
// immediately; a Haste of Quickly moves straight on to the next child
// without waiting, while Gracefully joins a wait set that is drained by a
// single collector loop honoring each child's own Grace. Already-empty
// slots are skipped, so calling shutDown on a range with nothing left
// running returns immediately.
func (s *Supervisor) shutDown(ctx context.Context, self *backplane.Device, fromIndex int) {
	pending := make(map[backplane.ChildId]waitEntry)

	for i := len(s.specs) - 1; i >= fromIndex; i-- {
		st := s.states[i]
		if st == nil {
			continue
		}
		s.states[i] = nil

		s.logger.Debug("dispatching shutdown", zap.Int("index", i), zap.String("child_id", st.id.String()))
		st.line.Send(backplane.ShutdownEvent{Requester: s.selfID})

		haste := s.specs[i].Shutdown
		switch haste.kind {
		case hasteQuickly:
			// Fire and forget: not added to the wait set.
		case hasteGracefully:
			if haste.grace.Forever {
				pending[st.id] = waitEntry{}
			} else {
				pending[st.id] = waitEntry{deadline: time.Now().Add(haste.grace.Duration), hasDeadline: true}
			}
		}
	}

	s.drainPending(ctx, self, pending)
}

// drainPending waits for a TerminatedEvent from every child still in
// pending, or for that child's own deadline to elapse, whichever comes
// first for each one independently. Since Go's select can't range over a
// dynamic set of timer channels, it instead tracks the single earliest
// still-outstanding deadline and re-evaluates the whole set whenever that
// timer fires, dropping every entry whose deadline has now passed.
func (s *Supervisor) drainPending(ctx context.Context, self *backplane.Device, pending map[backplane.ChildId]waitEntry) {
	for len(pending) > 0 {
		var timerCh <-chan time.Time
		if deadline, ok := earliestDeadline(pending); ok {
			timerCh = backplane.Timer(time.Until(deadline))
		}

		select {
		case evt, ok := <-self.Events():
			if !ok {
				return
			}
			if term, ok := evt.(backplane.TerminatedEvent); ok {
				delete(pending, term.ID)
			}
			// Any other event arriving mid-teardown (another Shutdown
			// request, say) is not this collector's concern.

		case <-timerCh:
			now := time.Now()
			for id, entry := range pending {
				if entry.hasDeadline && !entry.deadline.After(now) {
					s.logger.Warn("child did not confirm shutdown before its grace elapsed", zap.String("child_id", id.String()))
					delete(pending, id)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

func earliestDeadline(pending map[backplane.ChildId]waitEntry) (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, entry := range pending {
		if !entry.hasDeadline {
			continue
		}
		if !found || entry.deadline.Before(earliest) {
			earliest = entry.deadline
			found = true
		}
	}
	return earliest, found
}
