package watchtower

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kallanis/watchtower/backplane"
)

type alwaysDeny struct{}

func (alwaysDeny) Check() bool { return false }

func newTestSupervisor(policy RecoveryPolicy, specs ...Spec) *Supervisor {
	s := New(policy)
	for _, spec := range specs {
		s.Add(spec)
	}
	s.states = make([]*childState, len(s.specs))
	return s
}

func TestHandleTerminatedIgnoresStaleEvent(t *testing.T) {
	self, _, _ := backplane.NewDevice()
	s := newTestSupervisor(Isolated, Spec{StartFn: completesImmediately, StartGrace: GraceForever(), Restart: RestartAlways, Shutdown: Quickly()})

	err := s.handleTerminated(context.Background(), self, backplane.TerminatedEvent{ID: uuid.New()})
	if err != nil {
		t.Fatalf("unexpected error for a stale event: %v", err)
	}
}

func TestRestartNeverLeavesChildStopped(t *testing.T) {
	self, _, _ := backplane.NewDevice()
	s := newTestSupervisor(Isolated, Spec{StartFn: runningForever, StartGrace: GraceForever(), Restart: RestartNever, Shutdown: Quickly()})

	child, _, id := backplane.NewDevice()
	_ = child
	s.states[0] = &childState{id: id}

	if err := s.handleTerminated(context.Background(), self, backplane.TerminatedEvent{ID: id, Fault: errors.New("boom")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.states[0] != nil {
		t.Fatal("RestartNever should leave the slot empty")
	}
}

func TestRestartOnFailureIgnoresFaultlessExit(t *testing.T) {
	self, _, _ := backplane.NewDevice()
	s := newTestSupervisor(Isolated, Spec{StartFn: runningForever, StartGrace: GraceForever(), Restart: RestartOnFailure, Shutdown: Quickly()})

	_, _, id := backplane.NewDevice()
	s.states[0] = &childState{id: id}

	if err := s.handleTerminated(context.Background(), self, backplane.TerminatedEvent{ID: id, Fault: nil}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.states[0] != nil {
		t.Fatal("a faultless exit under RestartOnFailure should not be restarted")
	}
}

func TestRestartOnFailureRestartsOnFault(t *testing.T) {
	self, _, _ := backplane.NewDevice()
	s := newTestSupervisor(Isolated, Spec{StartFn: runningForever, StartGrace: GraceForever(), Restart: RestartOnFailure, Shutdown: Quickly()})

	_, _, id := backplane.NewDevice()
	s.states[0] = &childState{id: id}

	if err := s.handleTerminated(context.Background(), self, backplane.TerminatedEvent{ID: id, Fault: errors.New("boom")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.states[0] == nil {
		t.Fatal("a faulty exit under RestartOnFailure should be restarted")
	}
}

func TestAttemptRestartIsolatedOnlyTouchesTargetIndex(t *testing.T) {
	self, _, _ := backplane.NewDevice()
	s := newTestSupervisor(Isolated,
		Spec{StartFn: runningForever, StartGrace: GraceForever(), Restart: RestartAlways, Shutdown: Quickly()},
		Spec{StartFn: runningForever, StartGrace: GraceForever(), Restart: RestartAlways, Shutdown: Quickly()},
	)

	_, sibLine, sibID := backplane.NewDevice()
	s.states[1] = &childState{id: sibID, line: sibLine}

	_, _, failedID := backplane.NewDevice()
	s.states[0] = &childState{id: failedID}

	if err := s.handleTerminated(context.Background(), self, backplane.TerminatedEvent{ID: failedID, Fault: errors.New("boom")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if s.states[0] == nil {
		t.Fatal("expected index 0 to be restarted")
	}
	if s.states[1] == nil || s.states[1].id != sibID {
		t.Fatal("Isolated recovery must not disturb sibling index 1")
	}
}

func TestAttemptRestartCascadeNewerRestartsLaterSiblings(t *testing.T) {
	self, _, _ := backplane.NewDevice()
	var started []int
	spec := func(i int) Spec {
		return Spec{
			StartFn: func(ctx context.Context, device *backplane.Device) (StartOutcome, error) {
				started = append(started, i)
				return Running, nil
			},
			StartGrace: GraceForever(),
			Restart:    RestartAlways,
			Shutdown:   Quickly(),
		}
	}
	s := newTestSupervisor(CascadeNewer, spec(0), spec(1), spec(2))

	_, line0, id0 := backplane.NewDevice()
	s.states[0] = &childState{id: id0, line: line0}
	_, line1, id1 := backplane.NewDevice()
	s.states[1] = &childState{id: id1, line: line1}
	_, line2, id2 := backplane.NewDevice()
	s.states[2] = &childState{id: id2, line: line2}

	if err := s.handleTerminated(context.Background(), self, backplane.TerminatedEvent{ID: id1, Fault: errors.New("boom")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(started) != 2 || started[0] != 1 || started[1] != 2 {
		t.Fatalf("expected indices 1 and 2 to be restarted in order, got %v", started)
	}
	if s.states[0] == nil || s.states[0].id != id0 {
		t.Fatal("CascadeNewer must not disturb the earlier sibling at index 0")
	}
}

func TestAttemptRestartCascadeAllRestartsEverything(t *testing.T) {
	self, _, _ := backplane.NewDevice()
	var started []int
	spec := func(i int) Spec {
		return Spec{
			StartFn: func(ctx context.Context, device *backplane.Device) (StartOutcome, error) {
				started = append(started, i)
				return Running, nil
			},
			StartGrace: GraceForever(),
			Restart:    RestartAlways,
			Shutdown:   Quickly(),
		}
	}
	s := newTestSupervisor(CascadeAll, spec(0), spec(1))

	_, line0, id0 := backplane.NewDevice()
	s.states[0] = &childState{id: id0, line: line0}
	_, line1, id1 := backplane.NewDevice()
	s.states[1] = &childState{id: id1, line: line1}

	if err := s.handleTerminated(context.Background(), self, backplane.TerminatedEvent{ID: id1, Fault: errors.New("boom")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(started) != 2 || started[0] != 0 || started[1] != 1 {
		t.Fatalf("expected both indices restarted from 0, got %v", started)
	}
}

func TestAttemptRestartThrottledReturnsWithoutTearingDownSiblings(t *testing.T) {
	self, _, _ := backplane.NewDevice()
	s := newTestSupervisor(Isolated,
		Spec{StartFn: runningForever, StartGrace: GraceForever(), Restart: RestartAlways, Shutdown: Quickly()},
		Spec{StartFn: runningForever, StartGrace: GraceForever(), Restart: RestartAlways, Shutdown: Quickly()},
	)
	s.SetLimiter(alwaysDeny{})

	_, sibLine, sibID := backplane.NewDevice()
	s.states[1] = &childState{id: sibID, line: sibLine}
	_, _, failedID := backplane.NewDevice()
	s.states[0] = &childState{id: failedID}

	err := s.handleTerminated(context.Background(), self, backplane.TerminatedEvent{ID: failedID, Fault: errors.New("boom")})
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected ErrThrottled, got %v", err)
	}
	if s.states[1] == nil {
		t.Fatal("a throttled restart must not tear down unrelated siblings")
	}
}

func TestWindowLimiterIntegration(t *testing.T) {
	self, _, _ := backplane.NewDevice()
	s := newTestSupervisor(Isolated, Spec{StartFn: runningForever, StartGrace: GraceForever(), Restart: RestartAlways, Shutdown: Quickly()})
	s.SetRateLimit(1, time.Minute)

	_, _, id := backplane.NewDevice()
	s.states[0] = &childState{id: id}

	err := s.handleTerminated(context.Background(), self, backplane.TerminatedEvent{ID: id, Fault: errors.New("boom")})
	if err != nil {
		t.Fatalf("first restart should be admitted: %v", err)
	}

	id2 := s.states[0].id
	err = s.handleTerminated(context.Background(), self, backplane.TerminatedEvent{ID: id2, Fault: errors.New("boom again")})
	if !errors.Is(err, ErrThrottled) {
		t.Fatalf("expected the second restart within a one-minute window to be throttled, got %v", err)
	}
}
