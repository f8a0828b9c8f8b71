package watchtower

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kallanis/watchtower/backplane"
	"github.com/kallanis/watchtower/ratelimit"
)

// childState tracks a currently-running child: its identity and a line
// back to it for sending shutdown requests. A nil entry in Supervisor.states
// means that slot is between restart cycles or has Completed.
type childState struct {
	id   backplane.ChildId
	line *backplane.Line
}

// Supervisor runs a fixed, ordered list of child Specs: it starts them in
// order, watches them over the backplane, and recovers from termination
// according to its RecoveryPolicy and restart-rate budget. It is built with
// New and the SetX/Add builder methods, then handed to Supervise exactly
// once.
type Supervisor struct {
	policy  RecoveryPolicy
	limiter ratelimit.Limiter
	logger  *zap.Logger

	specs  []Spec
	states []*childState

	selfID backplane.ChildId
}

// The default restart budget New installs: at most 5 restarts in a rolling
// 5 second window before the supervisor gives up and exits Throttled.
const (
	defaultRestartCount  = 5
	defaultRestartWindow = 5 * time.Second
)

// New constructs a Supervisor with the given recovery policy, a default
// restart-rate budget, and no children. Use Add to register children and
// SetRateLimit/SetLimiter/SetLogger to customize behavior before calling
// Supervise.
func New(policy RecoveryPolicy) *Supervisor {
	return &Supervisor{
		policy:  policy,
		limiter: ratelimit.NewWindowLimiter(defaultRestartCount, defaultRestartWindow),
		logger:  zap.NewNop(),
	}
}

// SetRateLimit replaces the restart-rate budget with a rolling-window
// limiter admitting at most count restarts per window.
func (s *Supervisor) SetRateLimit(count int, window time.Duration) *Supervisor {
	s.limiter = ratelimit.NewWindowLimiter(count, window)
	return s
}

// SetLimiter replaces the restart-rate budget with an arbitrary Limiter,
// for callers that want token-bucket or other admission behavior instead
// of WindowLimiter's rolling count.
func (s *Supervisor) SetLimiter(l ratelimit.Limiter) *Supervisor {
	if l != nil {
		s.limiter = l
	}
	return s
}

// SetLogger attaches a structured logger. Supervisors are silent by
// default (zap.NewNop()).
func (s *Supervisor) SetLogger(l *zap.Logger) *Supervisor {
	if l != nil {
		s.logger = l
	}
	return s
}

// Add appends a child spec. Children are started in the order they are
// added and shut down in the reverse of that order.
func (s *Supervisor) Add(spec Spec) *Supervisor {
	s.specs = append(s.specs, spec)
	return s
}

// Supervise runs the full supervision lifecycle on self: it starts every
// registered child in order, then watches and recovers them until either
// the restart-rate budget is exhausted, a child fails to start (including
// during a restart), or self's own parent requests shutdown. Whatever the
// outcome, self.Disconnect is called exactly once before returning, so the
// supervisor's own monitors learn of its termination the same way any
// child's would.
//
// Supervise is meant to be called once per Supervisor, after all Add calls
// have been made; it is not safe to call concurrently with Add.
func (s *Supervisor) Supervise(ctx context.Context, self *backplane.Device) (err error) {
	s.selfID = self.ID()
	s.states = make([]*childState, len(s.specs))

	defer func() {
		self.Disconnect(err)
	}()

	if startErr := s.startUp(ctx, self, 0); startErr != nil {
		return startErr
	}

	return s.watch(ctx, self)
}

func (s *Supervisor) indexOf(id backplane.ChildId) int {
	for i, st := range s.states {
		if st != nil && st.id == id {
			return i
		}
	}
	return -1
}
