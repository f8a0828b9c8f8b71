// Package watchtower implements a bounded-startup, monitored-steady-state
// task supervisor in the OTP tradition: a fixed list of child specs is
// started in order, watched for termination over the backplane, and
// recovered according to a restart and recovery policy until either the
// restart-rate budget is exceeded or the supervisor's own parent asks it
// to shut down.
package watchtower

import (
	"context"
	"time"

	"github.com/kallanis/watchtower/backplane"
)

// StartOutcome is the result a StartFn reports back after it has finished
// launching a child.
type StartOutcome int

const (
	// Running means the child is alive and supervised: its device is
	// linked and the supervisor will watch for its termination.
	Running StartOutcome = iota
	// Completed means the child ran to completion during its own start
	// call and there is nothing left to supervise; its slot stays empty.
	Completed
)

func (o StartOutcome) String() string {
	switch o {
	case Running:
		return "Running"
	case Completed:
		return "Completed"
	default:
		return "StartOutcome(?)"
	}
}

// StartFn launches one child. It is handed a fresh Device already linked
// to the supervisor before being invoked, so a child that dies before
// StartFn even returns is still observed. It reports Running if the child
// is now alive and should be supervised, or Completed if the child already
// ran to completion and has nothing left to watch.
type StartFn func(ctx context.Context, device *backplane.Device) (StartOutcome, error)

// RestartPolicy controls whether a terminated child is restarted.
type RestartPolicy int

const (
	// RestartNever leaves the child stopped regardless of how it exited.
	RestartNever RestartPolicy = iota
	// RestartOnFailure restarts the child only when it terminated with a
	// non-nil fault; an intentional, faultless exit is left stopped.
	RestartOnFailure
	// RestartAlways restarts the child no matter how it exited.
	RestartAlways
)

func (p RestartPolicy) String() string {
	switch p {
	case RestartNever:
		return "Never"
	case RestartOnFailure:
		return "OnFailure"
	case RestartAlways:
		return "Always"
	default:
		return "RestartPolicy(?)"
	}
}

// Grace bounds how long the supervisor waits for something to happen
// before giving up on it. Forever means wait indefinitely; otherwise wait
// up to Duration.
type Grace struct {
	Forever  bool
	Duration time.Duration
}

// GraceForever waits indefinitely.
func GraceForever() Grace {
	return Grace{Forever: true}
}

// GraceFixed waits up to d.
func GraceFixed(d time.Duration) Grace {
	return Grace{Duration: d}
}

// hasteKind distinguishes the two ways a child can be asked to stop.
type hasteKind int

const (
	hasteQuickly hasteKind = iota
	hasteGracefully
)

// Haste describes how a child's shutdown is conducted: Quickly fires the
// shutdown request and moves on without waiting for acknowledgement;
// Gracefully waits for the child's own TerminatedEvent, up to the given
// Grace.
type Haste struct {
	kind  hasteKind
	grace Grace
}

// Quickly requests shutdown without waiting for the child to confirm it.
// Valid only for Spec.Shutdown — unlike Spec.StartGrace, which is typed as
// Grace and so cannot even express Quickly, a startup grace of "don't
// wait" has no sensible meaning.
func Quickly() Haste {
	return Haste{kind: hasteQuickly}
}

// Gracefully requests shutdown and waits for the child's confirmation, up
// to grace.
func Gracefully(grace Grace) Haste {
	return Haste{kind: hasteGracefully, grace: grace}
}

// Spec describes one position in the supervision tree: how to start the
// child, how long to allow for that start, whether to restart it on
// termination, and how to shut it down.
type Spec struct {
	// StartFn launches the child.
	StartFn StartFn
	// StartGrace bounds how long StartFn is given to return before the
	// start is abandoned and treated as a timeout failure. Quickly has
	// no meaning here, hence the Grace (not Haste) type.
	StartGrace Grace
	// Restart controls whether the child is restarted on termination.
	Restart RestartPolicy
	// Shutdown controls how the child is asked to stop during teardown.
	Shutdown Haste
}
