package watchtower

import (
	"errors"
	"fmt"

	"github.com/kallanis/watchtower/backplane"
)

var (
	// ErrStartTimeout is the sentinel a caller can match against with
	// errors.Is when a child's StartGrace elapsed before StartFn returned.
	ErrStartTimeout = errors.New("start grace exceeded")

	// ErrThrottled is the sentinel a caller can match against with
	// errors.Is when the restart-rate budget was exhausted.
	ErrThrottled = errors.New("restart rate exceeded")

	// ErrPowerOff is the sentinel a caller can match against with
	// errors.Is when the supervisor exited because its parent requested
	// shutdown.
	ErrPowerOff = errors.New("powered off by parent")
)

// StartupFailedError reports that the child at Index failed to start,
// either because StartFn returned an error or because it overran its
// StartGrace (in which case Err wraps ErrStartTimeout).
type StartupFailedError struct {
	Index int
	Err   error
}

func (e *StartupFailedError) Error() string {
	return fmt.Sprintf("startup failed at index %d: %v", e.Index, e.Err)
}

func (e *StartupFailedError) Unwrap() error {
	return e.Err
}

// ThrottledError reports that a restart was denied because the configured
// restart-rate budget was already spent. It carries no data of its own;
// it exists so callers can type-switch on it the way they would on
// StartupFailedError, while errors.Is(err, ErrThrottled) also succeeds.
type ThrottledError struct{}

func (ThrottledError) Error() string {
	return ErrThrottled.Error()
}

func (ThrottledError) Is(target error) bool {
	return target == ErrThrottled
}

// PowerOffError reports that the supervisor shut down because Requester
// sent it a Shutdown request.
type PowerOffError struct {
	Requester backplane.ChildId
}

func (e *PowerOffError) Error() string {
	return fmt.Sprintf("power off requested by %s", e.Requester)
}

func (e *PowerOffError) Is(target error) bool {
	return target == ErrPowerOff
}
