package backplane

import "time"

// Timer returns a channel that fires once after d elapses. It exists purely
// so callers select over it alongside mailbox reads without reaching for
// time.After inline at every call site.
func Timer(d time.Duration) <-chan time.Time {
	return time.After(d)
}
