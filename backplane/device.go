// Package backplane provides the minimal task-runtime primitive the
// supervisor core depends on: a mailboxed device, a send-only line to it,
// and a one-way or two-way monitor link between two devices. It stands in
// for the "Device/Line" runtime spec.md treats as an external collaborator
// (the actual spawning of children and their business logic is out of
// scope); this package only ever delivers two kinds of event, Shutdown and
// Terminated.
package backplane

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// ChildId is the opaque, globally unique identity the runtime assigns to a
// device when it is created. It is comparable, so callers can safely use it
// as a map key or compare two ids for equality.
type ChildId = uuid.UUID

// LinkMode controls who is notified when a device disconnects.
type LinkMode int

const (
	// Monitor is a one-way link: the parent observes the child's
	// termination, the child never observes the parent's.
	Monitor LinkMode = iota
	// Peer is a two-way link: both sides observe each other's termination.
	Peer
)

// Device is a mailboxed endpoint on the backplane. A supervisor creates one
// per child (and holds one for itself); events delivered to a Device are
// read with Next and the Device is torn down with Disconnect.
type Device struct {
	id      ChildId
	mailbox chan any

	mu       sync.Mutex
	monitors []*Line
	closed   bool
	once     sync.Once
}

// Line is a send-only handle to a Device's mailbox, safe to hand to other
// goroutines. Sends are best-effort: a full or already-closed mailbox drops
// the message silently, matching the backplane contract that delivery
// failures never propagate back to the sender.
type Line struct {
	id      ChildId
	mailbox chan any
}

// NewDevice creates a fresh device along with a send-only Line to it and
// its assigned ChildId.
func NewDevice() (*Device, *Line, ChildId) {
	id := uuid.New()
	d := &Device{
		id:      id,
		mailbox: make(chan any, 16),
	}
	return d, d.Line(), id
}

// ID returns the device's identity.
func (d *Device) ID() ChildId {
	return d.id
}

// Line returns a new send-only handle to this device's mailbox.
func (d *Device) Line() *Line {
	return &Line{id: d.id, mailbox: d.mailbox}
}

// Link installs a monitor or peer link between parent and child. Monitor
// links register only parent as an observer of child; Peer links register
// both directions.
func Link(parent, child *Device, mode LinkMode) {
	child.addMonitor(parent.Line())
	if mode == Peer {
		parent.addMonitor(child.Line())
	}
}

func (d *Device) addMonitor(l *Line) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		// Device already gone: tell the new monitor immediately so it
		// never waits on an event that will never come.
		l.Send(TerminatedEvent{ID: d.id})
		return
	}
	d.monitors = append(d.monitors, l)
}

// Events exposes the device's mailbox as a receive-only channel, for
// callers that need to select over it alongside other channels (the
// supervisor's shutdown collector selects over this and a deadline timer
// at the same time; Next alone can't express that).
func (d *Device) Events() <-chan any {
	return d.mailbox
}

// Next blocks until an event arrives in the device's mailbox, ctx is
// cancelled, or the device is permanently closed. The second return value
// is false when the device is closed or ctx is cancelled, mirroring
// Device::next() -> Option<Event>.
func (d *Device) Next(ctx context.Context) (any, bool) {
	select {
	case evt, ok := <-d.mailbox:
		return evt, ok
	case <-ctx.Done():
		return nil, false
	}
}

// Disconnect tears down the device: its mailbox is closed and every
// registered monitor receives a TerminatedEvent carrying reason. Safe to
// call more than once; only the first call has effect.
func (d *Device) Disconnect(reason error) {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		monitors := d.monitors
		d.monitors = nil
		d.mu.Unlock()

		for _, m := range monitors {
			m.Send(TerminatedEvent{ID: d.id, Fault: reason})
		}
		close(d.mailbox)
	})
}

// Send delivers evt to the line's target mailbox without blocking. If the
// mailbox is full or already closed, the send is dropped silently.
func (l *Line) Send(evt any) {
	defer func() {
		// A closed mailbox panics on send; best-effort delivery means we
		// swallow it rather than let it escape to the caller.
		_ = recover()
	}()
	select {
	case l.mailbox <- evt:
	default:
	}
}

// ID returns the identity of the device this line addresses.
func (l *Line) ID() ChildId {
	return l.id
}
