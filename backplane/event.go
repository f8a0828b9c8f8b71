package backplane

// ShutdownEvent asks the device's owner to terminate in an orderly fashion.
// Requester identifies whoever sent it, so handlers can thread it through
// to an eventual PowerOff error.
type ShutdownEvent struct {
	Requester ChildId
}

// TerminatedEvent reports that a monitored device has disconnected. Fault is
// nil for a normal exit.
type TerminatedEvent struct {
	ID    ChildId
	Fault error
}
