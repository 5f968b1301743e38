package eventstore

import (
	"fmt"
)

// CommitError indicates that Store.Commit() failed.
//
// Commit is not atomic. The error reports how far the commit progressed, so
// that the caller can tell which copies of the events were written. Copies
// that are missing can be restored using Store.Repair().
type CommitError struct {
	// EventID is the ID of the event that could not be written.
	EventID string

	// Copy is the copy of the event that could not be written.
	Copy Copy

	// StreamCopies is the number of stream copies that were written.
	StreamCopies int

	// MessageCopies is the number of message copies that were written.
	MessageCopies int

	// Total is the number of events in the batch.
	Total int

	// Cause is the error that caused the failure.
	Cause error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf(
		"commit failed: unable to write the %s copy of event %s (%d of %d stream copies and %d of %d message copies written): %s",
		e.Copy,
		e.EventID,
		e.StreamCopies,
		e.Total,
		e.MessageCopies,
		e.Total,
		e.Cause,
	)
}

func (e *CommitError) Unwrap() error {
	return e.Cause
}

// SyncError indicates that Store.SetSynchronized() failed.
//
// If Copy is MessageCopy the stream copy has already been marked as
// synchronized.
type SyncError struct {
	// EventID is the ID of the event that could not be marked.
	EventID string

	// Source is the source of the event.
	Source Source

	// Copy is the copy of the event that could not be marked.
	Copy Copy

	// Cause is the error that caused the failure.
	Cause error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf(
		"set synchronized failed: unable to mark the %s copy of event %s from %s: %s",
		e.Copy,
		e.EventID,
		e.Source,
		e.Cause,
	)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}
