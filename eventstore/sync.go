package eventstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventtable/table"
)

// opSynchronize is the operation name used in errors produced when marking an
// event as synchronized.
const opSynchronize = "synchronize"

// SetSynchronized marks both copies of an event as synchronized at time t.
//
// The stream copy is updated first. The message copy is then located using the
// message ID stored on the stream copy, and updated separately. If the second
// update fails the stream copy remains marked, and the returned *SyncError
// names the message copy.
//
// If the event does not exist, the returned *SyncError wraps a
// *table.NotFoundError and nothing is written.
func (s *Store) SetSynchronized(
	ctx context.Context,
	eventID string,
	src Source,
	t time.Time,
) error {
	if err := validateEventAddress(eventID, src); err != nil {
		return fmt.Errorf("set synchronized failed: %w", err)
	}

	if t.IsZero() {
		return errors.New("set synchronized failed: timestamp must not be zero")
	}

	e, err := s.get(ctx, table.EntityID{
		RowKey:       eventID,
		PartitionKey: src.PartitionKey(),
	})
	if err != nil {
		return &SyncError{eventID, src, StreamCopy, err}
	}

	e.SynchronizedAt = t
	if err := s.table.Update(ctx, e); err != nil {
		return &SyncError{eventID, src, StreamCopy, err}
	}

	logging.Debug(
		s.logger,
		"[%s copy] marked event %s as synchronized at %s",
		StreamCopy,
		eventID,
		formatSyncTime(t),
	)

	m, err := s.get(ctx, table.EntityID{
		RowKey:       e.EventID,
		PartitionKey: MessagePartitionKey(e.MessageID),
	})
	if err != nil {
		return &SyncError{eventID, src, MessageCopy, err}
	}

	m.SynchronizedAt = t
	if err := s.table.Update(ctx, m); err != nil {
		return &SyncError{eventID, src, MessageCopy, err}
	}

	logging.Debug(
		s.logger,
		"[%s copy] marked event %s as synchronized at %s",
		MessageCopy,
		eventID,
		formatSyncTime(t),
	)

	return nil
}

// SynchronizedAt returns the time at which the stream copy of an event was
// marked as synchronized.
//
// It returns false if the event has not been marked. It returns a
// *table.NotFoundError if the event does not exist.
func (s *Store) SynchronizedAt(
	ctx context.Context,
	eventID string,
	src Source,
) (time.Time, bool, error) {
	if err := validateEventAddress(eventID, src); err != nil {
		return time.Time{}, false, fmt.Errorf("synchronized at failed: %w", err)
	}

	e, err := s.get(ctx, table.EntityID{
		RowKey:       eventID,
		PartitionKey: src.PartitionKey(),
	})
	if err != nil {
		return time.Time{}, false, err
	}

	return e.SynchronizedAt, !e.SynchronizedAt.IsZero(), nil
}

// get returns the entity with the given ID, or a *table.NotFoundError if it
// does not exist.
func (s *Store) get(ctx context.Context, id table.EntityID) (*entity, error) {
	e, ok, err := s.table.GetSingle(ctx, id)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, &table.NotFoundError{
			Op:    opSynchronize,
			Table: s.table.Name(),
			ID:    id,
		}
	}

	return e, nil
}

func validateEventAddress(eventID string, src Source) error {
	if eventID == "" {
		return errors.New("event ID must not be empty")
	}

	if err := src.Validate(); err != nil {
		return fmt.Errorf("invalid source: %w", err)
	}

	return nil
}
