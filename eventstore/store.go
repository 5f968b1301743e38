// Package eventstore persists domain events so that they can be read by
// source or by the message that caused them.
package eventstore

import (
	"context"
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventtable/payload"
	"github.com/dogmatiq/eventtable/table"
)

// Store persists events in a table.
//
// Each event is written twice, once to the partition of its source's stream and
// once to the partition of the message that caused it. The two copies are
// written independently, there is no transaction that spans them.
type Store struct {
	table  *table.Store[*entity]
	codec  payload.Codec
	logger logging.Logger
}

// New returns an event store that uses the given table service.
//
// The events table is created if it does not already exist. c is used to
// encode and decode event payloads.
func New(
	ctx context.Context,
	s table.Service,
	c payload.Codec,
	options ...Option,
) (*Store, error) {
	opts := resolveOptions(options)

	t, err := table.NewStore(
		ctx,
		s,
		opts.TableName,
		newEntity,
		table.WithLogger(opts.Logger),
	)
	if err != nil {
		return nil, err
	}

	return &Store{
		table:  t,
		codec:  c,
		logger: opts.Logger,
	}, nil
}

// Commit persists a batch of events.
//
// Every payload is encoded before anything is written. Then the stream copy of
// every event is inserted, and only then the message copy of every event.
// Thus, if Commit fails part-way through, some events may be visible via
// GetStream() without being visible via GetMessageStream(), but never the
// reverse.
//
// A batch that contains the same event ID twice within one stream, or twice
// for one message, is rejected before anything is written.
//
// Failures to write are reported as a *CommitError.
func (s *Store) Commit(ctx context.Context, events []Event) error {
	streamCopies := make([]*entity, 0, len(events))
	seen := make(map[table.EntityID]struct{}, len(events)*2)

	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			return fmt.Errorf("commit failed: invalid event %q: %w", ev.ID, err)
		}

		p, err := s.codec.Encode(ev.Payload)
		if err != nil {
			return fmt.Errorf("commit failed: unable to encode event %s: %w", ev.ID, err)
		}

		e := newStreamEntity(ev, p)

		for _, id := range []table.EntityID{e.ID(), e.messageCopy().ID()} {
			if _, ok := seen[id]; ok {
				return fmt.Errorf(
					"commit failed: event %q appears more than once in partition %s",
					ev.ID,
					id.PartitionKey,
				)
			}
			seen[id] = struct{}{}
		}

		streamCopies = append(streamCopies, e)
	}

	for i, e := range streamCopies {
		if err := s.table.Insert(ctx, e); err != nil {
			return &CommitError{
				EventID:      e.EventID,
				Copy:         StreamCopy,
				StreamCopies: i,
				Total:        len(events),
				Cause:        err,
			}
		}

		logging.Debug(
			s.logger,
			"[%s copy] inserted event %s into partition %s",
			StreamCopy,
			e.EventID,
			e.PartitionKey,
		)
	}

	for i, e := range streamCopies {
		m := e.messageCopy()

		if err := s.table.Insert(ctx, m); err != nil {
			return &CommitError{
				EventID:       e.EventID,
				Copy:          MessageCopy,
				StreamCopies:  len(events),
				MessageCopies: i,
				Total:         len(events),
				Cause:         err,
			}
		}

		logging.Debug(
			s.logger,
			"[%s copy] inserted event %s into partition %s",
			MessageCopy,
			m.EventID,
			m.PartitionKey,
		)
	}

	return nil
}

// decode returns the event stored in e.
func (s *Store) decode(e *entity, c Copy) (Event, error) {
	v, err := s.codec.Decode(e.Payload)
	if err != nil {
		return Event{}, fmt.Errorf(
			"unable to decode the %s copy of event %s: %w",
			c,
			e.EventID,
			err,
		)
	}

	return Event{
		ID:        e.EventID,
		Source:    e.source(),
		MessageID: e.MessageID,
		Payload:   v,
	}, nil
}
