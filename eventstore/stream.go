package eventstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// GetStream returns the events from the given source, in the order they were
// committed.
//
// It returns an empty slice if there are no events from the source.
func (s *Store) GetStream(ctx context.Context, src Source) ([]Event, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("get stream failed: invalid source: %w", err)
	}

	events, err := s.read(ctx, src.PartitionKey(), StreamCopy)
	if err != nil {
		return nil, err
	}

	for i := range events {
		events[i].Source = src
	}

	return events, nil
}

// GetMessageStream returns the events that were produced while handling the
// given message, in the order they were committed.
//
// The source of each event is rebuilt from the copy that is stored in the
// message's partition. It returns an empty slice if there are no such events.
func (s *Store) GetMessageStream(ctx context.Context, messageID string) ([]Event, error) {
	if messageID == "" {
		return nil, errors.New("get message stream failed: message ID must not be empty")
	}

	return s.read(ctx, MessagePartitionKey(messageID), MessageCopy)
}

// read returns the events in a partition, ordered by insertion timestamp.
func (s *Store) read(ctx context.Context, pk string, c Copy) ([]Event, error) {
	entities, err := s.table.GetPartition(ctx, pk)
	if err != nil {
		return nil, err
	}

	// The service returns entities in insertion order, so a stable sort keeps
	// that order for entities with equal timestamps.
	sort.SliceStable(
		entities,
		func(i, j int) bool {
			return entities[i].Timestamp.Before(entities[j].Timestamp)
		},
	)

	events := make([]Event, 0, len(entities))

	for _, e := range entities {
		ev, err := s.decode(e, c)
		if err != nil {
			return nil, err
		}

		events = append(events, ev)
	}

	return events, nil
}
