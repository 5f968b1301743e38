// Package messagestore records which inbound messages have already been
// handled.
package messagestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventtable/internal/x/loggingx"
	"github.com/dogmatiq/eventtable/payload"
	"github.com/dogmatiq/eventtable/table"
)

// Store is an idempotent registry of messages.
type Store struct {
	table  *table.Store[*entity]
	codec  payload.Codec
	logger logging.Logger
}

// New returns a message store that uses the given table service.
//
// The messages table is created if it does not already exist. c is used to
// determine the type name of each message and to encode it.
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
		logger: loggingx.WithPrefix(opts.Logger, "[%s table] ", opts.TableName),
	}, nil
}

// Register records that the message with the given ID has been received.
//
// It returns true if the message was not previously registered. Registering a
// message that is already registered has no effect, the record of the original
// registration is left unchanged.
//
// If two callers register the same message concurrently exactly one of them
// observes true.
func (s *Store) Register(ctx context.Context, messageID string, m any) (bool, error) {
	id, err := s.entityID(messageID, m)
	if err != nil {
		return false, fmt.Errorf("register failed: %w", err)
	}

	_, ok, err := s.table.GetSingle(ctx, id)
	if err != nil {
		return false, err
	}

	if ok {
		logging.Debug(s.logger, "message %s is already registered", messageID)
		return false, nil
	}

	p, err := s.codec.Encode(m)
	if err != nil {
		return false, fmt.Errorf("register failed: unable to encode message %s: %w", messageID, err)
	}

	e := &entity{
		Entity: table.Entity{
			PartitionKey: id.PartitionKey,
			RowKey:       id.RowKey,
		},
		Payload: p,
	}

	if err := s.table.Insert(ctx, e); err != nil {
		if table.IsDuplicateKey(err) {
			logging.Log(
				s.logger,
				"message %s was registered concurrently by another caller",
				messageID,
			)
			return false, nil
		}

		return false, err
	}

	return true, nil
}

// IsRegistered returns true if the message with the given ID has been
// registered.
func (s *Store) IsRegistered(ctx context.Context, messageID string, m any) (bool, error) {
	id, err := s.entityID(messageID, m)
	if err != nil {
		return false, fmt.Errorf("is registered failed: %w", err)
	}

	_, ok, err := s.table.GetSingle(ctx, id)
	return ok, err
}

// entityID returns the ID of the record of the given message.
func (s *Store) entityID(messageID string, m any) (table.EntityID, error) {
	if messageID == "" {
		return table.EntityID{}, errors.New("message ID must not be empty")
	}

	n, err := s.codec.TypeName(m)
	if err != nil {
		return table.EntityID{}, err
	}

	return table.EntityID{
		RowKey:       messageID,
		PartitionKey: n,
	}, nil
}
