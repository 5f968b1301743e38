package table

import (
	"context"
	"fmt"

	"github.com/dogmatiq/dodeca/logging"
)

// DefaultLogger is the default target for log messages produced by a store.
//
// It is overridden by the WithLogger() option.
var DefaultLogger = logging.DefaultLogger

// StoreOption configures the behavior of a store.
type StoreOption func(*storeOptions)

// WithLogger returns a store option that sets the target for log messages
// produced by the store.
//
// If this option is omitted or l is nil, DefaultLogger is used.
func WithLogger(l logging.Logger) StoreOption {
	return func(opts *storeOptions) {
		opts.Logger = l
	}
}

type storeOptions struct {
	Logger logging.Logger
}

// Store is a typed façade over a Service for a single record type.
type Store[R Record] struct {
	service   Service
	name      string
	newRecord func() R
	logger    logging.Logger
}

// NewStore returns a store for records of type R in the named table.
//
// The table is created if it does not already exist, so it is safe to construct
// several stores for the same table.
//
// newRecord returns a new, empty record to unmarshal into.
func NewStore[R Record](
	ctx context.Context,
	s Service,
	name string,
	newRecord func() R,
	options ...StoreOption,
) (*Store[R], error) {
	if name == "" {
		return nil, fmt.Errorf("%s failed: table name must not be empty", OpCreate)
	}

	var opts storeOptions
	for _, o := range options {
		o(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = DefaultLogger
	}

	if err := s.CreateIfAbsent(ctx, name); err != nil {
		return nil, Unavailable(OpCreate, name, EntityID{}, err)
	}

	return &Store[R]{
		service:   s,
		name:      name,
		newRecord: newRecord,
		logger:    opts.Logger,
	}, nil
}

// Name returns the name of the table.
func (s *Store[R]) Name() string {
	return s.name
}

// Insert inserts each of the given records, in order.
//
// It stops at the first failure. Records that were inserted before the failure
// remain inserted. If a record with the same ID already exists, a
// DuplicateKeyError is returned.
//
// On success each record's ETag and Timestamp are updated.
func (s *Store[R]) Insert(ctx context.Context, records ...R) error {
	for _, r := range records {
		if err := s.insert(ctx, r); err != nil {
			return err
		}
	}

	return nil
}

func (s *Store[R]) insert(ctx context.Context, r R) error {
	e := r.TableEntity()
	id := e.ID()

	if err := id.Validate(); err != nil {
		return fmt.Errorf("%s failed: invalid record in the '%s' table: %w", OpInsert, s.name, err)
	}

	row, err := s.service.Insert(
		ctx,
		s.name,
		Row{
			ID:         id,
			Properties: r.MarshalProperties(),
		},
	)
	if err != nil {
		return Unavailable(OpInsert, s.name, id, err)
	}

	e.ETag = row.ETag
	e.Timestamp = row.Timestamp

	logging.Debug(s.logger, "inserted %s into the '%s' table", id, s.name)

	return nil
}

// Update replaces an existing record.
//
// It returns a NotFoundError if the record does not exist, or a ConflictError
// if the record's ETag does not match the stored record.
//
// On success the record's ETag is updated.
func (s *Store[R]) Update(ctx context.Context, r R) error {
	e := r.TableEntity()
	id := e.ID()

	if err := id.Validate(); err != nil {
		return fmt.Errorf("%s failed: invalid record in the '%s' table: %w", OpReplace, s.name, err)
	}

	row, err := s.service.Replace(
		ctx,
		s.name,
		Row{
			ID:         id,
			Properties: r.MarshalProperties(),
			ETag:       e.ETag,
		},
	)
	if err != nil {
		return Unavailable(OpReplace, s.name, id, err)
	}

	e.ETag = row.ETag
	e.Timestamp = row.Timestamp

	logging.Debug(s.logger, "replaced %s in the '%s' table", id, s.name)

	return nil
}

// GetSingle returns the record with the given ID.
//
// It returns false if the record does not exist.
func (s *Store[R]) GetSingle(ctx context.Context, id EntityID) (R, bool, error) {
	var zero R

	if err := id.Validate(); err != nil {
		return zero, false, fmt.Errorf("%s failed: invalid ID in the '%s' table: %w", OpGet, s.name, err)
	}

	row, ok, err := s.service.Get(ctx, s.name, id)
	if err != nil {
		return zero, false, Unavailable(OpGet, s.name, id, err)
	}

	if !ok {
		return zero, false, nil
	}

	r, err := s.unmarshal(row)
	if err != nil {
		return zero, false, err
	}

	return r, true, nil
}

// GetPartition returns all records with the given partition key, in the order
// they were inserted.
func (s *Store[R]) GetPartition(ctx context.Context, pk string) ([]R, error) {
	if pk == "" {
		return nil, fmt.Errorf("%s failed: partition key must not be empty", OpScan)
	}

	rows, err := s.service.ScanPartition(ctx, s.name, pk)
	if err != nil {
		return nil, Unavailable(OpScan, s.name, EntityID{PartitionKey: pk}, err)
	}

	records := make([]R, 0, len(rows))

	for _, row := range rows {
		r, err := s.unmarshal(row)
		if err != nil {
			return nil, err
		}

		records = append(records, r)
	}

	return records, nil
}

// unmarshal builds a record from its row.
func (s *Store[R]) unmarshal(row Row) (R, error) {
	r := s.newRecord()

	e := r.TableEntity()
	e.PartitionKey = row.ID.PartitionKey
	e.RowKey = row.ID.RowKey
	e.ETag = row.ETag
	e.Timestamp = row.Timestamp

	if err := r.UnmarshalProperties(row.Properties); err != nil {
		var zero R
		return zero, fmt.Errorf(
			"unable to unmarshal record %s from the '%s' table: %w",
			row.ID,
			s.name,
			err,
		)
	}

	return r, nil
}
