package table

import (
	"context"
	"time"
)

// Row is the physical representation of a record, as exchanged with a
// Service.
type Row struct {
	ID         EntityID
	Properties Properties

	// ETag is the row's concurrency token. It is assigned by the service on
	// every successful insert or replace.
	ETag string

	// Timestamp is the time at which the row was inserted. It is assigned by
	// the service and preserved by Replace().
	Timestamp time.Time
}

// Service is an interface for a partitioned key-value table service.
//
// Implementations must be safe for concurrent use. Each operation is a single
// point operation; there are no transactions that span more than one key.
type Service interface {
	// CreateIfAbsent creates the named table if it does not already exist.
	CreateIfAbsent(ctx context.Context, table string) error

	// Insert adds a new row to a table.
	//
	// It returns a DuplicateKeyError if a row with the same ID already exists.
	// The returned row has its ETag and Timestamp populated.
	Insert(ctx context.Context, table string, r Row) (Row, error)

	// Replace overwrites an existing row.
	//
	// It returns a NotFoundError if there is no row with the same ID, or a
	// ConflictError if r.ETag is non-empty and does not match the stored
	// row's ETag. The returned row has its new ETag populated.
	Replace(ctx context.Context, table string, r Row) (Row, error)

	// Get returns the row with the given ID.
	//
	// It returns false if the row does not exist.
	Get(ctx context.Context, table string, id EntityID) (Row, bool, error)

	// ScanPartition returns all rows with the given partition key, in the
	// order they were inserted.
	ScanPartition(ctx context.Context, table, pk string) ([]Row, error)
}
