package sqltable

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventtable/internal/x/sqlx"
	"github.com/dogmatiq/eventtable/table"
)

// Driver is used to interface with the underlying SQL database.
type Driver interface {
	// IsCompatibleWith returns nil if this driver can be used with db.
	IsCompatibleWith(ctx context.Context, db *sql.DB) error

	// Begin starts a transaction.
	Begin(ctx context.Context, db *sql.DB) (*sql.Tx, error)

	// CreateSchema creates any SQL schema elements required by the driver.
	CreateSchema(ctx context.Context, db *sql.DB) error

	// DropSchema removes any SQL schema elements created by CreateSchema().
	DropSchema(ctx context.Context, db *sql.DB) error

	// InsertTable registers a table name. It does nothing if the table is
	// already registered.
	InsertTable(ctx context.Context, db sqlx.DB, name string) error

	// SelectTableExists returns true if the table name has been registered.
	SelectTableExists(ctx context.Context, db sqlx.DB, name string) (bool, error)

	// InsertRow inserts a row.
	//
	// It returns false if a row with the same ID already exists.
	InsertRow(ctx context.Context, tx *sql.Tx, name string, r table.Row, props []byte) (bool, error)

	// UpdateRow sets the properties and ETag of an existing row to those of r.
	//
	// If etag is non-empty the update only occurs if it matches the stored
	// ETag. It returns false if no row was updated.
	UpdateRow(ctx context.Context, tx *sql.Tx, name, etag string, r table.Row, props []byte) (bool, error)

	// SelectRow selects the row with the given ID.
	//
	// The result set has the columns row_key, etag, created_at and properties.
	SelectRow(ctx context.Context, db sqlx.DB, name string, id table.EntityID) (*sql.Rows, error)

	// SelectPartition selects the rows with the given partition key, in
	// insertion order.
	//
	// The result set has the same columns as SelectRow().
	SelectPartition(ctx context.Context, db sqlx.DB, name, pk string) (*sql.Rows, error)
}
