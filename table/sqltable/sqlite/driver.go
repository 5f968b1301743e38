package sqlite

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventtable/internal/x/sqlx"
)

// Driver is an implementation of sqltable.Driver for SQLite.
var Driver = driver{}

type driver struct{}

// IsCompatibleWith returns nil if this driver can be used with db.
func (driver) IsCompatibleWith(ctx context.Context, db *sql.DB) error {
	// Verify that we're using SQLite and that $1-style placeholders are
	// supported.
	return db.QueryRowContext(
		ctx,
		`SELECT sqlite_version() WHERE 1 = $1`,
		1,
	).Err()
}

// Begin starts a transaction.
func (driver) Begin(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	return db.BeginTx(ctx, nil)
}

// CreateSchema creates the schema elements required by the SQLite driver.
func (driver) CreateSchema(ctx context.Context, db *sql.DB) error {
	return sqlx.Transact(
		ctx,
		db,
		func(tx *sql.Tx) {
			sqlx.Exec(
				ctx,
				tx,
				`CREATE TABLE IF NOT EXISTS eventtable_table (
					name TEXT NOT NULL PRIMARY KEY
				)`,
			)

			sqlx.Exec(
				ctx,
				tx,
				`CREATE TABLE IF NOT EXISTS eventtable_row (
					seq           INTEGER PRIMARY KEY AUTOINCREMENT,
					table_name    TEXT NOT NULL,
					partition_key TEXT NOT NULL,
					row_key       TEXT NOT NULL,
					etag          TEXT NOT NULL,
					created_at    BLOB NOT NULL,
					properties    BLOB NOT NULL,

					UNIQUE (table_name, partition_key, row_key)
				)`,
			)

			sqlx.Exec(
				ctx,
				tx,
				`CREATE INDEX IF NOT EXISTS eventtable_row_partition_idx ON eventtable_row (
					table_name,
					partition_key,
					seq
				)`,
			)
		},
	)
}

// DropSchema drops the schema elements required by the SQLite driver.
func (driver) DropSchema(ctx context.Context, db *sql.DB) (err error) {
	defer sqlx.Recover(&err)

	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS eventtable_row`)
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS eventtable_table`)

	return nil
}
