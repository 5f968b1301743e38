package postgres

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventtable/internal/x/sqlx"
)

// Driver is an implementation of sqltable.Driver for PostgreSQL.
var Driver errorConverter

type driver struct{}

// IsCompatibleWith returns nil if this driver can be used with db.
func (driver) IsCompatibleWith(ctx context.Context, db *sql.DB) error {
	// Verify that we're using PostgreSQL and that $1-style placeholders are
	// supported.
	return db.QueryRowContext(
		ctx,
		`SELECT pg_backend_pid() WHERE 1 = $1`,
		1,
	).Err()
}

// Begin starts a transaction.
func (driver) Begin(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	return db.BeginTx(ctx, nil)
}

// CreateSchema creates any SQL schema elements required by the driver.
func (driver) CreateSchema(ctx context.Context, db *sql.DB) error {
	return sqlx.Transact(
		ctx,
		db,
		func(tx *sql.Tx) {
			sqlx.Exec(ctx, tx, `CREATE SCHEMA IF NOT EXISTS eventtable`)

			sqlx.Exec(
				ctx,
				tx,
				`CREATE TABLE IF NOT EXISTS eventtable.registered_table (
					name TEXT NOT NULL PRIMARY KEY
				)`,
			)

			sqlx.Exec(
				ctx,
				tx,
				`CREATE TABLE IF NOT EXISTS eventtable.entity (
					seq           BIGSERIAL NOT NULL PRIMARY KEY,
					table_name    TEXT NOT NULL,
					partition_key TEXT NOT NULL,
					row_key       TEXT NOT NULL,
					etag          TEXT NOT NULL,
					created_at    BYTEA NOT NULL,
					properties    BYTEA NOT NULL,

					UNIQUE (table_name, partition_key, row_key)
				)`,
			)

			sqlx.Exec(
				ctx,
				tx,
				`CREATE INDEX IF NOT EXISTS entity_partition_idx ON eventtable.entity (
					table_name,
					partition_key,
					seq
				)`,
			)
		},
	)
}

// DropSchema removes any SQL schema elements created by CreateSchema().
func (driver) DropSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS eventtable CASCADE`)
	return err
}
