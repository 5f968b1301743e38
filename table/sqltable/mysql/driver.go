package mysql

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventtable/internal/x/sqlx"
)

// Driver is an implementation of sqltable.Driver for MySQL.
var Driver driver

type driver struct{}

// IsCompatibleWith returns nil if this driver can be used with db.
func (driver) IsCompatibleWith(ctx context.Context, db *sql.DB) error {
	// Verify that ?-style placeholders are supported.
	err := db.QueryRowContext(
		ctx,
		`SELECT ?`,
		1,
	).Err()

	if err != nil {
		return err
	}

	// Verify that we're using something compatible with MySQL (because the SHOW
	// VARIABLES syntax is supported) and that InnoDB is available.
	return db.QueryRowContext(
		ctx,
		`SHOW VARIABLES LIKE "innodb_page_size"`,
	).Err()
}

// Begin starts a transaction.
func (driver) Begin(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	return db.BeginTx(ctx, nil)
}

// CreateSchema creates any SQL schema elements required by the driver.
func (driver) CreateSchema(ctx context.Context, db *sql.DB) (err error) {
	defer sqlx.Recover(&err)

	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS eventtable_table (
			name VARBINARY(255) NOT NULL PRIMARY KEY
		) ENGINE=InnoDB`,
	)

	sqlx.Exec(
		ctx,
		db,
		`CREATE TABLE IF NOT EXISTS eventtable_row (
			seq           BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			table_name    VARBINARY(255) NOT NULL,
			partition_key VARBINARY(255) NOT NULL,
			row_key       VARBINARY(255) NOT NULL,
			etag          VARBINARY(255) NOT NULL,
			created_at    VARBINARY(255) NOT NULL,
			properties    LONGBLOB NOT NULL,

			UNIQUE INDEX (table_name, partition_key, row_key),
			INDEX partition_idx (table_name, partition_key, seq)
		) ENGINE=InnoDB`,
	)

	return nil
}

// DropSchema removes any SQL schema elements created by CreateSchema().
func (driver) DropSchema(ctx context.Context, db *sql.DB) (err error) {
	defer sqlx.Recover(&err)

	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS eventtable_row`)
	sqlx.Exec(ctx, db, `DROP TABLE IF EXISTS eventtable_table`)

	return nil
}
