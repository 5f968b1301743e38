package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dogmatiq/eventtable/internal/x/sqlx"
	"github.com/dogmatiq/eventtable/table"
)

// maxKeyLength is the width, in bytes, of the key columns in the schema.
//
// INSERT IGNORE truncates longer values instead of failing, so they must be
// rejected before they reach the server.
const maxKeyLength = 255

// checkKeyLength returns an error if any of the given keys is too long to be
// stored without truncation.
func checkKeyLength(keys ...string) error {
	for _, k := range keys {
		if len(k) > maxKeyLength {
			return fmt.Errorf(
				"key of %d bytes exceeds the maximum length of %d bytes",
				len(k),
				maxKeyLength,
			)
		}
	}

	return nil
}

// InsertTable registers a table name.
func (driver) InsertTable(ctx context.Context, db sqlx.DB, name string) (err error) {
	if err := checkKeyLength(name); err != nil {
		return err
	}

	defer sqlx.Recover(&err)

	sqlx.Exec(
		ctx,
		db,
		`INSERT IGNORE INTO eventtable_table SET
			name = ?`,
		name,
	)

	return nil
}

// SelectTableExists returns true if the table name has been registered.
func (driver) SelectTableExists(ctx context.Context, db sqlx.DB, name string) (_ bool, err error) {
	defer sqlx.Recover(&err)

	return sqlx.QueryBool(
		ctx,
		db,
		`SELECT 1
		FROM eventtable_table
		WHERE name = ?`,
		name,
	), nil
}

// InsertRow inserts a row.
//
// It returns false if the row already exists.
func (driver) InsertRow(
	ctx context.Context,
	tx *sql.Tx,
	name string,
	r table.Row,
	props []byte,
) (_ bool, err error) {
	if err := checkKeyLength(name, r.ID.PartitionKey, r.ID.RowKey); err != nil {
		return false, err
	}

	defer sqlx.Recover(&err)

	return sqlx.TryExecRow(
		ctx,
		tx,
		`INSERT IGNORE INTO eventtable_row SET
			table_name = ?,
			partition_key = ?,
			row_key = ?,
			etag = ?,
			created_at = ?,
			properties = ?`,
		name,
		r.ID.PartitionKey,
		r.ID.RowKey,
		r.ETag,
		sqlx.MarshalTime(r.Timestamp),
		props,
	), nil
}

// UpdateRow updates an existing row.
//
// It returns false if the row does not exist or etag is not current.
func (driver) UpdateRow(
	ctx context.Context,
	tx *sql.Tx,
	name, etag string,
	r table.Row,
	props []byte,
) (_ bool, err error) {
	defer sqlx.Recover(&err)

	// The new ETag always differs from the stored one, so MySQL always
	// considers a matching row to be affected.
	return sqlx.TryExecRow(
		ctx,
		tx,
		`UPDATE eventtable_row SET
			etag = ?,
			properties = ?
		WHERE table_name = ?
		AND partition_key = ?
		AND row_key = ?
		AND (? = '' OR etag = ?)`,
		r.ETag,
		props,
		name,
		r.ID.PartitionKey,
		r.ID.RowKey,
		etag,
		etag,
	), nil
}

// SelectRow selects the row with the given ID.
func (driver) SelectRow(
	ctx context.Context,
	db sqlx.DB,
	name string,
	id table.EntityID,
) (*sql.Rows, error) {
	return db.QueryContext(
		ctx,
		`SELECT
			row_key,
			etag,
			created_at,
			properties
		FROM eventtable_row
		WHERE table_name = ?
		AND partition_key = ?
		AND row_key = ?`,
		name,
		id.PartitionKey,
		id.RowKey,
	)
}

// SelectPartition selects the rows with the given partition key, in insertion
// order.
func (driver) SelectPartition(
	ctx context.Context,
	db sqlx.DB,
	name, pk string,
) (*sql.Rows, error) {
	return db.QueryContext(
		ctx,
		`SELECT
			row_key,
			etag,
			created_at,
			properties
		FROM eventtable_row
		WHERE table_name = ?
		AND partition_key = ?
		ORDER BY seq`,
		name,
		pk,
	)
}
