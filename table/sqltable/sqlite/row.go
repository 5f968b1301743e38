package sqlite

import (
	"context"
	"database/sql"

	"github.com/dogmatiq/eventtable/internal/x/sqlx"
	"github.com/dogmatiq/eventtable/table"
)

// InsertTable registers a table name.
func (driver) InsertTable(ctx context.Context, db sqlx.DB, name string) (err error) {
	defer sqlx.Recover(&err)

	sqlx.Exec(
		ctx,
		db,
		`INSERT INTO eventtable_table (
			name
		) VALUES (
			$1
		) ON CONFLICT (name) DO NOTHING`,
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
		WHERE name = $1`,
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
	defer sqlx.Recover(&err)

	return sqlx.TryExecRow(
		ctx,
		tx,
		`INSERT INTO eventtable_row (
			table_name,
			partition_key,
			row_key,
			etag,
			created_at,
			properties
		) VALUES (
			$1, $2, $3, $4, $5, $6
		) ON CONFLICT (table_name, partition_key, row_key) DO NOTHING`,
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

	return sqlx.TryExecRow(
		ctx,
		tx,
		`UPDATE eventtable_row SET
			etag = $1,
			properties = $2
		WHERE table_name = $3
		AND partition_key = $4
		AND row_key = $5
		AND ($6 = '' OR etag = $6)`,
		r.ETag,
		props,
		name,
		r.ID.PartitionKey,
		r.ID.RowKey,
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
		WHERE table_name = $1
		AND partition_key = $2
		AND row_key = $3`,
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
		WHERE table_name = $1
		AND partition_key = $2
		ORDER BY seq`,
		name,
		pk,
	)
}
