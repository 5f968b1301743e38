package sqlx

import (
	"context"
	"database/sql"
)

// Query executes a query on the given DB.
func Query(
	ctx context.Context,
	db DB,
	query string,
	args ...interface{},
) *sql.Rows {
	rows, err := db.QueryContext(ctx, query, args...)
	Must(err)
	return rows
}

// QueryBool executes a single-column, single-row query on the given DB and
// returns a single bool result.
//
// It returns false if the query produces no rows.
func QueryBool(
	ctx context.Context,
	db DB,
	query string,
	args ...interface{},
) (v bool) {
	err := db.QueryRowContext(ctx, query, args...).Scan(&v)
	if err == sql.ErrNoRows {
		return false
	}

	Must(err)
	return v
}
