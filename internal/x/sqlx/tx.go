package sqlx

import (
	"context"
	"database/sql"
)

// Begin starts a new transaction.
func Begin(ctx context.Context, db *sql.DB) *sql.Tx {
	tx, err := db.BeginTx(ctx, nil)
	Must(err)
	return tx
}

// Commit commits the given transaction.
func Commit(tx *sql.Tx) {
	Must(tx.Commit())
}

// Transact runs fn within a transaction.
//
// The transaction is committed if fn returns without panicking, otherwise it
// is rolled back. Panics raised by the MustXXX() style functions are returned
// as errors.
func Transact(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx)) (err error) {
	defer Recover(&err)

	tx := Begin(ctx, db)
	defer tx.Rollback() // nolint:errcheck

	fn(tx)
	Commit(tx)

	return nil
}
