package bboltx

import "go.etcd.io/bbolt"

// View executes fn within a read-only transaction.
//
// Panics raised by the MustXXX() style functions within fn are returned as
// errors.
func View(db *bbolt.DB, fn func(tx *bbolt.Tx)) error {
	return db.View(
		func(tx *bbolt.Tx) (err error) {
			defer Recover(&err)
			fn(tx)
			return nil
		},
	)
}

// Update executes fn within a read-write transaction.
//
// The transaction is committed if fn returns without panicking. Panics raised
// by the MustXXX() style functions within fn roll back the transaction and are
// returned as errors.
func Update(db *bbolt.DB, fn func(tx *bbolt.Tx)) error {
	return db.Update(
		func(tx *bbolt.Tx) (err error) {
			defer Recover(&err)
			fn(tx)
			return nil
		},
	)
}
