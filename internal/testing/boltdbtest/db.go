package boltdbtest

import (
	"os"
	"path/filepath"
	"sync"

	"go.etcd.io/bbolt"
)

// Open opens a BoltDB database using a temporary file.
//
// The returned function must be used to close the database, instead of
// DB.Close().
func Open() (*bbolt.DB, func()) {
	filename, remove := TempFile()

	db, err := bbolt.Open(filename, 0600, nil)
	if err != nil {
		panic(err)
	}

	return db, func() {
		db.Close()
		remove()
	}
}

// TempFile returns the name of a non-existent file in a temporary directory,
// to be used for a BoltDB database.
//
// It returns a function that deletes the directory.
func TempFile() (string, func()) {
	dir, err := os.MkdirTemp("", "eventtable-bolt-*")
	if err != nil {
		panic(err)
	}

	var once sync.Once
	return filepath.Join(dir, "db.boltdb"), func() {
		once.Do(func() {
			os.RemoveAll(dir)
		})
	}
}
