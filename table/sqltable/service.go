package sqltable

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dogmatiq/eventtable/internal/x/sqlx"
	"github.com/dogmatiq/eventtable/table"
	"github.com/google/uuid"
)

// Service is an implementation of table.Service that stores tables in an SQL
// database.
//
// The schema must already exist, see CreateSchema().
type Service struct {
	// DB is the SQL database to use.
	DB *sql.DB

	// Driver is the driver used to interact with the database. If it is nil,
	// a built-in driver is selected by inspecting DB.
	Driver Driver

	// Clock returns the current time, used as the insertion timestamp of new
	// rows. If it is nil, time.Now() is used.
	Clock func() time.Time

	m      sync.Mutex
	driver Driver
}

// CreateIfAbsent creates the named table if it does not already exist.
func (s *Service) CreateIfAbsent(ctx context.Context, name string) error {
	d, err := s.selectDriver(ctx)
	if err != nil {
		return err
	}

	return d.InsertTable(ctx, s.DB, name)
}

// Insert adds a new row to a table.
func (s *Service) Insert(ctx context.Context, name string, r table.Row) (_ table.Row, err error) {
	defer sqlx.Recover(&err)

	d := s.mustSelectDriver(ctx)

	r.ETag = uuid.NewString()
	r.Timestamp = s.now()

	props, err := table.MarshalProperties(r.Properties)
	sqlx.Must(err)

	tx := s.mustBegin(ctx, d)
	defer tx.Rollback() // nolint:errcheck

	mustTableExist(ctx, d, tx, name)

	ok, err := d.InsertRow(ctx, tx, name, r, props)
	sqlx.Must(err)

	if !ok {
		return table.Row{}, &table.DuplicateKeyError{
			Op:    table.OpInsert,
			Table: name,
			ID:    r.ID,
		}
	}

	sqlx.Commit(tx)

	return r, nil
}

// Replace overwrites an existing row.
func (s *Service) Replace(ctx context.Context, name string, r table.Row) (_ table.Row, err error) {
	defer sqlx.Recover(&err)

	d := s.mustSelectDriver(ctx)

	etag := r.ETag
	r.ETag = uuid.NewString()

	props, err := table.MarshalProperties(r.Properties)
	sqlx.Must(err)

	tx := s.mustBegin(ctx, d)
	defer tx.Rollback() // nolint:errcheck

	mustTableExist(ctx, d, tx, name)

	ok, err := d.UpdateRow(ctx, tx, name, etag, r, props)
	sqlx.Must(err)

	existing, exists := mustSelectRow(ctx, d, tx, name, r.ID)

	if !exists {
		return table.Row{}, &table.NotFoundError{
			Op:    table.OpReplace,
			Table: name,
			ID:    r.ID,
		}
	}

	if !ok {
		return table.Row{}, &table.ConflictError{
			Op:    table.OpReplace,
			Table: name,
			ID:    r.ID,
		}
	}

	sqlx.Commit(tx)

	r.Timestamp = existing.Timestamp

	return r, nil
}

// Get returns the row with the given ID.
func (s *Service) Get(ctx context.Context, name string, id table.EntityID) (_ table.Row, _ bool, err error) {
	defer sqlx.Recover(&err)

	d := s.mustSelectDriver(ctx)

	tx := s.mustBegin(ctx, d)
	defer tx.Rollback() // nolint:errcheck

	mustTableExist(ctx, d, tx, name)

	r, ok := mustSelectRow(ctx, d, tx, name, id)
	return r, ok, nil
}

// ScanPartition returns all rows with the given partition key, in the order
// they were inserted.
func (s *Service) ScanPartition(ctx context.Context, name, pk string) (_ []table.Row, err error) {
	defer sqlx.Recover(&err)

	d := s.mustSelectDriver(ctx)

	tx := s.mustBegin(ctx, d)
	defer tx.Rollback() // nolint:errcheck

	mustTableExist(ctx, d, tx, name)

	rows, err := d.SelectPartition(ctx, tx, name, pk)
	sqlx.Must(err)

	return scanRows(rows, pk), nil
}

// selectDriver returns the driver to use, selecting a built-in driver the
// first time it is called if s.Driver is nil.
func (s *Service) selectDriver(ctx context.Context) (Driver, error) {
	if s.Driver != nil {
		return s.Driver, nil
	}

	s.m.Lock()
	defer s.m.Unlock()

	if s.driver == nil {
		d, err := SelectDriver(ctx, s.DB)
		if err != nil {
			return nil, err
		}

		s.driver = d
	}

	return s.driver, nil
}

func (s *Service) mustSelectDriver(ctx context.Context) Driver {
	d, err := s.selectDriver(ctx)
	sqlx.Must(err)
	return d
}

func (s *Service) mustBegin(ctx context.Context, d Driver) *sql.Tx {
	tx, err := d.Begin(ctx, s.DB)
	sqlx.Must(err)
	return tx
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}

	return time.Now()
}

// mustTableExist panics if the named table has not been created.
func mustTableExist(ctx context.Context, d Driver, db sqlx.DB, name string) {
	ok, err := d.SelectTableExists(ctx, db, name)
	sqlx.Must(err)

	if !ok {
		sqlx.Must(fmt.Errorf("table '%s' does not exist", name))
	}
}

// mustSelectRow returns the row with the given ID.
func mustSelectRow(
	ctx context.Context,
	d Driver,
	db sqlx.DB,
	name string,
	id table.EntityID,
) (table.Row, bool) {
	rows, err := d.SelectRow(ctx, db, name, id)
	sqlx.Must(err)

	result := scanRows(rows, id.PartitionKey)
	if len(result) == 0 {
		return table.Row{}, false
	}

	return result[0], true
}

// scanRows reads all of the rows in a result set produced by
// Driver.SelectRow() or Driver.SelectPartition(), and closes it.
func scanRows(rows *sql.Rows, pk string) []table.Row {
	defer rows.Close()

	var result []table.Row

	for rows.Next() {
		var (
			rk, etag  string
			createdAt []byte
			data      []byte
		)

		sqlx.Must(rows.Scan(&rk, &etag, &createdAt, &data))

		props, err := table.UnmarshalProperties(data)
		sqlx.Must(err)

		result = append(result, table.Row{
			ID: table.EntityID{
				RowKey:       rk,
				PartitionKey: pk,
			},
			Properties: props,
			ETag:       etag,
			Timestamp:  sqlx.UnmarshalTime(createdAt),
		})
	}

	sqlx.Must(rows.Err())

	return result
}
