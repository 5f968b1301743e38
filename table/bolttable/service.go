package bolttable

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dogmatiq/eventtable/internal/x/bboltx"
	"github.com/dogmatiq/eventtable/table"
	"go.etcd.io/bbolt"
)

var (
	// rootBucketKey is the key of the bucket that contains one child bucket
	// per table.
	//
	// Each table bucket contains one child bucket per partition, and its
	// sequence is used to generate ETags.
	rootBucketKey = []byte("eventtable")

	// rowsBucketKey is the key of the child bucket of a partition that
	// contains its rows.
	//
	// The keys are the row keys. The values are the rows marshaled using
	// protocol buffers.
	rowsBucketKey = []byte("rows")

	// orderBucketKey is the key of the child bucket of a partition that
	// records insertion order.
	//
	// The keys are insertion sequence numbers encoded as 8-byte big-endian
	// packets. The values are row keys.
	orderBucketKey = []byte("order")
)

// Service is an implementation of table.Service that stores tables in an
// existing open BoltDB database.
type Service struct {
	// DB is the BoltDB database to use.
	DB *bbolt.DB

	// Clock returns the current time, used as the insertion timestamp of new
	// rows. If it is nil, time.Now() is used.
	Clock func() time.Time
}

// CreateIfAbsent creates the named table if it does not already exist.
func (s *Service) CreateIfAbsent(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return bboltx.Update(
		s.DB,
		func(tx *bbolt.Tx) {
			bboltx.CreateBucketIfNotExists(tx, rootBucketKey, []byte(name))
		},
	)
}

// Insert adds a new row to a table.
func (s *Service) Insert(ctx context.Context, name string, r table.Row) (table.Row, error) {
	if err := ctx.Err(); err != nil {
		return table.Row{}, err
	}

	err := bboltx.Update(
		s.DB,
		func(tx *bbolt.Tx) {
			t := mustTable(tx, name)
			p := bboltx.CreateBucketIfNotExists(t, []byte(r.ID.PartitionKey))
			rows := bboltx.CreateBucketIfNotExists(p, rowsBucketKey)

			if rows.Get([]byte(r.ID.RowKey)) != nil {
				bboltx.Must(&table.DuplicateKeyError{
					Op:    table.OpInsert,
					Table: name,
					ID:    r.ID,
				})
			}

			r.ETag = strconv.FormatUint(bboltx.NextSequence(t), 10)
			r.Timestamp = s.now()

			bboltx.Put(rows, []byte(r.ID.RowKey), marshalRow(r))

			order := bboltx.CreateBucketIfNotExists(p, orderBucketKey)
			bboltx.Put(
				order,
				marshalUint64(bboltx.NextSequence(order)),
				[]byte(r.ID.RowKey),
			)
		},
	)
	if err != nil {
		return table.Row{}, err
	}

	return r, nil
}

// Replace overwrites an existing row.
func (s *Service) Replace(ctx context.Context, name string, r table.Row) (table.Row, error) {
	if err := ctx.Err(); err != nil {
		return table.Row{}, err
	}

	err := bboltx.Update(
		s.DB,
		func(tx *bbolt.Tx) {
			t := mustTable(tx, name)

			rows := bboltx.Bucket(t, []byte(r.ID.PartitionKey), rowsBucketKey)
			var data []byte
			if rows != nil {
				data = rows.Get([]byte(r.ID.RowKey))
			}

			if data == nil {
				bboltx.Must(&table.NotFoundError{
					Op:    table.OpReplace,
					Table: name,
					ID:    r.ID,
				})
			}

			existing := unmarshalRow(r.ID, data)

			if r.ETag != "" && r.ETag != existing.ETag {
				bboltx.Must(&table.ConflictError{
					Op:    table.OpReplace,
					Table: name,
					ID:    r.ID,
				})
			}

			r.ETag = strconv.FormatUint(bboltx.NextSequence(t), 10)
			r.Timestamp = existing.Timestamp

			bboltx.Put(rows, []byte(r.ID.RowKey), marshalRow(r))
		},
	)
	if err != nil {
		return table.Row{}, err
	}

	return r, nil
}

// Get returns the row with the given ID.
func (s *Service) Get(ctx context.Context, name string, id table.EntityID) (table.Row, bool, error) {
	if err := ctx.Err(); err != nil {
		return table.Row{}, false, err
	}

	var (
		row table.Row
		ok  bool
	)

	err := bboltx.View(
		s.DB,
		func(tx *bbolt.Tx) {
			t := mustTable(tx, name)

			rows := bboltx.Bucket(t, []byte(id.PartitionKey), rowsBucketKey)
			if rows == nil {
				return
			}

			if data := rows.Get([]byte(id.RowKey)); data != nil {
				row = unmarshalRow(id, data)
				ok = true
			}
		},
	)

	return row, ok, err
}

// ScanPartition returns all rows with the given partition key, in the order
// they were inserted.
func (s *Service) ScanPartition(ctx context.Context, name, pk string) ([]table.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []table.Row

	err := bboltx.View(
		s.DB,
		func(tx *bbolt.Tx) {
			t := mustTable(tx, name)

			p := t.Bucket([]byte(pk))
			if p == nil {
				return
			}

			rows := bboltx.Bucket(p, rowsBucketKey)
			order := bboltx.Bucket(p, orderBucketKey)
			if rows == nil || order == nil {
				return
			}

			bboltx.Must(
				order.ForEach(func(_, rk []byte) error {
					// Bail if we're taking too long to read a large partition.
					bboltx.Must(ctx.Err())

					id := table.EntityID{
						RowKey:       string(rk),
						PartitionKey: pk,
					}

					result = append(result, unmarshalRow(id, rows.Get(rk)))
					return nil
				}),
			)
		},
	)

	return result, err
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}

	return time.Now()
}

// mustTable returns the bucket for the named table, or panics if the table
// has not been created.
func mustTable(tx *bbolt.Tx, name string) *bbolt.Bucket {
	t := bboltx.Bucket(tx, rootBucketKey, []byte(name))
	if t == nil {
		bboltx.Must(fmt.Errorf("table '%s' does not exist", name))
	}

	return t
}
