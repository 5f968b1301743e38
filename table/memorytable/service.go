package memorytable

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dogmatiq/cosyne"
	"github.com/dogmatiq/eventtable/table"
)

// Service is an in-memory implementation of table.Service.
//
// The zero-value is ready to use.
type Service struct {
	// Clock returns the current time, used as the insertion timestamp of new
	// rows. If it is nil, time.Now() is used.
	Clock func() time.Time

	m      cosyne.RWMutex
	etag   uint64
	tables map[string]*memTable
}

// memTable is a single table within the service.
type memTable struct {
	partitions map[string]*partition
}

// partition is a group of rows that share a partition key.
type partition struct {
	order []string // row keys in insertion order
	rows  map[string]table.Row
}

// CreateIfAbsent creates the named table if it does not already exist.
func (s *Service) CreateIfAbsent(ctx context.Context, name string) error {
	if err := s.m.Lock(ctx); err != nil {
		return err
	}
	defer s.m.Unlock()

	if s.tables == nil {
		s.tables = map[string]*memTable{}
	}

	if _, ok := s.tables[name]; !ok {
		s.tables[name] = &memTable{
			partitions: map[string]*partition{},
		}
	}

	return nil
}

// Insert adds a new row to a table.
func (s *Service) Insert(ctx context.Context, name string, r table.Row) (table.Row, error) {
	if err := s.m.Lock(ctx); err != nil {
		return table.Row{}, err
	}
	defer s.m.Unlock()

	t, err := s.table(name)
	if err != nil {
		return table.Row{}, err
	}

	p, ok := t.partitions[r.ID.PartitionKey]
	if !ok {
		p = &partition{
			rows: map[string]table.Row{},
		}
		t.partitions[r.ID.PartitionKey] = p
	} else if _, ok := p.rows[r.ID.RowKey]; ok {
		return table.Row{}, &table.DuplicateKeyError{
			Op:    table.OpInsert,
			Table: name,
			ID:    r.ID,
		}
	}

	r = cloneRow(r)
	r.ETag = s.nextETag()
	r.Timestamp = s.now()

	p.order = append(p.order, r.ID.RowKey)
	p.rows[r.ID.RowKey] = r

	return cloneRow(r), nil
}

// Replace overwrites an existing row.
func (s *Service) Replace(ctx context.Context, name string, r table.Row) (table.Row, error) {
	if err := s.m.Lock(ctx); err != nil {
		return table.Row{}, err
	}
	defer s.m.Unlock()

	t, err := s.table(name)
	if err != nil {
		return table.Row{}, err
	}

	var existing table.Row
	p, ok := t.partitions[r.ID.PartitionKey]
	if ok {
		existing, ok = p.rows[r.ID.RowKey]
	}

	if !ok {
		return table.Row{}, &table.NotFoundError{
			Op:    table.OpReplace,
			Table: name,
			ID:    r.ID,
		}
	}

	if r.ETag != "" && r.ETag != existing.ETag {
		return table.Row{}, &table.ConflictError{
			Op:    table.OpReplace,
			Table: name,
			ID:    r.ID,
		}
	}

	r = cloneRow(r)
	r.ETag = s.nextETag()
	r.Timestamp = existing.Timestamp

	p.rows[r.ID.RowKey] = r

	return cloneRow(r), nil
}

// Get returns the row with the given ID.
func (s *Service) Get(ctx context.Context, name string, id table.EntityID) (table.Row, bool, error) {
	if err := s.m.RLock(ctx); err != nil {
		return table.Row{}, false, err
	}
	defer s.m.RUnlock()

	t, err := s.table(name)
	if err != nil {
		return table.Row{}, false, err
	}

	if p, ok := t.partitions[id.PartitionKey]; ok {
		if r, ok := p.rows[id.RowKey]; ok {
			return cloneRow(r), true, nil
		}
	}

	return table.Row{}, false, nil
}

// ScanPartition returns all rows with the given partition key, in the order
// they were inserted.
func (s *Service) ScanPartition(ctx context.Context, name, pk string) ([]table.Row, error) {
	if err := s.m.RLock(ctx); err != nil {
		return nil, err
	}
	defer s.m.RUnlock()

	t, err := s.table(name)
	if err != nil {
		return nil, err
	}

	p, ok := t.partitions[pk]
	if !ok {
		return nil, nil
	}

	rows := make([]table.Row, 0, len(p.order))
	for _, k := range p.order {
		rows = append(rows, cloneRow(p.rows[k]))
	}

	return rows, nil
}

// table returns the named table. s.m must be held.
func (s *Service) table(name string) (*memTable, error) {
	if t, ok := s.tables[name]; ok {
		return t, nil
	}

	return nil, fmt.Errorf("table '%s' does not exist", name)
}

// nextETag returns a new ETag value. s.m must be write-locked.
func (s *Service) nextETag() string {
	s.etag++
	return strconv.FormatUint(s.etag, 10)
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}

	return time.Now()
}

// cloneRow returns a deep clone of r, so that callers can not modify the rows
// held by the service.
func cloneRow(r table.Row) table.Row {
	props := make(table.Properties, len(r.Properties))
	for k, v := range r.Properties {
		props[k] = v
	}

	r.Properties = props
	return r
}
