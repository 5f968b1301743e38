package fixtures

import (
	"context"

	"github.com/dogmatiq/eventtable/table"
)

// TableServiceStub is a test implementation of the table.Service interface.
type TableServiceStub struct {
	table.Service

	CreateIfAbsentFunc func(context.Context, string) error
	InsertFunc         func(context.Context, string, table.Row) (table.Row, error)
	ReplaceFunc        func(context.Context, string, table.Row) (table.Row, error)
	GetFunc            func(context.Context, string, table.EntityID) (table.Row, bool, error)
	ScanPartitionFunc  func(context.Context, string, string) ([]table.Row, error)
}

// CreateIfAbsent creates the named table if it does not already exist.
func (s *TableServiceStub) CreateIfAbsent(ctx context.Context, name string) error {
	if s.CreateIfAbsentFunc != nil {
		return s.CreateIfAbsentFunc(ctx, name)
	}

	if s.Service != nil {
		return s.Service.CreateIfAbsent(ctx, name)
	}

	return nil
}

// Insert adds a new row to a table.
func (s *TableServiceStub) Insert(ctx context.Context, name string, r table.Row) (table.Row, error) {
	if s.InsertFunc != nil {
		return s.InsertFunc(ctx, name, r)
	}

	if s.Service != nil {
		return s.Service.Insert(ctx, name, r)
	}

	return r, nil
}

// Replace overwrites an existing row.
func (s *TableServiceStub) Replace(ctx context.Context, name string, r table.Row) (table.Row, error) {
	if s.ReplaceFunc != nil {
		return s.ReplaceFunc(ctx, name, r)
	}

	if s.Service != nil {
		return s.Service.Replace(ctx, name, r)
	}

	return r, nil
}

// Get returns the row with the given ID.
func (s *TableServiceStub) Get(ctx context.Context, name string, id table.EntityID) (table.Row, bool, error) {
	if s.GetFunc != nil {
		return s.GetFunc(ctx, name, id)
	}

	if s.Service != nil {
		return s.Service.Get(ctx, name, id)
	}

	return table.Row{}, false, nil
}

// ScanPartition returns all rows with the given partition key.
func (s *TableServiceStub) ScanPartition(ctx context.Context, name, pk string) ([]table.Row, error) {
	if s.ScanPartitionFunc != nil {
		return s.ScanPartitionFunc(ctx, name, pk)
	}

	if s.Service != nil {
		return s.Service.ScanPartition(ctx, name, pk)
	}

	return nil, nil
}
