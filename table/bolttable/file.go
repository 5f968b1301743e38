package bolttable

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/dogmatiq/eventtable/internal/x/bboltx"
	"github.com/dogmatiq/eventtable/table"
	"go.etcd.io/bbolt"
)

// ErrServiceClosed is returned by FileService operations after Close() has
// been called.
var ErrServiceClosed = errors.New("table service is closed")

// FileService is an implementation of table.Service that opens a BoltDB
// database file.
//
// The file is opened by the first operation that is performed.
type FileService struct {
	// Path is the path to the BoltDB database to open or create.
	Path string

	// Mode is the file mode for the created file.
	// If it is zero, 0600 (owner read/write only) is used.
	Mode os.FileMode

	// Options is the BoltDB options for the database.
	// If it is nil, bbolt.DefaultOptions is used.
	Options *bbolt.Options

	// Clock returns the current time, used as the insertion timestamp of new
	// rows. If it is nil, time.Now() is used.
	Clock func() time.Time

	m       sync.Mutex
	service *Service
	closed  bool
}

// CreateIfAbsent creates the named table if it does not already exist.
func (s *FileService) CreateIfAbsent(ctx context.Context, name string) error {
	svc, err := s.open(ctx)
	if err != nil {
		return err
	}

	return svc.CreateIfAbsent(ctx, name)
}

// Insert adds a new row to a table.
func (s *FileService) Insert(ctx context.Context, name string, r table.Row) (table.Row, error) {
	svc, err := s.open(ctx)
	if err != nil {
		return table.Row{}, err
	}

	return svc.Insert(ctx, name, r)
}

// Replace overwrites an existing row.
func (s *FileService) Replace(ctx context.Context, name string, r table.Row) (table.Row, error) {
	svc, err := s.open(ctx)
	if err != nil {
		return table.Row{}, err
	}

	return svc.Replace(ctx, name, r)
}

// Get returns the row with the given ID.
func (s *FileService) Get(ctx context.Context, name string, id table.EntityID) (table.Row, bool, error) {
	svc, err := s.open(ctx)
	if err != nil {
		return table.Row{}, false, err
	}

	return svc.Get(ctx, name, id)
}

// ScanPartition returns all rows with the given partition key, in the order
// they were inserted.
func (s *FileService) ScanPartition(ctx context.Context, name, pk string) ([]table.Row, error) {
	svc, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	return svc.ScanPartition(ctx, name, pk)
}

// Close closes the database file, if it has been opened.
func (s *FileService) Close() error {
	s.m.Lock()
	defer s.m.Unlock()

	if s.closed {
		return ErrServiceClosed
	}

	s.closed = true

	if s.service == nil {
		return nil
	}

	db := s.service.DB
	s.service = nil

	return db.Close()
}

// open opens the database file if it is not already open.
func (s *FileService) open(ctx context.Context) (*Service, error) {
	s.m.Lock()
	defer s.m.Unlock()

	if s.closed {
		return nil, ErrServiceClosed
	}

	if s.service != nil {
		return s.service, nil
	}

	db, err := bboltx.Open(ctx, s.Path, s.Mode, s.Options)
	if err != nil {
		return nil, err
	}

	s.service = &Service{
		DB:    db,
		Clock: s.Clock,
	}

	return s.service, nil
}
