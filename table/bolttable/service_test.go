package bolttable_test

import (
	"context"
	"time"

	"github.com/dogmatiq/eventtable/internal/testing/boltdbtest"
	"github.com/dogmatiq/eventtable/table"
	. "github.com/dogmatiq/eventtable/table/bolttable"
	"github.com/dogmatiq/eventtable/table/internal/servicetest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.etcd.io/bbolt"
)

var (
	_ table.Service = (*Service)(nil)
	_ table.Service = (*FileService)(nil)
)

var _ = Describe("type Service", func() {
	var close func()

	servicetest.Declare(
		func(ctx context.Context, in servicetest.In) servicetest.Out {
			var db *bbolt.DB
			db, close = boltdbtest.Open()

			return servicetest.Out{
				Service: &Service{
					DB:    db,
					Clock: in.Clock,
				},
			}
		},
		func() {
			close()
		},
	)
})

var _ = Describe("type FileService", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		file   string
		remove func()
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)
		file, remove = boltdbtest.TempFile()
	})

	AfterEach(func() {
		cancel()
		remove()
	})

	Describe("the table service", func() {
		var service *FileService

		servicetest.Declare(
			func(ctx context.Context, in servicetest.In) servicetest.Out {
				service = &FileService{
					Path:  file,
					Clock: in.Clock,
				}

				return servicetest.Out{
					Service: service,
				}
			},
			func() {
				service.Close()
			},
		)
	})

	It("retains rows after the file is reopened", func() {
		id := table.EntityID{PartitionKey: "<pk>", RowKey: "<rk>"}

		s := &FileService{Path: file}
		err := s.CreateIfAbsent(ctx, "<table>")
		Expect(err).ShouldNot(HaveOccurred())

		_, err = s.Insert(ctx, "<table>", table.Row{
			ID:         id,
			Properties: table.Properties{"k": "v"},
		})
		Expect(err).ShouldNot(HaveOccurred())

		err = s.Close()
		Expect(err).ShouldNot(HaveOccurred())

		s = &FileService{Path: file}
		defer s.Close()

		r, ok, err := s.Get(ctx, "<table>", id)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(r.Properties).To(Equal(table.Properties{"k": "v"}))
	})

	It("returns an error if the file is locked by another service", func() {
		s1 := &FileService{Path: file}
		defer s1.Close()

		err := s1.CreateIfAbsent(ctx, "<table>")
		Expect(err).ShouldNot(HaveOccurred())

		ctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		s2 := &FileService{Path: file}
		defer s2.Close()

		err = s2.CreateIfAbsent(ctx, "<table>")
		Expect(err).To(Equal(context.DeadlineExceeded))
	})

	It("returns an error if used after it is closed", func() {
		s := &FileService{Path: file}

		err := s.Close()
		Expect(err).ShouldNot(HaveOccurred())

		err = s.CreateIfAbsent(ctx, "<table>")
		Expect(err).To(Equal(ErrServiceClosed))

		err = s.Close()
		Expect(err).To(Equal(ErrServiceClosed))
	})
})
