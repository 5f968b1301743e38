package servicetest

import (
	"context"
	"time"

	"github.com/dogmatiq/eventtable/table"
	"github.com/jmalloc/gomegax"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

// In is a container for values that are provided to the service-specific
// "before" function from the test-suite.
type In struct {
	// Clock is the clock that the service must use to timestamp new rows.
	// Each call returns a time one second later than the previous call.
	Clock func() time.Time
}

// Out is a container for values that are provided by the service-specific
// "before" function to the test-suite.
type Out struct {
	// Service is the table service to be tested.
	Service table.Service

	// TestTimeout is the maximum duration allowed for each test.
	TestTimeout time.Duration
}

// DefaultTestTimeout is the default test timeout.
const DefaultTestTimeout = 3 * time.Second

// Epoch is the time returned by the first call to In.Clock.
var Epoch = time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

// Declare declares generic behavioral tests for a specific table service
// implementation.
func Declare(
	before func(context.Context, In) Out,
	after func(),
) {
	var (
		ctx     context.Context
		cancel  func()
		in      In
		out     Out
		service table.Service

		id0 = table.EntityID{PartitionKey: "<partition-a>", RowKey: "<row-0>"}
		id1 = table.EntityID{PartitionKey: "<partition-a>", RowKey: "<row-1>"}
		id2 = table.EntityID{PartitionKey: "<partition-a>", RowKey: "<row-2>"}
		idB = table.EntityID{PartitionKey: "<partition-b>", RowKey: "<row-0>"}
	)

	ginkgo.BeforeEach(func() {
		setupCtx, cancelSetup := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelSetup()

		now := Epoch.Add(-time.Second)
		in = In{
			Clock: func() time.Time {
				now = now.Add(time.Second)
				return now
			},
		}

		out = before(setupCtx, in)
		service = out.Service

		if out.TestTimeout <= 0 {
			out.TestTimeout = DefaultTestTimeout
		}

		ctx, cancel = context.WithTimeout(context.Background(), out.TestTimeout)

		err := service.CreateIfAbsent(ctx, "<table>")
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
	})

	ginkgo.AfterEach(func() {
		if after != nil {
			after()
		}

		if cancel != nil {
			cancel()
			cancel = nil
		}
	})

	insert := func(id table.EntityID, props table.Properties) table.Row {
		r, err := service.Insert(
			ctx,
			"<table>",
			table.Row{ID: id, Properties: props},
		)
		gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
		return r
	}

	ginkgo.Describe("type Service (interface)", func() {
		ginkgo.Describe("func CreateIfAbsent()", func() {
			ginkgo.It("does not affect an existing table", func() {
				insert(id0, table.Properties{"k": "v"})

				err := service.CreateIfAbsent(ctx, "<table>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				_, ok, err := service.Get(ctx, "<table>", id0)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
			})

			ginkgo.It("creates tables that are independent of each other", func() {
				err := service.CreateIfAbsent(ctx, "<other>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				insert(id0, table.Properties{"k": "v"})

				_, ok, err := service.Get(ctx, "<other>", id0)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})
		})

		ginkgo.Describe("func Insert()", func() {
			ginkgo.It("stores the row", func() {
				insert(id0, table.Properties{"k": "v"})

				r, ok, err := service.Get(ctx, "<table>", id0)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeTrue())
				gomega.Expect(r.ID).To(gomega.Equal(id0))
				gomega.Expect(r.Properties).To(gomegax.EqualX(table.Properties{"k": "v"}))
			})

			ginkgo.It("assigns an ETag and an insertion timestamp", func() {
				r := insert(id0, nil)

				gomega.Expect(r.ETag).NotTo(gomega.BeEmpty())
				gomega.Expect(r.Timestamp.Equal(Epoch)).To(gomega.BeTrue())
			})

			ginkgo.It("ignores the ETag and timestamp of the given row", func() {
				r, err := service.Insert(
					ctx,
					"<table>",
					table.Row{
						ID:        id0,
						ETag:      "<bogus>",
						Timestamp: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
					},
				)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(r.ETag).NotTo(gomega.Equal("<bogus>"))
				gomega.Expect(r.Timestamp.Equal(Epoch)).To(gomega.BeTrue())
			})

			ginkgo.It("returns a DuplicateKeyError if the row already exists", func() {
				insert(id0, table.Properties{"k": "original"})

				_, err := service.Insert(
					ctx,
					"<table>",
					table.Row{ID: id0, Properties: table.Properties{"k": "changed"}},
				)
				gomega.Expect(table.IsDuplicateKey(err)).To(gomega.BeTrue())

				r, _, err := service.Get(ctx, "<table>", id0)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(r.Properties).To(gomegax.EqualX(table.Properties{"k": "original"}))
			})

			ginkgo.It("allows the same row key in different partitions", func() {
				insert(id0, nil)
				insert(idB, nil)
			})

			ginkgo.It("returns an error if the table has not been created", func() {
				_, err := service.Insert(
					ctx,
					"<unknown>",
					table.Row{ID: id0},
				)
				gomega.Expect(err).Should(gomega.HaveOccurred())
			})
		})

		ginkgo.Describe("func Replace()", func() {
			ginkgo.It("overwrites the properties of the row", func() {
				r := insert(id0, table.Properties{"a": "1", "b": "2"})

				r.Properties = table.Properties{"a": "3"}
				_, err := service.Replace(ctx, "<table>", r)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				r, _, err = service.Get(ctx, "<table>", id0)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(r.Properties).To(gomegax.EqualX(table.Properties{"a": "3"}))
			})

			ginkgo.It("assigns a new ETag but retains the insertion timestamp", func() {
				r := insert(id0, nil)

				x, err := service.Replace(ctx, "<table>", r)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(x.ETag).NotTo(gomega.Equal(r.ETag))
				gomega.Expect(x.Timestamp.Equal(r.Timestamp)).To(gomega.BeTrue())

				stored, _, err := service.Get(ctx, "<table>", id0)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(stored.ETag).To(gomega.Equal(x.ETag))
				gomega.Expect(stored.Timestamp.Equal(r.Timestamp)).To(gomega.BeTrue())
			})

			ginkgo.It("replaces unconditionally if the ETag is empty", func() {
				r := insert(id0, nil)

				_, err := service.Replace(ctx, "<table>", r)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				r.ETag = ""
				_, err = service.Replace(ctx, "<table>", r)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
			})

			ginkgo.It("returns a ConflictError if the ETag is stale", func() {
				r := insert(id0, table.Properties{"k": "original"})

				x := r
				x.Properties = table.Properties{"k": "first"}
				_, err := service.Replace(ctx, "<table>", x)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				r.Properties = table.Properties{"k": "second"}
				_, err = service.Replace(ctx, "<table>", r)
				gomega.Expect(table.IsConflict(err)).To(gomega.BeTrue())

				stored, _, err := service.Get(ctx, "<table>", id0)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(stored.Properties).To(gomegax.EqualX(table.Properties{"k": "first"}))
			})

			ginkgo.It("returns a NotFoundError if the row does not exist", func() {
				_, err := service.Replace(ctx, "<table>", table.Row{ID: id0})
				gomega.Expect(table.IsNotFound(err)).To(gomega.BeTrue())

				_, ok, err := service.Get(ctx, "<table>", id0)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})

			ginkgo.It("returns a NotFoundError if only the partition exists", func() {
				insert(id0, nil)

				_, err := service.Replace(ctx, "<table>", table.Row{ID: id1})
				gomega.Expect(table.IsNotFound(err)).To(gomega.BeTrue())
			})
		})

		ginkgo.Describe("func Get()", func() {
			ginkgo.It("returns false if the row does not exist", func() {
				_, ok, err := service.Get(ctx, "<table>", id0)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})

			ginkgo.It("does not return rows from another partition", func() {
				insert(idB, nil)

				_, ok, err := service.Get(ctx, "<table>", id0)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(ok).To(gomega.BeFalse())
			})

			ginkgo.It("returns a row that can be modified without affecting the stored row", func() {
				insert(id0, table.Properties{"k": "v"})

				r, _, err := service.Get(ctx, "<table>", id0)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				r.Properties["k"] = "<modified>"

				r, _, err = service.Get(ctx, "<table>", id0)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(r.Properties).To(gomegax.EqualX(table.Properties{"k": "v"}))
			})
		})

		ginkgo.Describe("func ScanPartition()", func() {
			ginkgo.It("returns an empty result if the partition does not exist", func() {
				rows, err := service.ScanPartition(ctx, "<table>", "<partition-a>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(rows).To(gomega.BeEmpty())
			})

			ginkgo.It("returns the rows in the order they were inserted", func() {
				insert(id2, table.Properties{"n": "0"})
				insert(idB, table.Properties{"n": "x"})
				insert(id0, table.Properties{"n": "1"})
				insert(id1, table.Properties{"n": "2"})

				rows, err := service.ScanPartition(ctx, "<table>", "<partition-a>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				var ids []table.EntityID
				var props []table.Properties
				for _, r := range rows {
					ids = append(ids, r.ID)
					props = append(props, r.Properties)
				}

				gomega.Expect(ids).To(gomega.Equal([]table.EntityID{id2, id0, id1}))
				gomega.Expect(props).To(gomegax.EqualX([]table.Properties{
					{"n": "0"},
					{"n": "1"},
					{"n": "2"},
				}))
			})

			ginkgo.It("retains the insertion order after a row is replaced", func() {
				r := insert(id0, nil)
				insert(id1, nil)

				_, err := service.Replace(ctx, "<table>", r)
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())

				rows, err := service.ScanPartition(ctx, "<table>", "<partition-a>")
				gomega.Expect(err).ShouldNot(gomega.HaveOccurred())
				gomega.Expect(rows).To(gomega.HaveLen(2))
				gomega.Expect(rows[0].ID).To(gomega.Equal(id0))
				gomega.Expect(rows[1].ID).To(gomega.Equal(id1))
				gomega.Expect(rows[0].Timestamp.Before(rows[1].Timestamp)).To(gomega.BeTrue())
			})

			ginkgo.It("returns an error if the table has not been created", func() {
				_, err := service.ScanPartition(ctx, "<unknown>", "<partition-a>")
				gomega.Expect(err).Should(gomega.HaveOccurred())
			})
		})
	})
}
