package eventstore_test

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	. "github.com/dogmatiq/eventtable/eventstore"
	"github.com/dogmatiq/eventtable/fixtures"
	"github.com/dogmatiq/eventtable/table"
	"github.com/dogmatiq/eventtable/table/memorytable"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("func Repair()", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		stub   *fixtures.TableServiceStub
		logger *logging.BufferedLogger
		store  *Store
		source Source
		events []Event
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)

		stub = &fixtures.TableServiceStub{
			Service: &memorytable.Service{Clock: newClock()},
		}
		logger = &logging.BufferedLogger{}

		var err error
		store, err = New(ctx, stub, fixtures.Codec, WithLogger(logger))
		Expect(err).ShouldNot(HaveOccurred())

		source = Source{
			StreamName:  "events",
			AggregateID: "aggregate-1",
		}

		events = []Event{
			{
				ID:        "00001",
				Source:    source,
				MessageID: "message-1",
				Payload:   fixtures.PolicyIssued{PolicyID: "<policy>"},
			},
			{
				ID:        "00002",
				Source:    source,
				MessageID: "message-2",
				Payload:   fixtures.PolicyCancelled{PolicyID: "<policy>"},
			},
		}
	})

	AfterEach(func() {
		cancel()
	})

	It("does nothing if the copies are consistent", func() {
		err := store.Commit(ctx, events)
		Expect(err).ShouldNot(HaveOccurred())

		report, err := store.Repair(ctx, source)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(report.IsEmpty()).To(BeTrue())
		Expect(logger.Messages()).To(BeEmpty())
	})

	It("does nothing if the stream is empty", func() {
		report, err := store.Repair(ctx, source)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(report.IsEmpty()).To(BeTrue())
	})

	It("restores message copies that were not written by Commit()", func() {
		stub.InsertFunc = func(ctx context.Context, name string, r table.Row) (table.Row, error) {
			if r.ID.PartitionKey == "in_message-2" {
				return table.Row{}, errors.New("<error>")
			}
			return stub.Service.Insert(ctx, name, r)
		}

		err := store.Commit(ctx, events)
		Expect(err).To(HaveOccurred())

		stub.InsertFunc = nil

		report, err := store.Repair(ctx, source)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(report.Inserted).To(Equal([]string{"00002"}))
		Expect(report.Synchronized).To(BeEmpty())

		byMessage, err := store.GetMessageStream(ctx, "message-2")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(eventIDs(byMessage)).To(Equal([]string{"00002"}))
		Expect(byMessage[0].Source).To(Equal(source))

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "[message copy] restored missing copy of event 00002 from events/aggregate-1",
			},
		))
	})

	It("carries the synchronization time onto restored message copies", func() {
		stub.InsertFunc = func(ctx context.Context, name string, r table.Row) (table.Row, error) {
			if strings.HasPrefix(r.ID.PartitionKey, "in_") {
				return table.Row{}, errors.New("<error>")
			}
			return stub.Service.Insert(ctx, name, r)
		}

		err := store.Commit(ctx, events[:1])
		Expect(err).To(HaveOccurred())

		stub.InsertFunc = nil

		syncAt := time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC)
		err = store.SetSynchronized(ctx, "00001", source, syncAt)
		Expect(table.IsNotFound(err)).To(BeTrue())

		_, err = store.Repair(ctx, source)
		Expect(err).ShouldNot(HaveOccurred())

		row, ok, err := stub.Service.Get(ctx, DefaultTableName, table.EntityID{
			RowKey:       "00001",
			PartitionKey: "in_message-1",
		})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(row.Properties["SynchronizedAt"]).To(Equal("2022-01-02T03:04:05Z"))
	})

	It("re-applies synchronization times that were not written by SetSynchronized()", func() {
		err := store.Commit(ctx, events)
		Expect(err).ShouldNot(HaveOccurred())

		stub.ReplaceFunc = func(ctx context.Context, name string, r table.Row) (table.Row, error) {
			if strings.HasPrefix(r.ID.PartitionKey, "in_") {
				return table.Row{}, errors.New("<error>")
			}
			return stub.Service.Replace(ctx, name, r)
		}

		syncAt := time.Date(2022, 1, 2, 3, 4, 5, 0, time.UTC)
		err = store.SetSynchronized(ctx, "00001", source, syncAt)
		Expect(err).To(HaveOccurred())

		stub.ReplaceFunc = nil

		report, err := store.Repair(ctx, source)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(report.Inserted).To(BeEmpty())
		Expect(report.Synchronized).To(Equal([]string{"00001"}))

		row, _, err := stub.Service.Get(ctx, DefaultTableName, table.EntityID{
			RowKey:       "00001",
			PartitionKey: "in_message-1",
		})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(row.Properties["SynchronizedAt"]).To(Equal("2022-01-02T03:04:05Z"))

		Expect(logger.Messages()).To(ContainElement(
			logging.BufferedLogMessage{
				Message: "[message copy] re-applied synchronization time of event 00001 from events/aggregate-1 (2022-01-02T03:04:05Z)",
			},
		))

		report, err = store.Repair(ctx, source)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(report.IsEmpty()).To(BeTrue())
	})

	It("returns an error if a message copy can not be read", func() {
		err := store.Commit(ctx, events)
		Expect(err).ShouldNot(HaveOccurred())

		stub.GetFunc = func(context.Context, string, table.EntityID) (table.Row, bool, error) {
			return table.Row{}, false, errors.New("<error>")
		}

		_, err = store.Repair(ctx, source)
		Expect(err).To(MatchError(
			"repair failed: get failed: 'events' table is unavailable for record in_message-1/00001: <error>",
		))
	})

	It("returns an error if the source is invalid", func() {
		_, err := store.Repair(ctx, Source{AggregateID: "aggregate-1"})
		Expect(err).To(MatchError("repair failed: invalid source: stream name must not be empty"))
	})
})
