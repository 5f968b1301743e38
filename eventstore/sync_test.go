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

var _ = Describe("func SetSynchronized()", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		stub   *fixtures.TableServiceStub
		store  *Store
		source Source
		event  Event
		syncAt time.Time
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)

		stub = &fixtures.TableServiceStub{
			Service: &memorytable.Service{Clock: newClock()},
		}

		var err error
		store, err = New(ctx, stub, fixtures.Codec, WithLogger(logging.DiscardLogger{}))
		Expect(err).ShouldNot(HaveOccurred())

		source = Source{
			StreamName:  "events",
			AggregateID: "aggregate-1",
		}

		event = Event{
			ID:        "00001",
			Source:    source,
			MessageID: "message-1",
			Payload:   fixtures.PolicyIssued{PolicyID: "<policy>"},
		}

		err = store.Commit(ctx, []Event{event})
		Expect(err).ShouldNot(HaveOccurred())

		syncAt = time.Date(2022, 1, 2, 3, 4, 5, 6, time.UTC)
	})

	AfterEach(func() {
		cancel()
	})

	// syncProperty returns the raw synchronization time stored on one copy of
	// the event.
	syncProperty := func(pk string) string {
		row, ok, err := stub.Service.Get(ctx, DefaultTableName, table.EntityID{
			RowKey:       "00001",
			PartitionKey: pk,
		})
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())

		return row.Properties["SynchronizedAt"]
	}

	It("marks both copies of the event", func() {
		err := store.SetSynchronized(ctx, "00001", source, syncAt)
		Expect(err).ShouldNot(HaveOccurred())

		Expect(syncProperty("events_aggregate-1")).To(Equal("2022-01-02T03:04:05.000000006Z"))
		Expect(syncProperty("in_message-1")).To(Equal("2022-01-02T03:04:05.000000006Z"))

		t, ok, err := store.SynchronizedAt(ctx, "00001", source)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(t).To(BeTemporally("==", syncAt))
	})

	It("replaces a previous synchronization time", func() {
		err := store.SetSynchronized(ctx, "00001", source, syncAt)
		Expect(err).ShouldNot(HaveOccurred())

		later := syncAt.Add(time.Hour)
		err = store.SetSynchronized(ctx, "00001", source, later)
		Expect(err).ShouldNot(HaveOccurred())

		t, _, err := store.SynchronizedAt(ctx, "00001", source)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(t).To(BeTemporally("==", later))
		Expect(syncProperty("in_message-1")).To(Equal(later.Format(time.RFC3339Nano)))
	})

	It("does not change the order of the stream", func() {
		for _, id := range []string{"00002", "00003"} {
			ev := event
			ev.ID = id

			err := store.Commit(ctx, []Event{ev})
			Expect(err).ShouldNot(HaveOccurred())
		}

		err := store.SetSynchronized(ctx, "00003", source, syncAt)
		Expect(err).ShouldNot(HaveOccurred())

		err = store.SetSynchronized(ctx, "00001", source, syncAt.Add(time.Hour))
		Expect(err).ShouldNot(HaveOccurred())

		events, err := store.GetStream(ctx, source)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(eventIDs(events)).To(Equal([]string{"00001", "00002", "00003"}))

		events, err = store.GetMessageStream(ctx, "message-1")
		Expect(err).ShouldNot(HaveOccurred())
		Expect(eventIDs(events)).To(Equal([]string{"00001", "00002", "00003"}))
	})

	It("returns a NotFoundError without writing anything if the event does not exist", func() {
		stub.ReplaceFunc = func(context.Context, string, table.Row) (table.Row, error) {
			Fail("unexpected call to Replace()")
			return table.Row{}, nil
		}

		err := store.SetSynchronized(ctx, "00002", source, syncAt)
		Expect(table.IsNotFound(err)).To(BeTrue())

		var target *SyncError
		Expect(errors.As(err, &target)).To(BeTrue())
		Expect(target.Copy).To(Equal(StreamCopy))
		Expect(target.EventID).To(Equal("00002"))
		Expect(target.Source).To(Equal(source))

		Expect(syncProperty("events_aggregate-1")).To(BeEmpty())
		Expect(syncProperty("in_message-1")).To(BeEmpty())
	})

	It("returns a NotFoundError if the event belongs to another source", func() {
		err := store.SetSynchronized(
			ctx,
			"00001",
			Source{StreamName: "events", AggregateID: "aggregate-2"},
			syncAt,
		)
		Expect(err).To(MatchError(
			"set synchronized failed: unable to mark the stream copy of event 00001 from events/aggregate-2: " +
				"synchronize failed: record events_aggregate-2/00001 does not exist in the 'events' table",
		))
	})

	It("leaves the stream copy marked if the message copy can not be updated", func() {
		stub.ReplaceFunc = func(ctx context.Context, name string, r table.Row) (table.Row, error) {
			if strings.HasPrefix(r.ID.PartitionKey, "in_") {
				return table.Row{}, errors.New("<error>")
			}
			return stub.Service.Replace(ctx, name, r)
		}

		err := store.SetSynchronized(ctx, "00001", source, syncAt)

		var target *SyncError
		Expect(errors.As(err, &target)).To(BeTrue())
		Expect(target.Copy).To(Equal(MessageCopy))

		var cause *table.UnavailableError
		Expect(errors.As(err, &cause)).To(BeTrue())

		Expect(syncProperty("events_aggregate-1")).NotTo(BeEmpty())
		Expect(syncProperty("in_message-1")).To(BeEmpty())
	})

	It("returns a NotFoundError naming the message copy if it is missing", func() {
		other := event
		other.ID = "00002"

		stub.InsertFunc = func(ctx context.Context, name string, r table.Row) (table.Row, error) {
			if r.ID.RowKey == "00002" && strings.HasPrefix(r.ID.PartitionKey, "in_") {
				return table.Row{}, errors.New("<error>")
			}
			return stub.Service.Insert(ctx, name, r)
		}

		err := store.Commit(ctx, []Event{other})
		Expect(err).To(HaveOccurred())

		err = store.SetSynchronized(ctx, "00002", source, syncAt)
		Expect(table.IsNotFound(err)).To(BeTrue())

		var target *SyncError
		Expect(errors.As(err, &target)).To(BeTrue())
		Expect(target.Copy).To(Equal(MessageCopy))
	})

	It("returns an error if the time is zero", func() {
		err := store.SetSynchronized(ctx, "00001", source, time.Time{})
		Expect(err).To(MatchError("set synchronized failed: timestamp must not be zero"))
	})

	It("returns an error if the event ID is empty", func() {
		err := store.SetSynchronized(ctx, "", source, syncAt)
		Expect(err).To(MatchError("set synchronized failed: event ID must not be empty"))
	})
})

var _ = Describe("func SynchronizedAt()", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		store  *Store
		source Source
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)

		var err error
		store, err = New(ctx, &memorytable.Service{}, fixtures.Codec)
		Expect(err).ShouldNot(HaveOccurred())

		source = Source{
			StreamName:  "events",
			AggregateID: "aggregate-1",
		}

		err = store.Commit(ctx, []Event{
			{
				ID:        "00001",
				Source:    source,
				MessageID: "message-1",
				Payload:   fixtures.PolicyIssued{},
			},
		})
		Expect(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		cancel()
	})

	It("returns false if the event has not been synchronized", func() {
		_, ok, err := store.SynchronizedAt(ctx, "00001", source)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("returns a NotFoundError if the event does not exist", func() {
		_, _, err := store.SynchronizedAt(ctx, "00002", source)
		Expect(table.IsNotFound(err)).To(BeTrue())
	})

	It("returns an error if the source is invalid", func() {
		_, _, err := store.SynchronizedAt(ctx, "00001", Source{})
		Expect(err).To(MatchError("synchronized at failed: invalid source: stream name must not be empty"))
	})
})
