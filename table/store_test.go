package table_test

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	. "github.com/dogmatiq/eventtable/table"
	"github.com/dogmatiq/eventtable/table/memorytable"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// note is a record used for testing stores.
type note struct {
	Entity
	Text string
}

func (n *note) MarshalProperties() Properties {
	return Properties{"Text": n.Text}
}

func (n *note) UnmarshalProperties(p Properties) error {
	if strings.HasPrefix(p["Text"], "<corrupt>") {
		return errors.New("<corrupt note>")
	}

	n.Text = p["Text"]
	return nil
}

func newNote() *note {
	return &note{}
}

// failingService is a Service that fails every operation.
type failingService struct {
	Service
}

func (failingService) CreateIfAbsent(context.Context, string) error {
	return errors.New("<error>")
}

var _ = Describe("type Store", func() {
	var (
		ctx     context.Context
		cancel  context.CancelFunc
		service *memorytable.Service
		logger  *logging.BufferedLogger
		store   *Store[*note]
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 3*time.Second)

		service = &memorytable.Service{}
		logger = &logging.BufferedLogger{CaptureDebug: true}

		var err error
		store, err = NewStore(ctx, service, "<table>", newNote, WithLogger(logger))
		Expect(err).ShouldNot(HaveOccurred())
	})

	AfterEach(func() {
		cancel()
	})

	Describe("func NewStore()", func() {
		It("returns an error if the table name is empty", func() {
			_, err := NewStore(ctx, service, "", newNote)
			Expect(err).To(MatchError("create failed: table name must not be empty"))
		})

		It("returns an UnavailableError if the table can not be created", func() {
			_, err := NewStore(ctx, failingService{}, "<table>", newNote)

			var target *UnavailableError
			Expect(errors.As(err, &target)).To(BeTrue())
			Expect(target.Op).To(Equal(OpCreate))
			Expect(target.Cause).To(MatchError("<error>"))
		})

		It("uses the default logger if none is provided", func() {
			_, err := NewStore(ctx, service, "<table>", newNote, WithLogger(nil))
			Expect(err).ShouldNot(HaveOccurred())
		})
	})

	Describe("func Name()", func() {
		It("returns the table name", func() {
			Expect(store.Name()).To(Equal("<table>"))
		})
	})

	Describe("func Insert()", func() {
		It("populates the ETag and timestamp of the record", func() {
			n := &note{
				Entity: Entity{PartitionKey: "<pk>", RowKey: "<rk>"},
				Text:   "<text>",
			}

			err := store.Insert(ctx, n)
			Expect(err).ShouldNot(HaveOccurred())
			Expect(n.ETag).NotTo(BeEmpty())
			Expect(n.Timestamp.IsZero()).To(BeFalse())
		})

		It("stops at the first failure", func() {
			n0 := &note{Entity: Entity{PartitionKey: "<pk>", RowKey: "<rk-0>"}}
			n1 := &note{Entity: Entity{PartitionKey: "<pk>", RowKey: "<rk-1>"}}
			dup := &note{Entity: Entity{PartitionKey: "<pk>", RowKey: "<rk-0>"}}
			n2 := &note{Entity: Entity{PartitionKey: "<pk>", RowKey: "<rk-2>"}}

			err := store.Insert(ctx, n0, n1, dup, n2)
			Expect(IsDuplicateKey(err)).To(BeTrue())

			records, err := store.GetPartition(ctx, "<pk>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(records).To(HaveLen(2))
		})

		It("returns an error if the record has no row key", func() {
			err := store.Insert(ctx, &note{Entity: Entity{PartitionKey: "<pk>"}})
			Expect(err).To(MatchError("insert failed: invalid record in the '<table>' table: row key must not be empty"))
		})

		It("returns an error if the record has no partition key", func() {
			err := store.Insert(ctx, &note{Entity: Entity{RowKey: "<rk>"}})
			Expect(err).To(MatchError("insert failed: invalid record in the '<table>' table: partition key must not be empty"))
		})

		It("logs a debug message", func() {
			err := store.Insert(ctx, &note{Entity: Entity{PartitionKey: "<pk>", RowKey: "<rk>"}})
			Expect(err).ShouldNot(HaveOccurred())

			Expect(logger.Messages()).To(ContainElement(
				logging.BufferedLogMessage{
					Message: "inserted <pk>/<rk> into the '<table>' table",
					IsDebug: true,
				},
			))
		})
	})

	Describe("func Update()", func() {
		var n *note

		BeforeEach(func() {
			n = &note{
				Entity: Entity{PartitionKey: "<pk>", RowKey: "<rk>"},
				Text:   "<original>",
			}

			err := store.Insert(ctx, n)
			Expect(err).ShouldNot(HaveOccurred())
		})

		It("replaces the record", func() {
			inserted := n.Timestamp

			n.Text = "<updated>"
			err := store.Update(ctx, n)
			Expect(err).ShouldNot(HaveOccurred())

			x, ok, err := store.GetSingle(ctx, n.ID())
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(x.Text).To(Equal("<updated>"))
			Expect(x.ETag).To(Equal(n.ETag))
			Expect(x.Timestamp).To(BeTemporally("==", inserted))
		})

		It("returns a ConflictError if the record was modified since it was read", func() {
			stale := *n

			err := store.Update(ctx, n)
			Expect(err).ShouldNot(HaveOccurred())

			err = store.Update(ctx, &stale)
			Expect(IsConflict(err)).To(BeTrue())
		})

		It("returns a NotFoundError if the record does not exist", func() {
			err := store.Update(ctx, &note{Entity: Entity{PartitionKey: "<pk>", RowKey: "<other>"}})
			Expect(IsNotFound(err)).To(BeTrue())
			Expect(err).To(MatchError("replace failed: record <pk>/<other> does not exist in the '<table>' table"))
		})

		It("returns an error if the record ID is invalid", func() {
			err := store.Update(ctx, &note{})
			Expect(err).To(MatchError("replace failed: invalid record in the '<table>' table: partition key must not be empty"))
		})
	})

	Describe("func GetSingle()", func() {
		It("returns false if the record does not exist", func() {
			_, ok, err := store.GetSingle(ctx, EntityID{PartitionKey: "<pk>", RowKey: "<rk>"})
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("returns an error if the record can not be unmarshaled", func() {
			n := &note{
				Entity: Entity{PartitionKey: "<pk>", RowKey: "<rk>"},
				Text:   "<corrupt>",
			}

			err := store.Insert(ctx, n)
			Expect(err).ShouldNot(HaveOccurred())

			_, _, err = store.GetSingle(ctx, n.ID())
			Expect(err).To(MatchError("unable to unmarshal record <pk>/<rk> from the '<table>' table: <corrupt note>"))
		})

		It("returns an error if the ID is invalid", func() {
			_, _, err := store.GetSingle(ctx, EntityID{PartitionKey: "<pk>"})
			Expect(err).To(MatchError("get failed: invalid ID in the '<table>' table: row key must not be empty"))
		})
	})

	Describe("func GetPartition()", func() {
		It("returns the records in insertion order", func() {
			err := store.Insert(
				ctx,
				&note{Entity: Entity{PartitionKey: "<pk>", RowKey: "<b>"}, Text: "1"},
				&note{Entity: Entity{PartitionKey: "<pk>", RowKey: "<a>"}, Text: "2"},
				&note{Entity: Entity{PartitionKey: "<other>", RowKey: "<c>"}, Text: "3"},
			)
			Expect(err).ShouldNot(HaveOccurred())

			records, err := store.GetPartition(ctx, "<pk>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].Text).To(Equal("1"))
			Expect(records[0].RowKey).To(Equal("<b>"))
			Expect(records[1].Text).To(Equal("2"))
			Expect(records[1].PartitionKey).To(Equal("<pk>"))
		})

		It("returns an error if the partition key is empty", func() {
			_, err := store.GetPartition(ctx, "")
			Expect(err).To(MatchError("scan failed: partition key must not be empty"))
		})
	})
})

var _ = Describe("type Properties", func() {
	Describe("func SetTime()", func() {
		It("stores the time such that it can be retrieved by Time()", func() {
			t := time.Date(2021, 1, 2, 3, 4, 5, 678, time.UTC)

			p := Properties{}
			p.SetTime("<key>", t)

			x, ok, err := p.Time("<key>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(x.Equal(t)).To(BeTrue())
		})

		It("removes the property if the time is zero", func() {
			p := Properties{"<key>": "<value>"}
			p.SetTime("<key>", time.Time{})
			Expect(p).To(BeEmpty())
		})
	})

	Describe("func Time()", func() {
		It("returns false if the property is absent", func() {
			_, ok, err := Properties{}.Time("<key>")
			Expect(err).ShouldNot(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("returns an error if the property is not a valid time", func() {
			_, _, err := Properties{"<key>": "<value>"}.Time("<key>")
			Expect(err).To(MatchError(ContainSubstring("property '<key>' is not a valid time")))
		})
	})
})

var _ = Describe("func MarshalProperties()", func() {
	It("produces data that can be unmarshaled by UnmarshalProperties()", func() {
		p := Properties{"a": "1", "b": ""}

		data, err := MarshalProperties(p)
		Expect(err).ShouldNot(HaveOccurred())

		x, err := UnmarshalProperties(data)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(x).To(Equal(p))
	})
})
