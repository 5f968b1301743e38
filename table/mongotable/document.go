package mongotable

import (
	"time"

	"github.com/dogmatiq/eventtable/table"
)

// registryCollection is the name of the collection that records which tables
// exist.
//
// Each document's _id is a table name. Its seq field is the last insertion
// sequence number allocated within that table.
const registryCollection = "eventtable_tables"

// tableDocument is an entry in the registry collection.
type tableDocument struct {
	Name string `bson:"_id"`
	Seq  int64  `bson:"seq"`
}

// rowID is the _id of a row document.
type rowID struct {
	PartitionKey string `bson:"p"`
	RowKey       string `bson:"r"`
}

// rowDocument is the BSON representation of a table.Row.
type rowDocument struct {
	ID         rowID             `bson:"_id"`
	Seq        int64             `bson:"seq"`
	ETag       string            `bson:"etag"`
	Timestamp  time.Time         `bson:"ts"`
	Properties map[string]string `bson:"props"`
}

func marshalID(id table.EntityID) rowID {
	return rowID{
		PartitionKey: id.PartitionKey,
		RowKey:       id.RowKey,
	}
}

func marshalRow(r table.Row, seq int64) rowDocument {
	return rowDocument{
		ID:         marshalID(r.ID),
		Seq:        seq,
		ETag:       r.ETag,
		Timestamp:  r.Timestamp,
		Properties: r.Properties,
	}
}

func unmarshalRow(doc rowDocument) table.Row {
	props := table.Properties(doc.Properties)
	if props == nil {
		props = table.Properties{}
	}

	return table.Row{
		ID: table.EntityID{
			RowKey:       doc.ID.RowKey,
			PartitionKey: doc.ID.PartitionKey,
		},
		Properties: props,
		ETag:       doc.ETag,
		Timestamp:  doc.Timestamp.UTC(),
	}
}
