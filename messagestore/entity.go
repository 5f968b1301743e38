package messagestore

import (
	"github.com/dogmatiq/eventtable/payload"
	"github.com/dogmatiq/eventtable/table"
)

const (
	payloadProperty = "Payload"
	typeProperty    = "Type"
)

// entity is the record of a registered message.
//
// The partition key is the message's type name and the row key is its ID.
type entity struct {
	table.Entity

	Payload payload.Serialized
}

func newEntity() *entity {
	return &entity{}
}

func (e *entity) MarshalProperties() table.Properties {
	return table.Properties{
		payloadProperty: e.Payload.Text,
		typeProperty:    e.Payload.Type,
	}
}

func (e *entity) UnmarshalProperties(p table.Properties) error {
	e.Payload = payload.Serialized{
		Text: p[payloadProperty],
		Type: p[typeProperty],
	}

	return nil
}
