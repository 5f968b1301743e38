package eventstore

import (
	"time"

	"github.com/dogmatiq/eventtable/payload"
	"github.com/dogmatiq/eventtable/table"
)

// Property names of an entity.
const (
	messageIDProperty      = "MessageID"
	payloadProperty        = "Payload"
	typeProperty           = "Type"
	eventIDProperty        = "EventID"
	aggregateIDProperty    = "AggregateID"
	streamNameProperty     = "StreamName"
	synchronizedAtProperty = "SynchronizedAt"
)

// entity is the physical record of one copy of an event.
//
// Both copies carry every field so that either can be used to rebuild the
// event without reading the other.
type entity struct {
	table.Entity

	MessageID      string
	Payload        payload.Serialized
	EventID        string
	AggregateID    string
	StreamName     string
	SynchronizedAt time.Time
}

func newEntity() *entity {
	return &entity{}
}

// newStreamEntity returns the stream copy of ev.
func newStreamEntity(ev Event, p payload.Serialized) *entity {
	return &entity{
		Entity: table.Entity{
			PartitionKey: ev.Source.PartitionKey(),
			RowKey:       ev.ID,
		},
		MessageID:   ev.MessageID,
		Payload:     p,
		EventID:     ev.ID,
		AggregateID: ev.Source.AggregateID,
		StreamName:  ev.Source.StreamName,
	}
}

// messageCopy returns a message copy of e, which may be either copy.
//
// The returned entity has not been written, so it has no ETag or timestamp.
func (e *entity) messageCopy() *entity {
	x := *e
	x.Entity = table.Entity{
		PartitionKey: MessagePartitionKey(e.MessageID),
		RowKey:       e.EventID,
	}

	return &x
}

// source returns the source of the event, as stored on the entity.
func (e *entity) source() Source {
	return Source{
		StreamName:  e.StreamName,
		AggregateID: e.AggregateID,
	}
}

func (e *entity) MarshalProperties() table.Properties {
	p := table.Properties{
		messageIDProperty:   e.MessageID,
		payloadProperty:     e.Payload.Text,
		typeProperty:        e.Payload.Type,
		eventIDProperty:     e.EventID,
		aggregateIDProperty: e.AggregateID,
		streamNameProperty:  e.StreamName,
	}

	p.SetTime(synchronizedAtProperty, e.SynchronizedAt)

	return p
}

func (e *entity) UnmarshalProperties(p table.Properties) error {
	t, _, err := p.Time(synchronizedAtProperty)
	if err != nil {
		return err
	}

	e.MessageID = p[messageIDProperty]
	e.Payload = payload.Serialized{
		Text: p[payloadProperty],
		Type: p[typeProperty],
	}
	e.EventID = p[eventIDProperty]
	e.AggregateID = p[aggregateIDProperty]
	e.StreamName = p[streamNameProperty]
	e.SynchronizedAt = t

	return nil
}
