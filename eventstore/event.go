package eventstore

import (
	"errors"
	"fmt"
)

// Source identifies the aggregate stream that an event belongs to.
type Source struct {
	StreamName  string
	AggregateID string
}

// PartitionKey returns the partition key of the stream copies of the events
// from this source.
func (s Source) PartitionKey() string {
	return s.StreamName + "_" + s.AggregateID
}

// Validate returns an error if s does not identify a stream.
func (s Source) Validate() error {
	if s.StreamName == "" {
		return errors.New("stream name must not be empty")
	}

	if s.AggregateID == "" {
		return errors.New("aggregate ID must not be empty")
	}

	return nil
}

func (s Source) String() string {
	return fmt.Sprintf("%s/%s", s.StreamName, s.AggregateID)
}

// MessagePartitionKey returns the partition key of the message copies of the
// events that were produced while handling the given message.
func MessagePartitionKey(messageID string) string {
	return "in_" + messageID
}

// Event is a domain event.
type Event struct {
	// ID uniquely identifies the event within its source's stream.
	ID string

	// Source is the aggregate stream that the event belongs to.
	Source Source

	// MessageID is the ID of the inbound message that caused the event.
	MessageID string

	// Payload is the application-defined content of the event. It must be
	// supported by the store's payload codec.
	Payload any
}

// Validate returns an error if e can not be committed.
func (e Event) Validate() error {
	if e.ID == "" {
		return errors.New("event ID must not be empty")
	}

	if err := e.Source.Validate(); err != nil {
		return err
	}

	if e.MessageID == "" {
		return errors.New("message ID must not be empty")
	}

	return nil
}

// Copy identifies one of the two physical copies of an event.
type Copy string

const (
	// StreamCopy is the copy that is partitioned by the event's source.
	StreamCopy Copy = "stream"

	// MessageCopy is the copy that is partitioned by the event's message ID.
	MessageCopy Copy = "message"
)
