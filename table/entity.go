package table

import (
	"errors"
	"fmt"
	"time"
)

// EntityID is the address of a single record within a table.
type EntityID struct {
	// RowKey uniquely identifies the record within its partition.
	RowKey string

	// PartitionKey selects the group of records the record belongs to. Records
	// that share a partition key can be scanned together, in insertion order.
	PartitionKey string
}

// Validate returns an error if id can not address a record.
func (id EntityID) Validate() error {
	if id.PartitionKey == "" {
		return errors.New("partition key must not be empty")
	}

	if id.RowKey == "" {
		return errors.New("row key must not be empty")
	}

	return nil
}

func (id EntityID) String() string {
	return fmt.Sprintf("%s/%s", id.PartitionKey, id.RowKey)
}

// Entity is the meta-data that every record stored in a table carries.
//
// It is intended to be embedded in the concrete record types that are used with
// Store.
type Entity struct {
	PartitionKey string
	RowKey       string

	// ETag is the concurrency token assigned by the service when the record was
	// last written. Update() fails with a ConflictError if the stored record has
	// since been written by somebody else. An empty ETag replaces the record
	// unconditionally.
	ETag string

	// Timestamp is the time at which the record was first inserted, as recorded
	// by the service. It is not changed by subsequent updates.
	Timestamp time.Time
}

// ID returns the address of the record.
func (e *Entity) ID() EntityID {
	return EntityID{
		RowKey:       e.RowKey,
		PartitionKey: e.PartitionKey,
	}
}

// TableEntity returns e. It allows any type that embeds Entity to satisfy the
// Record interface.
func (e *Entity) TableEntity() *Entity {
	return e
}

// Record is a record that can be stored in a table using a Store.
type Record interface {
	// TableEntity returns the record's meta-data.
	TableEntity() *Entity

	// MarshalProperties returns the record's application-defined fields.
	MarshalProperties() Properties

	// UnmarshalProperties populates the record's application-defined fields.
	UnmarshalProperties(Properties) error
}

// Properties is the set of application-defined fields of a record.
type Properties map[string]string

// Time returns the time stored in the named property.
//
// It returns false if the property is absent.
func (p Properties) Time(k string) (time.Time, bool, error) {
	v, ok := p[k]
	if !ok || v == "" {
		return time.Time{}, false, nil
	}

	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("property '%s' is not a valid time: %w", k, err)
	}

	return t, true, nil
}

// SetTime stores t in the named property.
//
// If t is the zero-value the property is removed.
func (p Properties) SetTime(k string, t time.Time) {
	if t.IsZero() {
		delete(p, k)
		return
	}

	p[k] = t.Format(time.RFC3339Nano)
}
