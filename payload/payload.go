// Package payload converts application-defined payload values to and from a
// portable textual representation.
package payload

// Serialized is the portable representation of a payload value.
type Serialized struct {
	// Text is the textual representation of the value.
	Text string

	// Type is a tag that identifies the concrete type of the value, and the
	// format of Text.
	Type string
}

// Codec converts payload values to and from their portable representation.
//
// Decode(Encode(v)) must produce a value of the same concrete type as v that is
// structurally equal to v.
type Codec interface {
	// Encode returns the portable representation of v.
	Encode(v any) (Serialized, error)

	// Decode returns the value represented by s.
	Decode(s Serialized) (any, error)

	// TypeName returns a stable name for the concrete type of v.
	TypeName(v any) (string, error)
}
