package payload

import "fmt"

// Operation names used in errors.
const (
	OpEncode   = "encode"
	OpDecode   = "decode"
	OpTypeName = "identify"
)

// CodecError indicates that a payload could not be encoded, or that a stored
// representation could not be decoded.
type CodecError struct {
	// Op is the operation that failed.
	Op string

	// Type is the Go type being encoded, or the type tag being decoded.
	Type string

	// Cause is the underlying error.
	Cause error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf(
		"unable to %s payload of type '%s': %s",
		e.Op,
		e.Type,
		e.Cause,
	)
}

func (e *CodecError) Unwrap() error {
	return e.Cause
}
