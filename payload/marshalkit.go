package payload

import (
	"errors"
	"fmt"
	"reflect"
	"unicode/utf8"

	"github.com/dogmatiq/marshalkit"
	"github.com/dogmatiq/marshalkit/codec"
	"github.com/dogmatiq/marshalkit/codec/json"
	"github.com/dogmatiq/marshalkit/codec/protobuf"
)

// MarshalkitCodec is an implementation of Codec that uses a marshalkit
// marshaler.
//
// The type tag is the packet's media type, which includes the portable name of
// the type. Only marshalers that produce textual data can be used.
type MarshalkitCodec struct {
	Marshaler marshalkit.Marshaler
}

// NewCodec returns a codec that supports the given types.
//
// Protocol buffers messages are encoded using the protocol buffers JSON
// format. All other types are encoded as JSON.
func NewCodec(types ...reflect.Type) (*MarshalkitCodec, error) {
	m, err := codec.NewMarshaler(
		types,
		[]codec.Codec{
			&protobuf.DefaultJSONCodec,
			&json.Codec{},
		},
	)
	if err != nil {
		return nil, err
	}

	return &MarshalkitCodec{m}, nil
}

// Encode returns the portable representation of v.
func (c *MarshalkitCodec) Encode(v any) (Serialized, error) {
	p, err := c.Marshaler.Marshal(v)
	if err != nil {
		return Serialized{}, &CodecError{OpEncode, fmt.Sprintf("%T", v), err}
	}

	if !utf8.Valid(p.Data) {
		return Serialized{}, &CodecError{
			OpEncode,
			fmt.Sprintf("%T", v),
			fmt.Errorf("'%s' data is not valid UTF-8 text", p.MediaType),
		}
	}

	return Serialized{
		Text: string(p.Data),
		Type: p.MediaType,
	}, nil
}

// Decode returns the value represented by s.
func (c *MarshalkitCodec) Decode(s Serialized) (any, error) {
	if s.Type == "" {
		return nil, &CodecError{OpDecode, s.Type, errors.New("type tag is empty")}
	}

	v, err := c.Marshaler.Unmarshal(
		marshalkit.Packet{
			MediaType: s.Type,
			Data:      []byte(s.Text),
		},
	)
	if err != nil {
		return nil, &CodecError{OpDecode, s.Type, err}
	}

	return v, nil
}

// TypeName returns the portable name of the concrete type of v.
func (c *MarshalkitCodec) TypeName(v any) (string, error) {
	if v == nil {
		return "", &CodecError{OpTypeName, "<nil>", errors.New("payload is nil")}
	}

	n, err := c.Marshaler.MarshalType(reflect.TypeOf(v))
	if err != nil {
		return "", &CodecError{OpTypeName, fmt.Sprintf("%T", v), err}
	}

	return n, nil
}
