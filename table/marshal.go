package table

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// MarshalProperties marshals p to its protocol buffers representation.
//
// It is used by services that store a row's properties as an opaque value.
func MarshalProperties(p Properties) ([]byte, error) {
	return proto.MarshalOptions{Deterministic: true}.Marshal(
		PropertiesToStruct(p),
	)
}

// UnmarshalProperties unmarshals properties from their protocol buffers
// representation.
func UnmarshalProperties(data []byte) (Properties, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	return PropertiesFromStruct(&s)
}

// PropertiesToStruct converts p to a protocol buffers struct.
func PropertiesToStruct(p Properties) *structpb.Struct {
	s := &structpb.Struct{
		Fields: make(map[string]*structpb.Value, len(p)),
	}

	for k, v := range p {
		s.Fields[k] = structpb.NewStringValue(v)
	}

	return s
}

// PropertiesFromStruct converts a protocol buffers struct to properties.
func PropertiesFromStruct(s *structpb.Struct) (Properties, error) {
	p := make(Properties, len(s.GetFields()))

	for k, v := range s.GetFields() {
		sv, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("data is corrupt, property '%s' is not a string", k)
		}

		p[k] = sv.StringValue
	}

	return p, nil
}
