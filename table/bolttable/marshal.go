package bolttable

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dogmatiq/eventtable/internal/x/bboltx"
	"github.com/dogmatiq/eventtable/table"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// marshalUint64 marshals a uint64 to its binary representation.
func marshalUint64(n uint64) []byte {
	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, n)
	return data
}

// marshalRow marshals a row's value (everything but its ID) to its protocol
// buffers representation.
func marshalRow(r table.Row) []byte {
	s := &structpb.Struct{
		Fields: map[string]*structpb.Value{
			"etag":       structpb.NewStringValue(r.ETag),
			"timestamp":  structpb.NewStringValue(r.Timestamp.Format(time.RFC3339Nano)),
			"properties": structpb.NewStructValue(table.PropertiesToStruct(r.Properties)),
		},
	}

	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(s)
	bboltx.Must(err)

	return data
}

// unmarshalRow unmarshals a row's value from its protocol buffers
// representation.
func unmarshalRow(id table.EntityID, data []byte) table.Row {
	var s structpb.Struct
	bboltx.Must(proto.Unmarshal(data, &s))

	fields := s.GetFields()

	ts, err := time.Parse(time.RFC3339Nano, fields["timestamp"].GetStringValue())
	if err != nil {
		bboltx.Must(fmt.Errorf("data is corrupt, row %s has an invalid timestamp: %w", id, err))
	}

	props, err := table.PropertiesFromStruct(fields["properties"].GetStructValue())
	bboltx.Must(err)

	return table.Row{
		ID:         id,
		Properties: props,
		ETag:       fields["etag"].GetStringValue(),
		Timestamp:  ts,
	}
}
