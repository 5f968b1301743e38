package fixtures

import (
	"reflect"

	"github.com/dogmatiq/eventtable/payload"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// PolicyIssued is a payload that is encoded as JSON.
type PolicyIssued struct {
	PolicyID string
	Holder   string
}

// PolicyCancelled is a payload that is encoded as JSON.
type PolicyCancelled struct {
	PolicyID string
	Reason   string
}

var (
	// PolicyIssuedType is the reflect.Type of PolicyIssued.
	PolicyIssuedType = reflect.TypeOf(PolicyIssued{})

	// PolicyCancelledType is the reflect.Type of PolicyCancelled.
	PolicyCancelledType = reflect.TypeOf(PolicyCancelled{})

	// StringValueType is the reflect.Type of a protocol buffers payload.
	StringValueType = reflect.TypeOf(&wrapperspb.StringValue{})
)

// Codec is a payload codec that supports the payload types in this package.
var Codec payload.Codec

func init() {
	c, err := payload.NewCodec(
		PolicyIssuedType,
		PolicyCancelledType,
		StringValueType,
	)
	if err != nil {
		panic(err)
	}

	Codec = c
}
