package gomegax

import (
	"fmt"
	"reflect"

	"github.com/onsi/gomega"
	"github.com/onsi/gomega/format"
	"github.com/onsi/gomega/types"
)

// PanicWithCause returns a matcher that succeeds if the actual value is a
// function that panics with a sentinel value, such as those produced by the
// Must() functions in the bboltx and sqlx packages, whose Cause field matches
// the expected error.
//
// expected is interpreted the same way as by gomega.MatchError().
func PanicWithCause(expected any) types.GomegaMatcher {
	return gomega.PanicWith(
		gomega.WithTransform(
			sentinelCause,
			gomega.MatchError(expected),
		),
	)
}

// sentinelCause returns the Cause field of a panic sentinel struct.
func sentinelCause(v any) (error, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("panic value is not a sentinel struct: %s", format.Object(v, 1))
	}

	f := rv.FieldByName("Cause")
	if !f.IsValid() {
		return nil, fmt.Errorf("panic value has no Cause field: %s", format.Object(v, 1))
	}

	err, _ := f.Interface().(error)
	return err, nil
}
