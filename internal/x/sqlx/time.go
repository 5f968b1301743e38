package sqlx

import "time"

// timeLayout is the layout used to store times.
//
// Times are always stored in UTC with a fixed number of fractional digits, so
// that their textual representations sort in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// MarshalTime marshals a time into a human-readable textual representation.
//
// The zero-value is marshaled as nil.
func MarshalTime(t time.Time) []byte {
	if t.IsZero() {
		return nil
	}

	return []byte(t.UTC().Format(timeLayout))
}

// UnmarshalTime unmarshals a time from its human-readable textual
// representation. The result is in UTC.
func UnmarshalTime(data []byte) time.Time {
	if len(data) == 0 {
		return time.Time{}
	}

	t, err := time.Parse(timeLayout, string(data))
	Must(err)

	return t
}
