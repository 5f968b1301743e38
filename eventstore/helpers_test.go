package eventstore_test

import (
	"time"

	"github.com/dogmatiq/eventtable/internal/testing/boltdbtest"
	"github.com/dogmatiq/eventtable/table"
	"github.com/dogmatiq/eventtable/table/bolttable"
	"github.com/dogmatiq/eventtable/table/memorytable"
)

// epoch is the first time returned by clocks created with newClock().
var epoch = time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)

// newClock returns a clock that advances by one second each time it is read.
func newClock() func() time.Time {
	now := epoch.Add(-time.Second)

	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

// backend is a table service implementation that the stores are tested
// against.
type backend struct {
	Name string
	New  func() (table.Service, func())
}

var backends = []backend{
	{
		"memory",
		func() (table.Service, func()) {
			return &memorytable.Service{Clock: newClock()}, func() {}
		},
	},
	{
		"boltdb",
		func() (table.Service, func()) {
			db, closeDB := boltdbtest.Open()
			return &bolttable.Service{DB: db, Clock: newClock()}, closeDB
		},
	},
}
