package sqltable

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dogmatiq/eventtable/table/sqltable/mysql"
	"github.com/dogmatiq/eventtable/table/sqltable/postgres"
	"github.com/dogmatiq/eventtable/table/sqltable/sqlite"
	"go.uber.org/multierr"
)

// builtInDrivers is a list of the built-in drivers.
var builtInDrivers = []Driver{
	mysql.Driver,
	postgres.Driver,
	sqlite.Driver,
}

// SelectDriver returns the appropriate driver implementation to use with the
// given database from the list of built-in drivers.
func SelectDriver(ctx context.Context, db *sql.DB) (Driver, error) {
	var err error

	for _, d := range builtInDrivers {
		e := d.IsCompatibleWith(ctx, db)
		if e == nil {
			return d, nil
		}

		err = multierr.Append(err, fmt.Errorf(
			"%T is not compatible with %T: %w",
			d,
			db.Driver(),
			e,
		))
	}

	return nil, multierr.Append(err, fmt.Errorf(
		"could not find a driver that is compatible with %T",
		db.Driver(),
	))
}

// CreateSchema creates the schema elements required to store tables in db.
func CreateSchema(ctx context.Context, db *sql.DB) error {
	d, err := SelectDriver(ctx, db)
	if err != nil {
		return err
	}

	return d.CreateSchema(ctx, db)
}

// DropSchema removes the schema elements created by CreateSchema().
func DropSchema(ctx context.Context, db *sql.DB) error {
	d, err := SelectDriver(ctx, db)
	if err != nil {
		return err
	}

	return d.DropSchema(ctx, db)
}
