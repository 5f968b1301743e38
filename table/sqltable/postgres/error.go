package postgres

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dogmatiq/eventtable/internal/x/sqlx"
	"github.com/dogmatiq/eventtable/table"
)

// convertContextErrors converts PostgreSQL "query_canceled" errors into a
// context.Canceled or DeadlineExceeeded error.
//
// The "pq" postgres driver appears to prefer returning its own error if the
// context is canceled after a query is already started.
func convertContextErrors(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		if strings.Contains(err.Error(), "canceling statement due to user request") {
			return ctx.Err()
		}
	}

	return err
}

// errorConverter is an implementation of sqltable.Driver that decorates the
// PostgreSQL driver in order to convert native "query_canceled" errors into
// regular context.Canceled / DeadlineExceeded errors.
type errorConverter struct {
	d driver
}

func (d errorConverter) IsCompatibleWith(ctx context.Context, db *sql.DB) error {
	err := d.d.IsCompatibleWith(ctx, db)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) Begin(ctx context.Context, db *sql.DB) (*sql.Tx, error) {
	tx, err := d.d.Begin(ctx, db)
	return tx, convertContextErrors(ctx, err)
}

func (d errorConverter) CreateSchema(ctx context.Context, db *sql.DB) error {
	err := d.d.CreateSchema(ctx, db)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) DropSchema(ctx context.Context, db *sql.DB) error {
	err := d.d.DropSchema(ctx, db)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) InsertTable(ctx context.Context, db sqlx.DB, name string) error {
	err := d.d.InsertTable(ctx, db, name)
	return convertContextErrors(ctx, err)
}

func (d errorConverter) SelectTableExists(ctx context.Context, db sqlx.DB, name string) (bool, error) {
	ok, err := d.d.SelectTableExists(ctx, db, name)
	return ok, convertContextErrors(ctx, err)
}

func (d errorConverter) InsertRow(
	ctx context.Context,
	tx *sql.Tx,
	name string,
	r table.Row,
	props []byte,
) (bool, error) {
	ok, err := d.d.InsertRow(ctx, tx, name, r, props)
	return ok, convertContextErrors(ctx, err)
}

func (d errorConverter) UpdateRow(
	ctx context.Context,
	tx *sql.Tx,
	name, etag string,
	r table.Row,
	props []byte,
) (bool, error) {
	ok, err := d.d.UpdateRow(ctx, tx, name, etag, r, props)
	return ok, convertContextErrors(ctx, err)
}

func (d errorConverter) SelectRow(
	ctx context.Context,
	db sqlx.DB,
	name string,
	id table.EntityID,
) (*sql.Rows, error) {
	rows, err := d.d.SelectRow(ctx, db, name, id)
	return rows, convertContextErrors(ctx, err)
}

func (d errorConverter) SelectPartition(
	ctx context.Context,
	db sqlx.DB,
	name, pk string,
) (*sql.Rows, error) {
	rows, err := d.d.SelectPartition(ctx, db, name, pk)
	return rows, convertContextErrors(ctx, err)
}
