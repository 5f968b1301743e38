//go:build cgo
// +build cgo

package sqltable_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/dogmatiq/eventtable/table"
	"github.com/dogmatiq/eventtable/table/internal/servicetest"
	. "github.com/dogmatiq/eventtable/table/sqltable"
	"github.com/dogmatiq/sqltest"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ table.Service = (*Service)(nil)

var _ = Describe("type Service", func() {
	var (
		database *sqltest.Database
		db       *sql.DB
	)

	for _, pair := range sqltest.CompatiblePairs(sqltest.SQLite) {
		pair := pair

		servicetest.Declare(
			func(ctx context.Context, in servicetest.In) servicetest.Out {
				var err error
				database, err = sqltest.NewDatabase(ctx, pair.Driver, pair.Product)
				Expect(err).ShouldNot(HaveOccurred())

				db, err = database.Open()
				Expect(err).ShouldNot(HaveOccurred())

				err = CreateSchema(ctx, db)
				Expect(err).ShouldNot(HaveOccurred())

				return servicetest.Out{
					Service: &Service{
						DB:    db,
						Clock: in.Clock,
					},
				}
			},
			func() {
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()

				err := DropSchema(ctx, db)
				Expect(err).ShouldNot(HaveOccurred())

				err = database.Close()
				Expect(err).ShouldNot(HaveOccurred())
			},
		)
	}
})

var _ = Describe("func OpenDB()", func() {
	It("opens a database using the DSN of an existing database", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		database, err := sqltest.NewDatabase(ctx, sqltest.SQLite3Driver, sqltest.SQLite)
		Expect(err).ShouldNot(HaveOccurred())
		defer database.Close()

		db, err := OpenDB(
			database.DataSource.DriverName(),
			database.DataSource.DSN(),
		)
		Expect(err).ShouldNot(HaveOccurred())
		defer db.Close()

		err = CreateSchema(ctx, db)
		Expect(err).ShouldNot(HaveOccurred())

		s := &Service{DB: db}
		err = s.CreateIfAbsent(ctx, "<table>")
		Expect(err).ShouldNot(HaveOccurred())
	})

	It("returns an error if the driver is not registered", func() {
		_, err := OpenDB("<nonsense-driver>", "<nonsense-dsn>")
		Expect(err).Should(HaveOccurred())
	})
})
