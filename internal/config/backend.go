package config

import (
	"context"
	"fmt"

	"github.com/dogmatiq/eventtable/table"
	"github.com/dogmatiq/eventtable/table/bolttable"
	"github.com/dogmatiq/eventtable/table/memorytable"
	"github.com/dogmatiq/eventtable/table/mongotable"
	"github.com/dogmatiq/eventtable/table/sqltable"
)

// OpenService returns the table service selected by cfg.
//
// The returned function releases the resources held by the service. The SQL
// schema is created if it does not already exist.
func OpenService(ctx context.Context, cfg Config) (table.Service, func() error, error) {
	switch cfg.Backend {
	case MemoryBackend:
		return &memorytable.Service{}, func() error { return nil }, nil

	case BoltBackend:
		s := &bolttable.FileService{Path: cfg.BoltPath}
		return s, s.Close, nil

	case SQLBackend:
		db, err := sqltable.OpenDB(cfg.SQLDriver, cfg.SQLDSN)
		if err != nil {
			return nil, nil, err
		}

		if err := sqltable.CreateSchema(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}

		return &sqltable.Service{DB: db}, db.Close, nil

	case MongoBackend:
		client, err := mongotable.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}

		s := &mongotable.Service{
			Database: client.Database(cfg.MongoDatabase),
		}

		return s, func() error {
			return client.Disconnect(context.Background())
		}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}
