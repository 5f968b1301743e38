// Package main commits an event to the configured table service and reads it
// back via both of the event store's read paths.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dogmatiq/eventtable/eventstore"
	"github.com/dogmatiq/eventtable/fixtures"
	"github.com/dogmatiq/eventtable/internal/config"
	"github.com/dogmatiq/eventtable/internal/x/loggingx"
	"github.com/dogmatiq/eventtable/messagestore"
	"github.com/dogmatiq/eventtable/table"
	"github.com/google/uuid"
	"go.uber.org/zap"

	// SQL drivers that can be selected using EVENTTABLE_SQL_DRIVER.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// newContext returns a cancelable context that is canceled when the process
// receives a SIGTERM or SIGINT.
func newContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
		case <-sig:
			cancel()
		}
	}()

	return ctx, cancel
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("%s", err)
	}

	ctx, cancel := newContext()
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		if !errors.Is(err, context.Canceled) {
			config.Exitf("%s", err)
		}
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Debug {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

func run(ctx context.Context, cfg config.Config) error {
	zl, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer zl.Sync() // nolint:errcheck

	logger := loggingx.Zap(zl.With(zap.String("backend", cfg.Backend)))

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	service, closeService, err := config.OpenService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeService() // nolint:errcheck

	events, err := eventstore.New(
		ctx,
		service,
		fixtures.Codec,
		eventstore.WithTableName(cfg.EventTable),
		eventstore.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	messages, err := messagestore.New(
		ctx,
		service,
		fixtures.Codec,
		messagestore.WithTableName(cfg.MessageTable),
		messagestore.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	source := eventstore.Source{
		StreamName:  "events",
		AggregateID: "aggregate-1",
	}

	issued := fixtures.PolicyIssued{
		PolicyID: uuid.NewString(),
		Holder:   "Jane Doe",
	}

	err = events.Commit(ctx, []eventstore.Event{
		{
			ID:        "00001",
			Source:    source,
			MessageID: "message-1",
			Payload:   issued,
		},
	})
	if table.IsDuplicateKey(err) {
		logger.Log("event 00001 has already been committed")
	} else if err != nil {
		return err
	}

	stream, err := events.GetStream(ctx, source)
	if err != nil {
		return err
	}

	for _, ev := range stream {
		fmt.Printf("stream %s: %s\n", source, ev.ID)
	}

	byMessage, err := events.GetMessageStream(ctx, "message-1")
	if err != nil {
		return err
	}

	for _, ev := range byMessage {
		fmt.Printf("message message-1: %s (from %s)\n", ev.ID, ev.Source)
	}

	if err := events.SetSynchronized(ctx, "00001", source, time.Now()); err != nil {
		return err
	}

	for i := 0; i < 2; i++ {
		ok, err := messages.Register(ctx, "message-1", issued)
		if err != nil {
			return err
		}

		fmt.Printf("register message-1: %t\n", ok)
	}

	return nil
}
