package eventstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/dogmatiq/eventtable/table"
)

// RepairReport describes the changes made by Store.Repair().
type RepairReport struct {
	// Inserted is the IDs of the events that were missing a message copy.
	Inserted []string

	// Synchronized is the IDs of the events with a message copy whose
	// synchronization time did not match the stream copy.
	Synchronized []string
}

// IsEmpty returns true if the repair made no changes.
func (r RepairReport) IsEmpty() bool {
	return len(r.Inserted) == 0 && len(r.Synchronized) == 0
}

// Repair reconciles the message copies of the events from the given source
// with their stream copies.
//
// A Commit() or SetSynchronized() that fails part-way through leaves the stream
// copy ahead of the message copy. Repair inserts message copies that are
// missing and re-applies synchronization times that have diverged. The stream
// copy is always treated as authoritative. Nothing is deleted.
//
// An inserted message copy is given a new insertion timestamp, so it may
// appear later in GetMessageStream() than it would have done originally.
func (s *Store) Repair(ctx context.Context, src Source) (RepairReport, error) {
	var report RepairReport

	if err := src.Validate(); err != nil {
		return report, fmt.Errorf("repair failed: invalid source: %w", err)
	}

	streamCopies, err := s.table.GetPartition(ctx, src.PartitionKey())
	if err != nil {
		return report, fmt.Errorf("repair failed: %w", err)
	}

	for _, e := range streamCopies {
		m := e.messageCopy()

		existing, ok, err := s.table.GetSingle(ctx, m.ID())
		if err != nil {
			return report, fmt.Errorf("repair failed: %w", err)
		}

		if !ok {
			if err := s.table.Insert(ctx, m); err != nil {
				return report, fmt.Errorf("repair failed: %w", err)
			}

			report.Inserted = append(report.Inserted, e.EventID)

			logging.Log(
				s.logger,
				"[%s copy] restored missing copy of event %s from %s",
				MessageCopy,
				e.EventID,
				src,
			)

			continue
		}

		if existing.SynchronizedAt.Equal(e.SynchronizedAt) {
			continue
		}

		existing.SynchronizedAt = e.SynchronizedAt
		if err := s.table.Update(ctx, existing); err != nil {
			return report, fmt.Errorf("repair failed: %w", err)
		}

		report.Synchronized = append(report.Synchronized, e.EventID)

		logging.Log(
			s.logger,
			"[%s copy] re-applied synchronization time of event %s from %s (%s)",
			MessageCopy,
			e.EventID,
			src,
			formatSyncTime(e.SynchronizedAt),
		)
	}

	return report, nil
}

// formatSyncTime returns a human-readable representation of a synchronization
// time.
func formatSyncTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	return t.Format(time.RFC3339Nano)
}

var _ table.Record = (*entity)(nil)
