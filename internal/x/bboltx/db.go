package bboltx

import (
	"context"
	"errors"
	"os"

	"github.com/dogmatiq/linger"
	"go.etcd.io/bbolt"
)

// Open creates and opens a database at the given path.
//
// If mode is zero, 0600 is used. The time spent waiting for the file lock is
// bounded by the deadline of ctx, if it is sooner than opts.Timeout.
func Open(
	ctx context.Context,
	path string,
	mode os.FileMode,
	opts *bbolt.Options,
) (*bbolt.DB, error) {
	if mode == 0 {
		mode = 0600
	}

	// A non-positive timeout in the BoltDB options means "wait forever", so we
	// must not let an expired context get that far.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if timeout, ok := linger.FromContextDeadline(ctx); ok {
		var clone bbolt.Options
		if opts != nil {
			clone = *opts
		} else {
			clone = *bbolt.DefaultOptions
		}

		if clone.Timeout == 0 || clone.Timeout > timeout {
			clone.Timeout = timeout
		}

		opts = &clone
	}

	db, err := bbolt.Open(path, mode, opts)
	if errors.Is(err, bbolt.ErrTimeout) {
		return nil, context.DeadlineExceeded
	}

	return db, err
}
