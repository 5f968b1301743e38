package eventstore

import (
	"github.com/dogmatiq/dodeca/logging"
)

var (
	// DefaultTableName is the default name of the table that contains events.
	//
	// It is overridden by the WithTableName() option.
	DefaultTableName = "events"

	// DefaultLogger is the default target for log messages produced by the
	// store.
	//
	// It is overridden by the WithLogger() option.
	DefaultLogger = logging.DefaultLogger
)

// Option configures the behavior of a store.
type Option func(*options)

// WithTableName returns an option that sets the name of the table that
// contains events.
//
// If this option is omitted or n is empty, DefaultTableName is used.
func WithTableName(n string) Option {
	return func(opts *options) {
		opts.TableName = n
	}
}

// WithLogger returns an option that sets the target for log messages produced
// by the store.
//
// If this option is omitted or l is nil, DefaultLogger is used.
func WithLogger(l logging.Logger) Option {
	return func(opts *options) {
		opts.Logger = l
	}
}

// options is a set of options that control the behavior of a store.
type options struct {
	TableName string
	Logger    logging.Logger
}

// resolveOptions returns a fully-populated set of options from the given
// option functions.
func resolveOptions(opts []Option) options {
	var r options

	for _, o := range opts {
		o(&r)
	}

	if r.TableName == "" {
		r.TableName = DefaultTableName
	}

	if r.Logger == nil {
		r.Logger = DefaultLogger
	}

	return r
}
