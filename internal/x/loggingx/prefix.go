package loggingx

import (
	"fmt"
	"strings"

	"github.com/dogmatiq/dodeca/logging"
)

// WithPrefix returns a logger that adds a prefix to log messages.
//
// The prefix is rendered once, using f and v. If it is empty, target is
// returned unchanged.
func WithPrefix(target logging.Logger, f string, v ...interface{}) logging.Logger {
	prefix := fmt.Sprintf(f, v...)
	if prefix == "" {
		return target
	}

	return &prefixed{
		target:  target,
		literal: prefix,
		escaped: strings.ReplaceAll(prefix, "%", "%%"),
	}
}

// prefixed is a logger that adds a fixed prefix to each message.
type prefixed struct {
	target logging.Logger

	// literal is the prefix as it appears in the output. escaped is the same
	// prefix with any % characters escaped, for use in format strings.
	literal string
	escaped string
}

func (l *prefixed) Log(f string, v ...interface{}) {
	l.target.Log(l.escaped+f, v...)
}

func (l *prefixed) LogString(s string) {
	l.target.LogString(l.literal + s)
}

func (l *prefixed) Debug(f string, v ...interface{}) {
	if l.target.IsDebug() {
		l.target.Debug(l.escaped+f, v...)
	}
}

func (l *prefixed) DebugString(s string) {
	if l.target.IsDebug() {
		l.target.DebugString(l.literal + s)
	}
}

func (l *prefixed) IsDebug() bool {
	return l.target.IsDebug()
}
