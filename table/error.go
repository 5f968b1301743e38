package table

import (
	"errors"
	"fmt"
)

// Operation names used in errors.
const (
	OpCreate  = "create"
	OpInsert  = "insert"
	OpReplace = "replace"
	OpGet     = "get"
	OpScan    = "scan"
)

// NotFoundError indicates that an operation required a record that does not
// exist.
type NotFoundError struct {
	Op    string
	Table string
	ID    EntityID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf(
		"%s failed: record %s does not exist in the '%s' table",
		e.Op,
		e.ID,
		e.Table,
	)
}

// DuplicateKeyError indicates that an insert collided with an existing record.
type DuplicateKeyError struct {
	Op    string
	Table string
	ID    EntityID
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf(
		"%s failed: record %s already exists in the '%s' table",
		e.Op,
		e.ID,
		e.Table,
	)
}

// ConflictError indicates an optimistic concurrency conflict, that is, the
// record was modified since it was read.
type ConflictError struct {
	Op    string
	Table string
	ID    EntityID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf(
		"%s failed: optimistic concurrency conflict on record %s in the '%s' table",
		e.Op,
		e.ID,
		e.Table,
	)
}

// UnavailableError indicates a failure of the underlying service, such as a
// transport or storage error.
type UnavailableError struct {
	Op    string
	Table string
	ID    EntityID
	Cause error
}

func (e *UnavailableError) Error() string {
	if e.ID == (EntityID{}) {
		return fmt.Sprintf(
			"%s failed: '%s' table is unavailable: %s",
			e.Op,
			e.Table,
			e.Cause,
		)
	}

	return fmt.Sprintf(
		"%s failed: '%s' table is unavailable for record %s: %s",
		e.Op,
		e.Table,
		e.ID,
		e.Cause,
	)
}

func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// IsNotFound returns true if err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsDuplicateKey returns true if err is, or wraps, a DuplicateKeyError.
func IsDuplicateKey(err error) bool {
	var target *DuplicateKeyError
	return errors.As(err, &target)
}

// IsConflict returns true if err is, or wraps, a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// Unavailable returns an UnavailableError for a failure of the service, unless
// err is already one of the errors defined in this package, in which case it
// is returned unchanged.
func Unavailable(op, table string, id EntityID, err error) error {
	if err == nil {
		return nil
	}

	switch err.(type) {
	case *NotFoundError,
		*DuplicateKeyError,
		*ConflictError,
		*UnavailableError:
		return err
	}

	return &UnavailableError{
		Op:    op,
		Table: table,
		ID:    id,
		Cause: err,
	}
}
