package ledger

import (
	"errors"
	"fmt"

	"github.com/nao1215/newsledger/internal/model"
)

var (
	// ErrStorage matches every ledger read or write failure.
	ErrStorage = errors.New("ledger storage failure")

	// ErrEmptySourceID is returned when RecordVisit is called without a source id.
	ErrEmptySourceID = errors.New("empty source id")

	// ErrUnknownBackend is returned by Open for an unsupported backend name.
	ErrUnknownBackend = errors.New("unknown ledger backend")
)

// StorageError describes a failed ledger operation.
// It matches ErrStorage and the underlying cause with errors.Is.
type StorageError struct {
	// Op is the failed operation ("open", "get", "record", "list", "flush").
	Op string

	// Source is the affected source, empty for whole-ledger operations.
	Source model.SourceID

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("ledger %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("ledger %s %q: %v", e.Op, e.Source, e.Err)
}

// Unwrap exposes both ErrStorage and the cause to errors.Is and errors.As.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// storageErr wraps err in a StorageError.
func storageErr(op string, id model.SourceID, err error) error {
	return &StorageError{Op: op, Source: id, Err: err}
}
