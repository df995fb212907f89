package storage

import (
	"errors"
	"fmt"
)

// ErrStorage matches every *StorageError via errors.Is.
var ErrStorage = errors.New("storage error")

// StorageError reports a failing cookie or local storage operation.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func wrap(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Backend: backend, Op: op, Err: err}
}
