package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a key has no entry in the store.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")

	// ErrInvalidConfig is returned by Open for unusable configuration.
	ErrInvalidConfig = errors.New("invalid config")
)

// StorageError reports an I/O or codec failure for one operation.
// Key is empty for whole-store operations such as erase.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("diskmap: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("diskmap: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
