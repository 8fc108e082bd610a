package customers

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a lookup matches no customer record.
var ErrNotFound = errors.New("customer not found")

// DirectoryError wraps a failed directory read or write.
type DirectoryError struct {
	Op  string
	Err error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("customer directory %s: %v", e.Op, e.Err)
}

func (e *DirectoryError) Unwrap() error {
	return e.Err
}

func wrapErr(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) {
		return err
	}
	return &DirectoryError{Op: op, Err: err}
}
