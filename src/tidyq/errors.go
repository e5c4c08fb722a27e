package tidyq

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownJob is returned for ids that were never enqueued.
	ErrUnknownJob = errors.New("tidyq: unknown job id")

	// ErrNoResult is returned when a known job has not recorded a result yet.
	ErrNoResult = errors.New("tidyq: no result recorded")

	// ErrContention is returned when a dequeue exhausts its retry budget
	// without winning the claim transaction.
	ErrContention = errors.New("tidyq: dequeue retries exhausted")

	// ErrSerialization is returned when a payload cannot be encoded.
	ErrSerialization = errors.New("tidyq: payload encode failed")

	// ErrTxConflict aborts a single optimistic transaction attempt after a
	// watched key changed. Callers retry; it never escapes the queue ops.
	ErrTxConflict = errors.New("tidyq: transaction conflict")
)

// StoreError wraps a failure talking to the backing store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("tidyq: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}
