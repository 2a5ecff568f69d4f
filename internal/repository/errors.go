package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a unique constraint violation.
	ErrConflict = errors.New("conflict")
	// ErrSerialization reports a transaction that lost a concurrency race
	// and may succeed if retried as a whole.
	ErrSerialization = errors.New("serialization failure")
)
