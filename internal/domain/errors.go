package domain

import "errors"

var (
	// ErrNotFound is the storage-level miss; services translate it into
	// their own sentinels before it reaches a handler.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate signals a unique-constraint violation surfaced by the
	// database. The row that caused it was not written.
	ErrDuplicate = errors.New("duplicate record")
)
