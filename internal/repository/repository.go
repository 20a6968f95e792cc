package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique constraint would be violated.
var ErrDuplicate = errors.New("duplicate")

// ErrLocked is returned when a write targets a Completed ticket.
var ErrLocked = errors.New("ticket locked")
