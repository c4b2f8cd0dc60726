package repository

import "errors"

// ErrNotFound is returned when the requested record does not exist.
// Callers check with errors.Is.
var ErrNotFound = errors.New("record not found")
