package models

import "errors"

// ErrNotFound is returned by every routine and exercise store when a record
// does not exist.
var ErrNotFound = errors.New("not found")
