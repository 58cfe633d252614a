package store

import "errors"

// ErrNotFound means the referenced session, judge or entrant has no row.
var ErrNotFound = errors.New("not found")
