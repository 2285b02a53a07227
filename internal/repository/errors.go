package repository

import "errors"

// ErrNotFound is returned by keyed writes that matched no row.
var ErrNotFound = errors.New("record not found")
