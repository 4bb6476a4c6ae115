package store

import "errors"

// ErrNotFound is returned by stores when a lookup matches nothing.
// Services translate it into their own not-found errors.
var ErrNotFound = errors.New("not found")
