package storage

import "fmt"

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = fmt.Errorf("artifact not found")
)
