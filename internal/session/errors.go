package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrPersist = errors.New("session persistence failed")
)
