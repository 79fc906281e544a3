package vault

import "errors"

var (
	// ErrSessionLocked indicates the session has been locked and its key
	// material destroyed.
	ErrSessionLocked = errors.New("session locked")
)
