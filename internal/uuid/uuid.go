// Package uuid wraps the external UUID dependency so callers have a single
// place to swap implementations.
package uuid

import "github.com/google/uuid"

// New returns a random (version 4) UUID string.
func New() string {
	return uuid.NewString()
}
