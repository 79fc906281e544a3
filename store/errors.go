package store

import "errors"

var (
	// ErrSaveFailed is returned when the new container could not be
	// written to disk. The previous container, if any, is untouched.
	ErrSaveFailed = errors.New("could not write secrets file")

	// ErrCannotMoveExisting is returned when the current container could
	// not be rotated out of the way. The new container is discarded and
	// the previous one stays installed.
	ErrCannotMoveExisting = errors.New("could not move existing secrets file")

	// ErrCannotMoveNew is returned when the freshly written container
	// could not be renamed into place. The previous container is moved
	// back before returning.
	ErrCannotMoveNew = errors.New("could not move new secrets file")

	// ErrNoBackupPath is returned by Backup when the store was built
	// without a backup path.
	ErrNoBackupPath = errors.New("no backup path configured")
)
