package dbx

import "io"

// FileStore stores and retrieves named CSV objects. Object names are
// slash-separated relative paths like "dev/sample/public-accounts.csv".
// Implementations live in internal/store (filesystem, s3, memory).
type FileStore interface {
	// Put stores the object, replacing any previous version atomically.
	Put(name string, r io.Reader) error

	// Get writes the object contents to w. Returns ErrObjectNotFound if no
	// object by that name exists.
	Get(name string, w io.Writer) error
}
