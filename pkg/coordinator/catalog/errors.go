package catalog

import "errors"

// Domain errors returned by the store. The coordinator's handlers translate
// them into wire codes; database errors that are none of these surface as
// server errors.
var (
	// ErrFileNotFound indicates the named file is not in the catalog.
	ErrFileNotFound = errors.New("file not found")

	// ErrFileExists indicates a create collided with an existing name.
	ErrFileExists = errors.New("file already exists")

	// ErrGrantNotFound indicates no grant exists for the (file, user) pair.
	ErrGrantNotFound = errors.New("access grant not found")

	// ErrRequestNotFound indicates the access request id is unknown.
	ErrRequestNotFound = errors.New("access request not found")

	// ErrCheckpointNotFound indicates the tag does not exist for the file.
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)
