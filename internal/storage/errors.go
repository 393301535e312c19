package storage

import "errors"

var (
	// ErrPathEscape is returned when a category or extension would place the
	// artifact outside the storage root.
	ErrPathEscape = errors.New("storage path escapes root")

	// ErrStorageCollision is returned when two consecutive allocations both
	// collide with existing artifacts.
	ErrStorageCollision = errors.New("storage path collision")

	ErrStorageWrite   = errors.New("storage write failed")
	ErrUploadTooLarge = errors.New("upload exceeds size limit")
)
