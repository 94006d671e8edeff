package store

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentTooLarge is returned when an item exceeds Config.MaxDocumentSize.
	// It is raised before any backend call and is not retryable without shrinking the item.
	ErrDocumentTooLarge = errors.New("offload: document exceeds maximum size")

	// ErrNoContent is returned when an item is too large for DynamoDB but has no
	// content attribute that could be moved to the blob store.
	ErrNoContent = errors.New("offload: item too large for structured store and has no content to offload")

	// ErrNotFound is returned by Update when the item doesn't exist.
	ErrNotFound = errors.New("offload: item not found")

	// ErrMissingPath is returned when an item lacks a string path attribute.
	ErrMissingPath = errors.New("offload: item has no path attribute")

	// ErrPathChanged is returned when an Update mutation changes the item's path.
	ErrPathChanged = errors.New("offload: mutation changed the item path")

	// ErrBlobNotFound is returned by a BlobStore when no object exists for a key.
	ErrBlobNotFound = errors.New("offload: blob not found")

	// ErrInvalidConfig is returned when the Config cannot be used.
	ErrInvalidConfig = errors.New("offload: invalid config")
)

// DocumentTooLargeError reports the measured size of an item rejected for
// exceeding the maximum document size. It matches ErrDocumentTooLarge.
type DocumentTooLargeError struct {
	Size int
	Max  int
}

func (e *DocumentTooLargeError) Error() string {
	return fmt.Sprintf("%s: %d bytes > %d bytes", ErrDocumentTooLarge, e.Size, e.Max)
}

func (e *DocumentTooLargeError) Is(target error) bool {
	return target == ErrDocumentTooLarge
}
