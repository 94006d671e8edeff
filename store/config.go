package store

import (
	"fmt"
	"strings"
)

// StructuredItemLimit is DynamoDB's per-item size ceiling. Items whose encoded
// size exceeds it have their content moved to the blob store.
const StructuredItemLimit = 400 * 1024

// Config holds configuration for the Store.
type Config struct {
	// Bucket is the S3 bucket holding offloaded content. Required.
	Bucket string

	// ContentField is the field path of the content attribute.
	// Dots descend into map attributes.
	// Default: "Content"
	ContentField string

	// PointerField is the field path of the blob key written when content is offloaded.
	// Default: "Attributes.S3Key"
	PointerField string

	// PathField is the top-level attribute identifying the item. It is the
	// table's partition key and the blob key for offloaded content.
	// Default: "Path"
	PathField string

	// MaxDocumentSize is the largest encoded item accepted, in bytes.
	// Items above it fail with ErrDocumentTooLarge.
	// Default: 5 MiB
	MaxDocumentSize int
}

// DefaultConfig returns the default field layout for the given bucket.
func DefaultConfig(bucket string) Config {
	return Config{
		Bucket:          bucket,
		ContentField:    "Content",
		PointerField:    "Attributes.S3Key",
		PathField:       "Path",
		MaxDocumentSize: 5 * 1024 * 1024,
	}
}

// validate fills defaults and rejects configs that cannot work.
func (c *Config) validate() error {
	d := DefaultConfig(c.Bucket)
	if c.Bucket == "" {
		return fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}
	if c.ContentField == "" {
		c.ContentField = d.ContentField
	}
	if c.PointerField == "" {
		c.PointerField = d.PointerField
	}
	if c.PathField == "" {
		c.PathField = d.PathField
	}
	if c.MaxDocumentSize <= 0 {
		c.MaxDocumentSize = d.MaxDocumentSize
	}
	if strings.Contains(c.PathField, ".") {
		return fmt.Errorf("%w: path field %q must be a top-level attribute", ErrInvalidConfig, c.PathField)
	}
	if c.ContentField == c.PointerField {
		return fmt.Errorf("%w: content and pointer fields must differ", ErrInvalidConfig)
	}
	return nil
}
