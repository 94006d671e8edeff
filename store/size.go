package store

import (
	"fmt"

	"github.com/jacentio/offload/internal/wire"
)

// Placement says which backend holds an item's content.
type Placement int

const (
	// PlacementStructured keeps content inline in DynamoDB.
	PlacementStructured Placement = iota
	// PlacementBlob moves content to S3 and leaves a pointer in DynamoDB.
	PlacementBlob
)

func (p Placement) String() string {
	if p == PlacementBlob {
		return "blob"
	}
	return "structured"
}

// evaluate measures item in DynamoDB's wire format and decides its placement.
// It must run before any backend call for the item.
func (s *Store) evaluate(item Item) (Placement, error) {
	size, err := wire.ItemSize(item)
	if err != nil {
		return PlacementStructured, fmt.Errorf("measure item: %w", err)
	}
	if size > s.config.MaxDocumentSize {
		return PlacementStructured, &DocumentTooLargeError{Size: size, Max: s.config.MaxDocumentSize}
	}
	if size <= StructuredItemLimit {
		return PlacementStructured, nil
	}
	if _, ok := getField(item, s.config.ContentField); !ok {
		return PlacementStructured, ErrNoContent
	}
	return PlacementBlob, nil
}
