package store

import (
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/offload/internal/wire"
)

// toStructured returns the DynamoDB representation of item for the given
// placement. item is never modified. For PlacementBlob the content is
// removed and the pointer set to path. For PlacementStructured any pointer
// carried over from a previous read is removed, so Get serves the inline
// content; the blob it named is left for the stream reaper.
func (s *Store) toStructured(item Item, placement Placement, path string) Item {
	out := copyItem(item)
	if placement == PlacementBlob {
		deleteField(out, s.config.ContentField)
		setField(out, s.config.PointerField, &types.AttributeValueMemberS{Value: path})
	} else {
		deleteField(out, s.config.PointerField)
	}
	return out
}

// encodeContent serializes the content attribute of item as a blob body.
func (s *Store) encodeContent(item Item) ([]byte, error) {
	content, ok := getField(item, s.config.ContentField)
	if !ok {
		return nil, ErrNoContent
	}
	body, err := wire.MarshalValue(content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	return body, nil
}

// decodeContent parses a blob body. DynamoDB JSON is tried first, then plain
// JSON such as "hello" or {"a":1}, converted with attributevalue. Anything
// else is returned as a binary attribute holding the raw bytes.
func decodeContent(body []byte) types.AttributeValue {
	if av, err := wire.UnmarshalValue(body); err == nil {
		return av
	}
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		if av, err := attributevalue.Marshal(v); err == nil {
			return av
		}
	}
	return &types.AttributeValueMemberB{Value: body}
}

// pathOf returns the item's path attribute.
func (s *Store) pathOf(item Item) (string, error) {
	path, ok := getStringField(item, s.config.PathField)
	if !ok || path == "" {
		return "", ErrMissingPath
	}
	return path, nil
}
