package store

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Item is a DynamoDB item as seen by callers: a logical record whose content
// may physically live in S3.
type Item = map[string]types.AttributeValue

// Key is a DynamoDB primary key.
type Key = map[string]types.AttributeValue

// getField returns the attribute at a dotted field path.
func getField(item Item, path string) (types.AttributeValue, bool) {
	parts := strings.Split(path, ".")
	current := item
	for i, part := range parts {
		v, ok := current[part]
		if !ok || v == nil {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		m, ok := v.(*types.AttributeValueMemberM)
		if !ok {
			return nil, false
		}
		current = m.Value
	}
	return nil, false
}

// getStringField returns the string attribute at a dotted field path.
func getStringField(item Item, path string) (string, bool) {
	v, ok := getField(item, path)
	if !ok {
		return "", false
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return s.Value, true
}

// setField writes value at a dotted field path, creating or replacing
// intermediate map attributes as needed. item is modified in place.
func setField(item Item, path string, value types.AttributeValue) {
	parts := strings.Split(path, ".")
	current := item
	for _, part := range parts[:len(parts)-1] {
		m, ok := current[part].(*types.AttributeValueMemberM)
		if !ok || m.Value == nil {
			m = &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{}}
			current[part] = m
		}
		current = m.Value
	}
	current[parts[len(parts)-1]] = value
}

// deleteField removes the attribute at a dotted field path. Missing
// intermediate maps are left alone. item is modified in place.
func deleteField(item Item, path string) {
	parts := strings.Split(path, ".")
	current := item
	for _, part := range parts[:len(parts)-1] {
		m, ok := current[part].(*types.AttributeValueMemberM)
		if !ok {
			return
		}
		current = m.Value
	}
	delete(current, parts[len(parts)-1])
}

// copyItem deep-copies an item, including nested maps, lists, sets and byte slices.
func copyItem(item Item) Item {
	if item == nil {
		return nil
	}
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(av types.AttributeValue) types.AttributeValue {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return &types.AttributeValueMemberS{Value: v.Value}
	case *types.AttributeValueMemberN:
		return &types.AttributeValueMemberN{Value: v.Value}
	case *types.AttributeValueMemberB:
		return &types.AttributeValueMemberB{Value: append([]byte(nil), v.Value...)}
	case *types.AttributeValueMemberBOOL:
		return &types.AttributeValueMemberBOOL{Value: v.Value}
	case *types.AttributeValueMemberNULL:
		return &types.AttributeValueMemberNULL{Value: v.Value}
	case *types.AttributeValueMemberSS:
		return &types.AttributeValueMemberSS{Value: append([]string(nil), v.Value...)}
	case *types.AttributeValueMemberNS:
		return &types.AttributeValueMemberNS{Value: append([]string(nil), v.Value...)}
	case *types.AttributeValueMemberBS:
		bs := make([][]byte, len(v.Value))
		for i, b := range v.Value {
			bs[i] = append([]byte(nil), b...)
		}
		return &types.AttributeValueMemberBS{Value: bs}
	case *types.AttributeValueMemberL:
		list := make([]types.AttributeValue, len(v.Value))
		for i, elem := range v.Value {
			list[i] = copyValue(elem)
		}
		return &types.AttributeValueMemberL{Value: list}
	case *types.AttributeValueMemberM:
		return &types.AttributeValueMemberM{Value: copyItem(v.Value)}
	default:
		return av
	}
}
