// Package wire encodes DynamoDB attribute values in the service's JSON wire format.
//
// The encoding is the one DynamoDB itself uses on the wire ({"S":"..."},
// {"B":"<base64>"}, {"M":{...}}), which makes it suitable both for measuring
// item size and for storing a single attribute losslessly outside DynamoDB.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrUnsupportedValue is returned for attribute value types the codec doesn't know.
var ErrUnsupportedValue = errors.New("wire: unsupported attribute value")

// ItemSize returns the byte length of item encoded as DynamoDB JSON.
func ItemSize(item map[string]types.AttributeValue) (int, error) {
	data, err := MarshalItem(item)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

// MarshalItem encodes a full item. Keys are emitted in sorted order.
func MarshalItem(item map[string]types.AttributeValue) ([]byte, error) {
	m, err := encodeMap(item)
	if err != nil {
		return nil, err
	}
	return marshal(m)
}

// MarshalValue encodes a single attribute value.
func MarshalValue(av types.AttributeValue) ([]byte, error) {
	v, err := encode(av)
	if err != nil {
		return nil, err
	}
	return marshal(v)
}

// marshal is json.Marshal without HTML escaping, which DynamoDB doesn't apply.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalValue decodes a single attribute value produced by MarshalValue.
func UnmarshalValue(data []byte) (types.AttributeValue, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("wire: decode: %w", err)
	}
	if dec.More() {
		return nil, errors.New("wire: trailing data after value")
	}
	return decode(raw)
}

func encodeMap(item map[string]types.AttributeValue) (map[string]any, error) {
	out := make(map[string]any, len(item))
	for k, v := range item {
		enc, err := encode(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = enc
	}
	return out, nil
}

func encode(av types.AttributeValue) (any, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return map[string]string{"S": v.Value}, nil
	case *types.AttributeValueMemberN:
		return map[string]string{"N": v.Value}, nil
	case *types.AttributeValueMemberB:
		return map[string][]byte{"B": v.Value}, nil
	case *types.AttributeValueMemberBOOL:
		return map[string]bool{"BOOL": v.Value}, nil
	case *types.AttributeValueMemberNULL:
		return map[string]bool{"NULL": v.Value}, nil
	case *types.AttributeValueMemberSS:
		return map[string][]string{"SS": v.Value}, nil
	case *types.AttributeValueMemberNS:
		return map[string][]string{"NS": v.Value}, nil
	case *types.AttributeValueMemberBS:
		return map[string][][]byte{"BS": v.Value}, nil
	case *types.AttributeValueMemberL:
		list := make([]any, 0, len(v.Value))
		for i, elem := range v.Value {
			enc, err := encode(elem)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			list = append(list, enc)
		}
		return map[string][]any{"L": list}, nil
	case *types.AttributeValueMemberM:
		m, err := encodeMap(v.Value)
		if err != nil {
			return nil, err
		}
		return map[string]map[string]any{"M": m}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, av)
	}
}

func decode(raw map[string]json.RawMessage) (types.AttributeValue, error) {
	if len(raw) != 1 {
		return nil, fmt.Errorf("wire: expected exactly one type key, got %d", len(raw))
	}
	for tag, body := range raw {
		switch tag {
		case "S":
			var s string
			err := json.Unmarshal(body, &s)
			return &types.AttributeValueMemberS{Value: s}, err
		case "N":
			var n string
			err := json.Unmarshal(body, &n)
			return &types.AttributeValueMemberN{Value: n}, err
		case "B":
			var b []byte
			err := json.Unmarshal(body, &b)
			return &types.AttributeValueMemberB{Value: b}, err
		case "BOOL":
			var b bool
			err := json.Unmarshal(body, &b)
			return &types.AttributeValueMemberBOOL{Value: b}, err
		case "NULL":
			var b bool
			err := json.Unmarshal(body, &b)
			return &types.AttributeValueMemberNULL{Value: b}, err
		case "SS":
			var ss []string
			err := json.Unmarshal(body, &ss)
			return &types.AttributeValueMemberSS{Value: ss}, err
		case "NS":
			var ns []string
			err := json.Unmarshal(body, &ns)
			return &types.AttributeValueMemberNS{Value: ns}, err
		case "BS":
			var bs [][]byte
			err := json.Unmarshal(body, &bs)
			return &types.AttributeValueMemberBS{Value: bs}, err
		case "L":
			var elems []map[string]json.RawMessage
			if err := json.Unmarshal(body, &elems); err != nil {
				return nil, err
			}
			list := make([]types.AttributeValue, 0, len(elems))
			for i, elem := range elems {
				av, err := decode(elem)
				if err != nil {
					return nil, fmt.Errorf("index %d: %w", i, err)
				}
				list = append(list, av)
			}
			return &types.AttributeValueMemberL{Value: list}, nil
		case "M":
			var fields map[string]map[string]json.RawMessage
			if err := json.Unmarshal(body, &fields); err != nil {
				return nil, err
			}
			m := make(map[string]types.AttributeValue, len(fields))
			for k, field := range fields {
				av, err := decode(field)
				if err != nil {
					return nil, fmt.Errorf("attribute %q: %w", k, err)
				}
				m[k] = av
			}
			return &types.AttributeValueMemberM{Value: m}, nil
		default:
			return nil, fmt.Errorf("%w: type key %q", ErrUnsupportedValue, tag)
		}
	}
	return nil, nil
}
