package wire

import (
	"bytes"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func TestMarshalValue_Scalars(t *testing.T) {
	tests := []struct {
		name     string
		value    types.AttributeValue
		expected string
	}{
		{"string", &types.AttributeValueMemberS{Value: "hi"}, `{"S":"hi"}`},
		{"number", &types.AttributeValueMemberN{Value: "42"}, `{"N":"42"}`},
		{"binary", &types.AttributeValueMemberB{Value: []byte("abc")}, `{"B":"YWJj"}`},
		{"bool", &types.AttributeValueMemberBOOL{Value: true}, `{"BOOL":true}`},
		{"null", &types.AttributeValueMemberNULL{Value: true}, `{"NULL":true}`},
		{"string set", &types.AttributeValueMemberSS{Value: []string{"a", "b"}}, `{"SS":["a","b"]}`},
		{"number set", &types.AttributeValueMemberNS{Value: []string{"1"}}, `{"NS":["1"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalValue(tt.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(data) != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, data)
			}
		})
	}
}

func TestMarshalItem_SortedKeys(t *testing.T) {
	item := map[string]types.AttributeValue{
		"b": &types.AttributeValueMemberS{Value: "2"},
		"a": &types.AttributeValueMemberS{Value: "1"},
	}
	data, err := MarshalItem(item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"a":{"S":"1"},"b":{"S":"2"}}` {
		t.Errorf("unexpected encoding %s", data)
	}
}

func TestRoundTrip_Nested(t *testing.T) {
	value := &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
		"here": &types.AttributeValueMemberS{Value: "is-some-content"},
		"list": &types.AttributeValueMemberL{Value: []types.AttributeValue{
			&types.AttributeValueMemberN{Value: "1"},
			&types.AttributeValueMemberB{Value: []byte{0x00, 0xff}},
			&types.AttributeValueMemberBS{Value: [][]byte{{0x01}, {0x02}}},
		}},
		"nested": &types.AttributeValueMemberM{Value: map[string]types.AttributeValue{
			"ok": &types.AttributeValueMemberBOOL{Value: false},
		}},
	}}

	data, err := MarshalValue(value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := UnmarshalValue(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(value, decoded) {
		t.Errorf("round trip mismatch:\n want %#v\n got  %#v", value, decoded)
	}
}

func TestUnmarshalValue_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "plain text body"},
		{"two type keys", `{"S":"a","N":"1"}`},
		{"empty object", `{}`},
		{"unknown type", `{"X":"a"}`},
		{"node buffer", `{"type":"Buffer","data":[1,2,3]}`},
		{"trailing data", `{"S":"a"} {"S":"b"}`},
		{"wrong body type", `{"S":12}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UnmarshalValue([]byte(tt.data)); err == nil {
				t.Errorf("expected error for %q", tt.data)
			}
		})
	}
}

func TestUnmarshalValue_UnknownTypeIsUnsupported(t *testing.T) {
	_, err := UnmarshalValue([]byte(`{"X":"a"}`))
	if !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("expected ErrUnsupportedValue, got %v", err)
	}
}

func TestMarshalValue_Unsupported(t *testing.T) {
	_, err := MarshalValue(nil)
	if !errors.Is(err, ErrUnsupportedValue) {
		t.Errorf("expected ErrUnsupportedValue, got %v", err)
	}
}

func TestItemSize(t *testing.T) {
	item := map[string]types.AttributeValue{
		"Path": &types.AttributeValueMemberS{Value: "p"},
	}
	size, err := ItemSize(item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// {"Path":{"S":"p"}}
	if size != 18 {
		t.Errorf("expected 18, got %d", size)
	}
}

func TestItemSize_BinaryIsBase64(t *testing.T) {
	raw := bytes.Repeat([]byte{0xab}, 300)
	item := map[string]types.AttributeValue{
		"Content": &types.AttributeValueMemberB{Value: raw},
	}
	size, err := ItemSize(item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// base64 of 300 bytes is 400 characters
	overhead := len(`{"Content":{"B":""}}`)
	if size != overhead+400 {
		t.Errorf("expected %d, got %d", overhead+400, size)
	}
}

func TestItemSize_EscapedStrings(t *testing.T) {
	item := map[string]types.AttributeValue{
		"s": &types.AttributeValueMemberS{Value: strings.Repeat(`"`, 10)},
	}
	size, err := ItemSize(item)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if size != len(`{"s":{"S":""}}`)+20 {
		t.Errorf("expected escaped quotes to count twice, got %d", size)
	}
}
