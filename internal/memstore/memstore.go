// Package memstore provides in-memory DynamoDB and blob store fakes that
// record every call, for tests of code built on store.Store.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/offload/internal/wire"
	"github.com/jacentio/offload/store"
)

// Call is one recorded backend call.
type Call struct {
	Op    string
	Key   string
	Input any
}

// DynamoDB is a single-key-attribute in-memory table set.
// UpdateItem doesn't evaluate expressions; it calls OnUpdate when set.
type DynamoDB struct {
	mu       sync.Mutex
	keyAttr  string
	tables   map[string]map[string]store.Item
	calls    []Call
	failures map[string]error

	// OnUpdate handles UpdateItem calls.
	OnUpdate func(input *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
}

var _ store.DynamoDBAPI = (*DynamoDB)(nil)

// NewDynamoDB creates an empty fake whose tables are keyed by keyAttr.
func NewDynamoDB(keyAttr string) *DynamoDB {
	return &DynamoDB{
		keyAttr:  keyAttr,
		tables:   make(map[string]map[string]store.Item),
		failures: make(map[string]error),
	}
}

// Fail makes every later call to op return err. A nil err clears the failure.
func (d *DynamoDB) Fail(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failures, op)
		return
	}
	d.failures[op] = err
}

// Calls returns the calls made so far.
func (d *DynamoDB) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Call(nil), d.calls...)
}

// Ops returns the operation names of the calls made so far.
func (d *DynamoDB) Ops() []string {
	return ops(d.Calls())
}

// Item returns the stored item for a path, or nil.
func (d *DynamoDB) Item(table, path string) store.Item {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tables[table][path]
}

// Seed stores item directly without recording a call.
func (d *DynamoDB) Seed(table string, item store.Item) {
	d.mu.Lock()
	defer d.mu.Unlock()
	path, _ := keyString(item, d.keyAttr)
	d.table(table)[path] = item
}

func (d *DynamoDB) table(name string) map[string]store.Item {
	t, ok := d.tables[name]
	if !ok {
		t = make(map[string]store.Item)
		d.tables[name] = t
	}
	return t
}

// record logs a call and returns the configured failure for op, if any.
func (d *DynamoDB) record(op, key string, input any) error {
	d.calls = append(d.calls, Call{Op: op, Key: key, Input: input})
	return d.failures[op]
}

func (d *DynamoDB) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key, err := keyString(params.Key, d.keyAttr)
	if err != nil {
		return nil, err
	}
	if err := d.record("GetItem", key, params); err != nil {
		return nil, err
	}
	item, ok := d.table(tableName(params.TableName))[key]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: clone(item)}, nil
}

func (d *DynamoDB) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key, err := keyString(params.Item, d.keyAttr)
	if err != nil {
		return nil, err
	}
	if err := d.record("PutItem", key, params); err != nil {
		return nil, err
	}
	t := d.table(tableName(params.TableName))
	out := &dynamodb.PutItemOutput{}
	if old, ok := t[key]; ok && params.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = clone(old)
	}
	t[key] = clone(params.Item)
	return out, nil
}

func (d *DynamoDB) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key, err := keyString(params.Key, d.keyAttr)
	if err != nil {
		return nil, err
	}
	if err := d.record("DeleteItem", key, params); err != nil {
		return nil, err
	}
	t := d.table(tableName(params.TableName))
	out := &dynamodb.DeleteItemOutput{}
	if old, ok := t[key]; ok {
		if params.ReturnValues == types.ReturnValueAllOld {
			out.Attributes = clone(old)
		}
		delete(t, key)
	}
	return out, nil
}

func (d *DynamoDB) UpdateItem(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	d.mu.Lock()
	key, err := keyString(params.Key, d.keyAttr)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	err = d.record("UpdateItem", key, params)
	hook := d.OnUpdate
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if hook != nil {
		return hook(params)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (d *DynamoDB) BatchGetItem(_ context.Context, params *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("BatchGetItem", "", params); err != nil {
		return nil, err
	}
	return &dynamodb.BatchGetItemOutput{}, nil
}

func (d *DynamoDB) BatchWriteItem(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("BatchWriteItem", "", params); err != nil {
		return nil, err
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (d *DynamoDB) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("Query", "", params); err != nil {
		return nil, err
	}
	return &dynamodb.QueryOutput{}, nil
}

func (d *DynamoDB) Scan(_ context.Context, params *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.record("Scan", "", params); err != nil {
		return nil, err
	}
	return &dynamodb.ScanOutput{}, nil
}

// Blobs is an in-memory store.BlobStore.
type Blobs struct {
	mu       sync.Mutex
	objects  map[string][]byte
	calls    []Call
	failures map[string]error
}

var _ store.BlobStore = (*Blobs)(nil)

// NewBlobs creates an empty blob store.
func NewBlobs() *Blobs {
	return &Blobs{
		objects:  make(map[string][]byte),
		failures: make(map[string]error),
	}
}

// Fail makes every later call to op ("Get", "Put", "Delete") return err.
// A nil err clears the failure.
func (b *Blobs) Fail(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

// Calls returns the calls made so far.
func (b *Blobs) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// Ops returns the operation names of the calls made so far.
func (b *Blobs) Ops() []string {
	return ops(b.Calls())
}

// Object returns the stored body for key.
func (b *Blobs) Object(key string) ([]byte, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	body, ok := b.objects[key]
	return body, ok
}

// Seed stores body directly without recording a call.
func (b *Blobs) Seed(key string, body []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = append([]byte(nil), body...)
}

func (b *Blobs) record(op, key string) error {
	b.calls = append(b.calls, Call{Op: op, Key: key})
	return b.failures[op]
}

func (b *Blobs) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("Get", key); err != nil {
		return nil, err
	}
	body, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrBlobNotFound, key)
	}
	return append([]byte(nil), body...), nil
}

func (b *Blobs) Put(_ context.Context, key string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("Put", key); err != nil {
		return err
	}
	b.objects[key] = append([]byte(nil), body...)
	return nil
}

func (b *Blobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("Delete", key); err != nil {
		return err
	}
	delete(b.objects, key)
	return nil
}

func ops(calls []Call) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Op
	}
	return out
}

func tableName(name *string) string {
	if name == nil {
		return ""
	}
	return *name
}

// keyString renders the key attribute of item in wire format.
func keyString(item store.Item, keyAttr string) (string, error) {
	v, ok := item[keyAttr]
	if !ok {
		return "", errors.New("memstore: missing key attribute " + keyAttr)
	}
	if s, ok := v.(*types.AttributeValueMemberS); ok {
		return s.Value, nil
	}
	data, err := wire.MarshalValue(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// clone deep-copies an item through the wire codec.
func clone(item store.Item) store.Item {
	data, err := wire.MarshalValue(&types.AttributeValueMemberM{Value: item})
	if err != nil {
		panic(err)
	}
	av, err := wire.UnmarshalValue(data)
	if err != nil {
		panic(err)
	}
	return av.(*types.AttributeValueMemberM).Value
}
