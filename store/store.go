package store

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Store routes items between DynamoDB and S3 by size.
// It holds no per-item state and is safe for concurrent use.
type Store struct {
	db      DynamoDBAPI
	blobs   BlobStore
	config  Config
	logger  *slog.Logger
	metrics *Metrics
}

// New creates a new Store. The config is validated and defaulted.
func New(db DynamoDBAPI, blobs BlobStore, config Config) (*Store, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &Store{
		db:     db,
		blobs:  blobs,
		config: config,
		logger: slog.Default(),
	}, nil
}

// NewFromConfig creates a Store using DynamoDB and S3 clients built from cfg.
func NewFromConfig(cfg aws.Config, config Config) (*Store, error) {
	return New(dynamodb.NewFromConfig(cfg), NewS3Blobs(s3.NewFromConfig(cfg), config.Bucket), config)
}

// SetLogger sets the logger used for out-of-band failure reports.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
}

// SetMetrics sets the metrics sink, or nil to disable metrics.
func (s *Store) SetMetrics(m *Metrics) {
	s.metrics = m
}

// Config returns the validated configuration.
func (s *Store) Config() Config {
	return s.config
}

// Put writes an item, moving its content to S3 when the item is too large
// for DynamoDB. The DynamoDB write happens first; if the S3 write then fails
// the DynamoDB item is deleted again and the S3 error is returned.
//
// The output's Attributes hold the item as written to DynamoDB with the
// original content restored.
func (s *Store) Put(ctx context.Context, input *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	item := input.Item
	placement, err := s.evaluate(item)
	if err != nil {
		return nil, err
	}

	var path string
	var body []byte
	if placement == PlacementBlob {
		if path, err = s.pathOf(item); err != nil {
			return nil, err
		}
		if body, err = s.encodeContent(item); err != nil {
			return nil, err
		}
	}

	structured := s.toStructured(item, placement, path)
	params := *input
	params.Item = structured
	out, err := s.db.PutItem(ctx, &params, optFns...)
	if err != nil {
		return nil, err
	}

	if placement == PlacementBlob {
		if err := s.blobs.Put(ctx, path, body); err != nil {
			s.undoPut(ctx, input.TableName, path, err, optFns)
			return nil, err
		}
	}
	s.metrics.placed(placement)

	logical := copyItem(structured)
	if content, ok := getField(item, s.config.ContentField); ok {
		setField(logical, s.config.ContentField, copyValue(content))
	}
	out.Attributes = logical
	return out, nil
}

// undoPut deletes the DynamoDB item written by a Put whose blob write failed.
// It runs even if ctx was cancelled.
func (s *Store) undoPut(ctx context.Context, table *string, path string, blobErr error, optFns []func(*dynamodb.Options)) {
	_, err := s.db.DeleteItem(context.WithoutCancel(ctx), &dynamodb.DeleteItemInput{
		TableName: table,
		Key:       s.keyFor(path),
	}, optFns...)
	if err != nil {
		s.reportCompensationFailure(path, blobErr, err)
	}
}

// Get reads an item and, if its content was offloaded, splices the content
// back in from S3. A missing item returns the output unchanged.
func (s *Store) Get(ctx context.Context, input *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	out, err := s.db.GetItem(ctx, input, optFns...)
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return out, nil
	}

	pointer, ok := getStringField(out.Item, s.config.PointerField)
	if !ok || pointer == "" {
		return out, nil
	}

	body, err := s.blobs.Get(ctx, pointer)
	if err != nil {
		return nil, err
	}
	setField(out.Item, s.config.ContentField, decodeContent(body))
	return out, nil
}

// Delete removes an item and its offloaded content. The previous item is
// always returned in Attributes, with content spliced in when it was in S3.
//
// The DynamoDB delete happens first. If the S3 read or delete fails
// afterwards the operation still succeeds; the divergence is logged and
// counted, and any leftover blob is collected by the stream reaper.
func (s *Store) Delete(ctx context.Context, input *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	params := *input
	params.ReturnValues = types.ReturnValueAllOld
	out, err := s.db.DeleteItem(ctx, &params, optFns...)
	if err != nil {
		return nil, err
	}
	if out.Attributes == nil {
		return out, nil
	}

	pointer, ok := getStringField(out.Attributes, s.config.PointerField)
	if !ok || pointer == "" {
		return out, nil
	}

	body, err := s.blobs.Get(ctx, pointer)
	switch {
	case err == nil:
		setField(out.Attributes, s.config.ContentField, decodeContent(body))
	case errors.Is(err, ErrBlobNotFound):
		// Nothing to return; the delete below is harmless.
	default:
		s.reportInconsistency("delete", pointer, err)
	}

	if err := s.blobs.Delete(ctx, pointer); err != nil {
		s.reportInconsistency("delete", pointer, err)
	}
	return out, nil
}

// Locate returns the blob key recorded on the DynamoDB item at key, reading
// only DynamoDB. ok is false when the item is missing or not offloaded.
func (s *Store) Locate(ctx context.Context, table string, key Key) (pointer string, ok bool, err error) {
	projection, names := projectionFor(s.config.PointerField)
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(table),
		Key:                      key,
		ConsistentRead:           aws.Bool(true),
		ProjectionExpression:     aws.String(projection),
		ExpressionAttributeNames: names,
	})
	if err != nil {
		return "", false, err
	}
	if out.Item == nil {
		return "", false, nil
	}
	pointer, ok = getStringField(out.Item, s.config.PointerField)
	return pointer, ok && pointer != "", nil
}

// Pointer returns the blob key recorded on item, if any.
func (s *Store) Pointer(item Item) (string, bool) {
	pointer, ok := getStringField(item, s.config.PointerField)
	return pointer, ok && pointer != ""
}

// BatchGetItem passes through to DynamoDB. Offloaded content is not fetched.
func (s *Store) BatchGetItem(ctx context.Context, input *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	return s.db.BatchGetItem(ctx, input, optFns...)
}

// BatchWriteItem passes through to DynamoDB. Items are not size-routed.
func (s *Store) BatchWriteItem(ctx context.Context, input *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return s.db.BatchWriteItem(ctx, input, optFns...)
}

// Query passes through to DynamoDB.
func (s *Store) Query(ctx context.Context, input *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	return s.db.Query(ctx, input, optFns...)
}

// Scan passes through to DynamoDB.
func (s *Store) Scan(ctx context.Context, input *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return s.db.Scan(ctx, input, optFns...)
}

// keyFor builds the primary key for path.
func (s *Store) keyFor(path string) Key {
	return Key{s.config.PathField: &types.AttributeValueMemberS{Value: path}}
}

// projectionFor builds a projection expression for a dotted field path.
func projectionFor(field string) (string, map[string]string) {
	parts := strings.Split(field, ".")
	names := make(map[string]string, len(parts))
	placeholders := make([]string, len(parts))
	for i, part := range parts {
		placeholder := "#p" + strconv.Itoa(i)
		names[placeholder] = part
		placeholders[i] = placeholder
	}
	return strings.Join(placeholders, "."), names
}
