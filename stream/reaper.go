// Package stream provides DynamoDB Streams handlers that collect blobs left
// behind by store operations.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/offload/store"
)

// Handler processes DynamoDB stream events and deletes orphaned blobs.
type Handler struct {
	store  *store.Store
	blobs  store.BlobStore
	logger *slog.Logger
}

// NewHandler creates a new stream handler. blobs must address the bucket
// the store writes to.
func NewHandler(s *store.Store, blobs store.BlobStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  s,
		blobs:  blobs,
		logger: logger,
	}
}

// HandleOrphans deletes the blob referenced by an item's old image once no
// live item references it. It handles REMOVE records, and MODIFY records
// where the pointer was dropped or replaced.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleOrphans(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	orphan, ok := h.orphanOf(record)
	if !ok {
		return nil
	}

	table, err := TableFromARN(record.EventSourceArn)
	if err != nil {
		return err
	}

	// The stream lags the table: a later Put may have pointed the item at
	// the same key again.
	key := ConvertStreamKey(record.Change.Keys)
	live, ok, err := h.store.Locate(ctx, table, key)
	if err != nil {
		return fmt.Errorf("locate item: %w", err)
	}
	if ok && live == orphan {
		h.logger.Debug("blob still referenced", "key", orphan, "table", table)
		return nil
	}

	if err := h.blobs.Delete(ctx, orphan); err != nil {
		if errors.Is(err, store.ErrBlobNotFound) {
			return nil
		}
		return fmt.Errorf("delete blob %s: %w", orphan, err)
	}

	h.logger.Info("deleted orphaned blob",
		"key", orphan,
		"table", table,
		"event", record.EventName,
	)
	return nil
}

// orphanOf returns the blob key a record may have orphaned.
func (h *Handler) orphanOf(record events.DynamoDBEventRecord) (string, bool) {
	var oldPointer, newPointer string
	if image := record.Change.OldImage; image != nil {
		oldPointer, _ = h.store.Pointer(ConvertStreamImage(image))
	}
	if oldPointer == "" {
		return "", false
	}

	switch record.EventName {
	case "REMOVE":
		return oldPointer, true
	case "MODIFY":
		if image := record.Change.NewImage; image != nil {
			newPointer, _ = h.store.Pointer(ConvertStreamImage(image))
		}
		if newPointer == oldPointer {
			return "", false
		}
		return oldPointer, true
	default:
		return "", false
	}
}

// TableFromARN extracts the table name from a stream or table ARN, e.g.
// arn:aws:dynamodb:us-east-1:123456789012:table/Docs/stream/2024-01-01T00:00:00.000.
func TableFromARN(arn string) (string, error) {
	_, resource, ok := strings.Cut(arn, ":table/")
	if !ok {
		return "", fmt.Errorf("no table in event source ARN %q", arn)
	}
	name, _, _ := strings.Cut(resource, "/")
	if name == "" {
		return "", fmt.Errorf("no table in event source ARN %q", arn)
	}
	return name, nil
}

// ConvertStreamKey converts a DynamoDB stream key to a store.Key.
// Use this when you need to convert keys from stream records to store operations.
func ConvertStreamKey(streamKey map[string]events.DynamoDBAttributeValue) store.Key {
	result := make(store.Key)
	for k, v := range streamKey {
		switch v.DataType() {
		case events.DataTypeString:
			result[k] = &types.AttributeValueMemberS{Value: v.String()}
		case events.DataTypeNumber:
			result[k] = &types.AttributeValueMemberN{Value: v.Number()}
		case events.DataTypeBinary:
			result[k] = &types.AttributeValueMemberB{Value: v.Binary()}
		}
	}
	return result
}

// ConvertStreamImage converts a stream image to a store.Item.
func ConvertStreamImage(image map[string]events.DynamoDBAttributeValue) store.Item {
	result := make(store.Item, len(image))
	for k, v := range image {
		if av := convertValue(v); av != nil {
			result[k] = av
		}
	}
	return result
}

func convertValue(v events.DynamoDBAttributeValue) types.AttributeValue {
	switch v.DataType() {
	case events.DataTypeString:
		return &types.AttributeValueMemberS{Value: v.String()}
	case events.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: v.Number()}
	case events.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: v.Binary()}
	case events.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: v.Boolean()}
	case events.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: true}
	case events.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: v.StringSet()}
	case events.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: v.NumberSet()}
	case events.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: v.BinarySet()}
	case events.DataTypeList:
		list := make([]types.AttributeValue, 0, len(v.List()))
		for _, elem := range v.List() {
			if av := convertValue(elem); av != nil {
				list = append(list, av)
			}
		}
		return &types.AttributeValueMemberL{Value: list}
	case events.DataTypeMap:
		return &types.AttributeValueMemberM{Value: ConvertStreamImage(v.Map())}
	default:
		return nil
	}
}
