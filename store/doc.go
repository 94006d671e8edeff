// Package store provides a DynamoDB client that transparently moves large item
// content to S3.
//
// DynamoDB rejects items above 400 KB. A [Store] measures every item it writes
// in DynamoDB's wire format and, when the item is over that limit, stores the
// content attribute in S3 and leaves a pointer attribute in DynamoDB. Reads
// splice the content back in, so callers always see the logical item.
//
// # Layout
//
// With [DefaultConfig] an offloaded item looks like this in DynamoDB:
//
//	{
//	    "Path":       {"S": "path/to/document"},
//	    "Attributes": {"M": {"S3Key": {"S": "path/to/document"}}}
//	}
//
// and the S3 object at key "path/to/document" holds the Content attribute
// encoded as DynamoDB JSON.
//
// # Operations
//
//   - [Store.Put] writes DynamoDB first, then S3; a failed S3 write deletes the
//     DynamoDB item again and returns the S3 error.
//   - [Store.Get] reads DynamoDB, then S3 if the item carries a pointer.
//   - [Store.Delete] deletes from DynamoDB, then reads and deletes the blob.
//   - [Store.Update] applies a [MutateFunc] and performs one of four
//     [Transition]s when the item changes size class.
//   - BatchGetItem, BatchWriteItem, Query and Scan pass through unchanged and
//     do not resolve offloaded content.
//
// # Concurrency
//
// A Store keeps no per-item state. Operations on the same path are not
// serialized: two concurrent Puts, or an Update racing a Delete, can leave the
// DynamoDB item and its blob out of step. Callers that need stronger
// guarantees must serialize access per path themselves.
//
// # Errors
//
//   - [ErrDocumentTooLarge] - item exceeds Config.MaxDocumentSize (checked before any I/O)
//   - [ErrNoContent] - item is over the DynamoDB limit without content to offload
//   - [ErrNotFound] - Update target doesn't exist
//   - [ErrPathChanged] - an Update mutation changed the path attribute
//   - [ErrBlobNotFound] - an item's pointer refers to a missing object
//
// Errors from DynamoDB and S3 are returned unchanged. Failures that cannot be
// returned without hiding the primary error (a failed Put rollback, a blob
// left behind after Delete or a partial Update) are logged and counted in
// [Metrics] instead.
package store
