package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// MutateFunc derives the new version of an item from the current one.
// The current item has offloaded content already spliced in and may be
// modified freely.
type MutateFunc func(current Item) (Item, error)

// Transition is the backend move an Update performs.
type Transition int

const (
	// StaysStructured applies the caller's update expression in DynamoDB.
	StaysStructured Transition = iota
	// StructuredToBlob writes content to S3 and replaces the item with a pointer.
	StructuredToBlob
	// BlobToStructured deletes the blob and writes the full item to DynamoDB.
	BlobToStructured
	// StaysBlob overwrites the blob and leaves DynamoDB untouched.
	StaysBlob
)

func (t Transition) String() string {
	switch t {
	case StaysStructured:
		return "stays_structured"
	case StructuredToBlob:
		return "structured_to_blob"
	case BlobToStructured:
		return "blob_to_structured"
	case StaysBlob:
		return "stays_blob"
	default:
		return fmt.Sprintf("transition(%d)", int(t))
	}
}

// transitionFor picks the transition between two placements.
func transitionFor(from, to Placement) Transition {
	switch {
	case from == PlacementStructured && to == PlacementStructured:
		return StaysStructured
	case from == PlacementStructured && to == PlacementBlob:
		return StructuredToBlob
	case from == PlacementBlob && to == PlacementStructured:
		return BlobToStructured
	default:
		return StaysBlob
	}
}

// migrationPlan lists the backend calls for one transition. Planning does no I/O.
type migrationPlan struct {
	transition Transition
	path       string

	// patch applies the caller's UpdateItem input as is.
	patch bool
	// replace, when set, overwrites the DynamoDB item.
	replace Item
	// blobBody, when set, is written to S3 at path.
	blobBody []byte
	// deleteBlob removes the object at path.
	deleteBlob bool
}

type planner func(s *Store, next Item, path string) (migrationPlan, error)

var planners = map[Transition]planner{
	StaysStructured:  planStaysStructured,
	StructuredToBlob: planStructuredToBlob,
	BlobToStructured: planBlobToStructured,
	StaysBlob:        planStaysBlob,
}

func planStaysStructured(_ *Store, _ Item, path string) (migrationPlan, error) {
	return migrationPlan{transition: StaysStructured, path: path, patch: true}, nil
}

func planStructuredToBlob(s *Store, next Item, path string) (migrationPlan, error) {
	body, err := s.encodeContent(next)
	if err != nil {
		return migrationPlan{}, err
	}
	return migrationPlan{
		transition: StructuredToBlob,
		path:       path,
		replace:    s.toStructured(next, PlacementBlob, path),
		blobBody:   body,
	}, nil
}

func planBlobToStructured(s *Store, next Item, path string) (migrationPlan, error) {
	return migrationPlan{
		transition: BlobToStructured,
		path:       path,
		replace:    s.toStructured(next, PlacementStructured, path),
		deleteBlob: true,
	}, nil
}

func planStaysBlob(s *Store, next Item, path string) (migrationPlan, error) {
	body, err := s.encodeContent(next)
	if err != nil {
		return migrationPlan{}, err
	}
	return migrationPlan{transition: StaysBlob, path: path, blobBody: body}, nil
}

// Update reads the item at input.Key, applies mutate, and stores the result in
// whichever backend its new size calls for, moving content between DynamoDB
// and S3 when the size class changes.
//
// input's update expression is only used when the item stays in DynamoDB.
// The returned Attributes are exactly what mutate produced.
//
// When a transition needs both a DynamoDB and an S3 call they run
// concurrently. The first failure is returned without rolling back the other
// call; if that call succeeded the divergence is logged and counted.
func (s *Store) Update(ctx context.Context, input *dynamodb.UpdateItemInput, mutate MutateFunc, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	current, err := s.Get(ctx, &dynamodb.GetItemInput{
		TableName:      input.TableName,
		Key:            input.Key,
		ConsistentRead: aws.Bool(true),
	}, optFns...)
	if err != nil {
		return nil, err
	}
	if current.Item == nil {
		return nil, ErrNotFound
	}

	old := current.Item
	path, err := s.pathOf(old)
	if err != nil {
		return nil, err
	}

	next, err := mutate(copyItem(old))
	if err != nil {
		return nil, err
	}
	nextPath, err := s.pathOf(next)
	if err != nil {
		return nil, err
	}
	if nextPath != path {
		return nil, fmt.Errorf("%w: %q -> %q", ErrPathChanged, path, nextPath)
	}

	nextPlacement, err := s.evaluate(next)
	if err != nil {
		return nil, err
	}

	transition := transitionFor(s.placementOf(old), nextPlacement)
	plan, err := planners[transition](s, next, path)
	if err != nil {
		return nil, err
	}

	out, err := s.execute(ctx, plan, input, optFns)
	if err != nil {
		return nil, err
	}
	s.metrics.migrated(transition)

	out.Attributes = next
	return out, nil
}

// placementOf reports where a stored item's content currently lives.
// The pointer written by Put is authoritative, not the item's current size.
func (s *Store) placementOf(item Item) Placement {
	if pointer, ok := getStringField(item, s.config.PointerField); ok && pointer != "" {
		return PlacementBlob
	}
	return PlacementStructured
}

// execute issues the calls of a plan.
func (s *Store) execute(ctx context.Context, plan migrationPlan, input *dynamodb.UpdateItemInput, optFns []func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	out := &dynamodb.UpdateItemOutput{}
	var ops []func(context.Context) error

	if plan.patch {
		ops = append(ops, func(ctx context.Context) error {
			res, err := s.db.UpdateItem(ctx, input, optFns...)
			if err != nil {
				return err
			}
			out.ConsumedCapacity = res.ConsumedCapacity
			out.ItemCollectionMetrics = res.ItemCollectionMetrics
			return nil
		})
	}
	if plan.replace != nil {
		ops = append(ops, func(ctx context.Context) error {
			res, err := s.db.PutItem(ctx, &dynamodb.PutItemInput{
				TableName:              input.TableName,
				Item:                   plan.replace,
				ReturnConsumedCapacity: input.ReturnConsumedCapacity,
			}, optFns...)
			if err != nil {
				return err
			}
			out.ConsumedCapacity = res.ConsumedCapacity
			out.ItemCollectionMetrics = res.ItemCollectionMetrics
			return nil
		})
	}
	if plan.blobBody != nil {
		ops = append(ops, func(ctx context.Context) error {
			return s.blobs.Put(ctx, plan.path, plan.blobBody)
		})
	}
	if plan.deleteBlob {
		ops = append(ops, func(ctx context.Context) error {
			return s.blobs.Delete(ctx, plan.path)
		})
	}

	var err error
	switch len(ops) {
	case 1:
		err = ops[0](ctx)
	case 2:
		err = s.runPair(ctx, plan.path, ops[0], ops[1])
	default:
		err = fmt.Errorf("plan %s has %d operations", plan.transition, len(ops))
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// runPair runs two calls concurrently and returns the first error without
// waiting for, or cancelling, the other call. A success paired with a
// failure is reported once both have finished.
func (s *Store) runPair(ctx context.Context, path string, a, b func(context.Context) error) error {
	errs := make(chan error, 2)
	for _, op := range []func(context.Context) error{a, b} {
		go func(op func(context.Context) error) {
			errs <- op(ctx)
		}(op)
	}

	first := <-errs
	if first != nil {
		go func() {
			if second := <-errs; second == nil {
				s.reportInconsistency("update", path, first)
			}
		}()
		return first
	}
	if second := <-errs; second != nil {
		s.reportInconsistency("update", path, second)
		return second
	}
	return nil
}
