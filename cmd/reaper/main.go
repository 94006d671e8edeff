// Command reaper is an AWS Lambda function that consumes a DynamoDB stream
// and deletes S3 blobs no longer referenced by any item.
//
// Environment:
//
//	OFFLOAD_BUCKET         bucket holding offloaded content (required)
//	OFFLOAD_POINTER_FIELD  dotted path of the pointer attribute
//	OFFLOAD_PATH_FIELD     partition key attribute
//	OFFLOAD_LOG_LEVEL      debug, info, warn or error
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/jacentio/offload/store"
	"github.com/jacentio/offload/stream"
)

func main() {
	handler, err := newHandler(context.Background(), os.Getenv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reaper: %v\n", err)
		os.Exit(1)
	}
	lambda.Start(handler.HandleOrphans)
}

func newHandler(ctx context.Context, getenv func(string) string) (*stream.Handler, error) {
	var level slog.Level
	if v := getenv("OFFLOAD_LOG_LEVEL"); v != "" {
		if err := level.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("OFFLOAD_LOG_LEVEL: %w", err)
		}
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	cfg, err := storeConfig(getenv)
	if err != nil {
		return nil, err
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	s, err := store.NewFromConfig(awsCfg, cfg)
	if err != nil {
		return nil, err
	}
	s.SetLogger(logger)

	blobs := store.NewS3Blobs(s3.NewFromConfig(awsCfg), cfg.Bucket)
	return stream.NewHandler(s, blobs, logger), nil
}

// storeConfig builds the store configuration from the environment.
func storeConfig(getenv func(string) string) (store.Config, error) {
	bucket := getenv("OFFLOAD_BUCKET")
	if bucket == "" {
		return store.Config{}, fmt.Errorf("OFFLOAD_BUCKET is required")
	}
	cfg := store.DefaultConfig(bucket)
	if v := getenv("OFFLOAD_POINTER_FIELD"); v != "" {
		cfg.PointerField = v
	}
	if v := getenv("OFFLOAD_PATH_FIELD"); v != "" {
		cfg.PathField = v
	}
	return cfg, nil
}
