// Package s3 stores frames as objects in Amazon S3 or an S3-compatible
// service (MinIO, Localstack).
//
// Key Design:
//   - One object per frame: <prefix><clip key>/<index, 8 digits>
//   - Clip deletion lists the clip prefix and removes objects in batches
//   - The bucket must already exist
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/stonify/pkg/store/frame"
)

// API is the subset of the S3 client the store uses. *s3.Client
// implements it.
type API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	s3.ListObjectsV2APIClient
}

var _ API = (*s3.Client)(nil)

// S3FrameStore implements frame.Store on S3.
type S3FrameStore struct {
	client    API
	bucket    string
	keyPrefix string
	metrics   Metrics
}

// S3FrameStoreConfig contains configuration for the S3 frame store.
type S3FrameStoreConfig struct {
	// Client is the configured S3 client
	Client API

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	// Example: "stonify/frames/" results in keys like "stonify/frames/vol/proj/1a2b/00000000"
	KeyPrefix string

	// Metrics is optional; nil disables collection.
	Metrics Metrics
}

// NewS3FrameStore verifies bucket access and returns the store.
func NewS3FrameStore(ctx context.Context, cfg S3FrameStoreConfig) (*S3FrameStore, error) {
	// ========================================================================
	// Step 1: Check context and validate configuration
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	// ========================================================================
	// Step 2: Verify bucket access
	// ========================================================================

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	return &S3FrameStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
		metrics:   metrics,
	}, nil
}

var _ frame.Store = (*S3FrameStore)(nil)

func (s *S3FrameStore) objectKey(clipID string, index int) string {
	return s.keyPrefix + frame.FrameKey(clipID, index)
}

func (s *S3FrameStore) ReadFrame(ctx context.Context, clipID string, index int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := frame.ValidateAddress(clipID, index); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(clipID, index)),
	})
	if err != nil {
		s.metrics.ObserveOperation("GetObject", time.Since(start), err)
		var notFound *types.NoSuchKey
		if errors.As(err, &notFound) {
			return nil, frame.NotFound(clipID, index)
		}
		return nil, fmt.Errorf("failed to get frame %d of %s: %w", index, clipID, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	s.metrics.ObserveOperation("GetObject", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame %d of %s: %w", index, clipID, err)
	}
	s.metrics.RecordBytes("read", int64(len(data)))
	return data, nil
}

func (s *S3FrameStore) WriteFrame(ctx context.Context, clipID string, index int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := frame.ValidateAddress(clipID, index); err != nil {
		return err
	}

	start := time.Now()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(clipID, index)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	s.metrics.ObserveOperation("PutObject", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to put frame %d of %s: %w", index, clipID, err)
	}
	s.metrics.RecordBytes("write", int64(len(data)))
	return nil
}

// DeleteClip lists the clip's frame objects and deletes them, at most 1000
// per request.
func (s *S3FrameStore) DeleteClip(ctx context.Context, clipID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if frame.ClipKey(clipID) == "" {
		return fmt.Errorf("invalid clip id %q", clipID)
	}

	prefix := s.keyPrefix + frame.ClipKey(clipID) + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	for paginator.HasMorePages() {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		page, err := paginator.NextPage(ctx)
		s.metrics.ObserveOperation("ListObjectsV2", time.Since(start), err)
		if err != nil {
			return fmt.Errorf("failed to list frames of %s: %w", clipID, err)
		}

		objects := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}
		if err := s.deleteBatch(ctx, objects); err != nil {
			return fmt.Errorf("failed to delete frames of %s: %w", clipID, err)
		}
	}
	return nil
}

func (s *S3FrameStore) deleteBatch(ctx context.Context, objects []types.ObjectIdentifier) error {
	// S3 allows max 1000 objects per delete request
	const maxBatchSize = 1000

	for i := 0; i < len(objects); i += maxBatchSize {
		end := min(i+maxBatchSize, len(objects))

		start := time.Now()
		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects[i:end],
				Quiet:   aws.Bool(true),
			},
		})
		s.metrics.ObserveOperation("DeleteObjects", time.Since(start), err)
		if err != nil {
			return err
		}

		if len(result.Errors) > 0 {
			msgs := make([]string, 0, len(result.Errors))
			for _, e := range result.Errors {
				msgs = append(msgs, fmt.Sprintf("%s: %s", aws.ToString(e.Key), aws.ToString(e.Message)))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
	}
	return nil
}

func (s *S3FrameStore) Close() error {
	return nil
}
