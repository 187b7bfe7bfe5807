package dataset

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Prefix roots all dataset snapshots within the bucket.
const s3Prefix = "datasets/"

// S3Store loads versioned dataset snapshots stored as JSONL objects under
// datasets/<name>/v<version>.jsonl in one bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store builds a store using the ambient AWS configuration (environment
// credentials, shared config, or instance role).
func NewS3Store(ctx context.Context, bucket string) (*S3Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 dataset store requires a bucket")
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &S3Store{client: s3.NewFromConfig(cfg), bucket: bucket}, nil
}

// NewS3StoreFromClient builds a store around an existing client, used by
// tests and callers with custom endpoints.
func NewS3StoreFromClient(client *s3.Client, bucket string) *S3Store {
	return &S3Store{client: client, bucket: bucket}
}

// Load fetches and parses the named snapshot version.
func (s *S3Store) Load(ctx context.Context, name string, version int) (Memory, error) {
	key := s3Prefix + snapshotKey(name, version)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("fetching s3://%s/%s: %w", s.bucket, key, err)
	}
	defer out.Body.Close()

	records, err := decodeJSONL(out.Body)
	if err != nil {
		return nil, fmt.Errorf("dataset s3://%s/%s: %w", s.bucket, key, err)
	}
	return records, nil
}
