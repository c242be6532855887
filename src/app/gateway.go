package app

import (
	"context"
	"io"
)

// ListPageSize caps one ListObjects call, matching the S3 page size.
const ListPageSize = 1000

// Gateway is a passthrough over object-store primitives. Implementations do
// not retry; errors are wrapped, and only a missing bucket on HeadBucket is
// translated (to ErrBucketNotFound).
type Gateway interface {
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	// ListObjects returns at most ListPageSize objects.
	ListObjects(ctx context.Context, bucket string) ([]ObjectInfo, error)
	HeadObject(ctx context.Context, bucket, key string) (ObjectInfo, error)
	HeadBucket(ctx context.Context, bucket string) error
	CreateBucket(ctx context.Context, bucket string) error
	ListBuckets(ctx context.Context) ([]string, error)
}
