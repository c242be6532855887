package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type ClientMinio interface {
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (info minio.UploadInfo, err error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
}

// MinioS3Client is the default Gateway. minio-go always talks path-style to
// custom endpoints, which is what LocalStack and MinIO expect.
type MinioS3Client struct {
	region string
	client ClientMinio
}

const defaultContentType = "application/octet-stream"

var _ Gateway = (*MinioS3Client)(nil)

// NewMinioS3Client creates a new MinioS3Client instance. endpoint is a full
// URL; its scheme decides whether TLS is used.
func NewMinioS3Client(endpoint, region, accessKeyID, secretAccessKey string) (*MinioS3Client, error) {
	host, useSSL, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	minioClient, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for %s: %w", host, err)
	}

	return NewMinioS3ClientWith(minioClient, region), nil
}

// NewMinioS3ClientWith wraps an existing client.
func NewMinioS3ClientWith(client ClientMinio, region string) *MinioS3Client {
	return &MinioS3Client{region: region, client: client}
}

func splitEndpoint(endpoint string) (string, bool, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	return u.Host, strings.EqualFold(u.Scheme, "https"), nil
}

func (s3 *MinioS3Client) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = defaultContentType
	}
	_, err := s3.client.PutObject(ctx, bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s3 *MinioS3Client) GetObject(ctx context.Context, bucket, key string) ([]byte, ObjectInfo, error) {
	object, err := s3.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	defer object.Close()

	// minio defers the request until the first Stat or Read
	stat, err := object.Stat()
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("get object %s/%s: %w", bucket, key, err)
	}
	data, err := io.ReadAll(object)
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("read object %s/%s: %w", bucket, key, err)
	}
	return data, toObjectInfo(stat), nil
}

func (s3 *MinioS3Client) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := s3.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s/%s: %w", bucket, key, err)
	}
	return nil
}

func (s3 *MinioS3Client) ListObjects(ctx context.Context, bucket string) ([]ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make([]ObjectInfo, 0)
	// minio keeps paging behind the channel; cancelling stops it after one page
	objectCh := s3.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true, MaxKeys: ListPageSize})
	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("list objects %s: %w", bucket, object.Err)
		}
		result = append(result, toObjectInfo(object))
		if len(result) == ListPageSize {
			break
		}
	}
	return result, nil
}

func (s3 *MinioS3Client) HeadObject(ctx context.Context, bucket, key string) (ObjectInfo, error) {
	object, err := s3.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat object %s/%s: %w", bucket, key, err)
	}
	return toObjectInfo(object), nil
}

func (s3 *MinioS3Client) HeadBucket(ctx context.Context, bucket string) error {
	exists, err := s3.client.BucketExists(ctx, bucket)
	if err != nil {
		if minio.ToErrorResponse(err).StatusCode == http.StatusNotFound {
			return fmt.Errorf("head bucket %s: %w", bucket, ErrBucketNotFound)
		}
		return fmt.Errorf("head bucket %s: %w", bucket, err)
	}
	if !exists {
		return fmt.Errorf("head bucket %s: %w", bucket, ErrBucketNotFound)
	}
	return nil
}

func (s3 *MinioS3Client) CreateBucket(ctx context.Context, bucket string) error {
	if err := s3.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s3.region}); err != nil {
		return fmt.Errorf("make bucket %s: %w", bucket, err)
	}
	return nil
}

func (s3 *MinioS3Client) ListBuckets(ctx context.Context) ([]string, error) {
	buckets, err := s3.client.ListBuckets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}
	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.Name)
	}
	return names, nil
}

func toObjectInfo(object minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          object.Key,
		Size:         object.Size,
		LastModified: object.LastModified,
		ContentType:  object.ContentType,
	}
}
