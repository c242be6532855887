package app

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"imageserv/src/metrics"
)

// ImageService maps image operations onto a Gateway. It holds no mutable
// state; endpoint and default bucket are fixed at construction.
type ImageService struct {
	gateway       Gateway
	endpoint      string
	defaultBucket string
	log           zerolog.Logger
}

func NewImageService(gateway Gateway, endpoint, defaultBucket string, log zerolog.Logger) *ImageService {
	return &ImageService{
		gateway:       gateway,
		endpoint:      strings.TrimRight(endpoint, "/"),
		defaultBucket: defaultBucket,
		log:           log,
	}
}

// ResolveBucket returns bucket when it is non-blank, the default otherwise.
func (s *ImageService) ResolveBucket(bucket string) string {
	if strings.TrimSpace(bucket) != "" {
		return bucket
	}
	return s.defaultBucket
}

// Extension is everything from the last dot of name, dot included.
func Extension(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

// UploadImage stores data under a fresh "<uuid><ext>" key and returns the key.
// A missing or generic content type is replaced by one sniffed from data.
func (s *ImageService) UploadImage(ctx context.Context, data []byte, fileName, contentType, bucket string) (string, error) {
	bucket = s.ResolveBucket(bucket)
	key := uuid.New().String() + Extension(fileName)

	if contentType == "" || contentType == defaultContentType {
		contentType = mimetype.Detect(data).String()
	}

	if err := s.gateway.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		metrics.StorageErrors.WithLabelValues("put").Inc()
		s.log.Error().Err(err).Str("bucket", bucket).Str("key", key).Msg("upload failed")
		return "", fmt.Errorf("%w: %w", ErrUpload, err)
	}

	metrics.ImagesUploaded.Inc()
	metrics.UploadedBytes.Add(float64(len(data)))
	s.log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Str("content_type", contentType).
		Str("size", humanize.Bytes(uint64(len(data)))).
		Msg("image uploaded")
	return key, nil
}

// GetImage returns the stored bytes and the content type recorded at upload.
// Objects stored without a usable type get one sniffed from their bytes.
func (s *ImageService) GetImage(ctx context.Context, key, bucket string) ([]byte, string, error) {
	bucket = s.ResolveBucket(bucket)
	data, info, err := s.gateway.GetObject(ctx, bucket, key)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("get").Inc()
		return nil, "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	contentType := info.ContentType
	if contentType == "" || contentType == defaultContentType {
		contentType = mimetype.Detect(data).String()
	}
	return data, contentType, nil
}

// DeleteImage does not check that key exists; the store treats a missing key as a no-op.
func (s *ImageService) DeleteImage(ctx context.Context, key, bucket string) error {
	bucket = s.ResolveBucket(bucket)
	if err := s.gateway.DeleteObject(ctx, bucket, key); err != nil {
		metrics.StorageErrors.WithLabelValues("delete").Inc()
		return err
	}
	metrics.ImagesDeleted.Inc()
	return nil
}

// ListImages returns one listing page in store order.
func (s *ImageService) ListImages(ctx context.Context, bucket string) ([]ImageMetadata, error) {
	bucket = s.ResolveBucket(bucket)
	objects, err := s.gateway.ListObjects(ctx, bucket)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("list").Inc()
		return nil, err
	}

	result := make([]ImageMetadata, 0, len(objects))
	for _, object := range objects {
		result = append(result, s.toMetadata(object, bucket))
	}
	return result, nil
}

// GetImageURL builds "{endpoint}/{bucket}/{key}". Each key segment is
// path-escaped, so URL-safe keys come out verbatim.
func (s *ImageService) GetImageURL(key, bucket string) string {
	return s.prefix(s.ResolveBucket(bucket)) + escapeKey(key)
}

// GetMetadataFromURL is the inverse of GetImageURL. The record is enriched
// from a head call when the object can be reached; otherwise only key and url
// are set.
func (s *ImageService) GetMetadataFromURL(ctx context.Context, rawURL, bucket string) (ImageMetadata, error) {
	bucket = s.ResolveBucket(bucket)
	prefix := s.prefix(bucket)
	if !strings.HasPrefix(rawURL, prefix) {
		return ImageMetadata{}, fmt.Errorf("%w: URL does not match expected S3 format %q", ErrInvalidArgument, prefix)
	}

	key, err := url.PathUnescape(rawURL[len(prefix):])
	if err != nil {
		return ImageMetadata{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	metadata := ImageMetadata{Key: key, URL: rawURL}
	info, err := s.gateway.HeadObject(ctx, bucket, key)
	if err != nil {
		s.log.Debug().Err(err).Str("bucket", bucket).Str("key", key).Msg("head failed, returning shallow metadata")
		return metadata, nil
	}
	metadata.ContentType = info.ContentType
	metadata.Size = &info.Size
	if !info.LastModified.IsZero() {
		metadata.LastModified = &info.LastModified
	}
	return metadata, nil
}

func (s *ImageService) ListBuckets(ctx context.Context) ([]string, error) {
	buckets, err := s.gateway.ListBuckets(ctx)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("list_buckets").Inc()
		return nil, err
	}
	return buckets, nil
}

func (s *ImageService) prefix(bucket string) string {
	return fmt.Sprintf("%s/%s/", s.endpoint, bucket)
}

func (s *ImageService) toMetadata(object ObjectInfo, bucket string) ImageMetadata {
	metadata := ImageMetadata{
		Key:         object.Key,
		URL:         s.GetImageURL(object.Key, bucket),
		ContentType: object.ContentType,
		Size:        &object.Size,
	}
	if !object.LastModified.IsZero() {
		metadata.LastModified = &object.LastModified
	}
	return metadata
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
