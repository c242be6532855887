package app

import (
	"context"
	"errors"
	"fmt"
)

// EnsureBucket creates the default bucket when the store reports it missing.
// Any other error is returned as-is and should stop startup.
func (s *ImageService) EnsureBucket(ctx context.Context) error {
	err := s.gateway.HeadBucket(ctx, s.defaultBucket)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrBucketNotFound) {
		return fmt.Errorf("failed to verify bucket %s: %w", s.defaultBucket, err)
	}

	s.log.Info().Str("bucket", s.defaultBucket).Msg("bucket doesn't exist, creating")
	if err := s.gateway.CreateBucket(ctx, s.defaultBucket); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.defaultBucket, err)
	}
	return nil
}
