package app

import "errors"

var (
	// ErrInvalidArgument marks caller mistakes, e.g. a URL outside the configured bucket.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUpload wraps any failure while storing an image.
	ErrUpload = errors.New("failed to upload image")
	// ErrFetch wraps any failure while reading an image back.
	ErrFetch = errors.New("failed to fetch image")
	// ErrBucketNotFound is the only store error the gateways translate.
	ErrBucketNotFound = errors.New("bucket not found")
)
