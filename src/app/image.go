package app

import "time"

// ImageMetadata represents an image stored in an S3 bucket.
type ImageMetadata struct {
	// The key (object name) of the image in the bucket.
	Key string `json:"key"`

	// The externally resolvable URL of the image.
	URL string `json:"url"`

	// The MIME type of the image (e.g., "image/jpeg", "image/png").
	ContentType string `json:"contentType,omitempty"`

	// The size of the image in bytes.
	Size *int64 `json:"size,omitempty"`

	LastModified *time.Time `json:"lastModified,omitempty"`
}

// UploadResult is returned once per upload.
type UploadResult struct {
	Message string `json:"message"`
	Key     string `json:"key"`
	URL     string `json:"url"`
}

// ObjectInfo is what the gateway reports for a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}
