package domain

import (
	"context"
	"io"
	"time"
)

// ImageRepository defines persistence for image metadata records.
type ImageRepository interface {
	// CreateMany inserts all records atomically: either every record is
	// visible after the call returns, or none is.
	CreateMany(ctx context.Context, records []ImageRecord) error
	// UpdateStatus sets the lifecycle status and, when hash is non-empty,
	// the content hash.
	UpdateStatus(ctx context.Context, id string, status ImageStatus, hash string) error
	// UpdateStorageInfo sets both storage locations for the record.
	UpdateStorageInfo(ctx context.Context, id, storageKey, storageURL, thumbKey, thumbURL string) error
	// FindByHash returns the first record with the given content hash, or
	// ErrNotFound.
	FindByHash(ctx context.Context, hash string) (*ImageRecord, error)
	// GetByID returns the record with the given id, or ErrNotFound.
	GetByID(ctx context.Context, id string) (*ImageRecord, error)
}

// BlobStore abstracts durable object storage for original images and
// thumbnails. Implementations must be safe for concurrent use.
type BlobStore interface {
	// Upload stores the bytes under key and returns the object URL.
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// SignedURL returns a time-limited access URL for the object.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	// GetStream opens the stored object for reading, or returns
	// ErrNotFound. The caller owns the returned reader.
	GetStream(ctx context.Context, key string) (io.ReadCloser, error)
}

// FaceDetection is the result of a face probe over raw image bytes.
type FaceDetection struct {
	FaceCount int
	// LargestFaceAreaRatio is the area of the largest detected face
	// bounding box relative to the whole image, in [0, 1].
	LargestFaceAreaRatio float64
}

// FaceDetector is the external face-detection capability.
type FaceDetector interface {
	Detect(ctx context.Context, data []byte) (FaceDetection, error)
}
