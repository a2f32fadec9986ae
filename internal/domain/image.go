package domain

import "time"

// ImageStatus enumerates the persisted lifecycle states of an image record.
// A record is created PENDING and transitions exactly once to a terminal
// state; it never transitions afterward.
type ImageStatus string

const (
	ImageStatusPending          ImageStatus = "PENDING"
	ImageStatusComplete         ImageStatus = "COMPLETE"
	ImageStatusProcessingFailed ImageStatus = "PROCESSING_FAILED"
)

// Terminal reports whether the status is a terminal lifecycle state.
func (s ImageStatus) Terminal() bool {
	return s == ImageStatusComplete || s == ImageStatusProcessingFailed
}

// ImageRecord is the durable metadata row representing a stored image,
// independent of the original upload candidate.
type ImageRecord struct {
	ID           string
	Filename     string
	MimeType     string
	StorageKey   string
	StorageURL   string
	ThumbnailKey string
	ThumbnailURL string
	Hash         string
	Status       ImageStatus
	Reason       string
	CreatedBy    string
	UpdatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
