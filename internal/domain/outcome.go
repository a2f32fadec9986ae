package domain

// OutcomeStatus is the response-level classification of a candidate. It is
// never persisted; persisted records use ImageStatus. A persisted record is
// never "REJECTED"; rejection means the candidate was not stored at all.
type OutcomeStatus string

const (
	// OutcomeAccepted: every check passed and processing completed.
	OutcomeAccepted OutcomeStatus = "ACCEPTED"
	// OutcomeFlagged: a soft check failed; the file was stored for review.
	OutcomeFlagged OutcomeStatus = "FLAGGED"
	// OutcomeRejected: a hard check failed; the file was never stored.
	OutcomeRejected OutcomeStatus = "REJECTED"
	// OutcomeFailed: the file passed hard checks but post-acceptance
	// processing (transcode/hash/upload/thumbnail) failed.
	OutcomeFailed OutcomeStatus = "FAILED"
)

// UploadOutcome is the per-candidate entry of a BatchResult.
type UploadOutcome struct {
	ID       string
	Filename string
	Status   OutcomeStatus
	Reason   string

	// Storage locations, set only for persisted candidates.
	StorageKey   string
	StorageURL   string
	ThumbnailKey string
	ThumbnailURL string

	// ThumbnailURLError reports a failed signed-URL resolution for this
	// candidate only; it never fails the batch.
	ThumbnailURLError string

	// ProcessingError carries the failure behind OutcomeFailed.
	ProcessingError string
}

// BatchResult is the consolidated response for one upload request. It
// mirrors the input file order and always has one entry per candidate;
// rejected files are reported, never dropped.
type BatchResult []UploadOutcome
