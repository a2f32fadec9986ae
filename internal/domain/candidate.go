package domain

// UploadCandidate is one file submitted in a batch upload, prior to any
// persistence decision. It only lives for the duration of a single request.
type UploadCandidate struct {
	Filename string
	MimeType string
	Size     int64
	Data     []byte
}

// ValidationVerdict is the pipeline's classification of a candidate. It is
// immutable after creation.
//
// Invariants: Accepted implies Persistable and an empty Reason. A
// non-persistable verdict is never accepted and always carries a Reason.
// Reason holds the first failing check only; the chain short-circuits.
type ValidationVerdict struct {
	// ID identifies the candidate for the rest of the pipeline. It is
	// generated during validation and independent of any storage key.
	ID          string
	Accepted    bool
	Persistable bool
	Reason      string
}
