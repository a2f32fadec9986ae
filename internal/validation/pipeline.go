// Package validation implements the ordered content-validation chain for
// uploaded images and its concurrent batch driver.
package validation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/imaging"
	"server/internal/scan"
)

// Config carries the tunable thresholds of the check chain.
type Config struct {
	MaxFileSizeBytes       int64
	AllowedMimeTypes       []string
	MinWidth               int
	MinHeight              int
	BlurVarianceThreshold  float64
	MinFaceAreaRatio       float64
	DuplicateLookupEnabled bool
}

// Pipeline runs the ordered check chain for one candidate. Checks run
// strictly in order and stop at the first failure, so a verdict's Reason
// always names exactly one cause. Hard failures (size, type, empty payload)
// make the candidate non-persistable; soft failures keep it persistable for
// audit and review.
type Pipeline struct {
	cfg      Config
	repo     domain.ImageRepository
	detector domain.FaceDetector
	scanner  *scan.Scanner
	logger   zerolog.Logger
}

// NewPipeline wires the chain against its external capabilities.
func NewPipeline(cfg Config, repo domain.ImageRepository, detector domain.FaceDetector, scanner *scan.Scanner, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		repo:     repo,
		detector: detector,
		scanner:  scanner,
		logger:   logger,
	}
}

// Validate classifies one candidate. It never returns an error: capability
// outages during soft checks surface as a flagged, persistable verdict for
// this candidate alone.
func (p *Pipeline) Validate(ctx context.Context, c domain.UploadCandidate) domain.ValidationVerdict {
	id := uuid.NewString()

	hardFail := func(reason string) domain.ValidationVerdict {
		return domain.ValidationVerdict{ID: id, Accepted: false, Persistable: false, Reason: reason}
	}
	softFail := func(reason string) domain.ValidationVerdict {
		return domain.ValidationVerdict{ID: id, Accepted: false, Persistable: true, Reason: reason}
	}

	// 1. Size cap.
	if c.Size > p.cfg.MaxFileSizeBytes || int64(len(c.Data)) > p.cfg.MaxFileSizeBytes {
		return hardFail("File too large")
	}

	// 2. Declared media type allow-list.
	if !p.mimeAllowed(c.MimeType) {
		return hardFail(fmt.Sprintf("Invalid file type (only %s allowed)", strings.Join(p.cfg.AllowedMimeTypes, ", ")))
	}

	// 3. Non-empty payload.
	if len(c.Data) == 0 {
		return hardFail("File is empty or corrupt")
	}

	// Checks 4-9 work over the decoded buffer. A payload that survives the
	// hard checks but does not decode is kept for manual review.
	img, err := imaging.Decode(c.Data)
	if err != nil {
		return softFail("Image could not be decoded")
	}

	// 4. Minimum resolution.
	bounds := img.Bounds()
	if bounds.Dx() < p.cfg.MinWidth || bounds.Dy() < p.cfg.MinHeight {
		return softFail(fmt.Sprintf("Image resolution too small (min %dx%d)", p.cfg.MinWidth, p.cfg.MinHeight))
	}

	// 5. Duplicate content hash against committed records. Two duplicates
	// inside the same batch are not guaranteed to detect each other; the
	// lookup only sees committed state.
	if p.cfg.DuplicateLookupEnabled {
		verdict, failed := p.checkDuplicate(ctx, c, id)
		if failed {
			return verdict
		}
	}

	// 6. Sharpness estimate.
	if variance := imaging.GrayVariance(img); variance < p.cfg.BlurVarianceThreshold {
		return softFail("Image is too blurry")
	}

	// 7 + 8. Face count and relative face size.
	if verdict, failed := p.checkFaces(ctx, c, id); failed {
		return verdict
	}

	// 9. Malware scan.
	if err := p.scanner.Scan(c.Data); err != nil {
		p.logger.Warn().Err(err).Str("filename", c.Filename).Msg("validation: malware scan rejected payload")
		return softFail("File failed virus scan")
	}

	return domain.ValidationVerdict{ID: id, Accepted: true, Persistable: true}
}

// checkDuplicate hashes the raw upload bytes. Committed records carry the
// hash of the normalized bytes, so formats that get transcoded before
// storage (webp) dedup against their transcoded hash and a raw re-upload of
// the same webp will not match its own committed record.
func (p *Pipeline) checkDuplicate(ctx context.Context, c domain.UploadCandidate, id string) (domain.ValidationVerdict, bool) {
	hash := imaging.SHA256Hex(c.Data)
	existing, err := p.repo.FindByHash(ctx, hash)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.ValidationVerdict{}, false
	case err != nil:
		p.logger.Error().Err(err).Str("filename", c.Filename).Msg("validation: duplicate lookup failed")
		return domain.ValidationVerdict{
			ID:          id,
			Persistable: true,
			Reason:      "Duplicate check unavailable",
		}, true
	case existing != nil:
		return domain.ValidationVerdict{
			ID:          id,
			Persistable: true,
			Reason:      "Image is too similar to an existing one (duplicate)",
		}, true
	}
	return domain.ValidationVerdict{}, false
}

func (p *Pipeline) checkFaces(ctx context.Context, c domain.UploadCandidate, id string) (domain.ValidationVerdict, bool) {
	soft := func(reason string) domain.ValidationVerdict {
		return domain.ValidationVerdict{ID: id, Persistable: true, Reason: reason}
	}

	detection, err := p.detector.Detect(ctx, c.Data)
	if err != nil {
		p.logger.Error().Err(err).Str("filename", c.Filename).Msg("validation: face detection failed")
		return soft("Face detection unavailable"), true
	}
	if detection.FaceCount == 0 {
		return soft("No face detected"), true
	}
	if detection.FaceCount > 1 {
		return soft("Multiple faces detected"), true
	}
	if detection.LargestFaceAreaRatio < p.cfg.MinFaceAreaRatio {
		return soft("Detected face is too small"), true
	}
	return domain.ValidationVerdict{}, false
}

func (p *Pipeline) mimeAllowed(mimeType string) bool {
	for _, allowed := range p.cfg.AllowedMimeTypes {
		if strings.EqualFold(allowed, mimeType) {
			return true
		}
	}
	return false
}
