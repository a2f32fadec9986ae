// Package ingest turns validation verdicts into storage writes, metadata
// updates and a consolidated batch result.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"server/internal/domain"
	"server/internal/imaging"
	"server/internal/queue"
)

// Config carries the orchestrator's processing knobs.
type Config struct {
	// ThumbnailWidthPx is the fixed thumbnail width; height follows the
	// source aspect ratio.
	ThumbnailWidthPx int
	// SignedURLTTL bounds the lifetime of resolved thumbnail URLs.
	SignedURLTTL time.Duration
	// CallTimeout bounds each individual storage call.
	CallTimeout time.Duration
	// Workers caps per-record processing concurrency, independent of batch
	// size.
	Workers int
}

// Orchestrator drives post-validation processing. Adapters are injected
// once at construction and shared across batches.
type Orchestrator struct {
	cfg    Config
	repo   domain.ImageRepository
	store  domain.BlobStore
	tasks  queue.TaskQueue
	logger zerolog.Logger
}

// NewOrchestrator wires the orchestrator against its capabilities.
func NewOrchestrator(cfg Config, repo domain.ImageRepository, store domain.BlobStore, tasks queue.TaskQueue, logger zerolog.Logger) *Orchestrator {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = 5 * time.Minute
	}
	return &Orchestrator{cfg: cfg, repo: repo, store: store, tasks: tasks, logger: logger}
}

// processOutcome captures the result of one record's processing run.
type processOutcome struct {
	storageKey   string
	storageURL   string
	thumbKey     string
	thumbURL     string
	signedURL    string
	signedURLErr error
	processErr   error
}

// Ingest persists every persistable candidate and assembles the ordered
// batch result. Only a failed metadata batch-create is fatal for the
// request; every other failure stays scoped to its candidate.
func (o *Orchestrator) Ingest(ctx context.Context, candidates []domain.UploadCandidate, verdicts []domain.ValidationVerdict, actor string) (domain.BatchResult, error) {
	if len(candidates) != len(verdicts) {
		return nil, fmt.Errorf("ingest: %d candidates but %d verdicts", len(candidates), len(verdicts))
	}
	if actor == "" {
		actor = "system"
	}

	// Step 1: partition. persistable maps verdict index to its record.
	persistable := make(map[int]*domain.ImageRecord)
	records := make([]domain.ImageRecord, 0, len(verdicts))
	for i, v := range verdicts {
		if !v.Persistable {
			continue
		}
		records = append(records, domain.ImageRecord{
			ID:        v.ID,
			Filename:  candidates[i].Filename,
			MimeType:  candidates[i].MimeType,
			Status:    domain.ImageStatusPending,
			Reason:    v.Reason,
			CreatedBy: actor,
			UpdatedBy: actor,
		})
		persistable[i] = &records[len(records)-1]
	}

	// Step 2: batch-create PENDING records. Processing never starts against
	// a record that does not yet exist in the repository.
	if len(records) > 0 {
		if err := o.repo.CreateMany(ctx, records); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrBatchFatal, err)
		}
	}

	// Step 3 runs detached from the request context: once metadata exists,
	// a client disconnect must not strand records mid-processing. Each
	// storage call still carries its own timeout.
	procCtx := context.WithoutCancel(ctx)

	outcomes := make(map[int]*processOutcome, len(persistable))
	var g errgroup.Group
	g.SetLimit(o.cfg.Workers)
	for i, rec := range persistable {
		i, rec := i, rec
		out := &processOutcome{}
		outcomes[i] = out
		g.Go(func() error {
			o.process(procCtx, candidates[i], rec, out)
			return nil
		})
	}
	_ = g.Wait()

	// Step 4: resolve a time-limited thumbnail URL for every persistable
	// record, terminal status notwithstanding. Failures attach to the
	// candidate, never to the batch.
	var urlGroup errgroup.Group
	urlGroup.SetLimit(o.cfg.Workers)
	for i, rec := range persistable {
		rec := rec
		out := outcomes[i]
		urlGroup.Go(func() error {
			urlCtx, cancel := context.WithTimeout(procCtx, o.cfg.CallTimeout)
			defer cancel()
			thumbKey := out.thumbKey
			if thumbKey == "" {
				thumbKey = thumbnailKey(rec.ID)
			}
			url, err := o.store.SignedURL(urlCtx, thumbKey, o.cfg.SignedURLTTL)
			if err != nil {
				out.signedURLErr = err
				return nil
			}
			out.signedURL = url
			return nil
		})
	}
	_ = urlGroup.Wait()

	return o.assemble(candidates, verdicts, persistable, outcomes), nil
}

// process runs normalize → hash → upload → thumbnail → metadata update for
// one record and downgrades every failure to a terminal PROCESSING_FAILED
// state. It never panics past the worker and never aborts siblings.
func (o *Orchestrator) process(ctx context.Context, c domain.UploadCandidate, rec *domain.ImageRecord, out *processOutcome) {
	fail := func(stage string, err error) {
		out.processErr = fmt.Errorf("%s: %w", stage, err)
		o.logger.Error().Err(err).Str("image_id", rec.ID).Str("stage", stage).Msg("ingest: processing failed")
		updCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
		defer cancel()
		if uerr := o.repo.UpdateStatus(updCtx, rec.ID, domain.ImageStatusProcessingFailed, ""); uerr != nil {
			o.logger.Error().Err(uerr).Str("image_id", rec.ID).Msg("ingest: failed to mark record failed")
		}
	}

	// a. Normalize non-canonical formats before any further step.
	data, contentType, ext, err := imaging.Normalize(c.Data, c.MimeType)
	if err != nil {
		fail("normalize", err)
		return
	}

	// b. Content hash of the possibly transcoded bytes.
	hash := imaging.SHA256Hex(data)

	// c. Upload the original under a key derived from the record id.
	key := fmt.Sprintf("%s.%s", rec.ID, ext)
	uploadCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	url, err := o.store.Upload(uploadCtx, key, data, contentType)
	cancel()
	if err != nil {
		fail("upload original", err)
		return
	}
	out.storageKey = key
	out.storageURL = url

	// d. Derive and upload the thumbnail under a distinct key.
	thumb, err := imaging.Thumbnail(data, o.cfg.ThumbnailWidthPx)
	if err != nil {
		fail("thumbnail", err)
		return
	}
	thumbKey := thumbnailKey(rec.ID)
	thumbCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	thumbURL, err := o.store.Upload(thumbCtx, thumbKey, thumb, imaging.MimeJPEG)
	cancel()
	if err != nil {
		fail("upload thumbnail", err)
		return
	}
	out.thumbKey = thumbKey
	out.thumbURL = thumbURL

	// e. Record both storage locations, the hash and the terminal status.
	updCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()
	if err := o.repo.UpdateStorageInfo(updCtx, rec.ID, key, url, thumbKey, thumbURL); err != nil {
		fail("update storage info", err)
		return
	}
	if err := o.repo.UpdateStatus(updCtx, rec.ID, domain.ImageStatusComplete, hash); err != nil {
		fail("update status", err)
		return
	}

	// Hand completed records to the post-processing queue. Best effort: a
	// full queue is logged, not failed.
	if o.tasks != nil {
		if err := o.tasks.Enqueue(ctx, queue.Task{ImageID: rec.ID}); err != nil {
			o.logger.Warn().Err(err).Str("image_id", rec.ID).Msg("ingest: post-process enqueue failed")
		}
	}
}

// assemble builds the ordered batch result from verdicts and processing
// outcomes.
func (o *Orchestrator) assemble(candidates []domain.UploadCandidate, verdicts []domain.ValidationVerdict, persistable map[int]*domain.ImageRecord, outcomes map[int]*processOutcome) domain.BatchResult {
	result := make(domain.BatchResult, len(verdicts))
	for i, v := range verdicts {
		entry := domain.UploadOutcome{
			ID:       v.ID,
			Filename: candidates[i].Filename,
			Reason:   v.Reason,
		}
		if _, ok := persistable[i]; !ok {
			entry.Status = domain.OutcomeRejected
			result[i] = entry
			continue
		}

		out := outcomes[i]
		switch {
		case out.processErr != nil:
			entry.Status = domain.OutcomeFailed
			entry.ProcessingError = out.processErr.Error()
		case v.Accepted:
			entry.Status = domain.OutcomeAccepted
		default:
			entry.Status = domain.OutcomeFlagged
		}
		entry.StorageKey = out.storageKey
		entry.StorageURL = out.storageURL
		entry.ThumbnailKey = out.thumbKey
		entry.ThumbnailURL = out.signedURL
		if out.signedURLErr != nil {
			entry.ThumbnailURLError = out.signedURLErr.Error()
		}
		result[i] = entry
	}
	return result
}

func thumbnailKey(id string) string {
	return id + "_thumb.jpg"
}
