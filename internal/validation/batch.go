package validation

import (
	"context"

	"golang.org/x/sync/errgroup"

	"server/internal/domain"
)

// BatchValidator fans the pipeline out across all candidates of one upload
// request under a bounded worker pool. Candidates are validated
// independently; the only cross-candidate coupling is the duplicate-hash
// lookup, which reads committed repository state and therefore does not see
// sibling candidates still in flight.
type BatchValidator struct {
	pipeline *Pipeline
	workers  int
}

// NewBatchValidator caps concurrent validations at workers, independent of
// batch size.
func NewBatchValidator(pipeline *Pipeline, workers int) *BatchValidator {
	if workers < 1 {
		workers = 1
	}
	return &BatchValidator{pipeline: pipeline, workers: workers}
}

// ValidateAll produces one verdict per candidate, in input order.
func (b *BatchValidator) ValidateAll(ctx context.Context, candidates []domain.UploadCandidate) []domain.ValidationVerdict {
	verdicts := make([]domain.ValidationVerdict, len(candidates))

	var g errgroup.Group
	g.SetLimit(b.workers)
	for i := range candidates {
		i := i
		g.Go(func() error {
			verdicts[i] = b.pipeline.Validate(ctx, candidates[i])
			return nil
		})
	}
	// Workers never return errors; verdicts capture every failure mode.
	_ = g.Wait()

	return verdicts
}
