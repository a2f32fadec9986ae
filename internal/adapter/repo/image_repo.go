package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// ImageRepositoryPG implements domain.ImageRepository using PostgreSQL.
type ImageRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewImageRepository constructs a new image repository instance.
func NewImageRepository(pool *pgxpool.Pool) *ImageRepositoryPG {
	return &ImageRepositoryPG{pool: pool}
}

const imageColumns = `id, filename, mime, storage_key, storage_url, thumb_key, thumb_url, hash, status, reason, created_by, updated_by, created_at, updated_at`

// CreateMany inserts all records inside one transaction so the batch is
// visible atomically: a failed insert rolls every record back.
func (r *ImageRepositoryPG) CreateMany(ctx context.Context, records []domain.ImageRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo: begin create images: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
INSERT INTO images (id, filename, mime, storage_key, storage_url, thumb_key, thumb_url, hash, status, reason, created_by, updated_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
`
	for _, rec := range records {
		if _, err := tx.Exec(ctx, query,
			rec.ID, rec.Filename, rec.MimeType,
			rec.StorageKey, rec.StorageURL, rec.ThumbnailKey, rec.ThumbnailURL,
			rec.Hash, rec.Status, rec.Reason, rec.CreatedBy, rec.UpdatedBy,
		); err != nil {
			return fmt.Errorf("repo: insert image %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo: commit create images: %w", err)
	}
	return nil
}

// UpdateStatus sets the lifecycle status; a non-empty hash is stored
// alongside it.
func (r *ImageRepositoryPG) UpdateStatus(ctx context.Context, id string, status domain.ImageStatus, hash string) error {
	var err error
	if hash != "" {
		_, err = r.pool.Exec(ctx, `
UPDATE images SET status = $2, hash = $3, updated_at = now()
WHERE id = $1;
`, id, status, hash)
	} else {
		_, err = r.pool.Exec(ctx, `
UPDATE images SET status = $2, updated_at = now()
WHERE id = $1;
`, id, status)
	}
	if err != nil {
		return fmt.Errorf("repo: update image status: %w", err)
	}
	return nil
}

// UpdateStorageInfo records both storage locations for the image.
func (r *ImageRepositoryPG) UpdateStorageInfo(ctx context.Context, id, storageKey, storageURL, thumbKey, thumbURL string) error {
	if _, err := r.pool.Exec(ctx, `
UPDATE images
SET storage_key = $2, storage_url = $3, thumb_key = $4, thumb_url = $5, updated_at = now()
WHERE id = $1;
`, id, storageKey, storageURL, thumbKey, thumbURL); err != nil {
		return fmt.Errorf("repo: update image storage info: %w", err)
	}
	return nil
}

// FindByHash returns the oldest record carrying the given content hash.
func (r *ImageRepositoryPG) FindByHash(ctx context.Context, hash string) (*domain.ImageRecord, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+imageColumns+`
FROM images
WHERE hash = $1
ORDER BY created_at ASC
LIMIT 1;
`, hash)
	return scanImage(row)
}

// GetByID returns the record with the given id.
func (r *ImageRepositoryPG) GetByID(ctx context.Context, id string) (*domain.ImageRecord, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+imageColumns+`
FROM images
WHERE id = $1;
`, id)
	return scanImage(row)
}

func scanImage(row pgx.Row) (*domain.ImageRecord, error) {
	var rec domain.ImageRecord
	err := row.Scan(
		&rec.ID, &rec.Filename, &rec.MimeType,
		&rec.StorageKey, &rec.StorageURL, &rec.ThumbnailKey, &rec.ThumbnailURL,
		&rec.Hash, &rec.Status, &rec.Reason, &rec.CreatedBy, &rec.UpdatedBy,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("repo: scan image: %w", err)
	}
	return &rec, nil
}
