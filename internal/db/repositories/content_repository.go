// content_repository.go provides database operations for Notion-synced
// content records.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/catalog-sync/catalog-sync/internal/db/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ContentRepository handles database operations for content records.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

const contentColumns = `id, slug, title, excerpt, cover_image_url, tags, published,
	       notion_page_id, last_synced_at, created_at, updated_at`

// GetByNotionPageID returns the record previously synced from a Notion page,
// or nil if the page has never been synced.
func (r *ContentRepository) GetByNotionPageID(ctx context.Context, pageID string) (*models.ContentRecord, error) {
	query := `SELECT ` + contentColumns + ` FROM content_records WHERE notion_page_id = $1`

	var rec models.ContentRecord
	err := r.db.GetContext(ctx, &rec, query, pageID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content record by notion page id: %w", err)
	}

	return &rec, nil
}

// GetBySlug returns a content record by its unique slug, or nil if not found.
func (r *ContentRepository) GetBySlug(ctx context.Context, slug string) (*models.ContentRecord, error) {
	query := `SELECT ` + contentColumns + ` FROM content_records WHERE slug = $1`

	var rec models.ContentRecord
	err := r.db.GetContext(ctx, &rec, query, slug)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content record by slug: %w", err)
	}

	return &rec, nil
}

// Create inserts a new content record.
func (r *ContentRepository) Create(ctx context.Context, rec *models.ContentRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	query := `
		INSERT INTO content_records (
			id, slug, title, excerpt, cover_image_url, tags, published,
			notion_page_id, last_synced_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Slug,
		rec.Title,
		rec.Excerpt,
		rec.CoverImageURL,
		rec.Tags,
		rec.Published,
		rec.NotionPageID,
		rec.LastSyncedAt,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create content record: %w", err)
	}

	return nil
}

// Update persists mutable fields of a content record.
func (r *ContentRepository) Update(ctx context.Context, rec *models.ContentRecord) error {
	rec.UpdatedAt = time.Now()

	query := `
		UPDATE content_records
		SET slug            = $2,
		    title           = $3,
		    excerpt         = $4,
		    cover_image_url = $5,
		    tags            = $6,
		    published       = $7,
		    notion_page_id  = $8,
		    last_synced_at  = $9,
		    updated_at      = $10
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Slug,
		rec.Title,
		rec.Excerpt,
		rec.CoverImageURL,
		rec.Tags,
		rec.Published,
		rec.NotionPageID,
		rec.LastSyncedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update content record: %w", err)
	}

	return nil
}

// List returns content records ordered by most recently updated. When
// publishedOnly is true unpublished records are excluded.
func (r *ContentRepository) List(ctx context.Context, publishedOnly bool) ([]models.ContentRecord, error) {
	query := `SELECT ` + contentColumns + ` FROM content_records`
	if publishedOnly {
		query += " WHERE published = true"
	}
	query += " ORDER BY updated_at DESC"

	var records []models.ContentRecord
	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("failed to list content records: %w", err)
	}

	return records, nil
}

// Delete removes a content record.
func (r *ContentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM content_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete content record: %w", err)
	}

	return nil
}
