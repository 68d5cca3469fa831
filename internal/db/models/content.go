package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ContentRecord is a page pulled from the Notion content database. Records
// are matched by notion_page_id first and by slug as a fallback, so a page
// renamed in Notion still updates its existing row.
type ContentRecord struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	Slug          string         `db:"slug" json:"slug"`
	Title         string         `db:"title" json:"title"`
	Excerpt       *string        `db:"excerpt" json:"excerpt,omitempty"`
	CoverImageURL *string        `db:"cover_image_url" json:"cover_image_url,omitempty"`
	Tags          pq.StringArray `db:"tags" json:"tags"`
	Published     bool           `db:"published" json:"published"`
	NotionPageID  *string        `db:"notion_page_id" json:"notion_page_id,omitempty"`
	LastSyncedAt  *time.Time     `db:"last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}
