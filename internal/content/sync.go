// sync.go runs one content sync pass: query the Notion database, match each
// page to an existing record (by page id first, slug second), and create or
// update rows one at a time. Per-page failures are reported and skipped so a
// single malformed page never aborts the pass. Progress is delivered through
// a caller-supplied callback, which the admin API bridges onto an SSE stream.
package content

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"github.com/catalog-sync/catalog-sync/internal/db/models"
	"github.com/catalog-sync/catalog-sync/internal/db/repositories"
	"github.com/catalog-sync/catalog-sync/internal/telemetry"
)

// Notion property names expected on the content database.
const (
	propExcerpt   = "Excerpt"
	propPublished = "Published"
	propTags      = "Tags"
	propSlug      = "Slug"
)

// PageSource is the part of the Notion client the syncer uses.
type PageSource interface {
	QueryDatabase(ctx context.Context) ([]NotionPage, error)
}

// ProgressEvent is one update emitted while a sync pass runs.
type ProgressEvent struct {
	Type    string `json:"type"` // progress, complete, error
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
	Slug    string `json:"slug,omitempty"`
	Message string `json:"message,omitempty"`
}

// SyncResult summarises one completed pass.
type SyncResult struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// ProgressFunc receives events during a sync pass. A nil func is allowed.
type ProgressFunc func(ProgressEvent)

// Syncer copies Notion pages into content records.
type Syncer struct {
	source PageSource
	repo   *repositories.ContentRepository
}

// NewSyncer creates a content syncer.
func NewSyncer(source PageSource, repo *repositories.ContentRepository) *Syncer {
	return &Syncer{source: source, repo: repo}
}

// Sync runs one full pass. The returned error covers the database query
// only; per-page failures are counted in the result and streamed as error
// events instead.
func (s *Syncer) Sync(ctx context.Context, progress ProgressFunc) (*SyncResult, error) {
	if progress == nil {
		progress = func(ProgressEvent) {}
	}

	pages, err := s.source.QueryDatabase(ctx)
	if err != nil {
		progress(ProgressEvent{Type: "error", Message: err.Error()})
		return nil, fmt.Errorf("failed to query content database: %w", err)
	}

	result := &SyncResult{Total: len(pages)}
	syncedAt := time.Now()

	for i := range pages {
		page := &pages[i]
		slug, created, syncErr := s.syncPage(ctx, page, syncedAt)
		if syncErr != nil {
			result.Errors++
			telemetry.ContentItemsSyncedTotal.WithLabelValues("error").Inc()
			log.Printf("[content-sync] failed to sync page %s: %v", page.ID, syncErr)
			progress(ProgressEvent{Type: "error", Current: i + 1, Total: result.Total, Message: syncErr.Error()})
			continue
		}

		if created {
			result.Created++
			telemetry.ContentItemsSyncedTotal.WithLabelValues("created").Inc()
		} else {
			result.Updated++
			telemetry.ContentItemsSyncedTotal.WithLabelValues("updated").Inc()
		}
		progress(ProgressEvent{Type: "progress", Current: i + 1, Total: result.Total, Slug: slug})
	}

	progress(ProgressEvent{Type: "complete", Current: result.Total, Total: result.Total,
		Message: fmt.Sprintf("created %d, updated %d, errors %d", result.Created, result.Updated, result.Errors)})

	return result, nil
}

// syncPage maps one Notion page onto a record and writes it. Existing rows
// are found by notion_page_id first; a slug match covers rows created before
// page ids were recorded, and pages renamed in Notion keep their row either way.
func (s *Syncer) syncPage(ctx context.Context, page *NotionPage, syncedAt time.Time) (slug string, created bool, err error) {
	title := page.Title()
	if title == "" {
		return "", false, fmt.Errorf("page %s has no title", page.ID)
	}

	slug = page.Text(propSlug)
	if slug == "" {
		slug = Slugify(title)
	}
	if slug == "" {
		return "", false, fmt.Errorf("page %s produced an empty slug", page.ID)
	}

	existing, err := s.repo.GetByNotionPageID(ctx, page.ID)
	if err != nil {
		return slug, false, err
	}
	if existing == nil {
		existing, err = s.repo.GetBySlug(ctx, slug)
		if err != nil {
			return slug, false, err
		}
	}

	pageID := page.ID
	rec := existing
	if rec == nil {
		rec = &models.ContentRecord{}
		created = true
	}

	rec.Slug = slug
	rec.Title = title
	rec.Published = page.Checkbox(propPublished)
	tags := page.Tags(propTags)
	if tags == nil {
		tags = []string{}
	}
	rec.Tags = pq.StringArray(tags)
	rec.NotionPageID = &pageID
	rec.LastSyncedAt = &syncedAt

	if excerpt := page.Text(propExcerpt); excerpt != "" {
		rec.Excerpt = &excerpt
	} else {
		rec.Excerpt = nil
	}
	if cover := page.CoverURL(); cover != "" {
		rec.CoverImageURL = &cover
	} else {
		rec.CoverImageURL = nil
	}

	if created {
		return slug, true, s.repo.Create(ctx, rec)
	}
	return slug, false, s.repo.Update(ctx, rec)
}
