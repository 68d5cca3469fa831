// catalog_repository.go provides database operations for the locally mirrored
// storefront catalog (products, services, scheduling links). All writes are
// upserts keyed on (credential_id, external_id) so repeated syncs are idempotent.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/catalog-sync/catalog-sync/internal/db/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// CatalogRepository handles database operations for synced catalog entities.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ---- Products ----------------------------------------------------------------

// UpsertProduct inserts a product row or updates it in place when
// (credential_id, external_id) already exists.
func (r *CatalogRepository) UpsertProduct(ctx context.Context, p *models.SyncedProduct) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO synced_products (
			id, credential_id, external_id, title, slug, description,
			price_cents, currency, image_url, product_type, checkout_url,
			published, last_synced_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (credential_id, external_id) DO UPDATE
		SET title          = EXCLUDED.title,
		    slug           = EXCLUDED.slug,
		    description    = EXCLUDED.description,
		    price_cents    = EXCLUDED.price_cents,
		    currency       = EXCLUDED.currency,
		    image_url      = EXCLUDED.image_url,
		    product_type   = EXCLUDED.product_type,
		    checkout_url   = EXCLUDED.checkout_url,
		    published      = EXCLUDED.published,
		    last_synced_at = EXCLUDED.last_synced_at,
		    updated_at     = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		p.ID,
		p.CredentialID,
		p.ExternalID,
		p.Title,
		p.Slug,
		p.Description,
		p.PriceCents,
		p.Currency,
		p.ImageURL,
		p.ProductType,
		p.CheckoutURL,
		p.Published,
		p.LastSyncedAt,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	return nil
}

// ListProducts returns all products synced under a credential ordered by title.
func (r *CatalogRepository) ListProducts(ctx context.Context, credentialID uuid.UUID) ([]models.SyncedProduct, error) {
	query := `
		SELECT id, credential_id, external_id, title, slug, description,
		       price_cents, currency, image_url, product_type, checkout_url,
		       published, last_synced_at, created_at, updated_at
		FROM synced_products
		WHERE credential_id = $1
		ORDER BY title
	`

	var products []models.SyncedProduct
	if err := r.db.SelectContext(ctx, &products, query, credentialID); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}

// ---- Services ----------------------------------------------------------------

// UpsertService inserts a service row or updates it in place when
// (credential_id, external_id) already exists.
func (r *CatalogRepository) UpsertService(ctx context.Context, s *models.SyncedService) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `
		INSERT INTO synced_services (
			id, credential_id, external_id, title, slug, description,
			price_cents, currency, image_url, duration_minutes, booking_url,
			published, last_synced_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (credential_id, external_id) DO UPDATE
		SET title            = EXCLUDED.title,
		    slug             = EXCLUDED.slug,
		    description      = EXCLUDED.description,
		    price_cents      = EXCLUDED.price_cents,
		    currency         = EXCLUDED.currency,
		    image_url        = EXCLUDED.image_url,
		    duration_minutes = EXCLUDED.duration_minutes,
		    booking_url      = EXCLUDED.booking_url,
		    published        = EXCLUDED.published,
		    last_synced_at   = EXCLUDED.last_synced_at,
		    updated_at       = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		s.ID,
		s.CredentialID,
		s.ExternalID,
		s.Title,
		s.Slug,
		s.Description,
		s.PriceCents,
		s.Currency,
		s.ImageURL,
		s.DurationMinutes,
		s.BookingURL,
		s.Published,
		s.LastSyncedAt,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert service: %w", err)
	}

	return nil
}

// ListServices returns all services synced under a credential ordered by title.
func (r *CatalogRepository) ListServices(ctx context.Context, credentialID uuid.UUID) ([]models.SyncedService, error) {
	query := `
		SELECT id, credential_id, external_id, title, slug, description,
		       price_cents, currency, image_url, duration_minutes, booking_url,
		       published, last_synced_at, created_at, updated_at
		FROM synced_services
		WHERE credential_id = $1
		ORDER BY title
	`

	var services []models.SyncedService
	if err := r.db.SelectContext(ctx, &services, query, credentialID); err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}

	return services, nil
}

// ---- Scheduling links --------------------------------------------------------

// UpsertSchedulingLink inserts a scheduling link row or updates it in place
// when (credential_id, external_id) already exists.
func (r *CatalogRepository) UpsertSchedulingLink(ctx context.Context, l *models.SyncedSchedulingLink) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	now := time.Now()
	l.CreatedAt = now
	l.UpdatedAt = now

	query := `
		INSERT INTO synced_scheduling_links (
			id, credential_id, external_id, title, url, duration_minutes,
			active, last_synced_at, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (credential_id, external_id) DO UPDATE
		SET title            = EXCLUDED.title,
		    url              = EXCLUDED.url,
		    duration_minutes = EXCLUDED.duration_minutes,
		    active           = EXCLUDED.active,
		    last_synced_at   = EXCLUDED.last_synced_at,
		    updated_at       = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		l.ID,
		l.CredentialID,
		l.ExternalID,
		l.Title,
		l.URL,
		l.DurationMinutes,
		l.Active,
		l.LastSyncedAt,
		l.CreatedAt,
		l.UpdatedAt,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert scheduling link: %w", err)
	}

	return nil
}

// ListSchedulingLinks returns all scheduling links synced under a credential.
func (r *CatalogRepository) ListSchedulingLinks(ctx context.Context, credentialID uuid.UUID) ([]models.SyncedSchedulingLink, error) {
	query := `
		SELECT id, credential_id, external_id, title, url, duration_minutes,
		       active, last_synced_at, created_at, updated_at
		FROM synced_scheduling_links
		WHERE credential_id = $1
		ORDER BY title
	`

	var links []models.SyncedSchedulingLink
	if err := r.db.SelectContext(ctx, &links, query, credentialID); err != nil {
		return nil, fmt.Errorf("failed to list scheduling links: %w", err)
	}

	return links, nil
}

// CountByCredential returns per-entity row counts for a credential.
func (r *CatalogRepository) CountByCredential(ctx context.Context, credentialID uuid.UUID) (products, services, links int, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM synced_products WHERE credential_id = $1),
			(SELECT COUNT(*) FROM synced_services WHERE credential_id = $1),
			(SELECT COUNT(*) FROM synced_scheduling_links WHERE credential_id = $1)
	`, credentialID)

	if scanErr := row.Scan(&products, &services, &links); scanErr != nil {
		return 0, 0, 0, fmt.Errorf("failed to count catalog rows: %w", scanErr)
	}

	return products, services, links, nil
}
