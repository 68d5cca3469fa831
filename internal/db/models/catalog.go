package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncedProduct is a locally mirrored storefront product. Rows are keyed by
// (credential_id, external_id) so repeated syncs update in place.
type SyncedProduct struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	CredentialID uuid.UUID  `db:"credential_id" json:"credential_id"`
	ExternalID   string     `db:"external_id" json:"external_id"`
	Title        string     `db:"title" json:"title"`
	Slug         *string    `db:"slug" json:"slug,omitempty"`
	Description  *string    `db:"description" json:"description,omitempty"`
	PriceCents   *int64     `db:"price_cents" json:"price_cents,omitempty"`
	Currency     *string    `db:"currency" json:"currency,omitempty"`
	ImageURL     *string    `db:"image_url" json:"image_url,omitempty"`
	ProductType  *string    `db:"product_type" json:"product_type,omitempty"`
	CheckoutURL  *string    `db:"checkout_url" json:"checkout_url,omitempty"`
	Published    bool       `db:"published" json:"published"`
	LastSyncedAt *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// SyncedService is a locally mirrored storefront service offering.
type SyncedService struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	CredentialID    uuid.UUID  `db:"credential_id" json:"credential_id"`
	ExternalID      string     `db:"external_id" json:"external_id"`
	Title           string     `db:"title" json:"title"`
	Slug            *string    `db:"slug" json:"slug,omitempty"`
	Description     *string    `db:"description" json:"description,omitempty"`
	PriceCents      *int64     `db:"price_cents" json:"price_cents,omitempty"`
	Currency        *string    `db:"currency" json:"currency,omitempty"`
	ImageURL        *string    `db:"image_url" json:"image_url,omitempty"`
	DurationMinutes *int       `db:"duration_minutes" json:"duration_minutes,omitempty"`
	BookingURL      *string    `db:"booking_url" json:"booking_url,omitempty"`
	Published       bool       `db:"published" json:"published"`
	LastSyncedAt    *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// SyncedSchedulingLink is a locally mirrored storefront scheduling link.
type SyncedSchedulingLink struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	CredentialID    uuid.UUID  `db:"credential_id" json:"credential_id"`
	ExternalID      string     `db:"external_id" json:"external_id"`
	Title           string     `db:"title" json:"title"`
	URL             *string    `db:"url" json:"url,omitempty"`
	DurationMinutes *int       `db:"duration_minutes" json:"duration_minutes,omitempty"`
	Active          bool       `db:"active" json:"active"`
	LastSyncedAt    *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
