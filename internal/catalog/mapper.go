// mapper.go converts storefront API payloads into synced catalog rows.
// Mapping is tolerant: an item only needs an external id and some form of
// title; every other field falls back across the payload shapes the
// platform has used over time.
package catalog

import (
	"math"
	"time"

	"github.com/catalog-sync/catalog-sync/internal/db/models"

	"github.com/google/uuid"
)

func itemTitle(item *ItemPayload) string {
	if item.Title != "" {
		return item.Title
	}
	return item.Name
}

// itemPriceCents normalises pricing. Older payloads carry a float price in
// major units, newer ones an integer price_cents.
func itemPriceCents(item *ItemPayload) *int64 {
	if item.PriceCents != nil {
		return item.PriceCents
	}
	if item.Price != nil {
		cents := int64(math.Round(*item.Price * 100))
		return &cents
	}
	return nil
}

func itemImageURL(item *ItemPayload) *string {
	if item.ImageURL != nil {
		return item.ImageURL
	}
	return item.ThumbnailURL
}

func itemPublished(item *ItemPayload) bool {
	if item.Published != nil {
		return *item.Published
	}
	if item.Active != nil {
		return *item.Active
	}
	// Items the API returns without either flag are live on the storefront.
	return true
}

func itemDuration(item *ItemPayload) *int {
	if item.DurationMinutes != nil {
		return item.DurationMinutes
	}
	return item.Duration
}

// MapProduct converts one API payload into a synced product row.
func MapProduct(credentialID uuid.UUID, item *ItemPayload, syncedAt time.Time) (*models.SyncedProduct, error) {
	if item.ID.String() == "" {
		return nil, &ValidationError{Field: "id", Message: "product payload has no id"}
	}

	return &models.SyncedProduct{
		CredentialID: credentialID,
		ExternalID:   item.ID.String(),
		Title:        itemTitle(item),
		Slug:         item.Slug,
		Description:  item.Description,
		PriceCents:   itemPriceCents(item),
		Currency:     item.Currency,
		ImageURL:     itemImageURL(item),
		ProductType:  item.ProductType,
		CheckoutURL:  firstURL(item.CheckoutURL, item.URL),
		Published:    itemPublished(item),
		LastSyncedAt: &syncedAt,
	}, nil
}

// MapService converts one API payload into a synced service row.
func MapService(credentialID uuid.UUID, item *ItemPayload, syncedAt time.Time) (*models.SyncedService, error) {
	if item.ID.String() == "" {
		return nil, &ValidationError{Field: "id", Message: "service payload has no id"}
	}

	return &models.SyncedService{
		CredentialID:    credentialID,
		ExternalID:      item.ID.String(),
		Title:           itemTitle(item),
		Slug:            item.Slug,
		Description:     item.Description,
		PriceCents:      itemPriceCents(item),
		Currency:        item.Currency,
		ImageURL:        itemImageURL(item),
		DurationMinutes: itemDuration(item),
		BookingURL:      firstURL(item.CheckoutURL, item.URL),
		Published:       itemPublished(item),
		LastSyncedAt:    &syncedAt,
	}, nil
}

// MapSchedulingLink converts one API payload into a synced scheduling link row.
func MapSchedulingLink(credentialID uuid.UUID, item *ItemPayload, syncedAt time.Time) (*models.SyncedSchedulingLink, error) {
	if item.ID.String() == "" {
		return nil, &ValidationError{Field: "id", Message: "scheduling link payload has no id"}
	}

	return &models.SyncedSchedulingLink{
		CredentialID:    credentialID,
		ExternalID:      item.ID.String(),
		Title:           itemTitle(item),
		URL:             firstURL(item.URL, item.CheckoutURL),
		DurationMinutes: itemDuration(item),
		Active:          itemPublished(item),
		LastSyncedAt:    &syncedAt,
	}, nil
}

func firstURL(candidates ...*string) *string {
	for _, c := range candidates {
		if c != nil && *c != "" {
			return c
		}
	}
	return nil
}
