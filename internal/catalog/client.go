// Package catalog implements a client for the storefront platform API and
// the mapping of its payloads onto locally synced catalog rows.
//
// Product and service collections are paginated: a page is requested with
// ?page=N&limit=M and the response carries a pagination block whose has_more
// flag drives the loop. Some older storefront deployments omit the block, so
// a short page also terminates the loop. To guard against a remote that keeps
// reporting more pages forever, fetching stops after maxPages and returns
// what was collected so far. Scheduling links come from a single unpaginated
// availability endpoint.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultPageSize is the per-page item limit requested from the API.
	DefaultPageSize = 100

	// maxPages caps how many pages a single collection fetch will walk.
	maxPages = 100
)

// Client fetches catalog data from one storefront account.
type Client struct {
	BaseURL      string
	APIKey       string
	ReferralCode string
	PageSize     int
	HTTPClient   *http.Client
}

// NewClient creates a client for the given storefront base URL and API key.
func NewClient(baseURL, apiKey, referralCode string, pageSize int) *Client {
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}
	return &Client{
		BaseURL:      strings.TrimRight(baseURL, "/"),
		APIKey:       apiKey,
		ReferralCode: referralCode,
		PageSize:     pageSize,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ----- Wire types -------------------------------------------------------------

// ExternalID is an opaque item identifier on the remote platform. Newer
// deployments serve ids as JSON strings, older ones as bare numbers; both
// forms decode to the string stored in external_id.
type ExternalID string

func (e *ExternalID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*e = ExternalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number, got %s", data)
	}
	*e = ExternalID(n.String())
	return nil
}

func (e ExternalID) String() string { return string(e) }

// ItemPayload is one catalog item as returned by the storefront API. The
// platform has shipped several payload shapes over time, so most fields are
// optional and some concepts appear under more than one name.
type ItemPayload struct {
	ID              ExternalID `json:"id"`
	Title           string     `json:"title"`
	Name            string     `json:"name"`
	Slug            *string    `json:"slug"`
	Description     *string    `json:"description"`
	Price           *float64   `json:"price"`
	PriceCents      *int64     `json:"price_cents"`
	Currency        *string    `json:"currency"`
	ImageURL        *string    `json:"image_url"`
	ThumbnailURL    *string    `json:"thumbnail_url"`
	ProductType     *string    `json:"product_type"`
	CheckoutURL     *string    `json:"checkout_url"`
	URL             *string    `json:"url"`
	DurationMinutes *int       `json:"duration_minutes"`
	Duration        *int       `json:"duration"`
	Published       *bool      `json:"published"`
	Active          *bool      `json:"active"`
}

// envelope is the response wrapper used by every storefront endpoint. Each
// collection arrives under its entity-named key; paginated endpoints add a
// pagination block alongside it.
type envelope struct {
	Products        []ItemPayload `json:"products"`
	Services        []ItemPayload `json:"services"`
	SchedulingLinks []ItemPayload `json:"scheduling_links"`
	Pagination      *pageInfo     `json:"pagination"`
}

type pageInfo struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasMore    bool `json:"has_more"`
}

func (e *envelope) items(entity string) []ItemPayload {
	switch entity {
	case "products":
		return e.Products
	case "services":
		return e.Services
	default:
		return e.SchedulingLinks
	}
}

func (e *envelope) hasMore() bool {
	return e.Pagination != nil && e.Pagination.HasMore
}

// ----- Fetching ---------------------------------------------------------------

func (c *Client) collectionURL(path string, page, limit int) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	if c.ReferralCode != "" {
		q.Set("ref", c.ReferralCode)
	}
	return fmt.Sprintf("%s%s?%s", c.BaseURL, path, q.Encode())
}

func (c *Client) get(ctx context.Context, op, rawURL string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &RemoteError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result envelope
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", op, err)
	}

	return &result, nil
}

func (c *Client) fetchAll(ctx context.Context, entity, path string) ([]ItemPayload, error) {
	var items []ItemPayload

	for page := 1; ; page++ {
		if page > maxPages {
			slog.Warn("collection fetch stopped at page cap, returning partial result",
				"op", entity, "pages", maxPages, "items", len(items))
			return items, nil
		}

		result, err := c.get(ctx, entity, c.collectionURL(path, page, c.PageSize))
		if err != nil {
			return nil, err
		}

		pageItems := result.items(entity)
		items = append(items, pageItems...)

		if !result.hasMore() || len(pageItems) < c.PageSize {
			return items, nil
		}
	}
}

// ----- Collections ------------------------------------------------------------

// FetchProducts walks all product pages and returns every item.
func (c *Client) FetchProducts(ctx context.Context) ([]ItemPayload, error) {
	return c.fetchAll(ctx, "products", "/api/v1/products")
}

// FetchServices walks all service pages and returns every item.
func (c *Client) FetchServices(ctx context.Context) ([]ItemPayload, error) {
	return c.fetchAll(ctx, "services", "/api/v1/services")
}

// FetchSchedulingLinks fetches the availability endpoint, which returns the
// full set of scheduling links in one unpaginated response.
func (c *Client) FetchSchedulingLinks(ctx context.Context) ([]ItemPayload, error) {
	result, err := c.get(ctx, "scheduling_links", c.BaseURL+"/api/v1/scheduling/availability")
	if err != nil {
		return nil, err
	}
	return result.SchedulingLinks, nil
}

// ValidateKey probes the API with a minimal request to confirm the key is
// accepted. A *RemoteError with KeyRejected() true means the key is bad;
// any other error means the remote could not be reached.
func (c *Client) ValidateKey(ctx context.Context) error {
	_, err := c.get(ctx, "validate_key", c.collectionURL("/api/v1/products", 1, 1))
	return err
}
