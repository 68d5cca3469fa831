// Package content syncs pages from a Notion content database into local
// content records and streams per-item progress to the admin UI.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultNotionBaseURL is the public Notion API endpoint.
const DefaultNotionBaseURL = "https://api.notion.com"

const (
	notionPageSize = 100

	// maxQueryPages caps how many cursor pages one database query will walk.
	maxQueryPages = 100
)

// NotionClient queries one Notion database via the official REST API.
type NotionClient struct {
	BaseURL    string
	Token      string
	DatabaseID string
	Version    string
	HTTPClient *http.Client
}

// NewNotionClient creates a client for the given integration token and database.
func NewNotionClient(token, databaseID, version string) *NotionClient {
	return &NotionClient{
		BaseURL:    DefaultNotionBaseURL,
		Token:      token,
		DatabaseID: databaseID,
		Version:    version,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ----- Wire types -------------------------------------------------------------

// NotionPage is one row of the queried database with its raw property map.
type NotionPage struct {
	ID             string                    `json:"id"`
	LastEditedTime time.Time                 `json:"last_edited_time"`
	Cover          *notionFile               `json:"cover"`
	Properties     map[string]notionProperty `json:"properties"`
}

type notionProperty struct {
	Type        string             `json:"type"`
	Title       []notionRichText   `json:"title"`
	RichText    []notionRichText   `json:"rich_text"`
	Checkbox    *bool              `json:"checkbox"`
	URL         *string            `json:"url"`
	MultiSelect []notionSelectItem `json:"multi_select"`
	Files       []notionFileEntry  `json:"files"`
}

type notionRichText struct {
	PlainText string `json:"plain_text"`
}

type notionSelectItem struct {
	Name string `json:"name"`
}

type notionFileEntry struct {
	File     *notionFileURL `json:"file"`
	External *notionFileURL `json:"external"`
}

type notionFile struct {
	File     *notionFileURL `json:"file"`
	External *notionFileURL `json:"external"`
}

type notionFileURL struct {
	URL string `json:"url"`
}

type queryResponse struct {
	Results    []NotionPage `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor *string      `json:"next_cursor"`
}

// ----- Querying ---------------------------------------------------------------

// QueryDatabase walks the database with cursor pagination and returns every
// page. A remote that keeps reporting more cursors stops at maxQueryPages and
// the pages collected so far are returned.
func (c *NotionClient) QueryDatabase(ctx context.Context) ([]NotionPage, error) {
	queryURL := fmt.Sprintf("%s/v1/databases/%s/query", strings.TrimRight(c.BaseURL, "/"), c.DatabaseID)

	var pages []NotionPage
	var cursor *string

	for requested := 0; ; requested++ {
		if requested >= maxQueryPages {
			slog.Warn("notion query stopped at page cap, returning partial result",
				"pages", maxQueryPages, "results", len(pages))
			return pages, nil
		}

		payload := map[string]any{"page_size": notionPageSize}
		if cursor != nil {
			payload["start_cursor"] = *cursor
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode query payload: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, queryURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to build notion query request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.Token)
		req.Header.Set("Notion-Version", c.Version)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to query notion database: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, fmt.Errorf("notion returned %d: %s", resp.StatusCode, string(respBody))
		}

		var result queryResponse
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to decode notion response: %w", err)
		}
		resp.Body.Close()

		pages = append(pages, result.Results...)

		if !result.HasMore || result.NextCursor == nil {
			return pages, nil
		}
		cursor = result.NextCursor
	}
}

// ----- Property extraction ----------------------------------------------------

// Title returns the page's title property value, whichever property carries it.
func (p *NotionPage) Title() string {
	for _, prop := range p.Properties {
		if prop.Type == "title" {
			return joinRichText(prop.Title)
		}
	}
	return ""
}

// Text returns the plain-text value of a named rich_text property.
func (p *NotionPage) Text(name string) string {
	prop, ok := p.Properties[name]
	if !ok {
		return ""
	}
	return joinRichText(prop.RichText)
}

// Checkbox returns a named checkbox property, false when absent.
func (p *NotionPage) Checkbox(name string) bool {
	prop, ok := p.Properties[name]
	if !ok || prop.Checkbox == nil {
		return false
	}
	return *prop.Checkbox
}

// Tags returns the names of a named multi_select property.
func (p *NotionPage) Tags(name string) []string {
	prop, ok := p.Properties[name]
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(prop.MultiSelect))
	for _, item := range prop.MultiSelect {
		tags = append(tags, item.Name)
	}
	return tags
}

// CoverURL returns the page cover image URL, from either a Notion-hosted or
// an external file.
func (p *NotionPage) CoverURL() string {
	if p.Cover == nil {
		return ""
	}
	if p.Cover.External != nil {
		return p.Cover.External.URL
	}
	if p.Cover.File != nil {
		return p.Cover.File.URL
	}
	return ""
}

func joinRichText(parts []notionRichText) string {
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(part.PlainText)
	}
	return strings.TrimSpace(b.String())
}
