package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func notionPageJSON(id, title string) string {
	return fmt.Sprintf(`{
		"id": %q,
		"properties": {
			"Name": {"type": "title", "title": [{"plain_text": %q}]},
			"Excerpt": {"type": "rich_text", "rich_text": [{"plain_text": "An excerpt"}]},
			"Published": {"type": "checkbox", "checkbox": true},
			"Tags": {"type": "multi_select", "multi_select": [{"name": "news"}, {"name": "launch"}]}
		}
	}`, id, title)
}

func TestQueryDatabase_CursorPagination(t *testing.T) {
	var cursors []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret_token" {
			t.Errorf("unexpected Authorization: %q", got)
		}
		if got := r.Header.Get("Notion-Version"); got != "2022-06-28" {
			t.Errorf("unexpected Notion-Version: %q", got)
		}
		if r.URL.Path != "/v1/databases/db123/query" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		cursor, _ := body["start_cursor"].(string)
		cursors = append(cursors, cursor)

		if cursor == "" {
			fmt.Fprintf(w, `{"results":[%s],"has_more":true,"next_cursor":"cur2"}`,
				notionPageJSON("page1", "First"))
			return
		}
		fmt.Fprintf(w, `{"results":[%s],"has_more":false,"next_cursor":null}`,
			notionPageJSON("page2", "Second"))
	}))
	defer srv.Close()

	client := NewNotionClient("secret_token", "db123", "2022-06-28")
	client.BaseURL = srv.URL

	pages, err := client.QueryDatabase(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(pages))
	}
	if len(cursors) != 2 || cursors[1] != "cur2" {
		t.Fatalf("expected second request with cursor cur2, got %v", cursors)
	}
}

func TestQueryDatabase_StopsAtPageCap(t *testing.T) {
	var pagesServed int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		// A remote that always claims another cursor exists.
		fmt.Fprintf(w, `{"results":[%s],"has_more":true,"next_cursor":"cur%d"}`,
			notionPageJSON(fmt.Sprintf("page%d", pagesServed), "Looping"), pagesServed)
	}))
	defer srv.Close()

	client := NewNotionClient("secret_token", "db123", "2022-06-28")
	client.BaseURL = srv.URL

	pages, err := client.QueryDatabase(context.Background())
	if err != nil {
		t.Fatalf("expected partial result, got error: %v", err)
	}
	if pagesServed != maxQueryPages {
		t.Fatalf("expected %d requests, got %d", maxQueryPages, pagesServed)
	}
	if len(pages) != maxQueryPages {
		t.Fatalf("expected %d pages, got %d", maxQueryPages, len(pages))
	}
}

func TestQueryDatabase_NonOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewNotionClient("bad_token", "db123", "2022-06-28")
	client.BaseURL = srv.URL

	if _, err := client.QueryDatabase(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestNotionPage_PropertyExtraction(t *testing.T) {
	var page NotionPage
	if err := json.Unmarshal([]byte(notionPageJSON("p1", "Hello World")), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got := page.Title(); got != "Hello World" {
		t.Errorf("Title() = %q", got)
	}
	if got := page.Text("Excerpt"); got != "An excerpt" {
		t.Errorf("Text(Excerpt) = %q", got)
	}
	if !page.Checkbox("Published") {
		t.Error("Checkbox(Published) = false")
	}
	if page.Checkbox("Missing") {
		t.Error("Checkbox(Missing) should be false")
	}
	tags := page.Tags("Tags")
	if len(tags) != 2 || tags[0] != "news" {
		t.Errorf("Tags(Tags) = %v", tags)
	}
}

func TestNotionPage_CoverURL(t *testing.T) {
	raw := `{"id":"p1","cover":{"external":{"url":"https://img.example/cover.png"}},"properties":{}}`
	var page NotionPage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := page.CoverURL(); got != "https://img.example/cover.png" {
		t.Errorf("CoverURL() = %q", got)
	}

	var none NotionPage
	if got := none.CoverURL(); got != "" {
		t.Errorf("expected empty cover, got %q", got)
	}
}
