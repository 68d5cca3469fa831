package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

func TestGetDashboardStats(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	handler := NewStatsHandler(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery(`SELECT.*credential_count`).
		WillReturnRows(sqlmock.NewRows([]string{
			"credential_count", "active_credential_count", "auto_sync_count", "failed_credential_count",
			"product_count", "service_count", "link_count", "content_count", "published_content_count",
		}).AddRow(3, 2, 1, 1, 42, 7, 5, 12, 9))

	now := time.Now()
	mock.ExpectQuery(`SELECT.*FROM sync_runs r.*JOIN credentials c`).
		WillReturnRows(sqlmock.NewRows([]string{
			"credential_name", "status", "triggered_by", "products_synced",
			"services_synced", "links_synced", "started_at", "completed_at",
		}).AddRow("My Store", "completed", "manual", 42, 7, 5, now, now))

	r := gin.New()
	r.GET("/stats", handler.GetDashboardStats)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp DashboardStats
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Credentials.Total != 3 || resp.Credentials.Active != 2 {
		t.Errorf("unexpected credential stats: %+v", resp.Credentials)
	}
	if resp.Catalog.Products != 42 || resp.Catalog.SchedulingLinks != 5 {
		t.Errorf("unexpected catalog stats: %+v", resp.Catalog)
	}
	if resp.Content.Published != 9 {
		t.Errorf("unexpected content stats: %+v", resp.Content)
	}
	if len(resp.RecentSyncs) != 1 || resp.RecentSyncs[0].CredentialName != "My Store" {
		t.Errorf("unexpected recent syncs: %+v", resp.RecentSyncs)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sql expectations: %v", err)
	}
}

func TestGetDashboardStats_DBError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	handler := NewStatsHandler(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery(`SELECT.*credential_count`).
		WillReturnError(sqlmock.ErrCancelled)

	r := gin.New()
	r.GET("/stats", handler.GetDashboardStats)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", w.Code, w.Body.String())
	}
}
