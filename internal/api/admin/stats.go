// stats.go implements the aggregated dashboard statistics endpoint.
package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// StatsHandler handles stats-related API requests
type StatsHandler struct {
	db *sqlx.DB
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(database *sqlx.DB) *StatsHandler {
	return &StatsHandler{
		db: database,
	}
}

// DashboardStats represents the response for dashboard statistics
type DashboardStats struct {
	Credentials CredentialStats   `json:"credentials"`
	Catalog     CatalogStats      `json:"catalog"`
	Content     ContentStats      `json:"content"`
	RecentSyncs []RecentSyncEntry `json:"recent_syncs"`
}

// CredentialStats summarises connected storefront accounts.
type CredentialStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	AutoSync int64 `json:"auto_sync"`
	Failed   int64 `json:"failed"` // last_sync_status = 'error'
}

// CatalogStats counts locally mirrored catalog rows.
type CatalogStats struct {
	Products        int64 `json:"products"`
	Services        int64 `json:"services"`
	SchedulingLinks int64 `json:"scheduling_links"`
}

// ContentStats counts mirrored content records.
type ContentStats struct {
	Total     int64 `json:"total"`
	Published int64 `json:"published"`
}

// RecentSyncEntry is one recent catalog sync run with its credential name.
type RecentSyncEntry struct {
	CredentialName string     `db:"credential_name" json:"credential_name"`
	Status         string     `db:"status" json:"status"`
	TriggeredBy    string     `db:"triggered_by" json:"triggered_by"`
	ProductsSynced int        `db:"products_synced" json:"products_synced"`
	ServicesSynced int        `db:"services_synced" json:"services_synced"`
	LinksSynced    int        `db:"links_synced" json:"links_synced"`
	StartedAt      time.Time  `db:"started_at" json:"started_at"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at"`
}

// @Summary      Get dashboard statistics
// @Description  Returns aggregated statistics for the admin dashboard: credential, catalog, and content counts plus recent sync runs.
// @Tags         Stats
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  DashboardStats
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/stats/dashboard [get]
// GetDashboardStats returns dashboard statistics using a single database round-trip
// for the counts plus one query for the recent sync list.
func (h *StatsHandler) GetDashboardStats(c *gin.Context) {
	ctx := c.Request.Context()

	query := `
		SELECT
			(SELECT COUNT(*) FROM credentials) AS credential_count,
			(SELECT COUNT(*) FROM credentials WHERE active) AS active_credential_count,
			(SELECT COUNT(*) FROM credentials WHERE auto_sync) AS auto_sync_count,
			(SELECT COUNT(*) FROM credentials WHERE last_sync_status = 'error') AS failed_credential_count,
			(SELECT COUNT(*) FROM synced_products) AS product_count,
			(SELECT COUNT(*) FROM synced_services) AS service_count,
			(SELECT COUNT(*) FROM synced_scheduling_links) AS link_count,
			(SELECT COUNT(*) FROM content_records) AS content_count,
			(SELECT COUNT(*) FROM content_records WHERE published) AS published_content_count
	`

	var row struct {
		CredentialCount       int64 `db:"credential_count"`
		ActiveCredentialCount int64 `db:"active_credential_count"`
		AutoSyncCount         int64 `db:"auto_sync_count"`
		FailedCredentialCount int64 `db:"failed_credential_count"`
		ProductCount          int64 `db:"product_count"`
		ServiceCount          int64 `db:"service_count"`
		LinkCount             int64 `db:"link_count"`
		ContentCount          int64 `db:"content_count"`
		PublishedContentCount int64 `db:"published_content_count"`
	}
	if err := h.db.GetContext(ctx, &row, query); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load stats: " + err.Error()})
		return
	}

	recentQuery := `
		SELECT c.name AS credential_name, r.status, r.triggered_by,
		       r.products_synced, r.services_synced, r.links_synced,
		       r.started_at, r.completed_at
		FROM sync_runs r
		JOIN credentials c ON c.id = r.credential_id
		ORDER BY r.started_at DESC
		LIMIT 10
	`
	recent := []RecentSyncEntry{}
	if err := h.db.SelectContext(ctx, &recent, recentQuery); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load recent syncs: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, DashboardStats{
		Credentials: CredentialStats{
			Total:    row.CredentialCount,
			Active:   row.ActiveCredentialCount,
			AutoSync: row.AutoSyncCount,
			Failed:   row.FailedCredentialCount,
		},
		Catalog: CatalogStats{
			Products:        row.ProductCount,
			Services:        row.ServiceCount,
			SchedulingLinks: row.LinkCount,
		},
		Content: ContentStats{
			Total:     row.ContentCount,
			Published: row.PublishedContentCount,
		},
		RecentSyncs: recent,
	})
}
