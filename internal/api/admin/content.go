// content.go implements the Notion content sync endpoints. The sync endpoint
// streams per-page progress over Server-Sent Events so the dashboard can show
// a live progress bar instead of a spinner.
package admin

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/catalog-sync/catalog-sync/internal/content"
	"github.com/catalog-sync/catalog-sync/internal/db/repositories"
)

// ContentHandlers handles admin endpoints for Notion-backed content.
type ContentHandlers struct {
	syncer      *content.Syncer
	contentRepo *repositories.ContentRepository
}

// NewContentHandlers creates a new ContentHandlers.
func NewContentHandlers(syncer *content.Syncer, contentRepo *repositories.ContentRepository) *ContentHandlers {
	return &ContentHandlers{syncer: syncer, contentRepo: contentRepo}
}

// ---- GET /api/v1/content ----------------------------------------------------

// @Summary      List content records
// @Description  Returns all mirrored content records, newest first.
// @Tags         Content
// @Security     Bearer
// @Produce      json
// @Param        published  query  bool  false  "Only return published records"
// @Success      200  {object}  map[string]interface{}  "records, total_count"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/content [get]
func (h *ContentHandlers) List(c *gin.Context) {
	publishedOnly := c.Query("published") == "true"

	records, err := h.contentRepo.List(c.Request.Context(), publishedOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list content: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records":     records,
		"total_count": len(records),
	})
}

// ---- GET /api/v1/content/:slug ----------------------------------------------

// @Summary      Get a content record
// @Description  Returns one mirrored content record by slug.
// @Tags         Content
// @Security     Bearer
// @Produce      json
// @Param        slug  path  string  true  "Content slug"
// @Success      200  {object}  models.ContentRecord
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/content/{slug} [get]
func (h *ContentHandlers) Get(c *gin.Context) {
	slug := c.Param("slug")

	rec, err := h.contentRepo.GetBySlug(c.Request.Context(), slug)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load content: " + err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
		return
	}

	c.JSON(http.StatusOK, rec)
}

// ---- POST /api/v1/content/sync ----------------------------------------------

// @Summary      Sync content from Notion
// @Description  Runs a full content sync pass and streams per-page progress as Server-Sent Events. Each event carries a JSON ProgressEvent; the final event has type "complete".
// @Tags         Content
// @Security     Bearer
// @Produce      text/event-stream
// @Success      200  {object}  content.ProgressEvent  "Stream of progress events"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      503  {object}  map[string]interface{}  "Content sync not configured"
// @Router       /api/v1/content/sync [post]
func (h *ContentHandlers) Sync(c *gin.Context) {
	if h.syncer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Content sync is not configured (missing Notion token or database id)"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	// The syncer runs in its own goroutine; events flow through the channel
	// into c.Stream, which flushes after every write so the browser sees each
	// page as it lands.
	events := make(chan content.ProgressEvent, 8)
	go func() {
		defer close(events)
		_, err := h.syncer.Sync(c.Request.Context(), func(ev content.ProgressEvent) {
			select {
			case events <- ev:
			case <-c.Request.Context().Done():
			}
		})
		_ = err // the query failure is already streamed as an error event
	}()

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent("message", ev)
		return true
	})
}
