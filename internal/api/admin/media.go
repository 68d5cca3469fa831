// media.go implements upload and serving of dashboard media (content cover
// images and similar assets) through the configured storage backend.
package admin

import (
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/catalog-sync/catalog-sync/internal/storage"
)

// maxMediaSize caps uploads at 10 MiB.
const maxMediaSize = 10 << 20

// presignTTL is how long generated download URLs stay valid on backends
// that sign them (S3).
const presignTTL = 15 * time.Minute

// MediaHandlers handles media upload, serving, and deletion.
type MediaHandlers struct {
	backend storage.Storage
}

// NewMediaHandlers creates a new MediaHandlers.
func NewMediaHandlers(backend storage.Storage) *MediaHandlers {
	return &MediaHandlers{backend: backend}
}

// ---- POST /api/v1/media -----------------------------------------------------

// @Summary      Upload a media file
// @Description  Stores a file in the configured media backend and returns its path and URL.
// @Tags         Media
// @Security     Bearer
// @Accept       multipart/form-data
// @Produce      json
// @Param        file  formData  file  true  "File to upload"
// @Success      201  {object}  map[string]interface{}  "path, url, size, checksum"
// @Failure      400  {object}  map[string]interface{}  "Invalid upload"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/media [post]
func (h *MediaHandlers) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file field: " + err.Error()})
		return
	}
	if file.Size > maxMediaSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("File exceeds the %d byte limit", maxMediaSize)})
		return
	}

	name := sanitizeFilename(file.Filename)
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid filename"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload: " + err.Error()})
		return
	}
	defer src.Close()

	// A UUID prefix keeps uploads with the same filename from clobbering
	// each other.
	storagePath := fmt.Sprintf("media/%s-%s", uuid.New().String()[:8], name)

	result, err := h.backend.Upload(c.Request.Context(), storagePath, src, file.Size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file: " + err.Error()})
		return
	}

	url, err := h.backend.GetURL(c.Request.Context(), result.Path, presignTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build download URL: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"path":     result.Path,
		"url":      url,
		"size":     result.Size,
		"checksum": result.Checksum,
	})
}

// ---- GET /api/v1/media/*filepath ---------------------------------------------

// @Summary      Serve a media file
// @Description  Streams a stored media file. Used by the local backend; S3 serves presigned URLs directly.
// @Tags         Media
// @Produce      octet-stream
// @Param        filepath  path  string  true  "Storage path"
// @Success      200  {file}  binary
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/media/{filepath} [get]
func (h *MediaHandlers) Serve(c *gin.Context) {
	storagePath, ok := cleanMediaPath(c)
	if !ok {
		return
	}

	exists, err := h.backend.Exists(c.Request.Context(), storagePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check file: " + err.Error()})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	meta, err := h.backend.GetMetadata(c.Request.Context(), storagePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read metadata: " + err.Error()})
		return
	}

	reader, err := h.backend.Download(c.Request.Context(), storagePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open file: " + err.Error()})
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, meta.Size, "application/octet-stream", reader, map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", path.Base(storagePath)),
	})
}

// ---- DELETE /api/v1/media/*filepath -----------------------------------------

// @Summary      Delete a media file
// @Description  Removes a stored media file.
// @Tags         Media
// @Security     Bearer
// @Produce      json
// @Param        filepath  path  string  true  "Storage path"
// @Success      200  {object}  map[string]interface{}  "Deleted"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/media/{filepath} [delete]
func (h *MediaHandlers) Delete(c *gin.Context) {
	storagePath, ok := cleanMediaPath(c)
	if !ok {
		return
	}

	exists, err := h.backend.Exists(c.Request.Context(), storagePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check file: " + err.Error()})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
		return
	}

	if err := h.backend.Delete(c.Request.Context(), storagePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete file: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "File deleted", "path": storagePath})
}

// ---- Helpers ---------------------------------------------------------------

// cleanMediaPath extracts and validates the *filepath parameter, rejecting
// traversal attempts.
func cleanMediaPath(c *gin.Context) (string, bool) {
	raw := strings.TrimPrefix(c.Param("filepath"), "/")
	cleaned := path.Clean(raw)
	if cleaned == "." || cleaned == "/" || strings.HasPrefix(cleaned, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file path"})
		return "", false
	}
	return cleaned, true
}

// sanitizeFilename strips path components and characters outside a safe set.
func sanitizeFilename(name string) string {
	name = path.Base(name)
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" || out == "." {
		return ""
	}
	return out
}
