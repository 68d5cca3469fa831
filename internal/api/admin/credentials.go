// credentials.go implements admin HTTP handlers for storefront credentials:
// CRUD, manual sync triggering, and sync run history.
package admin

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/catalog-sync/catalog-sync/internal/catalog"
	"github.com/catalog-sync/catalog-sync/internal/credentials"
	"github.com/catalog-sync/catalog-sync/internal/db/models"
	"github.com/catalog-sync/catalog-sync/internal/db/repositories"
)

// CatalogSyncJobInterface is the subset of CatalogSyncJob required by the handler.
type CatalogSyncJobInterface interface {
	TriggerSync(ctx context.Context, credentialID uuid.UUID) error
	IsSyncing(credentialID uuid.UUID) bool
}

// CredentialHandlers handles admin endpoints for storefront credentials.
type CredentialHandlers struct {
	store    *credentials.Store
	credRepo *repositories.CredentialRepository
	syncJob  CatalogSyncJobInterface
}

// NewCredentialHandlers creates a new CredentialHandlers.
func NewCredentialHandlers(store *credentials.Store, credRepo *repositories.CredentialRepository) *CredentialHandlers {
	return &CredentialHandlers{store: store, credRepo: credRepo}
}

// SetSyncJob attaches the live sync job so handlers can trigger manual syncs.
func (h *CredentialHandlers) SetSyncJob(syncJob CatalogSyncJobInterface) {
	h.syncJob = syncJob
}

// ---- POST /api/v1/credentials -----------------------------------------------

// @Summary      Connect a storefront account
// @Description  Validates and stores a new storefront API key. The key is probed against the platform unless skip_validation is set.
// @Tags         Credentials
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  models.CreateCredentialRequest  true  "Credential"
// @Success      201  {object}  models.Credential
// @Failure      400  {object}  map[string]interface{}  "Invalid request or key format"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      422  {object}  map[string]interface{}  "Key rejected by the platform"
// @Failure      502  {object}  map[string]interface{}  "Platform unreachable"
// @Router       /api/v1/credentials [post]
func (h *CredentialHandlers) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.CreateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cred, err := h.store.Create(c.Request.Context(), userID, &req)
	if err != nil {
		writeCredentialError(c, err)
		return
	}

	c.JSON(http.StatusCreated, cred)
}

// ---- GET /api/v1/credentials ------------------------------------------------

// @Summary      List connected accounts
// @Description  Returns all storefront credentials owned by the authenticated user. Keys are masked.
// @Tags         Credentials
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "credentials, total_count"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/credentials [get]
func (h *CredentialHandlers) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	creds, err := h.store.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list credentials: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"credentials": creds,
		"total_count": len(creds),
	})
}

// ---- GET /api/v1/credentials/:id --------------------------------------------

// @Summary      Get a connected account
// @Description  Returns one credential owned by the authenticated user. The key is masked.
// @Tags         Credentials
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Credential UUID"
// @Success      200  {object}  models.Credential
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Router       /api/v1/credentials/{id} [get]
func (h *CredentialHandlers) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	id, ok := parseCredentialID(c)
	if !ok {
		return
	}

	cred, err := h.store.Get(c.Request.Context(), userID, id)
	if err != nil {
		writeCredentialError(c, err)
		return
	}

	c.JSON(http.StatusOK, cred)
}

// ---- PUT /api/v1/credentials/:id --------------------------------------------

// @Summary      Update a connected account
// @Description  Applies partial changes to a credential. A replacement key is format-checked and re-encrypted without a live probe.
// @Tags         Credentials
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                          true  "Credential UUID"
// @Param        body  body  models.UpdateCredentialRequest  true  "Fields to update"
// @Success      200  {object}  models.Credential
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Router       /api/v1/credentials/{id} [put]
func (h *CredentialHandlers) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	id, ok := parseCredentialID(c)
	if !ok {
		return
	}

	var req models.UpdateCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cred, err := h.store.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		writeCredentialError(c, err)
		return
	}

	c.JSON(http.StatusOK, cred)
}

// ---- DELETE /api/v1/credentials/:id -----------------------------------------

// @Summary      Disconnect an account
// @Description  Deletes a credential and all catalog rows synced under it.
// @Tags         Credentials
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Credential UUID"
// @Success      200  {object}  map[string]interface{}  "Deleted"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      409  {object}  map[string]interface{}  "Sync in progress"
// @Router       /api/v1/credentials/{id} [delete]
func (h *CredentialHandlers) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	id, ok := parseCredentialID(c)
	if !ok {
		return
	}

	if h.syncJob != nil && h.syncJob.IsSyncing(id) {
		c.JSON(http.StatusConflict, gin.H{"error": "A sync is currently running for this credential"})
		return
	}

	if err := h.store.Delete(c.Request.Context(), userID, id); err != nil {
		writeCredentialError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Credential deleted", "id": id})
}

// ---- POST /api/v1/credentials/:id/sync --------------------------------------

// @Summary      Trigger a catalog sync
// @Description  Enqueues a manual catalog sync for the credential. Returns 409 if one is already running.
// @Tags         Credentials
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Credential UUID"
// @Success      202  {object}  map[string]interface{}  "Sync enqueued"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      409  {object}  map[string]interface{}  "Sync already running"
// @Failure      503  {object}  map[string]interface{}  "Sync queue full"
// @Router       /api/v1/credentials/{id}/sync [post]
func (h *CredentialHandlers) TriggerSync(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	id, ok := parseCredentialID(c)
	if !ok {
		return
	}

	// Verify ownership before touching the job queue.
	if _, err := h.store.Get(c.Request.Context(), userID, id); err != nil {
		writeCredentialError(c, err)
		return
	}

	if h.syncJob == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Sync job not initialised"})
		return
	}

	if h.syncJob.IsSyncing(id) {
		c.JSON(http.StatusConflict, gin.H{"error": "A sync is already running for this credential"})
		return
	}

	if err := h.syncJob.TriggerSync(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":       "Sync enqueued",
		"credential_id": id,
		"triggered_at":  time.Now().UTC(),
	})
}

// ---- GET /api/v1/credentials/:id/sync-runs ----------------------------------

// @Summary      Get sync run history
// @Description  Returns the most recent sync runs for the credential, newest first.
// @Tags         Credentials
// @Security     Bearer
// @Produce      json
// @Param        id     path   string  true   "Credential UUID"
// @Param        limit  query  int     false  "Maximum rows to return (default: 50)"
// @Success      200  {object}  map[string]interface{}  "sync_runs, total_count, syncing"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/credentials/{id}/sync-runs [get]
func (h *CredentialHandlers) ListSyncRuns(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	id, ok := parseCredentialID(c)
	if !ok {
		return
	}

	if _, err := h.store.Get(c.Request.Context(), userID, id); err != nil {
		writeCredentialError(c, err)
		return
	}

	limit := 50
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.credRepo.ListSyncRuns(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sync runs: " + err.Error()})
		return
	}

	syncing := h.syncJob != nil && h.syncJob.IsSyncing(id)

	c.JSON(http.StatusOK, gin.H{
		"sync_runs":   runs,
		"total_count": len(runs),
		"syncing":     syncing,
	})
}

// ---- Helpers ---------------------------------------------------------------

// parseCredentialID parses the :id path parameter as a UUID and writes a 400 on failure.
func parseCredentialID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid credential ID"})
		return uuid.Nil, false
	}
	return id, true
}

// writeCredentialError maps store and platform errors onto HTTP statuses.
func writeCredentialError(c *gin.Context, err error) {
	var vErr *catalog.ValidationError
	var rErr *catalog.RemoteError

	switch {
	case errors.Is(err, credentials.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Credential not found"})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error(), "field": vErr.Field})
	case errors.As(err, &rErr) && rErr.KeyRejected():
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "The platform rejected this API key"})
	case errors.As(err, &rErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": "The platform could not be reached: " + rErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
