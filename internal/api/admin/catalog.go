// catalog.go implements read endpoints over the locally synced catalog:
// products, services, and scheduling links grouped per credential.
package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/catalog-sync/catalog-sync/internal/credentials"
	"github.com/catalog-sync/catalog-sync/internal/db/repositories"
)

// CatalogHandlers handles read endpoints for synced catalog data.
type CatalogHandlers struct {
	store       *credentials.Store
	catalogRepo *repositories.CatalogRepository
}

// NewCatalogHandlers creates a new CatalogHandlers.
func NewCatalogHandlers(store *credentials.Store, catalogRepo *repositories.CatalogRepository) *CatalogHandlers {
	return &CatalogHandlers{store: store, catalogRepo: catalogRepo}
}

// ---- GET /api/v1/credentials/:id/products -----------------------------------

// @Summary      List synced products
// @Description  Returns the locally mirrored products for a credential.
// @Tags         Catalog
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Credential UUID"
// @Success      200  {object}  map[string]interface{}  "products, total_count"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/credentials/{id}/products [get]
func (h *CatalogHandlers) ListProducts(c *gin.Context) {
	id, ok := h.authorizeCredential(c)
	if !ok {
		return
	}

	products, err := h.catalogRepo.ListProducts(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list products: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":    products,
		"total_count": len(products),
	})
}

// ---- GET /api/v1/credentials/:id/services -----------------------------------

// @Summary      List synced services
// @Description  Returns the locally mirrored services for a credential.
// @Tags         Catalog
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Credential UUID"
// @Success      200  {object}  map[string]interface{}  "services, total_count"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/credentials/{id}/services [get]
func (h *CatalogHandlers) ListServices(c *gin.Context) {
	id, ok := h.authorizeCredential(c)
	if !ok {
		return
	}

	services, err := h.catalogRepo.ListServices(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list services: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"services":    services,
		"total_count": len(services),
	})
}

// ---- GET /api/v1/credentials/:id/scheduling-links ---------------------------

// @Summary      List synced scheduling links
// @Description  Returns the locally mirrored scheduling links for a credential.
// @Tags         Catalog
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Credential UUID"
// @Success      200  {object}  map[string]interface{}  "scheduling_links, total_count"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/credentials/{id}/scheduling-links [get]
func (h *CatalogHandlers) ListSchedulingLinks(c *gin.Context) {
	id, ok := h.authorizeCredential(c)
	if !ok {
		return
	}

	links, err := h.catalogRepo.ListSchedulingLinks(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list scheduling links: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"scheduling_links": links,
		"total_count":      len(links),
	})
}

// ---- GET /api/v1/credentials/:id/catalog/summary ----------------------------

// @Summary      Get catalog summary
// @Description  Returns per-entity counts of the locally mirrored catalog for a credential.
// @Tags         Catalog
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Credential UUID"
// @Success      200  {object}  map[string]interface{}  "products, services, scheduling_links"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/credentials/{id}/catalog/summary [get]
func (h *CatalogHandlers) GetSummary(c *gin.Context) {
	id, ok := h.authorizeCredential(c)
	if !ok {
		return
	}

	products, services, links, err := h.catalogRepo.CountByCredential(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count catalog items: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products":         products,
		"services":         services,
		"scheduling_links": links,
	})
}

// authorizeCredential parses the :id parameter and verifies the credential
// belongs to the authenticated user.
func (h *CatalogHandlers) authorizeCredential(c *gin.Context) (id uuid.UUID, ok bool) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}

	id, ok = parseCredentialID(c)
	if !ok {
		return uuid.Nil, false
	}

	if _, err := h.store.Get(c.Request.Context(), userID, id); err != nil {
		writeCredentialError(c, err)
		return uuid.Nil, false
	}
	return id, true
}
