// auth.go implements password login, token refresh, and the current-user endpoint
// for the admin dashboard. Sessions are stateless JWTs; logout is client-side.
package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/catalog-sync/catalog-sync/internal/auth"
	"github.com/catalog-sync/catalog-sync/internal/config"
	"github.com/catalog-sync/catalog-sync/internal/db/models"
	"github.com/catalog-sync/catalog-sync/internal/db/repositories"
)

// AuthHandlers handles authentication endpoints.
type AuthHandlers struct {
	userRepo *repositories.UserRepository
	tokenTTL time.Duration
}

// NewAuthHandlers creates a new AuthHandlers.
func NewAuthHandlers(cfg *config.Config, userRepo *repositories.UserRepository) *AuthHandlers {
	ttl := cfg.Auth.TokenTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &AuthHandlers{userRepo: userRepo, tokenTTL: ttl}
}

// ---- POST /api/v1/auth/login ------------------------------------------------

// @Summary      Log in
// @Description  Authenticates with email and password and returns a session JWT.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body  body  models.LoginRequest  true  "Login credentials"
// @Success      200  {object}  models.LoginResponse
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Invalid email or password"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/login [post]
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := h.userRepo.GetByEmail(c.Request.Context(), req.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
			return
		}

		// Run the bcrypt comparison even when the user does not exist so the
		// response time does not reveal which emails are registered.
		hash := "$2a$10$invalidinvalidinvalidinvalidinvalidinvalidinvalidinval"
		if user != nil {
			hash = user.PasswordHash
		}
		cmpErr := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password))
		if user == nil || !user.Active || cmpErr != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}

		token, err := auth.GenerateJWT(user.ID.String(), user.Email, user.Role, h.tokenTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusOK, models.LoginResponse{
			Token:     token,
			ExpiresAt: time.Now().Add(h.tokenTTL),
			User:      user,
		})
	}
}

// ---- POST /api/v1/auth/refresh ----------------------------------------------

// @Summary      Refresh token
// @Description  Issues a new session JWT for the authenticated user.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "token, expires_at"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/refresh [post]
func (h *AuthHandlers) RefreshHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		token, err := auth.GenerateJWT(user.ID.String(), user.Email, user.Role, h.tokenTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate new token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_at": time.Now().Add(h.tokenTTL),
		})
	}
}

// ---- GET /api/v1/auth/me ----------------------------------------------------

// @Summary      Get current user
// @Description  Returns the currently authenticated user.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  models.User
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/auth/me [get]
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		c.JSON(http.StatusOK, user)
	}
}

// ---- POST /api/v1/auth/password ---------------------------------------------

// ChangePasswordRequest is the payload for changing the current user's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=12"`
}

// @Summary      Change password
// @Description  Changes the authenticated user's password after verifying the current one.
// @Tags         Authentication
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  ChangePasswordRequest  true  "Password change"
// @Success      200  {object}  map[string]interface{}  "Password changed"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Wrong current password"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/password [post]
func (h *AuthHandlers) ChangePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		var req ChangePasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Current password is incorrect"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}

		if err := h.userRepo.UpdatePassword(c.Request.Context(), user.ID, string(hash)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update password"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
	}
}

// ---- Helpers ---------------------------------------------------------------

// currentUser returns the user loaded by the auth middleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// currentUserID returns the authenticated user's ID from the context.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
