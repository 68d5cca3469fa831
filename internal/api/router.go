// Package api wires together all HTTP routes for the catalog-sync backend.
//
// Route grouping philosophy:
//   - /health, /ready, and /version are unauthenticated so load balancers and
//     orchestrators can probe the service without credentials.
//   - /api/v1/auth/login is unauthenticated but rate limited aggressively.
//   - Everything else under /api/v1/ requires a valid session JWT; media
//     serving is the one exception so cover images embed in public pages.
package api

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/catalog-sync/catalog-sync/internal/api/admin"
	"github.com/catalog-sync/catalog-sync/internal/config"
	"github.com/catalog-sync/catalog-sync/internal/content"
	"github.com/catalog-sync/catalog-sync/internal/credentials"
	"github.com/catalog-sync/catalog-sync/internal/crypto"
	"github.com/catalog-sync/catalog-sync/internal/db/repositories"
	"github.com/catalog-sync/catalog-sync/internal/jobs"
	"github.com/catalog-sync/catalog-sync/internal/middleware"
	"github.com/catalog-sync/catalog-sync/internal/storage"

	// Import storage backends to register them
	_ "github.com/catalog-sync/catalog-sync/internal/storage/local"
	_ "github.com/catalog-sync/catalog-sync/internal/storage/s3"
)

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) is responsible for
// calling Shutdown() when the process receives a termination signal.
type BackgroundServices struct {
	catalogSyncJob *jobs.CatalogSyncJob
	rateLimiters   []*middleware.RateLimiter
}

// Shutdown stops all background goroutines. It should be called after the HTTP
// server has been shut down so that in-flight requests are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.catalogSyncJob != nil {
		bg.catalogSyncJob.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sqlx.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize storage backend
	storageBackend, err := storage.NewStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}
	log.Printf("Initialized storage backend: %s", cfg.Storage.DefaultBackend)

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	credRepo := repositories.NewCredentialRepository(db)
	catalogRepo := repositories.NewCatalogRepository(db)
	contentRepo := repositories.NewContentRepository(db)

	// Initialize the key cipher for credential encryption at rest
	keyCipher, err := crypto.NewKeyCipher(cfg.Encryption.Secret)
	if err != nil {
		log.Fatalf("Failed to initialize key cipher: %v", err)
	}

	credStore := credentials.NewStore(credRepo, keyCipher,
		cfg.Catalog.DefaultBaseURL, cfg.Catalog.ReferralCode, cfg.Catalog.PageSize)

	// Initialize and start the catalog sync job
	catalogSyncJob := jobs.NewCatalogSyncJob(credStore, credRepo, catalogRepo,
		cfg.Catalog.ReferralCode, cfg.Catalog.PageSize)
	catalogSyncJob.Start(context.Background(), cfg.Catalog.SchedulerIntervalMinutes)
	log.Printf("Catalog sync job started (checking every %d minutes)", cfg.Catalog.SchedulerIntervalMinutes)

	// Content sync is optional; without Notion settings the endpoint returns 503.
	var syncer *content.Syncer
	if cfg.Content.NotionToken != "" && cfg.Content.NotionDatabaseID != "" {
		notionClient := content.NewNotionClient(cfg.Content.NotionToken,
			cfg.Content.NotionDatabaseID, cfg.Content.NotionVersion)
		syncer = content.NewSyncer(notionClient, contentRepo)
	} else {
		log.Println("Notion content sync disabled (no token or database id configured)")
	}

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// Readiness check endpoint (includes storage backend probe)
	router.GET("/ready", readinessHandler(db, storageBackend))

	// API version
	router.GET("/version", versionHandler())

	// Initialize handlers
	authHandlers := admin.NewAuthHandlers(cfg, userRepo)
	credHandlers := admin.NewCredentialHandlers(credStore, credRepo)
	credHandlers.SetSyncJob(catalogSyncJob)
	catalogHandlers := admin.NewCatalogHandlers(credStore, catalogRepo)
	contentHandlers := admin.NewContentHandlers(syncer, contentRepo)
	mediaHandlers := admin.NewMediaHandlers(storageBackend)
	statsHandlers := admin.NewStatsHandler(db)

	// Initialize rate limiters
	authRateLimiter := middleware.NewRateLimiter(middleware.AuthRateLimitConfig())
	generalRateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	uploadRateLimiter := middleware.NewRateLimiter(middleware.UploadRateLimitConfig())

	apiV1 := router.Group("/api/v1")
	{
		// Public authentication endpoint (no auth required, but rate limited)
		authGroup := apiV1.Group("/auth")
		authGroup.Use(middleware.RateLimitMiddleware(authRateLimiter))
		{
			authGroup.POST("/login", authHandlers.LoginHandler())
		}

		// Media serving is public so cover images embed in published pages.
		apiV1.GET("/media/*filepath", mediaHandlers.Serve)

		// Authenticated-only endpoints
		authenticatedGroup := apiV1.Group("")
		authenticatedGroup.Use(middleware.AuthMiddleware(userRepo))
		authenticatedGroup.Use(middleware.RateLimitMiddleware(generalRateLimiter))
		{
			// Auth endpoints (require auth)
			authenticatedGroup.POST("/auth/refresh", authHandlers.RefreshHandler())
			authenticatedGroup.GET("/auth/me", authHandlers.MeHandler())
			authenticatedGroup.POST("/auth/password", authHandlers.ChangePasswordHandler())

			// Stats endpoint
			authenticatedGroup.GET("/stats/dashboard", statsHandlers.GetDashboardStats)

			// Credential management and sync triggering
			credsGroup := authenticatedGroup.Group("/credentials")
			{
				credsGroup.GET("", credHandlers.List)
				credsGroup.POST("", credHandlers.Create)
				credsGroup.GET("/:id", credHandlers.Get)
				credsGroup.PUT("/:id", credHandlers.Update)
				credsGroup.DELETE("/:id", credHandlers.Delete)
				credsGroup.POST("/:id/sync", credHandlers.TriggerSync)
				credsGroup.GET("/:id/sync-runs", credHandlers.ListSyncRuns)

				// Synced catalog views
				credsGroup.GET("/:id/products", catalogHandlers.ListProducts)
				credsGroup.GET("/:id/services", catalogHandlers.ListServices)
				credsGroup.GET("/:id/scheduling-links", catalogHandlers.ListSchedulingLinks)
				credsGroup.GET("/:id/catalog/summary", catalogHandlers.GetSummary)
			}

			// Content records and Notion sync
			contentGroup := authenticatedGroup.Group("/content")
			{
				contentGroup.GET("", contentHandlers.List)
				contentGroup.POST("/sync", contentHandlers.Sync)
				contentGroup.GET("/:slug", contentHandlers.Get)
			}

			// Media management (stricter rate limit for uploads)
			authenticatedGroup.POST("/media",
				middleware.RateLimitMiddleware(uploadRateLimiter),
				mediaHandlers.Upload)
			authenticatedGroup.DELETE("/media/*filepath", mediaHandlers.Delete)
		}
	}

	bg := &BackgroundServices{
		catalogSyncJob: catalogSyncJob,
		rateLimiters:   []*middleware.RateLimiter{authRateLimiter, generalRateLimiter, uploadRateLimiter},
	}

	return router, bg
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Check database connection
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks database and storage connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, error: database not ready"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
// Unlike the liveness probe (/health), this also checks the storage backend so
// that a Kubernetes readiness gate fails when uploads/downloads would error.
func readinessHandler(db *sqlx.DB, storageBackend storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		// Check database connection
		if err := db.Ping(); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		// Check storage backend with a known-absent sentinel path. Exists()
		// exercises authentication and network connectivity without creating
		// any state.
		if _, err := storageBackend.Exists(c.Request.Context(), ".readiness-probe"); err != nil {
			checks["storage"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "storage backend not ready",
			})
			return
		}
		checks["storage"] = "healthy"

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Description  Returns the current API version.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware provides structured logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		// Log the request
		if cfg.Logging.Format == "json" {
			logJSON(c, latency, path, query)
		} else {
			logText(c, latency, path, query)
		}
	}
}

// logJSON logs a request as a JSON-structured slog record.
func logJSON(c *gin.Context, latency time.Duration, path, query string) {
	requestID, _ := c.Get(middleware.RequestIDKey)
	slog.LogAttrs(
		c.Request.Context(),
		slog.LevelInfo,
		"http request",
		slog.String("method", c.Request.Method),
		slog.String("path", path),
		slog.String("query", query),
		slog.Int("status", c.Writer.Status()),
		slog.Int("size", c.Writer.Size()),
		slog.Duration("latency", latency),
		slog.String("ip", c.ClientIP()),
		slog.String("request_id", fmt.Sprintf("%v", requestID)),
		slog.String("user_agent", c.Request.UserAgent()),
	)
}

// logText logs a request as a human-readable slog text record.
func logText(c *gin.Context, latency time.Duration, path, query string) {
	// reuse the same structured output; slog will emit text format when the global
	// handler is a TextHandler (configured in telemetry.SetupLogger).
	logJSON(c, latency, path, query)
}

// CORSMiddleware handles CORS
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
