package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Routes
	setupRoutes(r, handler, apiAccessKey)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	// Syndication state, readable without authentication
	r.GET("/posts/:id/syndication", handler.GetSyndication)

	// OAuth redirect target; the instance calls back here after authorization
	r.GET("/oauth/callback", handler.OAuthCallback)

	// Health endpoint
	r.GET("/health", handler.GetHealth)

	// Blog-facing webhooks and admin API (conditionally enabled with authentication)
	if apiAccessKey != "" {
		webhooks := r.Group("/webhooks")
		webhooks.Use(authMiddleware(apiAccessKey))
		{
			webhooks.POST("/post-status", handler.PostStatusWebhook)
			webhooks.POST("/media", handler.MediaWebhook)
		}

		api := r.Group("/api")
		api.Use(authMiddleware(apiAccessKey))
		{
			api.GET("/settings", handler.APIGetSettings)
			api.PUT("/settings", handler.APIUpdateSettings)
			api.POST("/settings/reset", handler.APIResetSettings)
			api.POST("/posts/:id/unlink", handler.APIUnlinkPost)
			api.POST("/auth/verify", handler.APIVerifyAuth)
			api.POST("/auth/refresh", handler.APIRefreshAuth)
			api.POST("/auth/revoke", handler.APIRevokeAuth)
		}
		slog.Info("API endpoints enabled with authentication")
	} else {
		slog.Warn("API endpoints disabled (API_ACCESS_KEY not set)")
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		endpoints := map[string]string{
			"syndication": "/posts/<id>/syndication",
			"callback":    "/oauth/callback",
			"health":      "/health",
		}

		// Add API endpoints if authentication is enabled
		if apiAccessKey != "" {
			endpoints["post_status"] = "/webhooks/post-status (POST, requires X-API-Key header)"
			endpoints["media"] = "/webhooks/media (POST, requires X-API-Key header)"
			endpoints["settings"] = "/api/settings (GET/PUT, requires X-API-Key header)"
			endpoints["unlink"] = "/api/posts/<id>/unlink (POST, requires X-API-Key header)"
			endpoints["auth"] = "/api/auth/{verify,refresh,revoke} (POST, requires X-API-Key header)"
		}

		c.JSON(200, gin.H{
			"service":     "Pixel Press",
			"description": "Syndicates blog posts to a Pixelfed instance",
			"endpoints":   endpoints,
			"api_status": map[string]interface{}{
				"enabled":       apiAccessKey != "",
				"auth_required": apiAccessKey != "",
				"header":        "X-API-Key",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware creates authentication middleware for API endpoints
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get API key from X-API-Key header
		providedKey := c.GetHeader("X-API-Key")

		// Also check Authorization header with Bearer prefix
		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		// Check if API key is provided and matches
		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		// Continue to next middleware/handler
		c.Next()
	}
}
