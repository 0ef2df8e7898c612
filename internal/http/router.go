// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns
// such as tracing, correlation IDs, logging, panic recovery, metrics,
// CORS, and rate limiting, and mounts both the REST surface and the
// WebSocket entry point.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured access logs
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS, gzip
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-chatroom-backend/internal/chat"
	"github.com/tbourn/go-chatroom-backend/internal/config"
	"github.com/tbourn/go-chatroom-backend/internal/http/handlers"
	"github.com/tbourn/go-chatroom-backend/internal/http/middleware"
	"github.com/tbourn/go-chatroom-backend/internal/services"
)

// RegisterRoutes attaches all middleware and endpoints to the given Gin
// engine: health and metrics, the /api/auth and /api/messages REST
// surfaces, and the /ws WebSocket upgrade.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, hub *chat.Hub, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured access logging
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (allow all when none configured) and compression
	if len(cfg.CORS.AllowedOrigins) == 0 {
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "Content-Length"},
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, "Route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// Dependency injection: services ← db/config
	authSvc := &services.AuthService{
		DB:           db,
		JWTSecret:    []byte(cfg.JWTSecret),
		TokenTTL:     cfg.TokenTTL,
		StoreTimeout: cfg.StoreTimeout,
	}
	msgSvc := &services.MessageService{
		DB:           db,
		StoreTimeout: cfg.StoreTimeout,
	}

	authH := &handlers.AuthHandlers{Auth: authSvc}
	msgH := &handlers.MessageHandlers{Messages: msgSvc}
	wsH := &handlers.WSHandler{Hub: hub, AllowedOrigins: cfg.CORS.AllowedOrigins}

	requireAuth := middleware.RequireAuth(authSvc)

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authH.Register)
			auth.POST("/login", authH.Login)
			auth.POST("/logout", requireAuth, authH.Logout)
			auth.GET("/me", requireAuth, authH.Me)
			auth.GET("/users", authH.ListUsers)
		}

		messages := api.Group("/messages")
		{
			messages.GET("/public", msgH.GetPublicMessages)
			messages.POST("/send", requireAuth, msgH.SendMessage)
			messages.GET("/private/:userId", requireAuth, msgH.GetPrivateMessages)
			messages.PUT("/:id", requireAuth, msgH.EditMessage)
			messages.DELETE("/:id", requireAuth, msgH.DeleteMessage)
		}
	}

	// Real-time entry point
	r.GET("/ws", wsH.Serve)
}

// limitBody returns a Gin middleware that caps the request body size for
// all endpoints using http.MaxBytesReader.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
