package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/tiltmaze/backend/internal/config"
)

var devOrigins = []string{
	"http://localhost:5173", // Vite dev server
	"http://127.0.0.1:5173",
	"http://localhost:3000",
}

// AllowedOrigins lists the browser origins allowed to call the API and open sockets.
func AllowedOrigins(cfg *config.Config) []string {
	var origins []string
	if cfg.Environment == "development" {
		origins = append(origins, devOrigins...)
	}
	if cfg.FrontendURL != "" {
		origins = append(origins, strings.TrimRight(cfg.FrontendURL, "/"))
	}
	return origins
}

// CORSMiddleware returns a CORS middleware configured for the environment
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	origins := AllowedOrigins(cfg)
	log.Printf("[CORS] Environment: %s, allowed origins: %v", cfg.Environment, origins)

	corsConfig := cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", "Content-Length", "Content-Type", "Accept",
			"Cache-Control", "X-Requested-With",
		},
		ExposeHeaders: []string{"Content-Length", "X-Room-Code"},
		MaxAge:        12 * time.Hour, // Cache preflight responses
	}
	if len(origins) == 0 {
		log.Warn("[CORS] No FRONTEND_URL configured; allowing all origins")
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
	}

	return cors.New(corsConfig)
}

// WebSocketOriginCheck rejects websocket upgrades from origins outside AllowedOrigins.
// Development also accepts any localhost port.
func WebSocketOriginCheck(cfg *config.Config) gin.HandlerFunc {
	allowed := AllowedOrigins(cfg)
	return func(c *gin.Context) {
		if !strings.Contains(strings.ToLower(c.GetHeader("Connection")), "upgrade") ||
			strings.ToLower(c.GetHeader("Upgrade")) != "websocket" {
			c.Next()
			return
		}

		origin := c.GetHeader("Origin")
		if origin == "" {
			// non-browser clients (tests, CLI tools) send no origin
			c.Next()
			return
		}

		ok := cfg.Environment == "development" &&
			(strings.HasPrefix(origin, "http://localhost:") || strings.HasPrefix(origin, "http://127.0.0.1:"))
		for _, o := range allowed {
			if origin == o {
				ok = true
				break
			}
		}
		if !ok {
			log.Printf("[CORS] Rejected websocket origin %s", origin)
			c.AbortWithStatusJSON(403, gin.H{"error": "WebSocket origin not allowed"})
			return
		}
		c.Next()
	}
}
