package api

import (
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/tiltmaze/backend/internal/api/handlers"
	"github.com/tiltmaze/backend/internal/config"
	"github.com/tiltmaze/backend/internal/game"
	"github.com/tiltmaze/backend/internal/middleware"
	"github.com/tiltmaze/backend/internal/ws"
)

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, db *sqlx.DB, rdb *redis.Client, cfg *config.Config, hub *ws.Hub, rec *game.Recorder) {
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] No-cache headers enabled for all routes")
	}

	// API v1 group
	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(db, rdb, hub))

		rooms := v1.Group("/rooms")
		{
			rooms.GET("", handlers.ListRooms(hub))
			rooms.POST("", handlers.CreateRoom(hub))
			rooms.GET("/:code", handlers.GetRoom(hub))
			rooms.POST("/:code/reset", handlers.ResetRoom(hub))
			rooms.GET("/:code/ws", middleware.WebSocketOriginCheck(cfg), handlers.HandleRoomWebSocket(hub))
		}

		v1.GET("/leaderboard", handlers.GetLeaderboard(rec))
		v1.GET("/results", handlers.GetRecentResults(rec))
	}
}
