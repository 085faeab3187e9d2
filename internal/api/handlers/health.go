package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/tiltmaze/backend/internal/ws"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck reports process health and the state of the optional stores.
// Stores that are not configured are reported as "disabled" and do not fail the check.
func HealthCheck(db *sqlx.DB, rdb *redis.Client, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status, label := http.StatusOK, "ok"
		dbStatus := "disabled"
		if db != nil {
			dbStatus = "ok"
			if err := db.PingContext(ctx); err != nil {
				dbStatus = err.Error()
				status, label = http.StatusServiceUnavailable, "degraded"
			}
		}
		redisStatus := "disabled"
		if rdb != nil {
			redisStatus = "ok"
			if err := rdb.Ping(ctx).Err(); err != nil {
				redisStatus = err.Error()
				status, label = http.StatusServiceUnavailable, "degraded"
			}
		}

		c.JSON(status, gin.H{
			"status":   label,
			"service":  "tiltmaze-api",
			"version":  version,
			"uptime":   time.Since(startTime).String(),
			"rooms":    len(hub.Rooms()),
			"database": dbStatus,
			"redis":    redisStatus,
		})
	}
}
