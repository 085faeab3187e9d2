package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/tiltmaze/backend/internal/game"
)

// GetLeaderboard ranks players by wins.
func GetLeaderboard(rec *game.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		entries, err := rec.Leaderboard(c.Request.Context(), parseLimit(c))
		if err != nil {
			log.Printf("[DB] Leaderboard query failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load leaderboard"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
	}
}

// GetRecentResults lists the latest wins, newest first.
func GetRecentResults(rec *game.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		results, err := rec.RecentResults(c.Request.Context(), parseLimit(c))
		if err != nil {
			log.Printf("[DB] Results query failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load results"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"results": results})
	}
}
