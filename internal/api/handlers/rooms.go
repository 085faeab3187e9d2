package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/tiltmaze/backend/internal/ws"
)

type createRoomRequest struct {
	Code string `json:"code"`
}

// ListRooms returns every live room on this instance.
func ListRooms(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		rooms := hub.Rooms()
		c.JSON(http.StatusOK, gin.H{"rooms": rooms, "count": len(rooms)})
	}
}

// CreateRoom starts an empty room. The body is optional; without a code a random one is picked.
func CreateRoom(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		room, err := hub.CreateRoom(req.Code)
		switch {
		case errors.Is(err, ws.ErrInvalidCode):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case errors.Is(err, ws.ErrRoomExists):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		case err != nil:
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}

		log.Printf("[API] Room %s created", room.Code)
		c.Header("X-Room-Code", room.Code)
		c.JSON(http.StatusCreated, gin.H{
			"code":   room.Code,
			"ws_url": wsPath(room.Code),
			"room":   room.Info(),
		})
	}
}

// GetRoom returns the room snapshot: live when the room is on this instance, stored otherwise.
func GetRoom(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := hub.LoadSnapshot(c.Request.Context(), c.Param("code"))
		switch {
		case errors.Is(err, ws.ErrInvalidCode):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case errors.Is(err, ws.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		case err != nil:
			log.Printf("[API] Snapshot load failed for %s: %v", c.Param("code"), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load room"})
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

// ResetRoom resets a room here or relays the reset to the instance hosting it.
func ResetRoom(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		relayed, err := hub.RequestReset(c.Request.Context(), c.Param("code"))
		switch {
		case errors.Is(err, ws.ErrInvalidCode):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case errors.Is(err, ws.ErrRoomNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		case err != nil:
			log.Printf("[API] Reset relay failed for %s: %v", c.Param("code"), err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to relay reset"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "reset requested", "relayed": relayed})
	}
}
