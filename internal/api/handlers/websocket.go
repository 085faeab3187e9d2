package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/tiltmaze/backend/internal/ws"
)

// HandleRoomWebSocket handles real-time game communication for one room
func HandleRoomWebSocket(hub *ws.Hub) gin.HandlerFunc {
	return ws.HandleWebSocket(hub)
}
