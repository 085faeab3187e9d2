package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Client is a websocket connection attached to one room.
type Client struct {
	conn *websocket.Conn
	id   string
	room *Room
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newClient(conn *websocket.Conn, id string) *Client {
	return &Client{
		conn: conn,
		id:   id,
		send: make(chan []byte, sendBufferSize),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send queues a frame. It returns false when the buffer is full or the client is closing.
func (c *Client) Send(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which then closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// HandleWebSocket upgrades the request and attaches the connection to the room named by :code.
func HandleWebSocket(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		code, err := NormalizeCode(c.Param("code"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room code"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := newClient(conn, uuid.NewString())
		room, err := hub.Attach(code, client)
		if err != nil {
			log.Printf("[WS] Attach to room %s failed: %v", code, err)
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
				time.Now().Add(writeWait))
			conn.Close()
			return
		}
		client.room = room

		go client.writePump()
		go client.readPump()
	}
}

// readPump decodes frames and hands them to the room loop.
func (c *Client) readPump() {
	defer func() {
		c.room.Disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[WS] Unexpected close for peer %s: %v", c.id, err)
			}
			return
		}

		cmd, err := DecodeCommand(message)
		if err != nil {
			log.WithFields(log.Fields{"room": c.room.Code, "peer": c.id}).Warnf("[WS] Dropped message: %v", err)
			reason := "malformed message"
			if errors.Is(err, ErrUnknownMessageType) {
				reason = "unknown message type"
			}
			if frame, encErr := Encode(TypeError, ErrorData{Message: reason}); encErr == nil {
				c.Send(frame)
			}
			continue
		}

		if !c.room.Deliver(c.id, cmd) {
			return
		}
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed; best-effort close frame.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WS] Write error for peer %s: %v", c.id, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("[WS] Ping error for peer %s: %v", c.id, err)
				return
			}
		}
	}
}
