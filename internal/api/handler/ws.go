package handler

import (
	"errors"
	"log"
	"net/http"
	"pairlab/backend/internal/chathub"
	"pairlab/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is handled by the router; any origin may open a stream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeRoomEvents upgrades to a websocket streaming the room's lifecycle events.
func (h *Handler) ServeRoomEvents(c *gin.Context) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
		return
	}
	anonID, err := ParseAnonToken(h.JWTSecret, tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	roomID := c.Param("room_id")
	if _, err := h.Query.GetRoom(c.Request.Context(), roomID); err != nil {
		if errors.Is(err, storage.ErrRoomNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ERROR: Websocket upgrade for room %s failed: %v", roomID, err)
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, anonID, roomID)
	if !h.Hub.Register(client) {
		conn.Close()
		return
	}
	client.Run()
}
