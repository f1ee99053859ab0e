package handler

import (
	"errors"
	"log"
	"net/http"
	"pairlab/backend/internal/chathub"
	"pairlab/backend/internal/models"
	"pairlab/backend/internal/storage"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParticipantRequest is the body of join and exit calls.
type ParticipantRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	UserName string `json:"user_name"`
}

func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

// JoinRoom places the caller in a room of the requested type.
func (h *Handler) JoinRoom(c *gin.Context) {
	roomType := models.RoomType(c.Param("room_type"))

	var req ParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	room, err := h.Matcher.Join(c.Request.Context(), roomType, req.UserID, req.UserName)
	if err != nil {
		if errors.Is(err, chathub.ErrUnknownRoomType) || errors.Is(err, chathub.ErrInvalidParticipant) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
			return
		}
		log.Printf("ERROR: Join %s for user %s failed: %v", roomType, req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join room", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, room)
}

// ExitRoom records the caller leaving and ends the room.
func (h *Handler) ExitRoom(c *gin.Context) {
	roomID := c.Param("room_id")

	var req ParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	err := h.Lifecycle.Exit(c.Request.Context(), roomID, req.UserID, req.UserName)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Left room " + roomID})
	case errors.Is(err, storage.ErrRoomNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
	case errors.Is(err, chathub.ErrInvalidParticipant):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("ERROR: Exit of user %s from room %s failed: %v", req.UserID, roomID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (h *Handler) GetRoom(c *gin.Context) {
	room, err := h.Query.GetRoom(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		h.lookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *Handler) ListMembers(c *gin.Context) {
	members, err := h.Query.ListMembers(c.Request.Context(), c.Param("room_id"))
	if err != nil {
		h.lookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, members)
}

// ListRooms supports the optional query parameters type, status and limit.
func (h *Handler) ListRooms(c *gin.Context) {
	filter := storage.RoomFilter{
		Type:   models.RoomType(c.Query("type")),
		Status: models.RoomStatus(c.Query("status")),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid room type"})
		return
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		filter.Limit = limit
	}

	rooms, err := h.Query.ListRooms(c.Request.Context(), filter)
	if err != nil {
		log.Printf("ERROR: Failed to list rooms: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list rooms"})
		return
	}
	c.JSON(http.StatusOK, rooms)
}

func (h *Handler) lookupError(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}
	log.Printf("ERROR: Room lookup failed: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
