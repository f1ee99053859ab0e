package handler

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRoutes registers every endpoint on r.
func (h *Handler) SetupRoutes(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/ping", h.Ping)
	r.GET("/anonid", h.GetAnonID)

	r.POST("/join/:room_type", h.JoinRoom)

	rooms := r.Group("/rooms")
	{
		rooms.GET("", h.ListRooms)
		rooms.GET("/:room_id", h.GetRoom)
		rooms.GET("/:room_id/members", h.ListMembers)
		rooms.POST("/:room_id/exit", h.ExitRoom)
		rooms.GET("/:room_id/events", h.ServeRoomEvents)
	}
}
