package chathub

import "pairlab/backend/internal/models"

// Client is a subscriber to one room's event stream (e.g., a WebSocket).
type Client interface {
	// GetUserID returns the participant id the subscription was opened with.
	GetUserID() string
	// GetRoomID returns the room whose events the client receives.
	GetRoomID() string

	// GetSendChannel returns the channel the hub writes events to.
	GetSendChannel() chan<- models.RoomEvent

	// Run starts the client's read and write pumps.
	Run()
	// Close shuts the send channel. The hub calls it exactly once, on unregister.
	Close()
}
