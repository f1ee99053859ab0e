package models

import "time"

// Room event kinds pushed to subscribers of a room.
const (
	EventRoomCreated     = "room_created"
	EventMemberJoined    = "member_joined"
	EventRoomActive      = "room_active"
	EventParticipantLeft = "participant_left"
	EventRoomEnded       = "room_ended"
)

// RoomEvent is a lifecycle notification for one room. It travels through the
// hub, the redis "room_events" channel and the websocket stream as JSON.
type RoomEvent struct {
	Type     string     `json:"type"`
	RoomID   string     `json:"room_id"`
	Status   RoomStatus `json:"status,omitempty"`
	UserID   string     `json:"user_id,omitempty"`
	UserName string     `json:"user_name,omitempty"`
	At       time.Time  `json:"at"`
}
