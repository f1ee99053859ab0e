package chathub

import "errors"

var (
	// ErrNotificationFailed means the exit notice could not be written; the room
	// status was left untouched.
	ErrNotificationFailed = errors.New("failed to notify room participants")
	// ErrUnknownRoomType means the room type has no entry in the type table.
	ErrUnknownRoomType = errors.New("unknown room type")
	// ErrInvalidParticipant means a join or exit request carried no user id.
	ErrInvalidParticipant = errors.New("user_id is required")
)
