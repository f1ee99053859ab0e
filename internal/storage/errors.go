package storage

import "errors"

var (
	// ErrStoreUnavailable is a transient backing-store fault; safe to retry.
	ErrStoreUnavailable = errors.New("room store unavailable")
	// ErrRoomNotFound means the room id is unknown.
	ErrRoomNotFound = errors.New("room not found")
	// ErrDuplicateMember means the (room_id, user_id) pair already exists.
	ErrDuplicateMember = errors.New("user is already a member of this room")
	// ErrRoomEnded means the room ended before the membership could be added.
	ErrRoomEnded = errors.New("room has ended")
	// ErrConstraintViolation is a schema or validation fault at write time.
	ErrConstraintViolation = errors.New("room store constraint violation")
)
