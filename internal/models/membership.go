package models

import "time"

// RoomMembership records that a human participant joined a room.
// Rows are never mutated or deleted.
type RoomMembership struct {
	RoomID    string    `gorm:"primaryKey;type:varchar(36)" json:"room_id"`
	UserID    string    `gorm:"primaryKey;type:varchar(128);index" json:"user_id"`
	UserName  string    `gorm:"type:text;not null" json:"user_name"`
	CreatedAt time.Time `json:"joined_at"`
}

func (RoomMembership) TableName() string {
	return "room_users"
}

// Member is the public projection of a membership.
type Member struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
}
