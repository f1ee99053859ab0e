package models

import (
	"strings"
	"time"
)

const (
	// SystemSender is used as both sender id and role for notifications.
	SystemSender = "system"

	// ExitNoticeTag prefixes the content of a participant-exit notification.
	ExitNoticeTag = "[[participant_left]]"
)

// Message is a row in a room's conversation log.
// The embedded ID is the generated message id.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RoomID     string    `gorm:"type:varchar(36);not null;index:idx_messages_room" json:"room_id"`
	SenderID   string    `gorm:"type:text;not null" json:"sender_id"`
	SenderRole string    `gorm:"type:text;not null" json:"sender_role"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `gorm:"index:idx_messages_room" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// ExitNotice builds the system message content announcing that userName left.
func ExitNotice(userName string) string {
	return ExitNoticeTag + userName
}

// ParseExitNotice returns the departed participant's name if content is an exit notice.
func ParseExitNotice(content string) (string, bool) {
	if !strings.HasPrefix(content, ExitNoticeTag) {
		return "", false
	}
	return strings.TrimPrefix(content, ExitNoticeTag), true
}
