package chathub

import (
	"context"
	"fmt"
	"log"
	"pairlab/backend/internal/models"
	"pairlab/backend/internal/storage"
	"time"
)

// LifecycleService handles participants leaving a room.
type LifecycleService struct {
	Storage  storage.RoomStore
	Messages storage.MessageLog
	Events   EventSink
}

// NewLifecycleService Constructor
func NewLifecycleService(s storage.RoomStore, messages storage.MessageLog, events EventSink) *LifecycleService {
	return &LifecycleService{Storage: s, Messages: messages, Events: events}
}

// Exit posts a departure notice into the room's log and ends the room.
//
// A failed notice aborts the exit with ErrNotificationFailed and leaves the
// status alone. A failed status update after the notice is logged and ignored.
// Exiting an ended room posts the notice again but changes nothing else.
func (l *LifecycleService) Exit(ctx context.Context, roomID, userID, userName string) error {
	if userID == "" {
		return ErrInvalidParticipant
	}
	if userName == "" {
		userName = userID
	}

	room, err := l.Storage.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}

	notice := &models.Message{
		RoomID:     roomID,
		SenderID:   models.SystemSender,
		SenderRole: models.SystemSender,
		Content:    models.ExitNotice(userName),
	}
	if err := l.Messages.AppendMessage(ctx, notice); err != nil {
		return fmt.Errorf("%w: %v", ErrNotificationFailed, err)
	}
	l.emit(models.RoomEvent{Type: models.EventParticipantLeft, RoomID: roomID, Status: room.Status, UserID: userID, UserName: userName})

	if room.Status == models.RoomStatusEnded {
		return nil
	}

	if err := l.Storage.UpdateStatus(ctx, roomID, models.RoomStatusEnded); err != nil {
		log.Printf("WARNING: Room %s notified of %s leaving but status update failed: %v", roomID, userID, err)
		return nil
	}
	l.emit(models.RoomEvent{Type: models.EventRoomEnded, RoomID: roomID, Status: models.RoomStatusEnded})

	log.Printf("INFO: User %s left room %s, room ended", userID, roomID)
	return nil
}

func (l *LifecycleService) emit(event models.RoomEvent) {
	if l.Events == nil {
		return
	}
	event.At = time.Now()
	l.Events.Broadcast(event)
}
