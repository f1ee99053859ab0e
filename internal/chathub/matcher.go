package chathub

import (
	"context"
	"errors"
	"fmt"
	"log"
	"pairlab/backend/internal/config"
	"pairlab/backend/internal/models"
	"pairlab/backend/internal/storage"
	"time"
)

const (
	// maxJoinAttempts allows one full re-run of the join after a membership
	// conflict or a candidate room ending under us.
	maxJoinAttempts = 2
	// DefaultLockTimeout bounds how long a join waits for its room type lock.
	DefaultLockTimeout = 10 * time.Second
)

// EventSink receives room lifecycle events. Delivery is best-effort.
type EventSink interface {
	Broadcast(event models.RoomEvent)
}

// MatcherService assigns arriving participants to rooms.
// It keeps no state between calls; rooms and memberships live in the store.
type MatcherService struct {
	Storage     storage.RoomStore
	RoomTypes   config.RoomTypes
	Allocator   *ConfederateAllocator
	Locker      Locker
	Events      EventSink
	LockTimeout time.Duration
}

// NewMatcherService creates a Matcher. Nil allocator and locker get in-process defaults.
func NewMatcherService(s storage.RoomStore, types config.RoomTypes, allocator *ConfederateAllocator, locker Locker, events EventSink) *MatcherService {
	if allocator == nil {
		allocator = NewConfederateAllocator(nil)
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &MatcherService{
		Storage:     s,
		RoomTypes:   types,
		Allocator:   allocator,
		Locker:      locker,
		Events:      events,
		LockTimeout: DefaultLockTimeout,
	}
}

// Join places the user in the first waiting room of roomType that is exactly one
// member short of capacity, or creates a new room for them.
// A user who already sits in an open room of that type gets that room back.
func (m *MatcherService) Join(ctx context.Context, roomType models.RoomType, userID, userName string) (*models.Room, error) {
	if userID == "" {
		return nil, ErrInvalidParticipant
	}
	cfg, ok := m.RoomTypes.Lookup(roomType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRoomType, roomType)
	}

	var lastErr error
	for attempt := 1; attempt <= maxJoinAttempts; attempt++ {
		room, err := m.joinOnce(ctx, cfg, userID, userName)
		if err == nil {
			return room, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
		log.Printf("WARNING: Join conflict for user %s on %s (attempt %d): %v", userID, roomType, attempt, err)
	}
	return nil, lastErr
}

func retryable(err error) bool {
	return errors.Is(err, storage.ErrDuplicateMember) || errors.Is(err, storage.ErrRoomEnded)
}

func (m *MatcherService) joinOnce(ctx context.Context, cfg config.RoomTypeConfig, userID, userName string) (*models.Room, error) {
	lockCtx, cancel := context.WithTimeout(ctx, m.lockTimeout())
	unlock, err := m.Locker.Lock(lockCtx, "join:"+string(cfg.Type))
	cancel()
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := m.Storage.FindOpenRoomForUser(ctx, cfg.Type, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.Printf("INFO: User %s rejoined room %s", userID, existing.ID)
		return existing, nil
	}

	candidate, err := m.findCandidate(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if candidate != nil {
		return m.fill(ctx, candidate, userID, userName)
	}
	return m.create(ctx, cfg, userID, userName)
}

// findCandidate returns the first waiting room (FIFO) with exactly capacity-1 members.
func (m *MatcherService) findCandidate(ctx context.Context, cfg config.RoomTypeConfig) (*models.Room, error) {
	rooms, err := m.Storage.FindWaitingRooms(ctx, cfg.Type)
	if err != nil {
		return nil, err
	}
	for i := range rooms {
		count, err := m.Storage.CountMembers(ctx, rooms[i].ID)
		if err != nil {
			return nil, err
		}
		if count == cfg.Capacity-1 {
			return &rooms[i], nil
		}
	}
	return nil, nil
}

// fill adds the user to a room one short of capacity and activates it.
func (m *MatcherService) fill(ctx context.Context, room *models.Room, userID, userName string) (*models.Room, error) {
	if _, err := m.Storage.AddMember(ctx, room.ID, userID, userName); err != nil {
		return nil, err
	}
	m.emit(models.RoomEvent{Type: models.EventMemberJoined, RoomID: room.ID, Status: room.Status, UserID: userID, UserName: userName})

	if err := m.Storage.UpdateStatus(ctx, room.ID, models.RoomStatusActive); err != nil {
		return nil, err
	}
	filled, err := m.Storage.GetRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	// An exit after our insert ends the room; ended is sticky, so no activation happened.
	if filled.Status != models.RoomStatusActive {
		log.Printf("WARNING: Room %s ended while user %s was joining", room.ID, userID)
		return filled, nil
	}
	m.emit(models.RoomEvent{Type: models.EventRoomActive, RoomID: room.ID, Status: models.RoomStatusActive})

	log.Printf("INFO: Match found: user %s completed %s room %s", userID, room.Type, room.ID)
	return filled, nil
}

// create opens a new room of the type with the user as its first member.
func (m *MatcherService) create(ctx context.Context, cfg config.RoomTypeConfig, userID, userName string) (*models.Room, error) {
	assignments, err := m.Allocator.Allocate(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrConstraintViolation, err)
	}

	room, err := m.Storage.CreateRoom(ctx, cfg.Type, assignments)
	if err != nil {
		return nil, err
	}
	m.emit(models.RoomEvent{Type: models.EventRoomCreated, RoomID: room.ID, Status: room.Status})

	if _, err := m.Storage.AddMember(ctx, room.ID, userID, userName); err != nil {
		m.abandon(ctx, room.ID)
		return nil, err
	}
	m.emit(models.RoomEvent{Type: models.EventMemberJoined, RoomID: room.ID, Status: room.Status, UserID: userID, UserName: userName})

	if cfg.Capacity > 1 {
		log.Printf("INFO: User %s waiting in new %s room %s", userID, cfg.Type, room.ID)
		return room, nil
	}

	// A single human already reaches capacity.
	if err := m.Storage.UpdateStatus(ctx, room.ID, models.RoomStatusActive); err != nil {
		return nil, err
	}
	m.emit(models.RoomEvent{Type: models.EventRoomActive, RoomID: room.ID, Status: models.RoomStatusActive})
	return m.Storage.GetRoom(ctx, room.ID)
}

// abandon ends a room whose first member could not be added, so it does not sit
// in the waiting list forever. Failure is only logged.
func (m *MatcherService) abandon(ctx context.Context, roomID string) {
	if err := m.Storage.UpdateStatus(ctx, roomID, models.RoomStatusEnded); err != nil {
		log.Printf("WARNING: Failed to end abandoned room %s: %v", roomID, err)
		return
	}
	m.emit(models.RoomEvent{Type: models.EventRoomEnded, RoomID: roomID, Status: models.RoomStatusEnded})
}

func (m *MatcherService) emit(event models.RoomEvent) {
	if m.Events == nil {
		return
	}
	event.At = time.Now()
	m.Events.Broadcast(event)
}

func (m *MatcherService) lockTimeout() time.Duration {
	if m.LockTimeout <= 0 {
		return DefaultLockTimeout
	}
	return m.LockTimeout
}
