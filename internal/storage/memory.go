package storage

import (
	"context"
	"fmt"
	"pairlab/backend/internal/models"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Storage used for local runs and tests.
// It serializes every call behind one lock, which gives it serializable isolation.
type MemoryStore struct {
	mu       sync.RWMutex
	rooms    map[string]*models.Room
	order    []string
	members  map[string][]models.RoomMembership
	messages []models.Message
	nextMsg  uint
	now      func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:   make(map[string]*models.Room),
		members: make(map[string][]models.RoomMembership),
		now:     time.Now,
	}
}

func (m *MemoryStore) FindWaitingRooms(ctx context.Context, roomType models.RoomType) ([]models.Room, error) {
	return m.ListRooms(ctx, RoomFilter{Type: roomType, Status: models.RoomStatusWaiting})
}

func (m *MemoryStore) FindOpenRoomForUser(ctx context.Context, roomType models.RoomType, userID string) (*models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.order) - 1; i >= 0; i-- {
		room := m.rooms[m.order[i]]
		if room.Type != roomType || room.Status == models.RoomStatusEnded {
			continue
		}
		for _, member := range m.members[room.ID] {
			if member.UserID == userID {
				out := room.Clone()
				return &out, nil
			}
		}
	}
	return nil, nil
}

func (m *MemoryStore) CountMembers(ctx context.Context, roomID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.members[roomID]), nil
}

func (m *MemoryStore) CreateRoom(ctx context.Context, roomType models.RoomType, assignments map[string]string) (*models.Room, error) {
	if !roomType.Valid() {
		return nil, fmt.Errorf("%w: unknown room type %q", ErrConstraintViolation, roomType)
	}

	now := m.now()
	room := models.Room{
		ID:                     uuid.New().String(),
		Type:                   roomType,
		Status:                 models.RoomStatusWaiting,
		ConfederateAssignments: assignments,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := room.ApplyAssignments(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	}
	room.LoadAssignments()
	stored := room.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[stored.ID] = &stored
	m.order = append(m.order, stored.ID)

	out := stored.Clone()
	return &out, nil
}

func (m *MemoryStore) AddMember(ctx context.Context, roomID, userID, userName string) (*models.RoomMembership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if room.Status == models.RoomStatusEnded {
		return nil, ErrRoomEnded
	}
	for _, member := range m.members[roomID] {
		if member.UserID == userID {
			return nil, fmt.Errorf("%w: room %s user %s", ErrDuplicateMember, roomID, userID)
		}
	}

	membership := models.RoomMembership{RoomID: roomID, UserID: userID, UserName: userName, CreatedAt: m.now()}
	m.members[roomID] = append(m.members[roomID], membership)
	return &membership, nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, roomID string, status models.RoomStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if room.Status == models.RoomStatusEnded {
		return nil
	}
	room.Status = status
	room.UpdatedAt = m.now()
	return nil
}

func (m *MemoryStore) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	out := room.Clone()
	return &out, nil
}

func (m *MemoryStore) ListMembers(ctx context.Context, roomID string) ([]models.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.rooms[roomID]; !ok {
		return nil, ErrRoomNotFound
	}
	members := make([]models.Member, 0, len(m.members[roomID]))
	for _, membership := range m.members[roomID] {
		members = append(members, models.Member{UserID: membership.UserID, UserName: membership.UserName})
	}
	return members, nil
}

func (m *MemoryStore) ListRooms(ctx context.Context, filter RoomFilter) ([]models.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := []models.Room{}
	for _, id := range m.order {
		room := m.rooms[id]
		if filter.Type != "" && room.Type != filter.Type {
			continue
		}
		if filter.Status != "" && room.Status != filter.Status {
			continue
		}
		rooms = append(rooms, room.Clone())
		if filter.Limit > 0 && len(rooms) == filter.Limit {
			break
		}
	}
	return rooms, nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextMsg++
	msg.ID = m.nextMsg
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = m.now()
	}
	m.messages = append(m.messages, *msg)
	return nil
}

// GetMessages returns the conversation log of a room, oldest first.
func (m *MemoryStore) GetMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Message
	for _, msg := range m.messages {
		if msg.RoomID == roomID {
			out = append(out, msg)
		}
	}
	return out, nil
}
