package chathub_test

import (
	"context"
	"pairlab/backend/internal/models"
	"pairlab/backend/internal/storage"
	"sync"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify/mock implementation of storage.Storage used for
// failure injection.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) FindWaitingRooms(ctx context.Context, roomType models.RoomType) ([]models.Room, error) {
	args := m.Called(ctx, roomType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Room), args.Error(1)
}

func (m *MockStorage) FindOpenRoomForUser(ctx context.Context, roomType models.RoomType, userID string) (*models.Room, error) {
	args := m.Called(ctx, roomType, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockStorage) CountMembers(ctx context.Context, roomID string) (int, error) {
	args := m.Called(ctx, roomID)
	return args.Int(0), args.Error(1)
}

func (m *MockStorage) CreateRoom(ctx context.Context, roomType models.RoomType, assignments map[string]string) (*models.Room, error) {
	args := m.Called(ctx, roomType, assignments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockStorage) AddMember(ctx context.Context, roomID, userID, userName string) (*models.RoomMembership, error) {
	args := m.Called(ctx, roomID, userID, userName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoomMembership), args.Error(1)
}

func (m *MockStorage) UpdateStatus(ctx context.Context, roomID string, status models.RoomStatus) error {
	args := m.Called(ctx, roomID, status)
	return args.Error(0)
}

func (m *MockStorage) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockStorage) ListMembers(ctx context.Context, roomID string) ([]models.Member, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Member), args.Error(1)
}

func (m *MockStorage) ListRooms(ctx context.Context, filter storage.RoomFilter) ([]models.Room, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Room), args.Error(1)
}

func (m *MockStorage) AppendMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockPublisher records PublishEvent calls.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(ctx context.Context, event models.RoomEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// recordingSink collects broadcast events in order.
type recordingSink struct {
	mu     sync.Mutex
	events []models.RoomEvent
}

func (r *recordingSink) Broadcast(event models.RoomEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
