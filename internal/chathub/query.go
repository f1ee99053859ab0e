package chathub

import (
	"context"
	"pairlab/backend/internal/models"
	"pairlab/backend/internal/storage"
)

// QueryService exposes read-only room and membership lookups.
type QueryService struct {
	Storage storage.RoomStore
}

// NewQueryService Constructor
func NewQueryService(s storage.RoomStore) *QueryService {
	return &QueryService{Storage: s}
}

// GetRoom returns the room or storage.ErrRoomNotFound.
func (q *QueryService) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	return q.Storage.GetRoom(ctx, roomID)
}

// ListMembers returns the room's participants in join order.
func (q *QueryService) ListMembers(ctx context.Context, roomID string) ([]models.Member, error) {
	return q.Storage.ListMembers(ctx, roomID)
}

// ListRooms returns rooms matching filter, oldest first.
func (q *QueryService) ListRooms(ctx context.Context, filter storage.RoomFilter) ([]models.Room, error) {
	return q.Storage.ListRooms(ctx, filter)
}
