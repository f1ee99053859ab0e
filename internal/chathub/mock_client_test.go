package chathub_test

import (
	"pairlab/backend/internal/models"
	"sync"
)

type MockClient struct {
	userID      string
	roomID      string
	RecvChannel chan models.RoomEvent

	mu     sync.Mutex
	closed bool
}

func newMockClient(userID, roomID string) *MockClient {
	return &MockClient{
		userID:      userID,
		roomID:      roomID,
		RecvChannel: make(chan models.RoomEvent, 10),
	}
}

func (c *MockClient) GetUserID() string {
	return c.userID
}

func (c *MockClient) GetRoomID() string {
	return c.roomID
}

func (c *MockClient) GetSendChannel() chan<- models.RoomEvent {
	return c.RecvChannel
}

func (c *MockClient) Run() {
	// Not needed for testing
}

func (c *MockClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *MockClient) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
