package chathub_test

import (
	"context"
	"errors"
	"pairlab/backend/internal/chathub"
	"pairlab/backend/internal/models"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, publisher chathub.EventPublisher) *chathub.ManagerService {
	t.Helper()
	hub := chathub.NewManagerService(publisher)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func receive(t *testing.T, client *MockClient) models.RoomEvent {
	t.Helper()
	select {
	case event := <-client.RecvChannel:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return models.RoomEvent{}
	}
}

func assertNothingReceived(t *testing.T, client *MockClient) {
	t.Helper()
	select {
	case event := <-client.RecvChannel:
		t.Fatalf("unexpected event %+v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_RegisterAndUnregister(t *testing.T) {
	hub := startHub(t, nil)
	client := newMockClient("A", "r1")

	hub.RegisterCh <- client
	assert.Eventually(t, func() bool { return hub.Subscribers("r1") == 1 }, time.Second, 5*time.Millisecond)

	hub.UnregisterCh <- client
	assert.Eventually(t, func() bool { return hub.Subscribers("r1") == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, client.IsClosed())
}

func TestManager_UnregisterUnknownClientDoesNotClose(t *testing.T) {
	hub := startHub(t, nil)
	client := newMockClient("A", "r1")

	hub.RegisterCh <- newMockClient("B", "r1")
	require.Eventually(t, func() bool { return hub.Subscribers("r1") == 1 }, time.Second, 5*time.Millisecond)

	hub.UnregisterCh <- client
	assert.Never(t, client.IsClosed, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 1, hub.Subscribers("r1"))
}

func TestManager_DeliversOnlyToRoom(t *testing.T) {
	hub := startHub(t, nil)
	inRoom := newMockClient("A", "r1")
	other := newMockClient("B", "r2")
	hub.RegisterCh <- inRoom
	hub.RegisterCh <- other
	require.Eventually(t, func() bool { return hub.Subscribers("r1") == 1 && hub.Subscribers("r2") == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(models.RoomEvent{Type: models.EventRoomActive, RoomID: "r1", Status: models.RoomStatusActive})

	event := receive(t, inRoom)
	assert.Equal(t, models.EventRoomActive, event.Type)
	assert.Equal(t, models.RoomStatusActive, event.Status)
	assertNothingReceived(t, other)
}

func TestManager_BroadcastGoesThroughPublisher(t *testing.T) {
	publisher := new(MockPublisher)
	event := models.RoomEvent{Type: models.EventRoomEnded, RoomID: "r1"}
	publisher.On("PublishEvent", mock.Anything, event).Return(nil)

	hub := startHub(t, publisher)
	client := newMockClient("A", "r1")
	hub.RegisterCh <- client
	require.Eventually(t, func() bool { return hub.Subscribers("r1") == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(event)

	publisher.AssertExpectations(t)
	// Local delivery is left to the pub/sub listener.
	assertNothingReceived(t, client)
}

func TestManager_PublisherFailureFallsBackToLocal(t *testing.T) {
	publisher := new(MockPublisher)
	publisher.On("PublishEvent", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	hub := startHub(t, publisher)
	client := newMockClient("A", "r1")
	hub.RegisterCh <- client
	require.Eventually(t, func() bool { return hub.Subscribers("r1") == 1 }, time.Second, 5*time.Millisecond)

	hub.Broadcast(models.RoomEvent{Type: models.EventMemberJoined, RoomID: "r1", UserID: "B"})

	event := receive(t, client)
	assert.Equal(t, "B", event.UserID)
}

func TestManager_SlowClientIsDropped(t *testing.T) {
	hub := startHub(t, nil)
	client := newMockClient("A", "r1")
	hub.RegisterCh <- client
	require.Eventually(t, func() bool { return hub.Subscribers("r1") == 1 }, time.Second, 5*time.Millisecond)

	// The mock client buffers 10 events and nobody drains it.
	for i := 0; i < 11; i++ {
		hub.Dispatch(models.RoomEvent{Type: models.EventMemberJoined, RoomID: "r1"})
	}

	assert.Eventually(t, func() bool { return hub.Subscribers("r1") == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, client.IsClosed())
}

func TestManager_StopClosesClients(t *testing.T) {
	hub := chathub.NewManagerService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := newMockClient("A", "r1")
	hub.RegisterCh <- client
	require.Eventually(t, func() bool { return hub.Subscribers("r1") == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.True(t, client.IsClosed())
	assert.Equal(t, 0, hub.Subscribers("r1"))
}

func TestManager_ListenEvents(t *testing.T) {
	hub := startHub(t, nil)
	client := newMockClient("A", "r1")
	hub.RegisterCh <- client
	require.Eventually(t, func() bool { return hub.Subscribers("r1") == 1 }, time.Second, 5*time.Millisecond)

	msgs := make(chan *redis.Message, 2)
	msgs <- &redis.Message{Channel: "room_events", Payload: "{not json"}
	msgs <- &redis.Message{Channel: "room_events", Payload: `{"type":"room_ended","room_id":"r1","status":"ended","at":"2026-01-02T03:04:05Z"}`}
	close(msgs)

	hub.ListenEvents(context.Background(), msgs)

	event := receive(t, client)
	assert.Equal(t, models.EventRoomEnded, event.Type)
	assert.Equal(t, models.RoomStatusEnded, event.Status)
	assert.Equal(t, 2026, event.At.Year())
}

func TestManager_StoppedHubDoesNotBlock(t *testing.T) {
	hub := chathub.NewManagerService(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	cancel()
	<-hub.Done()

	done := make(chan struct{})
	go func() {
		// More than the channel buffer holds.
		for i := 0; i < 64; i++ {
			hub.Unregister(newMockClient("A", "r1"))
		}
		assert.False(t, hub.Register(newMockClient("B", "r1")))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unregister blocked on a stopped hub")
	}
}

func TestManager_RegisterMethods(t *testing.T) {
	hub := startHub(t, nil)
	client := newMockClient("A", "r1")

	require.True(t, hub.Register(client))
	require.Eventually(t, func() bool { return hub.Subscribers("r1") == 1 }, time.Second, 5*time.Millisecond)

	hub.Unregister(client)
	assert.Eventually(t, client.IsClosed, time.Second, 5*time.Millisecond)
}
