package chathub

import (
	"context"
	"log"
	"pairlab/backend/internal/models"
	"sync"
	"time"
)

const (
	eventBufferSize = 256
	publishTimeout  = 2 * time.Second
)

// EventPublisher fans room events out to every server instance.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event models.RoomEvent) error
}

// ManagerService is the room event hub. It tracks event-stream subscribers per
// room and delivers lifecycle events to them. With a Publisher configured,
// Broadcast goes through redis and the pub/sub listener dispatches locally.
type ManagerService struct {
	mu    sync.RWMutex
	rooms map[string]map[Client]bool

	RegisterCh   chan Client
	UnregisterCh chan Client
	eventCh      chan models.RoomEvent
	done         chan struct{}

	Publisher EventPublisher
}

// NewManagerService creates a hub. publisher may be nil for single-instance runs.
func NewManagerService(publisher EventPublisher) *ManagerService {
	return &ManagerService{
		rooms:        make(map[string]map[Client]bool),
		RegisterCh:   make(chan Client, 16),
		UnregisterCh: make(chan Client, 16),
		eventCh:      make(chan models.RoomEvent, eventBufferSize),
		done:         make(chan struct{}),
		Publisher:    publisher,
	}
}

// Run is the hub's dispatch loop. It closes every client when ctx ends.
func (m *ManagerService) Run(ctx context.Context) {
	defer close(m.done)
	log.Println("INFO: Room event hub started.")
	for {
		select {
		case client := <-m.RegisterCh:
			m.register(client)
		case client := <-m.UnregisterCh:
			m.unregister(client)
		case event := <-m.eventCh:
			m.deliver(event)
		case <-ctx.Done():
			m.closeAll()
			log.Println("INFO: Room event hub stopped.")
			return
		}
	}
}

// Done is closed once Run has returned.
func (m *ManagerService) Done() <-chan struct{} {
	return m.done
}

// Register subscribes client to its room. It gives up when the hub has stopped.
func (m *ManagerService) Register(client Client) bool {
	select {
	case <-m.done:
		return false
	default:
	}
	select {
	case m.RegisterCh <- client:
		return true
	case <-m.done:
		return false
	}
}

// Unregister removes client. After the hub has stopped it returns at once;
// Run already closed every client on its way out.
func (m *ManagerService) Unregister(client Client) {
	select {
	case m.UnregisterCh <- client:
	case <-m.done:
	}
}

// Broadcast publishes an event to all instances, or dispatches it locally when
// there is no publisher or publishing fails.
func (m *ManagerService) Broadcast(event models.RoomEvent) {
	if m.Publisher != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := m.Publisher.PublishEvent(ctx, event)
		cancel()
		if err == nil {
			return
		}
		log.Printf("WARNING: Failed to publish %s for room %s, delivering locally: %v", event.Type, event.RoomID, err)
	}
	m.Dispatch(event)
}

// Dispatch queues an event for this instance's subscribers. It never blocks;
// events are dropped when the queue is full.
func (m *ManagerService) Dispatch(event models.RoomEvent) {
	select {
	case m.eventCh <- event:
	default:
		log.Printf("WARNING: Event queue full, dropped %s for room %s", event.Type, event.RoomID)
	}
}

// Subscribers returns how many clients listen to roomID.
func (m *ManagerService) Subscribers(roomID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[roomID])
}

func (m *ManagerService) register(client Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID := client.GetRoomID()
	if m.rooms[roomID] == nil {
		m.rooms[roomID] = make(map[Client]bool)
	}
	m.rooms[roomID][client] = true
	log.Printf("INFO: User %s subscribed to room %s", client.GetUserID(), roomID)
}

func (m *ManagerService) unregister(client Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID := client.GetRoomID()
	clients, ok := m.rooms[roomID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(m.rooms, roomID)
	}
	client.Close()
}

func (m *ManagerService) deliver(event models.RoomEvent) {
	var slow []Client

	m.mu.RLock()
	for client := range m.rooms[event.RoomID] {
		select {
		case client.GetSendChannel() <- event:
		default:
			slow = append(slow, client)
		}
	}
	m.mu.RUnlock()

	for _, client := range slow {
		log.Printf("WARNING: Dropping slow subscriber %s of room %s", client.GetUserID(), event.RoomID)
		m.unregister(client)
	}
}

func (m *ManagerService) closeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for roomID, clients := range m.rooms {
		for client := range clients {
			client.Close()
		}
		delete(m.rooms, roomID)
	}
}
