package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"pairlab/backend/internal/models"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoomEventsChannel is the redis pub/sub channel carrying models.RoomEvent JSON.
const RoomEventsChannel = "room_events"

// RoomFilter narrows ListRooms. Zero values mean "any".
type RoomFilter struct {
	Type   models.RoomType
	Status models.RoomStatus
	Limit  int
}

// RoomStore is the sole mutation surface over rooms and memberships.
type RoomStore interface {
	// FindWaitingRooms returns waiting rooms of the type, earliest first.
	FindWaitingRooms(ctx context.Context, roomType models.RoomType) ([]models.Room, error)
	// FindOpenRoomForUser returns a waiting or active room of the type the user
	// is already a member of, or nil when there is none.
	FindOpenRoomForUser(ctx context.Context, roomType models.RoomType, userID string) (*models.Room, error)
	CountMembers(ctx context.Context, roomID string) (int, error)
	CreateRoom(ctx context.Context, roomType models.RoomType, assignments map[string]string) (*models.Room, error)
	AddMember(ctx context.Context, roomID, userID, userName string) (*models.RoomMembership, error)
	// UpdateStatus transitions a room. Ended rooms stay ended: an update of an
	// ended room is accepted and ignored.
	UpdateStatus(ctx context.Context, roomID string, status models.RoomStatus) error
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
	ListMembers(ctx context.Context, roomID string) ([]models.Member, error)
	ListRooms(ctx context.Context, filter RoomFilter) ([]models.Room, error)
}

// MessageLog appends to a room's conversation log.
type MessageLog interface {
	AppendMessage(ctx context.Context, msg *models.Message) error
}

// Storage is everything the matchmaking core needs from persistence.
type Storage interface {
	RoomStore
	MessageLog
}

// Service is the PostgreSQL (gorm) implementation of Storage. The optional
// redis client carries room events between server instances.
type Service struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Timeout time.Duration
}

// NewStorageService Constructor
func NewStorageService(db *gorm.DB, rdb *redis.Client, timeout time.Duration) *Service {
	return &Service{
		DB:      db,
		Redis:   rdb,
		Timeout: timeout,
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.Timeout)
}

// translate maps gorm and driver errors onto the store error taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRoomNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicateMember, err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated),
		errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrInvalidData),
		errors.Is(err, gorm.ErrInvalidField):
		return fmt.Errorf("%w: %v", ErrConstraintViolation, err)
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}

// FindWaitingRooms returns waiting rooms of roomType ordered by creation time.
func (s *Service) FindWaitingRooms(ctx context.Context, roomType models.RoomType) ([]models.Room, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rooms []models.Room
	err := s.DB.WithContext(ctx).
		Where("type = ? AND status = ?", roomType, models.RoomStatusWaiting).
		Order("created_at asc, id asc").
		Find(&rooms).Error
	if err != nil {
		log.Printf("ERROR: Failed to find waiting %s rooms: %v", roomType, err)
		return nil, translate(err)
	}
	return rooms, nil
}

// FindOpenRoomForUser finds the newest waiting/active room of roomType containing userID.
func (s *Service) FindOpenRoomForUser(ctx context.Context, roomType models.RoomType, userID string) (*models.Room, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var rooms []models.Room
	err := s.DB.WithContext(ctx).
		Select("rooms.*").
		Joins("JOIN room_users ON room_users.room_id = rooms.id").
		Where("room_users.user_id = ? AND rooms.type = ? AND rooms.status IN ?",
			userID, roomType, []models.RoomStatus{models.RoomStatusWaiting, models.RoomStatusActive}).
		Order("rooms.created_at desc").
		Limit(1).
		Find(&rooms).Error
	if err != nil {
		log.Printf("ERROR: Failed to find open room for user %s: %v", userID, err)
		return nil, translate(err)
	}
	if len(rooms) == 0 {
		return nil, nil
	}
	return &rooms[0], nil
}

// CountMembers returns the membership count of a room.
func (s *Service) CountMembers(ctx context.Context, roomID string) (int, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var count int64
	err := s.DB.WithContext(ctx).Model(&models.RoomMembership{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	if err != nil {
		return 0, translate(err)
	}
	return int(count), nil
}

// CreateRoom inserts a waiting room with the given confederate assignments.
func (s *Service) CreateRoom(ctx context.Context, roomType models.RoomType, assignments map[string]string) (*models.Room, error) {
	if !roomType.Valid() {
		return nil, fmt.Errorf("%w: unknown room type %q", ErrConstraintViolation, roomType)
	}
	for slot := range assignments {
		if !models.IsConfederateSlot(slot) {
			return nil, fmt.Errorf("%w: unknown confederate slot %q", ErrConstraintViolation, slot)
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	room := &models.Room{
		Type:                   roomType,
		Status:                 models.RoomStatusWaiting,
		ConfederateAssignments: assignments,
	}
	if err := s.DB.WithContext(ctx).Create(room).Error; err != nil {
		log.Printf("ERROR: Failed to create %s room: %v", roomType, err)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %v", ErrConstraintViolation, err)
		}
		return nil, translate(err)
	}
	return room, nil
}

// AddMember inserts a membership row for an existing room that has not ended.
func (s *Service) AddMember(ctx context.Context, roomID, userID, userName string) (*models.RoomMembership, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	membership := &models.RoomMembership{RoomID: roomID, UserID: userID, UserName: userName}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := lockRoom(tx, roomID, &room); err != nil {
			return err
		}
		if room.Status == models.RoomStatusEnded {
			return ErrRoomEnded
		}
		return tx.Create(membership).Error
	})
	if errors.Is(err, ErrRoomEnded) {
		return nil, ErrRoomEnded
	}
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, gorm.ErrDuplicatedKey) {
			log.Printf("ERROR: Failed to add %s to room %s: %v", userID, roomID, err)
		}
		return nil, translate(err)
	}
	return membership, nil
}

// UpdateStatus sets a room's status unless the room already ended.
func (s *Service) UpdateStatus(ctx context.Context, roomID string, status models.RoomStatus) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return translate(s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := lockRoom(tx, roomID, &room); err != nil {
			return err
		}
		if room.Status == models.RoomStatusEnded {
			return nil
		}
		return tx.Model(&models.Room{}).
			Where("id = ?", roomID).
			UpdateColumns(map[string]interface{}{
				"status":     status,
				"updated_at": time.Now(),
			}).Error
	}))
}

// lockRoom loads a room row for update, so membership inserts and status
// changes of one room are serialized. SQLite ignores the locking clause.
func lockRoom(tx *gorm.DB, roomID string, room *models.Room) error {
	return tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", roomID).
		First(room).Error
}

// GetRoom loads a room by id.
func (s *Service) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var room models.Room
	if err := s.DB.WithContext(ctx).Where("id = ?", roomID).First(&room).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("ERROR: Failed to get room %s: %v", roomID, err)
		}
		return nil, translate(err)
	}
	return &room, nil
}

// ListMembers returns the members of a room in join order.
func (s *Service) ListMembers(ctx context.Context, roomID string) ([]models.Member, error) {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	members := []models.Member{}
	err := s.DB.WithContext(ctx).Model(&models.RoomMembership{}).
		Select("user_id, user_name").
		Where("room_id = ?", roomID).
		Order("created_at asc, user_id asc").
		Scan(&members).Error
	if err != nil {
		return nil, translate(err)
	}
	return members, nil
}

// ListRooms returns rooms matching the filter, earliest first.
func (s *Service) ListRooms(ctx context.Context, filter RoomFilter) ([]models.Room, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	q := s.DB.WithContext(ctx).Model(&models.Room{})
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	rooms := []models.Room{}
	if err := q.Order("created_at asc, id asc").Find(&rooms).Error; err != nil {
		return nil, translate(err)
	}
	return rooms, nil
}

// AppendMessage stores a message in the room's conversation log.
func (s *Service) AppendMessage(ctx context.Context, msg *models.Message) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		log.Printf("ERROR: Failed to save message for room %s: %v", msg.RoomID, err)
		return translate(err)
	}
	return nil
}

// GetMessages returns the conversation log of a room, oldest first.
func (s *Service) GetMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var messages []models.Message
	if err := s.DB.WithContext(ctx).Where("room_id = ?", roomID).Order("created_at asc, id asc").Find(&messages).Error; err != nil {
		return nil, translate(err)
	}
	return messages, nil
}

// PublishEvent publishes a room event on the redis room_events channel.
func (s *Service) PublishEvent(ctx context.Context, event models.RoomEvent) error {
	if s.Redis == nil {
		return errors.New("redis is not configured")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return s.Redis.Publish(ctx, RoomEventsChannel, payload).Err()
}

// SubscribeEvents subscribes to the room_events channel.
func (s *Service) SubscribeEvents(ctx context.Context) *redis.PubSub {
	return s.Redis.Subscribe(ctx, RoomEventsChannel)
}
