package chathub_test

import (
	"context"
	"pairlab/backend/internal/chathub"
	"pairlab/backend/internal/config"
	"pairlab/backend/internal/models"
	"pairlab/backend/internal/storage"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type messageStore interface {
	storage.Storage
	GetMessages(ctx context.Context, roomID string) ([]models.Message, error)
}

func newSQLiteStore(t *testing.T) *storage.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, config.MigrateDatabase(db))
	return storage.NewStorageService(db, nil, time.Second)
}

// forEachStore runs fn against the gorm service on sqlite and the memory store.
func forEachStore(t *testing.T, fn func(t *testing.T, s messageStore)) {
	t.Run("gorm", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, storage.NewMemoryStore()) })
}

func TestStores_TwoOnOneScenario(t *testing.T) {
	forEachStore(t, func(t *testing.T, s messageStore) {
		ctx := context.Background()
		matcher := newTestMatcher(s, nil)

		r1, err := matcher.Join(ctx, models.RoomTypeTwoOnOne, "A", "Alice")
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusWaiting, r1.Status)
		require.Len(t, r1.ConfederateAssignments, 1)
		count, err := s.CountMembers(ctx, r1.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		joined, err := matcher.Join(ctx, models.RoomTypeTwoOnOne, "B", "Bob")
		require.NoError(t, err)
		assert.Equal(t, r1.ID, joined.ID)
		assert.Equal(t, models.RoomStatusActive, joined.Status)
		assert.Equal(t, r1.ConfederateAssignments, joined.ConfederateAssignments)

		r2, err := matcher.Join(ctx, models.RoomTypeTwoOnOne, "C", "Carol")
		require.NoError(t, err)
		assert.NotEqual(t, r1.ID, r2.ID)
		assert.Equal(t, models.RoomStatusWaiting, r2.Status)

		// Rejoining hands back the open room instead of a second membership.
		again, err := matcher.Join(ctx, models.RoomTypeTwoOnOne, "A", "Alice")
		require.NoError(t, err)
		assert.Equal(t, r1.ID, again.ID)

		members, err := s.ListMembers(ctx, r1.ID)
		require.NoError(t, err)
		assert.Equal(t, []models.Member{{UserID: "A", UserName: "Alice"}, {UserID: "B", UserName: "Bob"}}, members)
	})
}

func TestStores_TwoVsFourSlots(t *testing.T) {
	forEachStore(t, func(t *testing.T, s messageStore) {
		ctx := context.Background()
		room, err := newTestMatcher(s, nil).Join(ctx, models.RoomTypeTwoVsFour, "A", "Alice")
		require.NoError(t, err)

		loaded, err := s.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, room.ConfederateAssignments, loaded.ConfederateAssignments)

		seen := map[string]bool{}
		for _, slot := range []string{models.SlotConfederate, models.SlotLLMUser1, models.SlotLLMUser2, models.SlotLLMUser3} {
			name := loaded.ConfederateAssignments[slot]
			require.NotEmpty(t, name, slot)
			assert.Contains(t, config.DefaultConfederatePool, name)
			assert.False(t, seen[name], "name %s repeated", name)
			seen[name] = true
		}
	})
}

func TestStores_SingleCapacityActivates(t *testing.T) {
	forEachStore(t, func(t *testing.T, s messageStore) {
		room, err := newTestMatcher(s, nil).Join(context.Background(), models.RoomTypeOneOnOne, "A", "Alice")
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusActive, room.Status)
		assert.Empty(t, room.ConfederateAssignments)
	})
}

func TestStores_ExitIsIdempotent(t *testing.T) {
	forEachStore(t, func(t *testing.T, s messageStore) {
		ctx := context.Background()
		matcher := newTestMatcher(s, nil)
		lifecycle := chathub.NewLifecycleService(s, s, nil)

		room, err := matcher.Join(ctx, models.RoomTypeTwoOnOne, "A", "Alice")
		require.NoError(t, err)
		_, err = matcher.Join(ctx, models.RoomTypeTwoOnOne, "B", "Bob")
		require.NoError(t, err)

		require.NoError(t, lifecycle.Exit(ctx, room.ID, "A", "Alice"))
		messages, err := s.GetMessages(ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, messages, 1)
		assert.Equal(t, models.SystemSender, messages[0].SenderRole)

		require.NoError(t, lifecycle.Exit(ctx, room.ID, "B", "Bob"))
		loaded, err := s.GetRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusEnded, loaded.Status)

		// An ended room is neither rejoined nor matched.
		next, err := matcher.Join(ctx, models.RoomTypeTwoOnOne, "A", "Alice")
		require.NoError(t, err)
		assert.NotEqual(t, room.ID, next.ID)
		assert.Equal(t, models.RoomStatusWaiting, next.Status)

		assert.ErrorIs(t, lifecycle.Exit(ctx, "missing", "A", "Alice"), storage.ErrRoomNotFound)
	})
}

// exitAfterCount ends the counted room right after the matcher counts its
// members, between candidate selection and the membership insert.
type exitAfterCount struct {
	messageStore
	exit func(roomID string)
	once sync.Once
}

func (e *exitAfterCount) CountMembers(ctx context.Context, roomID string) (int, error) {
	count, err := e.messageStore.CountMembers(ctx, roomID)
	e.once.Do(func() { e.exit(roomID) })
	return count, err
}

func TestJoin_CandidateEndedBeforeInsert(t *testing.T) {
	forEachStore(t, func(t *testing.T, s messageStore) {
		ctx := context.Background()
		sink := &recordingSink{}

		first, err := newTestMatcher(s, nil).Join(ctx, models.RoomTypeTwoOnOne, "A", "Alice")
		require.NoError(t, err)

		lifecycle := chathub.NewLifecycleService(s, s, nil)
		racing := &exitAfterCount{messageStore: s}
		racing.exit = func(roomID string) {
			require.NoError(t, lifecycle.Exit(ctx, roomID, "A", "Alice"))
		}

		room, err := newTestMatcher(racing, sink).Join(ctx, models.RoomTypeTwoOnOne, "B", "Bob")
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, room.ID)
		assert.Equal(t, models.RoomStatusWaiting, room.Status)
		assert.NotContains(t, sink.types(), models.EventRoomActive)

		ended, err := s.GetRoom(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoomStatusEnded, ended.Status)
		count, err := s.CountMembers(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}
