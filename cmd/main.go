package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"pairlab/backend/internal/api/handler"
	"pairlab/backend/internal/chathub"
	"pairlab/backend/internal/config"
	"pairlab/backend/internal/storage"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// dependencies is everything the services need from the outside world.
type dependencies struct {
	store     storage.Storage
	publisher chathub.EventPublisher
	listener  chathub.EventSubscriber
	locker    chathub.Locker
	close     func()
}

func setupDependencies(cfg *config.Config) (*dependencies, error) {
	if cfg.StoreDriver == config.DriverMemory {
		if cfg.RedisURL != "" {
			log.Println("WARNING: REDIS_URL ignored with the memory store")
		}
		log.Println("INFO: Using in-memory room store.")
		return &dependencies{
			store:  storage.NewMemoryStore(),
			locker: chathub.NewLocalLocker(),
			close:  func() {},
		}, nil
	}

	db, err := config.ConnectGORM(cfg.Postgres)
	if err != nil {
		return nil, err
	}
	if cfg.Postgres.Migrate {
		if err := config.MigrateDatabase(db); err != nil {
			return nil, err
		}
	}

	rdb, err := config.ConnectRedis(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	s := storage.NewStorageService(db, rdb, cfg.StoreTimeout)
	deps := &dependencies{
		store:  s,
		locker: chathub.NewLocalLocker(),
		close: func() {
			if rdb != nil {
				rdb.Close()
			}
			if sqlDB, err := db.DB(); err == nil {
				sqlDB.Close()
			}
		},
	}
	if rdb != nil {
		deps.publisher = s
		deps.listener = s
		deps.locker = storage.NewRedisLocker(rdb, cfg.LockTTL)
		log.Println("INFO: Redis connected; room events and join locks are shared across instances.")
	}

	log.Println("INFO: Database connection established.")
	return deps, nil
}

func main() {
	log.Println("Starting pairlab backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	roomTypes, err := config.LoadRoomTypes(cfg.RoomTypesFile)
	if err != nil {
		log.Fatalf("Failed to load room types: %v", err)
	}

	deps, err := setupDependencies(cfg)
	if err != nil {
		log.Fatalf("Failed to set up storage: %v", err)
	}
	defer deps.close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := chathub.NewManagerService(deps.publisher)
	go hub.Run(ctx)
	if deps.listener != nil {
		hub.StartPubSubListener(ctx, deps.listener)
	}

	matcher := chathub.NewMatcherService(deps.store, roomTypes, nil, deps.locker, hub)
	matcher.LockTimeout = cfg.LockTTL
	lifecycle := chathub.NewLifecycleService(deps.store, deps.store, hub)
	query := chathub.NewQueryService(deps.store)

	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	h := handler.NewHandler(matcher, lifecycle, query, hub, cfg.JWTSecret)
	h.SetupRoutes(r)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("INFO: Listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("INFO: Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Graceful shutdown failed: %v", err)
	}
}
