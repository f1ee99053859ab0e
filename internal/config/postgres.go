package config

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"pairlab/backend/internal/models"
	"time"

	_ "github.com/lib/pq"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN renders the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// ConnectGORM opens the room store database through lib/pq and wraps it in gorm.
func ConnectGORM(p PostgresConfig) (*gorm.DB, error) {
	sqlDB, err := sql.Open("postgres", p.DSN())
	if err != nil {
		log.Printf("ERROR: opening PostgreSQL: %v", err)
		return nil, err
	}

	gormConfig := &gorm.Config{TranslateError: true}
	if p.Verbose {
		gormConfig.Logger = logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Info,
				IgnoreRecordNotFoundError: true,
				Colorful:                  true,
			},
		)
	}

	db, err := gorm.Open(pgdriver.New(pgdriver.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), gormConfig)
	if err != nil {
		log.Printf("ERROR: connecting to PostgreSQL with GORM: %v", err)
		return nil, err
	}

	if err := sqlDB.Ping(); err != nil {
		log.Printf("ERROR: pinging PostgreSQL: %v", err)
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("INFO: connected to PostgreSQL")
	return db, nil
}

// MigrateDatabase creates the rooms, room_users and messages tables.
func MigrateDatabase(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Room{},
		&models.RoomMembership{},
		&models.Message{},
	)
	if err != nil {
		return fmt.Errorf("auto migration failed: %w", err)
	}
	return nil
}
