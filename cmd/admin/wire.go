package main

import (
	"fmt"
	"pairlab/backend/internal/config"
	"pairlab/backend/internal/storage"
)

// storeOpener returns the store the commands operate on and a func releasing it.
type storeOpener func() (storage.Storage, func(), error)

// openStore connects to the configured room store. The admin CLI needs no redis.
func openStore() (storage.Storage, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if cfg.StoreDriver == config.DriverMemory {
		return nil, nil, fmt.Errorf("the admin CLI needs STORE_DRIVER=%s", config.DriverPostgres)
	}

	db, err := config.ConnectGORM(cfg.Postgres)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return storage.NewStorageService(db, nil, cfg.StoreTimeout), closeDB, nil
}
