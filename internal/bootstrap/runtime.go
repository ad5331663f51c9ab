// Package bootstrap wires the long-lived runtime dependencies shared by the
// server and the command-line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"

	"sociallink/internal/cache"
	"sociallink/internal/config"
	"sociallink/internal/database"
	"sociallink/internal/models"
	"sociallink/internal/seed"
	"sociallink/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Runtime holds the connections a process needs.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	Store storage.ObjectStore
}

// InitRuntime connects to DB and Redis, opens the object store and, in
// development, applies DEV_SEED_PRESET to an empty database.
func InitRuntime(cfg *config.Config) (*Runtime, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb, err := cache.Connect(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Printf("Redis unavailable, continuing without cache: %v", err)
	} else {
		log.Println("Redis connected")
	}

	store, err := storage.NewLocalStore(cfg.StorageDir, cfg.StoragePublicURL)
	if err != nil {
		return nil, fmt.Errorf("object store: %w", err)
	}

	if err := ensureDevSeed(cfg, db); err != nil {
		return nil, fmt.Errorf("failed to seed development data: %w", err)
	}

	return &Runtime{DB: db, Redis: rdb, Store: store}, nil
}

func ensureDevSeed(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	preset := strings.TrimSpace(cfg.DevSeedPreset)
	if !strings.EqualFold(cfg.Env, "development") || preset == "" {
		return nil
	}

	var users int64
	if err := db.Model(&models.User{}).Count(&users).Error; err != nil {
		return err
	}
	if users > 0 {
		return nil
	}

	p, err := seed.LoadPreset("", preset)
	if err != nil {
		return err
	}
	summary, err := seed.NewSeeder(db, seed.Options{SkipBcrypt: true}).ApplyPreset(p)
	if err != nil {
		return err
	}
	log.Printf("development seed %q applied: %s", preset, summary)
	return nil
}
