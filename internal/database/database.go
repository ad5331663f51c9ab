// Package database handles database connections and migrations.
package database

import (
	"context"
	"fmt"
	"time"

	"sociallink/internal/config"
	"sociallink/internal/middleware"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DB is the global database connection instance.
var DB *gorm.DB

// ReadDB is the read-replica connection; nil when no replica is configured.
var ReadDB *gorm.DB

// Options tunes ConnectWithOptions.
type Options struct {
	// ApplySchema runs ApplySchema after connecting.
	ApplySchema bool
	// ConnectReplica opens DB_READ_HOST when it is configured.
	ConnectReplica bool
}

// Connect opens the primary connection, applies the schema policy and
// connects the read replica when one is configured.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	return ConnectWithOptions(cfg, Options{ApplySchema: true, ConnectReplica: true})
}

// ConnectWithOptions is Connect with explicit control over the startup steps.
// cmd/migrate uses it to connect without touching the schema.
func ConnectWithOptions(cfg *config.Config, opts Options) (*gorm.DB, error) {
	dsn := buildDSN(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	dbInstance, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(middleware.Logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := configurePool(dbInstance, cfg); err != nil {
		return nil, err
	}

	middleware.Logger.Info("database connected", "host", cfg.DBHost, "db", cfg.DBName)

	if opts.ApplySchema {
		if err := ApplySchema(context.Background(), dbInstance, cfg); err != nil {
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
		middleware.Logger.Info("database schema ready", "mode", cfg.DBSchemaMode)
	}

	DB = dbInstance

	if opts.ConnectReplica && cfg.DBReadHost != "" {
		replica, err := connectReplica(cfg)
		if err != nil {
			// Reads fall back to the primary.
			middleware.Logger.Warn("read replica unavailable", "error", err)
		} else {
			ReadDB = replica
			middleware.Logger.Info("read replica connected", "host", cfg.DBReadHost)
		}
	}

	return DB, nil
}

func connectReplica(cfg *config.Config) (*gorm.DB, error) {
	dsn := buildDSN(cfg.DBReadHost, cfg.DBReadPort, cfg.DBReadUser, cfg.DBReadPassword, cfg.DBName, cfg.DBSSLMode)
	replica, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(middleware.Logger),
	})
	if err != nil {
		return nil, err
	}
	if err := configurePool(replica, cfg); err != nil {
		return nil, err
	}
	return replica, nil
}

// GetReadDB returns the replica when connected, otherwise the primary.
func GetReadDB() *gorm.DB {
	if ReadDB != nil {
		return ReadDB
	}
	return DB
}

func buildDSN(host, port, user, password, name, sslMode string) string {
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, name, sslMode,
	)
}

func configurePool(db *gorm.DB, cfg *config.Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql.DB: %w", err)
	}
	maxOpen := cfg.DBMaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	maxIdle := cfg.DBMaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := time.Duration(cfg.DBConnMaxLifetimeMinutes) * time.Minute
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)
	return nil
}
