package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"sociallink/internal/middleware"

	"gorm.io/gorm"
)

// migrationLockKey serializes concurrent migrators (several API replicas
// starting at once) through a Postgres transaction-scoped advisory lock.
const migrationLockKey int64 = 0x50c1a111

const ensureMigrationLogTableSQL = `
CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	checksum VARCHAR(64) NOT NULL DEFAULT '',
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// AppliedMigration is one row of migration_logs.
type AppliedMigration struct {
	Version   int
	Name      string
	Checksum  string
	AppliedAt time.Time
}

// MigrationStore reads and writes the migration log.
type MigrationStore interface {
	GetAppliedMigrations(ctx context.Context) ([]AppliedMigration, error)
	RecordMigration(ctx context.Context, m Migration) error
	RemoveMigration(ctx context.Context, version int) error
}

type migrationStore struct {
	db *gorm.DB
}

// NewMigrationStore creates a MigrationStore over db, which may be a
// transaction.
func NewMigrationStore(db *gorm.DB) MigrationStore {
	return &migrationStore{db: db}
}

func (s *migrationStore) GetAppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	var rows []AppliedMigration
	err := s.db.WithContext(ctx).
		Raw("SELECT version, name, checksum, applied_at FROM migration_logs ORDER BY version ASC").
		Scan(&rows).Error
	if err != nil {
		if isMissingTableError(err) {
			return []AppliedMigration{}, nil
		}
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}
	return rows, nil
}

func isMissingTableError(err error) bool {
	msg := err.Error()
	return (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) ||
		strings.Contains(msg, "no such table")
}

func (s *migrationStore) RecordMigration(ctx context.Context, m Migration) error {
	err := s.db.WithContext(ctx).
		Exec("INSERT INTO migration_logs (version, name, checksum) VALUES (?, ?, ?)", m.Version, m.Name, m.Checksum()).
		Error
	if err != nil {
		return fmt.Errorf("failed to record migration %s: %w", m.String(), err)
	}
	return nil
}

func (s *migrationStore) RemoveMigration(ctx context.Context, version int) error {
	if err := s.db.WithContext(ctx).Exec("DELETE FROM migration_logs WHERE version = ?", version).Error; err != nil {
		return fmt.Errorf("failed to remove migration record %d: %w", version, err)
	}
	return nil
}

// Checksum is the hex SHA-256 of the up script.
func (m *Migration) Checksum() string {
	sum := sha256.Sum256([]byte(m.UpScript))
	return hex.EncodeToString(sum[:])
}

// RunMigrations applies every pending embedded migration. The whole run is
// one transaction holding the advisory lock, so a failed script leaves
// neither schema changes nor log rows behind.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return runMigrations(ctx, db, GetMigrations())
}

func runMigrations(ctx context.Context, db *gorm.DB, registered []Migration) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrationLockKey).Error; err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		if err := tx.Exec(ensureMigrationLogTableSQL).Error; err != nil {
			return fmt.Errorf("failed to ensure migration logs table: %w", err)
		}

		store := NewMigrationStore(tx)
		applied, err := store.GetAppliedMigrations(ctx)
		if err != nil {
			return err
		}
		if err := validateApplied(applied, registered); err != nil {
			return err
		}

		done := make(map[int]bool, len(applied))
		for _, a := range applied {
			done[a.Version] = true
		}

		for _, m := range registered {
			if done[m.Version] {
				continue
			}
			middleware.Logger.Info("Applying migration", slog.Int("version", m.Version), slog.String("name", m.Name))
			if err := tx.Exec(m.UpScript).Error; err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", m.String(), err)
			}
			if err := store.RecordMigration(ctx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

// validateApplied rejects a log that names versions missing from the
// binary, or whose recorded checksum no longer matches the embedded script.
func validateApplied(applied []AppliedMigration, registered []Migration) error {
	versions := make([]int, 0, len(applied))
	for _, a := range applied {
		versions = append(versions, a.Version)
	}
	if err := validateAppliedVersions(versions, registered); err != nil {
		return err
	}

	byVersion := make(map[int]Migration, len(registered))
	for _, m := range registered {
		byVersion[m.Version] = m
	}
	for _, a := range applied {
		m := byVersion[a.Version]
		// rows written before checksums were tracked carry none
		if sum := strings.TrimSpace(a.Checksum); sum != "" && sum != m.Checksum() {
			return fmt.Errorf("migration %s was edited after it was applied; add a new migration instead", m.String())
		}
	}
	return nil
}

func validateAppliedVersions(applied []int, registered []Migration) error {
	known := make(map[int]struct{}, len(registered))
	for _, m := range registered {
		known[m.Version] = struct{}{}
	}

	var unknown []string
	sort.Ints(applied)
	for _, version := range applied {
		if _, ok := known[version]; !ok {
			unknown = append(unknown, fmt.Sprintf("%06d", version))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	return fmt.Errorf(
		"migration_logs contains unknown versions not present in code: %s (run \"migrate down\" with an older build or reset the development database)",
		strings.Join(unknown, ", "),
	)
}

// RollbackMigration reverts the latest applied migration, which must be
// version. Rolling back out of order would leave later scripts running
// against a schema they were not written for.
func RollbackMigration(ctx context.Context, db *gorm.DB, version int) error {
	m := GetMigrationByVersion(version)
	if m == nil {
		return fmt.Errorf("migration version %d not found", version)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", migrationLockKey).Error; err != nil {
			return fmt.Errorf("acquire migration lock: %w", err)
		}
		store := NewMigrationStore(tx)
		applied, err := store.GetAppliedMigrations(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 || applied[len(applied)-1].Version != version {
			return fmt.Errorf("migration %d is not the latest applied migration", version)
		}

		middleware.Logger.Info("Rolling back migration", slog.Int("version", version), slog.String("name", m.Name))
		if err := tx.Exec(m.DownScript).Error; err != nil {
			return fmt.Errorf("failed to run rollback SQL for migration %s: %w", m.String(), err)
		}
		return store.RemoveMigration(ctx, version)
	})
}
