package database

import (
	"context"
	"fmt"
	"strings"

	"sociallink/internal/config"
	"sociallink/internal/middleware"

	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus is what cmd/migrate status prints.
type SchemaStatus struct {
	Mode               string
	Environment        string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	Applied            []AppliedMigration
	PendingMigrations  []Migration
	// Drift is set when the log disagrees with the embedded migrations.
	Drift              error
}

// schemaPlan is what ApplySchema will do for a given config.
type schemaPlan struct {
	Mode string
	SQL  bool
	Auto bool
}

// planSchema maps DB_SCHEMA_MODE and APP_ENV onto a plan. Hybrid runs the
// SQL migrations everywhere and tops up with AutoMigrate outside
// production-like environments; auto there needs an explicit opt-in since
// AutoMigrate can alter columns in place.
func planSchema(cfg *config.Config) (schemaPlan, error) {
	plan := schemaPlan{Mode: strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}

	var prodLike bool
	switch strings.ToLower(strings.TrimSpace(cfg.Env)) {
	case "production", "prod", "staging", "stage":
		prodLike = true
	}

	switch plan.Mode {
	case SchemaModeSQL:
		plan.SQL = true
	case SchemaModeHybrid:
		plan.SQL, plan.Auto = true, !prodLike
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.Auto = true
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

func runAutoMigrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
		return err
	}
	return ensureDialectConstraints(ctx, db)
}

// ensureDialectConstraints creates what AutoMigrate cannot express from
// struct tags: the unordered-pair unique index on connections, and triggers
// that drop likes when the post or comment they point at goes away.
func ensureDialectConstraints(ctx context.Context, db *gorm.DB) error {
	var stmts []string
	switch db.Dialector.Name() {
	case "postgres":
		stmts = []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_connections_pair
ON users_connections (LEAST(user_id, friend_id), GREATEST(user_id, friend_id))`,
			likeCleanupFuncPG,
			`DROP TRIGGER IF EXISTS trg_user_posts_drop_likes ON user_posts`,
			`CREATE TRIGGER trg_user_posts_drop_likes AFTER DELETE ON user_posts
FOR EACH ROW EXECUTE FUNCTION drop_target_likes('post')`,
			`DROP TRIGGER IF EXISTS trg_user_comments_drop_likes ON user_comments`,
			`CREATE TRIGGER trg_user_comments_drop_likes AFTER DELETE ON user_comments
FOR EACH ROW EXECUTE FUNCTION drop_target_likes('comment')`,
		}
	case "sqlite":
		stmts = []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_connections_pair
ON users_connections (MIN(user_id, friend_id), MAX(user_id, friend_id))`,
			`CREATE TRIGGER IF NOT EXISTS trg_user_posts_drop_likes AFTER DELETE ON user_posts
BEGIN
    DELETE FROM user_likes WHERE target_kind = 'post' AND target_id = OLD.id;
END`,
			`CREATE TRIGGER IF NOT EXISTS trg_user_comments_drop_likes AFTER DELETE ON user_comments
BEGIN
    DELETE FROM user_likes WHERE target_kind = 'comment' AND target_id = OLD.id;
END`,
		}
	}
	for _, stmt := range stmts {
		if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// likeCleanupFuncPG must stay in step with migration 000003.
const likeCleanupFuncPG = `CREATE OR REPLACE FUNCTION drop_target_likes() RETURNS trigger AS $$
BEGIN
    DELETE FROM user_likes WHERE target_kind = TG_ARGV[0] AND target_id = OLD.id;
    RETURN OLD;
END;
$$ LANGUAGE plpgsql`

// AutoMigrate runs GORM AutoMigrate plus the dialect-specific constraints.
// Tests and sqlite-backed tools use it in place of the SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return runAutoMigrate(context.Background(), db)
}

// ApplySchema brings the schema up to date following DB_SCHEMA_MODE. The
// embedded SQL migrations are Postgres-only, so other dialects always take
// the AutoMigrate path.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := planSchema(cfg)
	if err != nil {
		return err
	}
	if db.Dialector.Name() != "postgres" {
		plan.SQL, plan.Auto = false, true
	}

	if plan.SQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.Auto {
		return nil
	}

	if plan.Mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
		middleware.Logger.Warn("automigrate enabled with DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE; review schema diffs before deploying")
	}
	middleware.Logger.Info("running automigrate", "mode", plan.Mode, "env", cfg.Env, "dialect", db.Dialector.Name())
	if err := runAutoMigrate(ctx, db); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the active policy and pending SQL migrations.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := planSchema(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               plan.Mode,
		Environment:        cfg.Env,
		WillRunSQL:         plan.SQL,
		WillRunAutoMigrate: plan.Auto,
	}
	if !plan.SQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.Applied = applied
	status.Drift = validateApplied(applied, GetMigrations())

	done := make(map[int]bool, len(applied))
	for _, a := range applied {
		done[a.Version] = true
	}
	for _, m := range GetMigrations() {
		if !done[m.Version] {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}

	return status, nil
}
