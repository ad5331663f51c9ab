package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"testing/fstest"
	"time"

	"sociallink/internal/config"
	"sociallink/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestConfigurePool(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           5,
		DBConnMaxLifetimeMinutes: 15,
	}
	require.NoError(t, configurePool(db, cfg))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	assert.Equal(t, 10, sqlDB.Stats().MaxOpenConnections)
}

func TestBuildDSN_DefaultsSSLMode(t *testing.T) {
	dsn := buildDSN("db", "5432", "u", "p", "sociallink", "")
	assert.Contains(t, dsn, "sslmode=disable")
	assert.Contains(t, dsn, "dbname=sociallink")
}

func TestGetReadDBFallsBackToPrimary(t *testing.T) {
	primary, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	DB, ReadDB = primary, nil
	t.Cleanup(func() { DB, ReadDB = nil, nil })

	assert.Same(t, primary, GetReadDB())
}

func TestPersistentModels_CoversDomain(t *testing.T) {
	var hasLike, hasConnection bool
	for _, model := range PersistentModels() {
		switch model.(type) {
		case *models.Like:
			hasLike = true
		case *models.Connection:
			hasConnection = true
		}
	}
	assert.True(t, hasLike)
	assert.True(t, hasConnection)
}

func TestEmbeddedMigrationsRegistered(t *testing.T) {
	ms := GetMigrations()
	require.NotEmpty(t, ms)
	for i, m := range ms {
		assert.NotEmpty(t, m.UpScript, m.String())
		assert.NotEmpty(t, m.DownScript, m.String())
		if i > 0 {
			assert.Greater(t, m.Version, ms[i-1].Version)
		}
	}
	pair := GetMigrationByVersion(2)
	require.NotNil(t, pair)
	assert.Contains(t, pair.UpScript, "LEAST(user_id, friend_id)")
	assert.Nil(t, GetMigrationByVersion(999))

	cleanup := GetMigrationByVersion(3)
	require.NotNil(t, cleanup)
	assert.Contains(t, cleanup.UpScript, "drop_target_likes('post')")
	assert.Contains(t, cleanup.UpScript, "drop_target_likes('comment')")
	assert.Contains(t, cleanup.DownScript, "DROP FUNCTION IF EXISTS drop_target_likes()")
}

func TestSchemaPolicy(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		runSQL  bool
		runAuto bool
		wantErr bool
	}{
		{"hybrid dev", config.Config{DBSchemaMode: "hybrid", Env: "development"}, true, true, false},
		{"hybrid prod", config.Config{DBSchemaMode: "hybrid", Env: "production"}, true, false, false},
		{"empty mode is hybrid", config.Config{Env: "test"}, true, true, false},
		{"sql", config.Config{DBSchemaMode: "sql", Env: "development"}, true, false, false},
		{"auto dev", config.Config{DBSchemaMode: "auto", Env: "development"}, false, true, false},
		{"auto prod refused", config.Config{DBSchemaMode: "auto", Env: "production"}, false, false, true},
		{"unknown", config.Config{DBSchemaMode: "yolo"}, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := planSchema(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.runSQL, plan.SQL)
			assert.Equal(t, tt.runAuto, plan.Auto)
		})
	}
}

func TestApplySchema_SQLiteUsesAutoMigrate(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	cfg := &config.Config{DBSchemaMode: "sql", Env: "test"}
	require.NoError(t, ApplySchema(context.Background(), db, cfg))

	for _, table := range []string{"users", "user_profiles", "users_connections", "user_posts", "user_comments", "user_likes"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	// The pair index rejects the reverse direction of an existing row.
	require.NoError(t, db.Exec(`INSERT INTO users (id, name, email, password) VALUES (1,'a','a@x.io','h'),(2,'b','b@x.io','h')`).Error)
	require.NoError(t, db.Exec(`INSERT INTO users_connections (user_id, friend_id, is_accepted) VALUES (1, 2, false)`).Error)
	err = db.Exec(`INSERT INTO users_connections (user_id, friend_id, is_accepted) VALUES (2, 1, false)`).Error
	assert.Error(t, err)
}

func TestLikesFollowTheirTargets(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, AutoMigrate(db))

	author := models.User{Name: "author", Email: "author@x.io", Password: "h"}
	fan := models.User{Name: "fan", Email: "fan@x.io", Password: "h"}
	require.NoError(t, db.Create(&author).Error)
	require.NoError(t, db.Create(&fan).Error)

	authored := models.Post{UserID: author.ID, Description: "a", Images: datatypes.JSONSlice[string]{}}
	kept := models.Post{UserID: fan.ID, Description: "b", Images: datatypes.JSONSlice[string]{}}
	require.NoError(t, db.Omit("User", "Comments").Create(&authored).Error)
	require.NoError(t, db.Omit("User", "Comments").Create(&kept).Error)
	comment := models.Comment{PostID: kept.ID, UserID: author.ID, Content: "hi"}
	require.NoError(t, db.Omit("User", "Replies").Create(&comment).Error)

	for _, l := range []models.Like{
		{UserID: fan.ID, TargetKind: models.LikeKindPost, TargetID: authored.ID},
		{UserID: fan.ID, TargetKind: models.LikeKindComment, TargetID: comment.ID},
		{UserID: author.ID, TargetKind: models.LikeKindPost, TargetID: kept.ID},
		{UserID: fan.ID, TargetKind: models.LikeKindPost, TargetID: kept.ID},
	} {
		l := l
		require.NoError(t, db.Omit("User").Create(&l).Error)
	}

	// Removing the author cascades to their posts, comments and likes; the
	// triggers take the likes other users left on that content with them.
	require.NoError(t, db.Exec("DELETE FROM users WHERE id = ?", author.ID).Error)

	var likes []models.Like
	require.NoError(t, db.Find(&likes).Error)
	require.Len(t, likes, 1)
	assert.Equal(t, fan.ID, likes[0].UserID)
	assert.Equal(t, models.LikeKindPost, likes[0].TargetKind)
	assert.Equal(t, kept.ID, likes[0].TargetID)
}

func newMockPostgres(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func TestMigrationStore_GetAppliedMigrations(t *testing.T) {
	db, mock := newMockPostgres(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT version, name, checksum, applied_at FROM migration_logs ORDER BY version ASC`)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "checksum", "applied_at"}).
			AddRow(1, "init", "abc", time.Now()).
			AddRow(2, "connections", "", time.Now()))

	applied, err := NewMigrationStore(db).GetAppliedMigrations(context.Background())
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "connections", applied[1].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_AppliesPendingInOneTransaction(t *testing.T) {
	db, mock := newMockPostgres(t)
	registered := []Migration{
		{Version: 1, Name: "init", UpScript: "CREATE TABLE a (id INT)"},
		{Version: 2, Name: "more", UpScript: "CREATE TABLE b (id INT)"},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
		WithArgs(migrationLockKey).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS migration_logs`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT version, name, checksum, applied_at FROM migration_logs`)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "checksum", "applied_at"}).
			AddRow(1, "init", registered[0].Checksum(), time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE b (id INT)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO migration_logs (version, name, checksum) VALUES ($1, $2, $3)`)).
		WithArgs(2, "more", registered[1].Checksum()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, runMigrations(context.Background(), db, registered))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_FailedScriptRollsBack(t *testing.T) {
	db, mock := newMockPostgres(t)
	registered := []Migration{{Version: 1, Name: "init", UpScript: "CREATE TABLE a (id INT)"}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS migration_logs`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT version, name, checksum, applied_at FROM migration_logs`)).
		WillReturnRows(sqlmock.NewRows([]string{"version", "name", "checksum", "applied_at"}))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE a (id INT)`)).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	err := runMigrations(context.Background(), db, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000001_init")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateApplied(t *testing.T) {
	registered := []Migration{{Version: 1, UpScript: "a"}, {Version: 2, Name: "two", UpScript: "b"}}
	assert.NoError(t, validateAppliedVersions([]int{1, 2}, registered))

	err := validateAppliedVersions([]int{1, 7}, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000007")

	ok := []AppliedMigration{{Version: 1, Checksum: registered[0].Checksum()}, {Version: 2}}
	assert.NoError(t, validateApplied(ok, registered))

	edited := []AppliedMigration{{Version: 2, Checksum: registered[0].Checksum()}}
	err = validateApplied(edited, registered)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000002_two was edited")
}

func TestLoadMigrationsRejectsBadSets(t *testing.T) {
	file := func(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }

	ok := fstest.MapFS{
		"m/000002_b.up.sql":   file("B"),
		"m/000002_b.down.sql": file("-B"),
		"m/000001_a.up.sql":   file("A"),
		"m/000001_a.down.sql": file("-A"),
	}
	ms, err := LoadMigrations(ok, "m")
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, "000001_a", ms[0].String())
	assert.Equal(t, "-B", ms[1].DownScript)

	bad := map[string]fstest.MapFS{
		"no down": {"m/000001_a.up.sql": file("A")},
		"bad name": {
			"m/init.sql": file("A"),
		},
		"version clash": {
			"m/000001_a.up.sql":   file("A"),
			"m/000001_a.down.sql": file("-A"),
			"m/000001_b.up.sql":   file("B"),
		},
	}
	for name, fsys := range bad {
		_, err := LoadMigrations(fsys, "m")
		assert.Error(t, err, name)
	}
}

func TestGormLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := newGormLogger(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	stmt := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	l.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	l.Trace(ctx, time.Now(), stmt, nil)
	assert.Zero(t, buf.Len(), "warn level drops fast queries and missing rows")

	l.Trace(ctx, time.Now(), stmt, errors.New("deadlock detected"))
	l.Trace(ctx, time.Now().Add(-time.Second), stmt, nil)
	out := buf.String()
	assert.Contains(t, out, `"msg":"query failed"`)
	assert.Contains(t, out, `"error":"deadlock detected"`)
	assert.Contains(t, out, `"msg":"slow query"`)

	buf.Reset()
	l.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), stmt, errors.New("x"))
	assert.Zero(t, buf.Len())
}
