package repository

import (
	"fmt"
	"testing"

	"sociallink/internal/database"
	"sociallink/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// setupTestDB returns a migrated in-memory sqlite database. One connection
// keeps every statement on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: fmt.Sprintf("%s@example.com", name), Password: "hash"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createPost(t *testing.T, db *gorm.DB, owner uint, description string) *models.Post {
	t.Helper()
	p := &models.Post{UserID: owner, Description: description, Images: datatypes.JSONSlice[string]{"posts/a.webp"}}
	require.NoError(t, db.Omit("User", "Comments").Create(p).Error)
	return p
}

func createComment(t *testing.T, db *gorm.DB, postID, userID uint, master *uint, content string) *models.Comment {
	t.Helper()
	c := &models.Comment{PostID: postID, UserID: userID, MasterCommentID: master, Content: content}
	require.NoError(t, db.Omit("User", "Replies").Create(c).Error)
	return c
}
