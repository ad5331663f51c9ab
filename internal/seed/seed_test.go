package seed

import (
	"strings"
	"testing"
	"time"

	"sociallink/internal/database"
	"sociallink/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestBuildPost_TimestampsWithinMaxDays(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true, MaxDays: 30})
	user := &models.User{ID: 1}

	for i := 0; i < 20; i++ {
		p := f.BuildPost(user)
		if p.Description == "" {
			t.Fatal("expected a description")
		}
		if p.Images == nil || len(p.Images) != 0 {
			t.Fatalf("expected an empty image list, got %v", p.Images)
		}
		if time.Since(p.CreatedAt) > 31*24*time.Hour {
			t.Fatalf("created_at too old: %v", p.CreatedAt)
		}
	}
}

func TestFactory_DryRunAssignsSyntheticIDs(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true, SkipBcrypt: true})

	a, err := f.CreateUser()
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	b, _ := f.CreateUser(func(u *models.User) { u.Name = "Fixed" })
	if a.ID == 0 || a.ID == b.ID {
		t.Fatalf("expected distinct synthetic ids, got %d and %d", a.ID, b.ID)
	}
	if b.Name != "Fixed" {
		t.Fatalf("override not applied: %q", b.Name)
	}
	if a.Email != strings.ToLower(a.Email) {
		t.Fatalf("email should be lowercase: %s", a.Email)
	}
}

func TestFactory_ReplyToReplyFlattens(t *testing.T) {
	f := NewFactory(nil, Options{DryRun: true})
	user := &models.User{ID: 1}
	post := &models.Post{ID: 5, CreatedAt: time.Now().Add(-time.Hour)}

	top, _ := f.CreateComment(user, post, nil)
	reply, _ := f.CreateComment(user, post, top)
	deeper, _ := f.CreateComment(user, post, reply)

	if reply.MasterCommentID == nil || *reply.MasterCommentID != top.ID {
		t.Fatalf("reply should point at top-level comment")
	}
	if deeper.MasterCommentID == nil || *deeper.MasterCommentID != top.ID {
		t.Fatalf("nested reply should be flattened onto %d", top.ID)
	}
}

func TestSeedSocialMesh_RingWithoutDuplicatePairs(t *testing.T) {
	db := openTestDB(t)
	s := NewSeeder(db, Options{SkipBcrypt: true})

	users, err := s.SeedSocialMesh(6, 2, 1)
	if err != nil {
		t.Fatalf("seed mesh: %v", err)
	}
	if len(users) != 6 {
		t.Fatalf("expected 6 users, got %d", len(users))
	}

	var accepted, pending int64
	db.Model(&models.Connection{}).Where("is_accepted = ?", true).Count(&accepted)
	db.Model(&models.Connection{}).Where("is_accepted = ?", false).Count(&pending)
	// six users allow offsets up to 2, which the accepted friends use up
	if accepted != 12 || pending != 0 {
		t.Fatalf("expected 12 accepted and 0 pending, got %d and %d", accepted, pending)
	}

	var profiles int64
	db.Model(&models.Profile{}).Count(&profiles)
	if profiles != 6 {
		t.Fatalf("expected a profile per user, got %d", profiles)
	}
}

func TestApplyPreset_SeedsEngagement(t *testing.T) {
	db := openTestDB(t)
	s := NewSeeder(db, Options{SkipBcrypt: true, BatchSize: 4})

	summary, err := s.ApplyPreset(Preset{
		Users: 7, FriendsPerUser: 1, PendingPerUser: 1,
		Posts: 9, CommentsPerPost: 3, LikeRatio: 1, MaxDays: 3,
	})
	if err != nil {
		t.Fatalf("apply preset: %v", err)
	}
	if summary.Users != 7 || summary.Posts != 9 || summary.Connections != 14 {
		t.Fatalf("unexpected summary: %s", summary)
	}

	var posts, comments, postLikes int64
	db.Model(&models.Post{}).Count(&posts)
	db.Model(&models.Comment{}).Count(&comments)
	db.Model(&models.Like{}).Where("target_kind = ?", models.LikeKindPost).Count(&postLikes)
	if posts != 9 {
		t.Fatalf("expected 9 posts, got %d", posts)
	}
	if comments != int64(summary.Comments) {
		t.Fatalf("comment count %d does not match summary %d", comments, summary.Comments)
	}
	// like_ratio 1 means every user likes every post
	if postLikes != 63 {
		t.Fatalf("expected 63 post likes, got %d", postLikes)
	}

	var deepReplies int64
	db.Model(&models.Comment{}).
		Where("master_comment_id IN (?)", db.Model(&models.Comment{}).Select("id").Where("master_comment_id IS NOT NULL")).
		Count(&deepReplies)
	if deepReplies != 0 {
		t.Fatalf("replies must only target top-level comments, found %d", deepReplies)
	}
}

func TestClearAll_EmptiesTables(t *testing.T) {
	db := openTestDB(t)
	s := NewSeeder(db, Options{SkipBcrypt: true})
	if _, err := s.ApplyPreset(BuiltinPresets["minimal"]); err != nil {
		t.Fatalf("apply preset: %v", err)
	}

	if err := s.ClearAll(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	for _, m := range database.PersistentModels() {
		var n int64
		if err := db.Model(m).Count(&n).Error; err != nil {
			t.Fatalf("count: %v", err)
		}
		if n != 0 {
			t.Fatalf("%T still has %d rows", m, n)
		}
	}
}
