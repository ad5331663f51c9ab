package seed

import (
	"fmt"
	"log"

	"sociallink/internal/database"
	"sociallink/internal/models"

	"gorm.io/gorm"
)

// Summary counts the rows a seeding run created.
type Summary struct {
	Users       int
	Connections int
	Posts       int
	Comments    int
	Likes       int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d users, %d connections, %d posts, %d comments, %d likes",
		s.Users, s.Connections, s.Posts, s.Comments, s.Likes)
}

// Seeder populates the database with a connected social graph and
// engagement on top of it.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	summary Summary
}

// NewSeeder creates a seeder writing through db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	return &Seeder{db: db, factory: NewFactory(db, opts)}
}

// Summary returns the totals so far.
func (s *Seeder) Summary() Summary {
	return s.summary
}

// ClearAll empties every application table.
func (s *Seeder) ClearAll() error {
	log.Println("🗑️  Clearing existing data...")
	if s.factory.opts.DryRun {
		return nil
	}
	tables := make([]string, 0, len(database.PersistentModels()))
	for _, m := range database.PersistentModels() {
		stmt := &gorm.Statement{DB: s.db}
		if err := stmt.Parse(m); err != nil {
			return err
		}
		tables = append(tables, stmt.Schema.Table)
	}

	if s.db.Dialector.Name() == "postgres" {
		sql := "TRUNCATE TABLE "
		for i, t := range tables {
			if i > 0 {
				sql += ", "
			}
			sql += t
		}
		return s.db.Exec(sql + " RESTART IDENTITY CASCADE").Error
	}

	// dependents first
	for i := len(tables) - 1; i >= 0; i-- {
		if err := s.db.Exec("DELETE FROM " + tables[i]).Error; err != nil {
			return fmt.Errorf("clear %s: %w", tables[i], err)
		}
	}
	return nil
}

// SeedSocialMesh creates count users. Each user is connected to the next
// friendsPerUser users around a ring, and has pendingPerUser unanswered
// requests to users further along.
func (s *Seeder) SeedSocialMesh(count, friendsPerUser, pendingPerUser int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		u, err := s.factory.CreateUser()
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		users = append(users, u)
	}
	s.summary.Users += len(users)

	if count < 2 {
		return users, nil
	}
	// a pair may be connected once, so offsets past half the ring would
	// revisit pairs from the other side
	maxOffset := (count - 1) / 2
	for i, u := range users {
		offset := 1
		for n := 0; n < friendsPerUser && offset <= maxOffset; n, offset = n+1, offset+1 {
			if _, err := s.factory.CreateConnection(u, users[(i+offset)%count], true); err != nil {
				return nil, fmt.Errorf("connect users: %w", err)
			}
			s.summary.Connections++
		}
		for n := 0; n < pendingPerUser && offset <= maxOffset; n, offset = n+1, offset+1 {
			if _, err := s.factory.CreateConnection(u, users[(i+offset)%count], false); err != nil {
				return nil, fmt.Errorf("request connection: %w", err)
			}
			s.summary.Connections++
		}
	}
	return users, nil
}

// SeedEngagement spreads numPosts posts across users, then adds comments,
// replies and likes. likeRatio is the chance a given user likes a given
// post or comment.
func (s *Seeder) SeedEngagement(users []*models.User, numPosts, commentsPerPost int, likeRatio float64) ([]*models.Post, error) {
	if len(users) == 0 || numPosts <= 0 {
		return nil, nil
	}
	rng := s.factory.rng

	posts := make([]*models.Post, 0, numPosts)
	for i := 0; i < numPosts; i++ {
		posts = append(posts, s.factory.BuildPost(users[rng.Intn(len(users))]))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	s.summary.Posts += len(posts)

	for _, post := range posts {
		n := 0
		if commentsPerPost > 0 {
			n = rng.Intn(commentsPerPost + 1)
		}
		var tops []*models.Comment
		for c := 0; c < n; c++ {
			var master *models.Comment
			if len(tops) > 0 && rng.Float64() < 0.35 {
				master = tops[rng.Intn(len(tops))]
			}
			comment, err := s.factory.CreateComment(users[rng.Intn(len(users))], post, master)
			if err != nil {
				return nil, fmt.Errorf("create comment: %w", err)
			}
			s.summary.Comments++
			if master == nil {
				tops = append(tops, comment)
			}
			if err := s.likeBy(users, models.CommentTarget(comment.ID), likeRatio/2); err != nil {
				return nil, err
			}
		}
		if err := s.likeBy(users, models.PostTarget(post.ID), likeRatio); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (s *Seeder) likeBy(users []*models.User, target models.LikeTarget, ratio float64) error {
	for _, u := range users {
		if s.factory.rng.Float64() >= ratio {
			continue
		}
		if err := s.factory.CreateLike(u, target); err != nil {
			return fmt.Errorf("like %s: %w", target, err)
		}
		s.summary.Likes++
	}
	return nil
}
