// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"sociallink/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultPassword is the password every seeded user signs in with.
const DefaultPassword = "password123"

// Options tunes how the factory builds and persists rows.
type Options struct {
	// SkipBcrypt stores a cheap hash. Seeded users can still sign in
	// because the cost is only lowered, not removed.
	SkipBcrypt bool
	// DryRun assigns synthetic IDs and skips every DB write.
	DryRun    bool
	MaxDays   int
	BatchSize int
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder, presets and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	// synthetic ID counter when running in DryRun mode
	nextID   uint
	emails   int
	rng      *rand.Rand
	password string
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	cost := bcrypt.DefaultCost
	if opts.SkipBcrypt {
		cost = bcrypt.MinCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		log.Printf("seed: hash default password: %v", err)
	}
	return &Factory{
		db:       db,
		opts:     opts,
		nextID:   1000,
		rng:      rand.New(rand.NewSource(seed)), // #nosec G404: acceptable for seeding
		password: string(hashed),
	}
}

func (f *Factory) synthID() uint {
	f.nextID++
	return f.nextID
}

// createdAt spreads timestamps over the last MaxDays days.
func (f *Factory) createdAt() time.Time {
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	return time.Now().Add(-back)
}

// CreateUser constructs and persists a sample `models.User` with a profile.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	person := gofakeit.Person()
	f.emails++
	user := &models.User{
		Name:             person.FirstName + " " + person.LastName,
		Email:            strings.ToLower(fmt.Sprintf("%s.%d@example.com", gofakeit.Username(), f.emails)),
		Password:         f.password,
		ValidationStatus: true,
		Profile: &models.Profile{
			Location:  gofakeit.City() + ", " + gofakeit.Country(),
			AboutUser: gofakeit.Sentence(12),
		},
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		user.ID = f.synthID()
		if user.Profile != nil {
			user.Profile.UserID = user.ID
		}
		log.Printf("[dry-run] CreateUser: %s <%s>", user.Name, user.Email)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs a post like CreatePost but does not persist it.
// Useful for batching.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		UserID:      user.ID,
		Description: gofakeit.Paragraph(1, f.rng.Intn(3)+1, 12, " "),
		Images:      datatypes.JSONSlice[string]{},
	}
	post.CreatedAt = f.createdAt()
	post.UpdatedAt = post.CreatedAt

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePost constructs and persists a sample `models.Post` for the given user.
func (f *Factory) CreatePost(user *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	post := f.BuildPost(user, overrides...)
	if f.opts.DryRun {
		post.ID = f.synthID()
		log.Printf("[dry-run] CreatePost: user=%d", post.UserID)
		return post, nil
	}
	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// CreatePostsBatch persists multiple posts in batches of BatchSize.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			p.ID = f.synthID()
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	size := f.opts.BatchSize
	if size <= 0 {
		size = 100
	}
	return f.db.CreateInBatches(&posts, size).Error
}

// CreateComment persists a comment by user on post. A non-nil master makes
// it a reply; replies to replies are flattened onto the top-level comment.
func (f *Factory) CreateComment(user *models.User, post *models.Post, master *models.Comment, overrides ...func(*models.Comment)) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  user.ID,
		Content: gofakeit.Sentence(f.rng.Intn(10) + 3),
	}
	if master != nil {
		id := master.ID
		if master.MasterCommentID != nil {
			id = *master.MasterCommentID
		}
		comment.MasterCommentID = &id
	}
	comment.CreatedAt = post.CreatedAt.Add(time.Duration(f.rng.Intn(72)+1) * time.Hour)
	if comment.CreatedAt.After(time.Now()) {
		comment.CreatedAt = time.Now()
	}

	for _, override := range overrides {
		override(comment)
	}

	if f.opts.DryRun {
		comment.ID = f.synthID()
		return comment, nil
	}
	if err := f.db.Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateLike persists a like from user on target.
func (f *Factory) CreateLike(user *models.User, target models.LikeTarget) error {
	if !target.Valid() {
		return fmt.Errorf("invalid like target %s", target)
	}
	if f.opts.DryRun {
		return nil
	}
	return f.db.Create(&models.Like{UserID: user.ID, TargetKind: target.Kind, TargetID: target.ID}).Error
}

// CreateConnection persists a connection sent by sender to receiver.
func (f *Factory) CreateConnection(sender, receiver *models.User, accepted bool) (*models.Connection, error) {
	conn := &models.Connection{SenderID: sender.ID, ReceiverID: receiver.ID, IsAccepted: accepted}
	if f.opts.DryRun {
		conn.ID = f.synthID()
		return conn, nil
	}
	if err := f.db.Create(conn).Error; err != nil {
		return nil, err
	}
	return conn, nil
}
