// Command seed populates the database with demo users, connections, posts,
// comments and likes.
package main

import (
	"flag"
	"log"

	"sociallink/internal/config"
	"sociallink/internal/database"
	"sociallink/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	friends := flag.Int("friends", 4, "Accepted connections per user")
	pending := flag.Int("pending", 2, "Pending requests sent per user")
	comments := flag.Int("comments", 5, "Maximum comments per post")
	likeRatio := flag.Float64("like-ratio", 0.15, "Chance a user likes a given post")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	preset := flag.String("preset", "", "Apply a named preset (minimal, demo, busy or one from -presets)")
	presetsFile := flag.String("presets", "", "YAML file of named presets")
	fast := flag.Bool("fast", false, "Use the minimum bcrypt cost")
	dryRun := flag.Bool("dry-run", false, "Build data without writing to the database")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")

	p := seed.Preset{
		Users:           *numUsers,
		FriendsPerUser:  *friends,
		PendingPerUser:  *pending,
		Posts:           *numPosts,
		CommentsPerPost: *comments,
		LikeRatio:       *likeRatio,
	}
	if *preset != "" {
		loaded, err := seed.LoadPreset(*presetsFile, *preset)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		p = loaded
		log.Printf("Applying preset: %s (ignoring count flags)\n", *preset)
	} else {
		log.Printf("Target: %d users, %d posts, clean=%v\n", p.Users, p.Posts, *shouldClean)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{SkipBcrypt: *fast, DryRun: *dryRun, BatchSize: 100, MaxDays: p.MaxDays})

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	summary, err := s.ApplyPreset(p)
	if err != nil {
		log.Fatalf("❌ Seeding failed after %s: %v", summary, err)
	}

	log.Printf("✨ All done! Created %s.", summary)
	log.Printf("📧 All test users have the password: %s", seed.DefaultPassword)
}
