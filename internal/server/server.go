// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"time"

	_ "sociallink/docs" // swagger docs
	"sociallink/internal/auth"
	"sociallink/internal/bootstrap"
	"sociallink/internal/config"
	"sociallink/internal/middleware"
	"sociallink/internal/models"
	"sociallink/internal/notifications"
	"sociallink/internal/observability"
	"sociallink/internal/repository"
	"sociallink/internal/service"
	"sociallink/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	store    storage.ObjectStore
	authn    *middleware.Authenticator
	notifier *notifications.Notifier
	hub      *notifications.Hub

	userRepo repository.UserRepository
	postRepo repository.PostRepository

	authService       *service.AuthService
	profileService    *service.ProfileService
	connectionService *service.ConnectionService
	postService       *service.PostService
	commentService    *service.CommentService
	likeService       *service.LikeService
}

// NewServer connects to the database, Redis and the object store named by
// cfg and wires every dependency.
func NewServer(cfg *config.Config) (*Server, error) {
	rt, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, rt.DB, rt.Redis, rt.Store)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
// redisClient may be nil; notifications, rate limits and token revocation
// then degrade to no-ops.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.ObjectStore) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	observability.SetLogger(middleware.Logger)

	userRepo := repository.NewUserRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	connectionRepo := repository.NewConnectionRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)

	tokens := auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLHours)*time.Hour)
	blacklist := auth.NewBlacklist(redisClient)
	images := storage.NewImageUploader(store, storage.NewImageProcessor(cfg.ImageMaxUploadSizeMB))

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("sociallink-api"),
		store:          store,
		authn:          middleware.NewAuthenticator(tokens, blacklist),
		userRepo:       userRepo,
		postRepo:       postRepo,
	}

	// A nil *Notifier must not reach the services as a non-nil interface.
	var notifier service.UserNotifier
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
		server.hub = notifications.NewHub(notifications.Limits{PerUser: cfg.WSMaxConnsPerUser, Total: cfg.WSMaxConns})
		notifier = server.notifier
	}

	authOpts := []service.AuthOption{service.WithOTPLimiter(service.RedisOTPLimiter(redisClient))}
	if cfg.OTPTTLMinutes > 0 {
		authOpts = append(authOpts, service.WithOTPTTL(time.Duration(cfg.OTPTTLMinutes)*time.Minute))
	}
	server.authService = service.NewAuthService(userRepo, tokens, blacklist, service.NewRedisMailer(redisClient), authOpts...)
	server.profileService = service.NewProfileService(userRepo, profileRepo, connectionRepo, postRepo, images)
	server.connectionService = service.NewConnectionService(connectionRepo, userRepo, notifier)
	server.postService = service.NewPostService(postRepo, images)
	server.commentService = service.NewCommentService(commentRepo, postRepo, notifier)
	server.likeService = service.NewLikeService(likeRepo, postRepo, notifier)

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		// media is fetched cross-origin by the web client
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error:     "Too many requests, please try again later.",
				Code:      "RATE_LIMITED",
				Retryable: true,
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if local, ok := s.store.(*storage.LocalStore); ok {
		app.Static(s.mediaPrefix(), local.Root(), fiber.Static{MaxAge: 86400})
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "sociallink metrics",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	required := s.authn.Required()
	optional := s.authn.Optional()

	// Auth
	authGroup := api.Group("/auth")
	authGroup.Post("/register", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)
	authGroup.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	authGroup.Post("/logout", required, s.Logout)
	authGroup.Get("/me", required, s.Me)
	authGroup.Post("/forgot-password", s.ForgotPassword)
	authGroup.Post("/validate-otp", middleware.StrictRateLimit(s.redis, 10, 10*time.Minute, "validate_otp"), s.ValidateOTP)
	authGroup.Post("/set-new-password", s.SetNewPassword)

	// Profiles
	users := api.Group("/users")
	users.Put("/me/profile", required, s.UpdateMyProfile)
	users.Delete("/me/profile", required, s.DeleteMyProfile)
	users.Get("/:id/posts", optional, s.GetUserPosts)
	users.Get("/:id", optional, s.GetUserProfile)

	// Connections
	connections := api.Group("/connections", required)
	connections.Get("/", s.ListActiveConnections)
	connections.Get("/all", s.ListAllConnections)
	connections.Get("/suggestions", s.SuggestFriends)
	connections.Get("/requests", s.ListFriendRequests)
	connections.Get("/requests/sent", s.ListSentRequests)
	connections.Post("/requests/:userId", middleware.RateLimit(s.redis, 5, 5*time.Minute, "friend_request"), s.SendFriendRequest)
	connections.Post("/requests/:connectionId/respond", s.RespondToFriendRequest)
	connections.Get("/status/:userId", s.GetConnectionStatus)
	connections.Delete("/:userId", s.Unfriend)

	// Posts
	posts := api.Group("/posts")
	posts.Get("/", optional, s.GetPosts)
	posts.Post("/", required, s.CreatePost)
	posts.Get("/:id/comments", s.GetPostComments)
	posts.Post("/:id/comments", required, middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Get("/:id", optional, s.GetPost)
	posts.Put("/:id", required, s.UpdatePost)
	posts.Delete("/:id", required, s.DeletePost)

	// Likes
	likes := api.Group("/likes")
	likes.Post("/toggle", required, s.ToggleLike)
	likes.Get("/", s.ListLikers)

	// Realtime notifications
	api.Get("/ws", s.authn.WebSocket(), s.WebsocketHandler())
}

func (s *Server) mediaPrefix() string {
	if s.config.StoragePublicURL == "" || s.config.StoragePublicURL[0] != '/' {
		return "/media"
	}
	return s.config.StoragePublicURL
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// NewApp builds the fiber app with the shared error handler.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:   "sociallink API",
		BodyLimit: 12 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				if fe.Code == fiber.StatusNotFound {
					return models.RespondWithError(c, fe.Code, models.NewNotFoundMessage(fe.Message))
				}
				return models.RespondWithError(c, fe.Code, models.NewValidationError(fe.Message))
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
		},
	})
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := NewApp()
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring", "hub", s.hub.Name(), "error", err)
			}
		}()
	}

	middleware.Logger.Info("server starting", "port", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", "hub", s.hub.Name(), "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
