package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sponup-backend/internal/config"
	"sponup-backend/internal/handlers"
	"sponup-backend/internal/importer"
	"sponup-backend/internal/middleware"
	"sponup-backend/internal/models"
	"sponup-backend/internal/repository"
	"sponup-backend/internal/services"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Run dispatches the subcommand named by the first argument: serve (the
// default), migrate or import-firestore
func Run() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	cfg, err := config.Load(config.Path())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Log.Level)

	switch command {
	case "serve":
		serve(cfg)
	case "migrate":
		if err := repository.Migrate(cfg.Database.MigrationURL()); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate database")
		}
		log.Info().Msg("Database is up to date")
	case "import-firestore":
		importFirestore(cfg)
	default:
		log.Fatal().Str("command", command).Msg("Unknown command, expected serve, migrate or import-firestore")
	}
}

func connectDB(ctx context.Context, cfg *config.Config) *pgxpool.Pool {
	if err := repository.Migrate(cfg.Database.MigrationURL()); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	db, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Database connection established")
	return db
}

// newChangeBus picks Redis pub/sub when configured so every replica sees
// every change, and an in-process bus otherwise
func newChangeBus(ctx context.Context, cfg config.RedisConfig) (services.ChangeBus, func()) {
	if cfg.Addr == "" {
		log.Info().Msg("Using in-process change bus")
		return services.NewLocalBus(256), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Addr).Msg("Failed to connect to redis")
	}
	log.Info().Str("addr", cfg.Addr).Str("channel", cfg.Channel).Msg("Using redis change bus")

	return services.NewRedisBus(client, cfg.Channel), func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis client")
		}
	}
}

func serve(cfg *config.Config) {
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	db := connectDB(ctx, cfg)
	defer db.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	challengeRepo := repository.NewChallengeRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	// Identity provider
	firebaseApp, err := services.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize firebase")
	}
	verifier, err := services.NewFirebaseVerifier(ctx, firebaseApp)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create identity verifier")
	}

	presigner, err := services.NewS3Presigner(ctx, cfg.AWS.Region, cfg.AWS.AccessKey, cfg.AWS.SecretKey, cfg.AWS.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create S3 presigner")
	}

	bus, closeBus := newChangeBus(ctx, cfg.Redis)
	defer closeBus()

	// Initialize services
	userService := services.NewUserService(userRepo, verifier, cfg.JWT.Secret, cfg.JWT.Expiry)
	relationshipService := services.NewRelationshipService(userRepo)
	eventService := services.NewEventService(eventRepo, userRepo)
	challengeService := services.NewChallengeService(challengeRepo, submissionRepo, userRepo, eventRepo, bus)
	submissionService := services.NewSubmissionService(challengeRepo, submissionRepo, userRepo, bus)
	reviewService := services.NewReviewService(challengeRepo, submissionRepo, userRepo, bus)
	uploadService := services.NewUploadService(presigner, cfg.AWS.S3Bucket, cfg.AWS.Region, cfg.AWS.PublicBaseURL)

	wsHub := services.NewWSHub()
	feed := services.NewFeed(wsHub, userRepo, challengeRepo, challengeService, submissionService, reviewService)
	go func() {
		if err := bus.Run(ctx, feed.Handle); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Change bus stopped")
		}
	}()

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	relationshipHandler := handlers.NewRelationshipHandler(relationshipService)
	eventHandler := handlers.NewEventHandler(eventService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	submissionHandler := handlers.NewSubmissionHandler(submissionService, reviewService)
	uploadHandler := handlers.NewUploadHandler(uploadService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, userService, feed)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(corsMiddleware)

	athleteOnly := middleware.RequireRole(models.RoleAthlete)
	backerOnly := middleware.RequireRole(models.RoleSponsor, models.RoleRetailer)

	// Routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Post("/users", userHandler.CreateUser)
		r.Post("/sessions", userHandler.CreateSession)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(userService))

			r.Get("/me", userHandler.GetMe)
			r.Patch("/me", userHandler.UpdateMe)
			r.Get("/users/{user_id}", userHandler.GetUser)

			r.Get("/links", relationshipHandler.GetLinks)
			r.Post("/links", relationshipHandler.CreateLink)
			r.Post("/links/{user_id}/accept", relationshipHandler.AcceptLink)
			r.Delete("/links/{user_id}", relationshipHandler.DeleteLink)

			r.Get("/challenges", challengeHandler.GetChallenges)
			r.Get("/challenges/{challenge_id}", challengeHandler.GetChallenge)

			r.Post("/uploads", uploadHandler.CreateUpload)

			r.Group(func(r chi.Router) {
				r.Use(athleteOnly)
				r.Post("/events", eventHandler.CreateEvent)
				r.Get("/events", eventHandler.GetEvents)
				r.Delete("/events/{event_id}", eventHandler.DeleteEvent)
				r.Put("/challenges/{challenge_id}/submission", submissionHandler.PutSubmission)
				r.Get("/submissions", submissionHandler.GetMySubmissions)
			})

			r.Group(func(r chi.Router) {
				r.Use(backerOnly)
				r.Get("/athletes/{user_id}/events", eventHandler.GetAthleteEvents)
				r.Post("/challenges", challengeHandler.CreateChallenge)
				r.Get("/challenges/audience", challengeHandler.GetAudience)
				r.Delete("/challenges/{challenge_id}", challengeHandler.DeleteChallenge)
				r.Get("/challenges/{challenge_id}/submissions", submissionHandler.GetChallengeSubmissions)
				r.Get("/challenges/{challenge_id}/submissions/export", submissionHandler.ExportSubmissions)
				r.Post("/submissions/{submission_id}/approve", submissionHandler.ApproveSubmission)
				r.Post("/submissions/{submission_id}/reject", submissionHandler.RejectSubmission)
				r.Post("/submissions/{submission_id}/reward", submissionHandler.RewardSubmission)
			})
		})
	})

	// WebSocket route
	r.Get("/ws", wsHandler.HandleWebSocket)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("host", cfg.Server.Host).
			Int("port", cfg.Server.Port).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Stop consuming changes before the hub goes away
	stop()
	wsHub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func importFirestore(cfg *config.Config) {
	ctx := context.Background()

	db := connectDB(ctx, cfg)
	defer db.Close()

	firebaseApp, err := services.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize firebase")
	}
	client, err := firebaseApp.Firestore(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create firestore client")
	}
	defer client.Close()

	imp := importer.New(
		importer.NewFirestoreSource(client),
		repository.NewUserRepository(db),
		repository.NewEventRepository(db),
		repository.NewChallengeRepository(db),
		repository.NewSubmissionRepository(db),
	)

	stats, err := imp.Run(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Import failed")
	}

	log.Info().
		Int("users", stats.Users.Imported).
		Int("events", stats.Events.Imported).
		Int("challenges", stats.Challenges.Imported).
		Int("submissions", stats.Submissions.Imported).
		Int("skipped", stats.Users.Skipped+stats.Events.Skipped+stats.Challenges.Skipped+stats.Submissions.Skipped).
		Msg("Import finished")
}

// setupLogger configures zerolog logger
func setupLogger(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
