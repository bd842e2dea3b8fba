package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/postflow/configs"
	"github.com/maheshrc27/postflow/internal/api/handlers"
	"github.com/maheshrc27/postflow/internal/api/middleware"
	job "github.com/maheshrc27/postflow/internal/jobs"
	"github.com/maheshrc27/postflow/internal/queue"
	"github.com/maheshrc27/postflow/internal/repository"
	"github.com/maheshrc27/postflow/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})))

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	var (
		asynqClient *asynq.Client
		asynqServer *asynq.Server
		scheduler   *queue.Scheduler
	)
	redisConn, redisOpts, err := queue.RedisOptions(cfg.RedisURI)
	if err != nil {
		slog.Warn("queue disabled; scheduled posts rely on the cron sweep", "error", err)
		scheduler = queue.NewScheduler(nil, nil, cfg.Queue.ProbeTimeout)
	} else {
		asynqClient = asynq.NewClient(redisConn)
		defer asynqClient.Close()
		rdb := redis.NewClient(redisOpts)
		defer rdb.Close()
		scheduler = queue.NewScheduler(asynqClient, rdb, cfg.Queue.ProbeTimeout)
	}

	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	driveAccountRepo := repository.NewDriveAccountRepository(db)
	recurrenceRepo := repository.NewRecurrenceRepository(db)
	postedRoundRepo := repository.NewPostedRoundRepository(db)
	apiKeyRepo := repository.NewApiKeyRepository(db)

	r2Service, err := service.NewR2Service(context.Background(), *cfg)
	if err != nil {
		log.Fatalf("Failed to configure storage: %v", err)
	}
	graph := service.NewGraphClient(
		service.WithGraphBaseURL(cfg.Graph.BaseURL),
		service.WithGraphAPIVersion(cfg.Graph.APIVersion),
	)
	instagramService := service.NewInstagramService(*cfg, graph)
	facebookService := service.NewFacebookService(graph)
	publishService := service.NewPublishService(*cfg, postRepo, socialAccountRepo, mediaAssetRepo, instagramService, facebookService)
	driveService := service.NewDriveService(*cfg, driveAccountRepo)
	recurrenceService := service.NewRecurrenceService(recurrenceRepo, postedRoundRepo, socialAccountRepo, mediaAssetRepo, postRepo,
		driveService, r2Service, publishService, cfg.Location())
	postService := service.NewPostService(postRepo, socialAccountRepo, mediaAssetRepo, publishService, recurrenceService, scheduler)
	cronService := service.NewCronService(userRepo, postRepo, publishService)
	apiKeyService := service.NewApiKeyService(apiKeyRepo)

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			slog.Error("request failed", "path", c.Path(), "error", err)
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, x-cron-secret",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	app.Get("/health", handlers.Health)

	cronHandler := handlers.NewCronHandler(cronService)
	cronGroup := app.Group("/api/cron", middleware.CronSecret(cfg.Cron.Secret))
	cronGroup.Get("/process-scheduled", cronHandler.ProcessScheduled)
	cronGroup.Post("/process-scheduled", cronHandler.ProcessScheduled)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)
	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/schedule", post.SchedulePost)
	api.Post("/posts/publish-now", post.PublishNow)
	api.Post("/posts/:id/publish", post.PublishPost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/:id", post.GetPost)
	api.Get("/queue/status", post.QueueStatus)

	recurrence := handlers.NewRecurrenceHandler(recurrenceService)
	api.Get("/recurrence", recurrence.GetSettings)
	api.Post("/recurrence", recurrence.UpdateSettings)
	api.Get("/drive/posted-ids", recurrence.PostedIDs)
	api.Post("/drive/clear-round", recurrence.ClearRound)
	api.Post("/drive/posted", recurrence.MarkPosted)

	c := cron.New()
	if cfg.Queue.WorkerEnabled {
		recurrenceJob := job.NewRecurrenceJob(recurrenceService, cfg.Cron.JobTimeout)
		if err := c.AddFunc(every(cfg.Recurrence.Interval), recurrenceJob.Run); err != nil {
			log.Fatalf("Failed to schedule recurrence job: %v", err)
		}

		if asynqClient != nil {
			queueW := queue.NewQueue(publishService)
			asynqServer = asynq.NewServer(redisConn, asynq.Config{
				Concurrency: cfg.Queue.Concurrency,
				Queues:      map[string]int{queue.QueueName: 1},
			})
			slog.Info("starting the asynq server")
			if err := asynqServer.Start(queueW.NewServeMux()); err != nil {
				log.Fatalf("Could not start Asynq server: %v", err)
			}
		}
	}
	if cfg.Cron.FallbackInterval > 0 {
		sweepJob := job.NewSweepJob(cronService, cfg.Cron.JobTimeout)
		if err := c.AddFunc(every(cfg.Cron.FallbackInterval), sweepJob.Run); err != nil {
			log.Fatalf("Failed to schedule sweep job: %v", err)
		}
	}
	c.Start()

	go func() {
		if err := app.Listen(cfg.HTTPAddr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	slog.Info("server is running", "addr", cfg.HTTPAddr)

	gracefulShutdown(app, c, asynqServer)
}

func every(d time.Duration) string {
	return fmt.Sprintf("@every %s", d)
}

func logLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, c *cron.Cron, worker *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	slog.Info("shutting down server")

	c.Stop()
	if worker != nil {
		worker.Shutdown()
	}
	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	slog.Info("server shutdown complete")
}
