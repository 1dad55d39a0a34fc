package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-school-api/internal/config"
	"github.com/noah-isme/gema-school-api/internal/database"
	"github.com/noah-isme/gema-school-api/internal/events"
	"github.com/noah-isme/gema-school-api/internal/handler"
	"github.com/noah-isme/gema-school-api/internal/middleware"
	"github.com/noah-isme/gema-school-api/internal/repository"
	"github.com/noah-isme/gema-school-api/internal/router"
	"github.com/noah-isme/gema-school-api/internal/service"
	cloud "github.com/noah-isme/gema-school-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if !cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, results events limited to redis")
		} else {
			defer natsConn.Drain()
		}
	}

	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	var storage service.FileStorage
	if cloudCfg.Configured() {
		uploader, err := cloud.New(cloudCfg, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create cloudinary client")
		}
		storage = uploader
	} else {
		logger.Warn().Msg("cloudinary not configured, broadsheets are download only")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	gradingSystemRepo := repository.NewGradingSystemRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	rosterRepo := repository.NewRosterRepository(db)

	cache := service.NewResultCache(redisClient, cfg.ResultsCacheTTL, logger)
	publisher := events.NewPublisher(redisClient, cfg.ResultsChannel, natsConn, cfg.NATSSubject, logger)
	calculator := service.NewCalculator(cfg.LegacyAggregation)
	limits := service.ScoreLimits{
		CA1:  cfg.Scores.CA1Max,
		CA2:  cfg.Scores.CA2Max,
		CA3:  cfg.Scores.CA3Max,
		Exam: cfg.Scores.ExamMax,
	}

	activityService := service.NewActivityService(activityRepo, logger)
	gradingSystemService := service.NewGradingSystemService(gradingSystemRepo, validate, activityService, cache, logger)
	assessmentService := service.NewAssessmentService(assessmentRepo, studentRepo, schoolRepo, gradingSystemService, validate, activityService, cache, calculator, limits, logger)
	resultService := service.NewResultService(assessmentRepo, studentRepo, schoolRepo, gradingSystemService, cache, publisher, calculator, logger)
	analyticsService := service.NewAnalyticsService(assessmentRepo, schoolRepo, gradingSystemService, cache, calculator, logger)
	seedService := service.NewSeedService(rosterRepo, validate, cache, cfg.SeedEnabled, cfg.SeedToken, logger)
	broadsheetService := service.NewBroadsheetService(resultService, assessmentService, studentRepo, schoolRepo, storage, activityService, limits, cfg.UploadMaxMB, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		AccessLog:    cfg.AccessLog,
	})
	router.Register(app, cfg, router.Dependencies{
		GradingSystemHandler: handler.NewGradingSystemHandler(gradingSystemService, logger),
		AssessmentHandler:    handler.NewAssessmentHandler(assessmentService, logger),
		ResultHandler:        handler.NewResultHandler(resultService, logger),
		AnalyticsHandler:     handler.NewAnalyticsHandler(analyticsService, logger),
		BroadsheetHandler:    handler.NewBroadsheetHandler(broadsheetService, logger),
		ActivityHandler:      handler.NewActivityHandler(activityService, logger),
		SeedHandler:          handler.NewSeedHandler(seedService, logger),
		HealthChecks: []handler.DependencyCheck{
			{Name: "database", Check: database.PostgresCheck(db)},
			{Name: "redis", Check: database.RedisCheck(redisClient)},
		},
		JWTMiddleware: middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
