package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/questionbank-api/internal/config"
	"github.com/noah-isme/questionbank-api/internal/correction"
	"github.com/noah-isme/questionbank-api/internal/database"
	"github.com/noah-isme/questionbank-api/internal/handler"
	"github.com/noah-isme/questionbank-api/internal/middleware"
	"github.com/noah-isme/questionbank-api/internal/observability"
	"github.com/noah-isme/questionbank-api/internal/plagiarism"
	"github.com/noah-isme/questionbank-api/internal/questionschema"
	"github.com/noah-isme/questionbank-api/internal/repository"
	"github.com/noah-isme/questionbank-api/internal/router"
	"github.com/noah-isme/questionbank-api/internal/service"
	"github.com/noah-isme/questionbank-api/pkg/embedding"
	"github.com/noah-isme/questionbank-api/pkg/executor"
	"github.com/noah-isme/questionbank-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	log, logCloser := logger.New(logger.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Pretty:     cfg.AppEnv == "development",
		Service:    cfg.AppName,
	})
	defer logCloser.Close()

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName: cfg.AppName,
		Environment: cfg.AppEnv,
		Endpoint:    cfg.TracingEndpoint,
		SampleRatio: cfg.TracingSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise tracing")
	}
	observability.RegisterMetrics()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	healthChecks := map[string]handler.DependencyCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}

	var redisClient redis.UniversalClient
	if cfg.RedisURL != "" {
		client, err := database.ConnectRedis(rootCtx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without embedding cache and alert fan-out")
		} else {
			redisClient = client
			defer client.Close()
			healthChecks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		conn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName, log)
		if err != nil {
			log.Warn().Err(err).Msg("nats unavailable, continuing without alert fan-out")
		} else {
			natsConn = conn
			defer conn.Drain()
		}
	}

	closers := make([]io.Closer, 0, 3)
	defer func() {
		for _, closer := range closers {
			_ = closer.Close()
		}
	}()

	textEmbedder, closer, err := buildTextEmbedder(rootCtx, cfg, redisClient, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build text embedder")
	}
	closers = appendCloser(closers, closer)

	aiGrader, closer, err := buildAIGrader(rootCtx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build ai grader")
	}
	closers = appendCloser(closers, closer)

	languages := executor.NewLanguageTable(cfg.Languages)
	codeExecutor, closer, err := buildExecutor(cfg, languages, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build code executor")
	}
	closers = appendCloser(closers, closer)

	media, err := buildMediaStore(rootCtx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build media store")
	}

	schemas, err := questionschema.New(cfg.LanguageNames())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to compile question schemas")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	questionRepo := repository.NewQuestionRepository(db)
	answerRepo := repository.NewAnswerRepository(db)

	detector := plagiarism.NewDetector(answerRepo, textEmbedder, embedding.NewImageFeatureExtractor(), plagiarism.Config{
		TextThreshold:  cfg.TextThreshold,
		ImageThreshold: cfg.ImageThreshold,
	}, log)

	orchestrator := correction.NewOrchestrator(correction.Config{
		AI:              aiGrader,
		Executor:        codeExecutor,
		Languages:       languages,
		DefaultLanguage: cfg.DefaultLanguage,
		Store:           service.NewCorrectionStore(questionRepo, answerRepo),
		Logger:          log,
	})

	alertService := service.NewAlertService(redisClient, natsConn, cfg.AlertsBase, log)
	alertService.Start(rootCtx)

	questionService := service.NewQuestionService(questionRepo, schemas, validate, log)
	answerService := service.NewAnswerService(service.AnswerServiceDeps{
		Questions:  questionRepo,
		Answers:    answerRepo,
		Plagiarism: detector,
		Grader:     orchestrator,
		Media:      media,
		Alerts:     alertService,
		Languages:  languages,
		Validator:  validate,
		Logger:     log,
	})
	correctionService := service.NewCorrectionService(orchestrator, validate, log)
	reportService := service.NewReportService(questionRepo, answerRepo, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &log,
		AllowOrigins: cfg.AllowOrigins,
		JWTSecret:    cfg.JWTSecret,
	})
	if cfg.StorageBackend == "local" && cfg.LocalStorageBaseURL != "" {
		app.Static(cfg.LocalStorageBaseURL, cfg.LocalStorageRoot)
	}

	router.Register(app, cfg, router.Dependencies{
		QuestionHandler:   handler.NewQuestionHandler(questionService, answerService, reportService, log),
		AnswerHandler:     handler.NewAnswerHandler(answerService, log),
		CorrectionHandler: handler.NewCorrectionHandler(correctionService, log),
		AlertHandler:      handler.NewAlertHandler(alertService, log),
		HealthChecks:      healthChecks,
	})

	go func() {
		log.Info().Str("address", cfg.HTTPAddress()).Msg("starting http server")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, log, cancelRoot, shutdownTracing)
}

func waitForShutdown(app *fiber.App, log zerolog.Logger, cancel context.CancelFunc, shutdownTracing func(context.Context) error) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	cancel()

	ctx, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown failed")
	}

	log.Info().Msg("server stopped")
}

func appendCloser(closers []io.Closer, closer io.Closer) []io.Closer {
	if closer == nil {
		return closers
	}
	return append(closers, closer)
}
