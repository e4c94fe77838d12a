package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/lead-nurture-service/internal/api/http"
	"github.com/spec-kit/lead-nurture-service/internal/api/http/handlers"
	"github.com/spec-kit/lead-nurture-service/internal/auth"
	"github.com/spec-kit/lead-nurture-service/internal/config"
	"github.com/spec-kit/lead-nurture-service/internal/events"
	"github.com/spec-kit/lead-nurture-service/internal/mail"
	"github.com/spec-kit/lead-nurture-service/internal/observability"
	"github.com/spec-kit/lead-nurture-service/internal/persistence"
	"github.com/spec-kit/lead-nurture-service/internal/repository"
	"github.com/spec-kit/lead-nurture-service/internal/sequence"
	"github.com/spec-kit/lead-nurture-service/internal/service"
	"github.com/spec-kit/lead-nurture-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry, err := sequence.NewRegistry()
	if err != nil {
		logger.Fatal("invalid sequence definitions", zap.Error(err))
	}
	deadline, err := cfg.Nurture.DeadlineDate()
	if err != nil {
		logger.Fatal("invalid compliance deadline", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	leadRepo := repository.NewLeadRepository(pool)
	scanRepo := repository.NewScanRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	emailRepo := repository.NewScheduledEmailRepository(pool)
	suppressionCache := repository.NewSuppressionCache(redis.ClientHandle())

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	tokens := auth.NewUnsubscribeTokenManager(
		cfg.Nurture.UnsubscribeSecret,
		cfg.Nurture.UnsubscribeBaseURL,
		cfg.Nurture.UnsubscribeTTLDays,
	)
	transport := mail.NewSMTPTransport(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password)

	planner := service.NewPlannerService(service.PlannerDependencies{
		Registry: registry,
		Logger:   logger,
	})
	enrollmentService := service.NewEnrollmentService(service.EnrollmentDependencies{
		LeadRepo:       leadRepo,
		ScanRepo:       scanRepo,
		EnrollmentRepo: enrollmentRepo,
		Planner:        planner,
		Registry:       registry,
		Rules:          service.DefaultExclusivityRules(),
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	suppressionService := service.NewSuppressionService(service.SuppressionDependencies{
		LeadRepo:       leadRepo,
		EnrollmentRepo: enrollmentRepo,
		EmailRepo:      emailRepo,
		Cache:          suppressionCache,
		Dispatcher:     dispatcher,
		Logger:         logger,
	})
	deliveryService := service.NewDeliveryService(service.DeliveryDependencies{
		EmailRepo:      emailRepo,
		EnrollmentRepo: enrollmentRepo,
		LeadRepo:       leadRepo,
		ScanRepo:       scanRepo,
		Cache:          suppressionCache,
		Registry:       registry,
		Transport:      transport,
		Tokens:         tokens,
		Dispatcher:     dispatcher,
		Metrics:        metrics,
		Logger:         logger,
	}, service.DeliveryOptions{
		BatchSize:    cfg.Worker.BatchSize,
		Concurrency:  cfg.Worker.Concurrency,
		SendTimeout:  cfg.Worker.SendTimeout(),
		MaxAttempts:  cfg.Worker.MaxAttempts,
		RetryBackoff: cfg.Worker.RetryBackoff(),
		FromAddress:  cfg.SMTP.From,
		ReplyTo:      cfg.SMTP.ReplyTo,
		Deadline:     deadline,
	})

	activityService := service.NewActivityService(dispatcher, logger)
	activityService.RegisterHandlers()

	deliveryWorker := worker.NewDeliveryWorker(deliveryService, cfg.Worker.Schedule, logger)
	if err := deliveryWorker.Start(ctx); err != nil {
		logger.Fatal("failed to start delivery worker", zap.Error(err))
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Triggers:    handlers.NewTriggersHandler(enrollmentService),
		Suppression: handlers.NewSuppressionHandler(suppressionService, leadRepo, tokens),
		Schedule:    handlers.NewScheduleHandler(enrollmentService, emailRepo),
		Worker:      handlers.NewWorkerHandler(deliveryWorker, metrics),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
	deliveryWorker.Stop()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
