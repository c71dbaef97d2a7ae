package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/zap"

	identityapp "github.com/floworx/backend/internal/application/identity"
	mailboxapp "github.com/floworx/backend/internal/application/mailbox"
	onboardingapp "github.com/floworx/backend/internal/application/onboarding"
	"github.com/floworx/backend/internal/infrastructure/auth"
	"github.com/floworx/backend/internal/infrastructure/cache"
	"github.com/floworx/backend/internal/infrastructure/config"
	"github.com/floworx/backend/internal/infrastructure/event"
	"github.com/floworx/backend/internal/infrastructure/logger"
	"github.com/floworx/backend/internal/infrastructure/mailer"
	"github.com/floworx/backend/internal/infrastructure/mailprovider"
	"github.com/floworx/backend/internal/infrastructure/monitoring"
	"github.com/floworx/backend/internal/infrastructure/oauth"
	"github.com/floworx/backend/internal/infrastructure/persistence"
	"github.com/floworx/backend/internal/infrastructure/scheduler"
	"github.com/floworx/backend/internal/infrastructure/telemetry"
	"github.com/floworx/backend/internal/infrastructure/workflow"
	"github.com/floworx/backend/internal/interfaces/http/router"
)

// version is injected at build time via -ldflags
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting FloWorx backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Telemetry: both providers fall back to no-ops when disabled
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	businessMetrics, err := telemetry.NewBusinessMetrics(meterProvider.Meter("floworx/business"), log)
	if err != nil {
		log.Fatal("Failed to initialize business metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected")

	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := db.DB.Use(otelgorm.NewPlugin(otelgorm.WithDBName(cfg.Database.DBName))); err != nil {
			log.Fatal("Failed to enable database tracing", zap.Error(err))
		}
	}
	if cfg.Monitoring.Enabled {
		queryMonitor := monitoring.NewQueryMonitor(cfg.Monitoring, log)
		if err := persistence.RegisterQueryMonitor(db.DB, queryMonitor); err != nil {
			log.Fatal("Failed to register query monitor", zap.Error(err))
		}
	}

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	resetTokenRepo := persistence.NewGormPasswordResetTokenRepository(db.DB)
	stateRepo := persistence.NewGormStateRepository(db.DB)
	connectionRepo := persistence.NewGormConnectionRepository(db.DB)

	// Token blacklist: Redis-backed when available so revocation survives
	// restarts and spans replicas
	var blacklist auth.TokenBlacklist
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			_ = redisClient.Close()
		}()
		blacklist = auth.NewRedisTokenBlacklist(redisClient)
		log.Info("Redis token blacklist enabled", zap.String("addr", cfg.Redis.Addr()))
	} else {
		blacklist = auth.NewInMemoryTokenBlacklist()
		log.Warn("Using in-memory token blacklist; revoked tokens reset on restart")
	}

	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Event bus and the workflow deployment pipeline behind it
	eventBus := event.NewInMemoryEventBus(log)
	deployer := workflow.NewDeployer(cfg.Workflow, log)
	deploymentHandler := workflow.NewDeploymentHandler(deployer, stateRepo, idempotencyStore, log)
	eventBus.Subscribe(event.NewIdempotentHandler(deploymentHandler, idempotencyStore, log))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(
		userRepo, jwtService, blacklist,
		identityapp.DefaultAuthServiceConfig(), log,
		identityapp.WithEventPublisher(eventBus),
		identityapp.WithBusinessMetrics(businessMetrics),
	)
	resetService := identityapp.NewPasswordResetService(
		userRepo, resetTokenRepo, mailer.New(cfg.Mailer, log), blacklist,
		cfg.App.FrontendURL, log,
		identityapp.WithResetMetrics(businessMetrics),
	)
	stateService := onboardingapp.NewStateService(stateRepo, log,
		onboardingapp.WithEventPublisher(eventBus),
		onboardingapp.WithBusinessMetrics(businessMetrics),
	)
	categoryService := onboardingapp.NewCategoryService(stateService, stateRepo, log)

	// Mailbox providers and the OAuth consent flow
	oauthManager := oauth.NewManager(cfg.OAuth, log)
	stateStore := oauth.NewStateStore()
	defer stateStore.Close()

	gmailTokens := oauth.NewConnectionTokenSource(oauthManager, connectionRepo, oauth.ProviderGmail, log)
	outlookTokens := oauth.NewConnectionTokenSource(oauthManager, connectionRepo, oauth.ProviderOutlook, log)
	providers := mailprovider.NewRegistry(
		mailprovider.NewGmailAdapter(gmailTokens, log),
		mailprovider.NewOutlookAdapter(outlookTokens, cfg.OAuth.Microsoft.Configured(), log),
	)

	mailboxService := mailboxapp.NewService(providers, stateRepo, log,
		mailboxapp.WithBusinessMetrics(businessMetrics))
	connectService := mailboxapp.NewConnectService(oauthManager, stateStore, connectionRepo, log)

	// Background maintenance
	maintenance := scheduler.New(scheduler.DefaultConfig(), log,
		scheduler.NewTokenPurgeJob(resetService, log))
	if err := maintenance.Start(ctx); err != nil {
		log.Fatal("Failed to start maintenance scheduler", zap.Error(err))
	}
	defer func() {
		if err := maintenance.Stop(context.Background()); err != nil {
			log.Error("Error stopping maintenance scheduler", zap.Error(err))
		}
	}()

	engine := router.New(router.Dependencies{
		Config:          cfg,
		Logger:          log,
		DB:              db.DB,
		Version:         version,
		JWTService:      jwtService,
		TokenBlacklist:  blacklist,
		AuthService:     authService,
		ResetService:    resetService,
		StateService:    stateService,
		CategoryService: categoryService,
		MailboxService:  mailboxService,
		ConnectService:  connectService,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
