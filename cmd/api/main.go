package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace_backend/internal/accounts"
	"marketplace_backend/internal/adapters"
	"marketplace_backend/internal/adapters/storage"
	"marketplace_backend/internal/addresses"
	"marketplace_backend/internal/events"
	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/internal/http/router"
	"marketplace_backend/internal/notification"
	"marketplace_backend/internal/proposals"
	"marketplace_backend/internal/requests"
	requestservice "marketplace_backend/internal/requests/service"
	"marketplace_backend/internal/scheduler"
	"marketplace_backend/internal/services"
	"marketplace_backend/internal/tags"
	"marketplace_backend/internal/tags/agent"
	tagports "marketplace_backend/internal/tags/ports"
	"marketplace_backend/migrations"
	"marketplace_backend/platform/config"
	"marketplace_backend/platform/db"
	"marketplace_backend/platform/httpkit"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.Migrate(ctx, pool, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	idempotency, closeRedis := initIdempotencyStore(cfg, log)
	if closeRedis != nil {
		defer closeRedis()
	}

	taskClient, closeTasks := initTaskClient(cfg, log)
	if closeTasks != nil {
		defer closeTasks()
	}

	objectStore := initObjectStore(ctx, cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	accountsModule := accounts.NewModule(pool)
	directory := adapters.NewAccountDirectory(accountsModule.Service())
	addressesModule := addresses.NewModule(pool, val)

	// Delivery runs in the scheduler; the API only writes the outbox.
	notificationModule := notification.NewModule(pool, notification.Channels{}, log)
	notifier := notificationModule.Service()

	tagsModule := tags.NewModule(pool, initSuggester(cfg, log), directory, eventBus, val, log)
	tagsModule.Subscribe(eventBus)
	if taskClient != nil {
		tagsModule.SetTaggingScheduler(taskClient)
	}

	proposalsModule := proposals.NewModule(pool, directory, notifier, val, log)

	requestDeps := requestservice.Deps{
		Accounts:  directory,
		Addresses: adapters.NewRequestAddressLookup(addressesModule.Service()),
		Tags:      tagsModule.Service(),
		Notifier:  notifier,
		EventBus:  eventBus,
		Log:       log,
	}
	if objectStore != nil {
		requestDeps.Storage = objectStore
	}
	requestsModule := requests.NewModule(pool, requestDeps, val)

	servicesModule := services.NewModule(pool, directory, adapters.NewRehirer(requestsModule.Service()), notifier, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:      cfg,
		Logger:      log,
		Health:      pool,
		EventBus:    eventBus,
		Idempotency: idempotency,
		Modules: []apphttp.Module{
			accountsModule,
			addressesModule,
			tagsModule,
			requestsModule,
			proposalsModule,
			servicesModule,
			notificationModule,
		},
	}

	engine := router.New(app)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}

	// Drain tag scheduling started by in-flight requests before the task
	// client and the pool close.
	eventBus.Wait()
	log.Info("server stopped")
}

func initIdempotencyStore(cfg config.SchedulerConfig, log *logger.Logger) (httpkit.IdempotencyStore, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; idempotency keys disabled")
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; idempotency keys disabled", "error", err)
		return nil, nil
	}

	client := redis.NewClient(opt)
	return httpkit.NewRedisIdempotencyStore(client), func() {
		_ = client.Close()
	}
}

// initTaskClient returns nil when Redis is not configured; tagging then runs in process.
func initTaskClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; tagging runs in the API process")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initObjectStore(ctx context.Context, cfg config.MinIOConfig, log *logger.Logger) *storage.MinIOStore {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MinIO not configured; image uploads disabled")
		return nil
	}

	store, err := storage.NewMinIOStore(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure request images bucket", 5, 2*time.Second, func() error {
		return store.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketRequestImages())
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "requestImagesBucket", cfg.GetMinioBucketRequestImages())
	return store
}

func initSuggester(cfg config.LLMConfig, log *logger.Logger) tagports.Suggester {
	if !cfg.IsLLMEnabled() {
		log.Warn("MOONSHOT_API_KEY not configured; automatic tagging disabled")
		return nil
	}

	generator, err := agent.NewTagGenerator(cfg.GetMoonshotAPIKey(), cfg.GetMoonshotModel())
	if err != nil {
		log.Error("failed to initialize tag generator", "error", err)
		return nil
	}
	return generator
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
