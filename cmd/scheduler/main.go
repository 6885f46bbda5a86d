package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace_backend/internal/accounts"
	"marketplace_backend/internal/adapters"
	"marketplace_backend/internal/email"
	"marketplace_backend/internal/events"
	"marketplace_backend/internal/notification"
	"marketplace_backend/internal/notification/outbox"
	"marketplace_backend/internal/proposals"
	"marketplace_backend/internal/scheduler"
	"marketplace_backend/internal/tags"
	"marketplace_backend/internal/tags/agent"
	tagports "marketplace_backend/internal/tags/ports"
	"marketplace_backend/platform/broker"
	"marketplace_backend/platform/config"
	"marketplace_backend/platform/db"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	directory := adapters.NewAccountDirectory(accounts.NewModule(pool).Service())

	channels := notification.Channels{
		Mailer:     email.NewSender(cfg),
		Recipients: directory,
	}
	if cfg.IsBrokerEnabled() {
		publisher, err := broker.NewPublisher(cfg)
		if err != nil {
			log.Error("failed to connect to push broker; push disabled", "error", err)
		} else {
			defer func() { _ = publisher.Close() }()
			channels.Pusher = publisher
		}
	}
	notificationModule := notification.NewModule(pool, channels, log)
	notifier := notificationModule.Service()

	// Tagging runs in place here: the worker is the scheduler.
	tagsModule := tags.NewModule(pool, initSuggester(cfg, log), directory, eventBus, val, log)
	proposalsModule := proposals.NewModule(pool, directory, notifier, val, log)

	outboxRepo := outbox.New(pool)
	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, outboxRepo, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()

	worker, err := scheduler.NewWorker(cfg, notifier, tagsModule.Service(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	expiry := scheduler.NewProposalExpiry(proposalsModule.Service(), log, cfg.GetProposalExpiryInterval())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		expiry.Run(gctx)
		return nil
	})
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped", "error", err)
	}
	log.Info("scheduler stopped")
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
		return errors.New(name + ": invalid retry attempts")
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
