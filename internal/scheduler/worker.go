package scheduler

import (
	"context"
	"fmt"

	"marketplace_backend/platform/config"
	"marketplace_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Deliverer sends one outbox row to its channels.
type Deliverer interface {
	Deliver(ctx context.Context, outboxID uuid.UUID) error
}

// Tagger generates tags for a request or a license.
type Tagger interface {
	AutoTag(ctx context.Context, target string, id uuid.UUID) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	deliverer Deliverer
	tagger    Tagger
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, deliverer Deliverer, tagger Tagger, log *logger.Logger) (*Worker, error) {
	opt, queue, err := connection(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	return newWorker(server, deliverer, tagger, log), nil
}

func newWorker(server *asynq.Server, deliverer Deliverer, tagger Tagger, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		deliverer: deliverer,
		tagger:    tagger,
		log:       log,
	}

	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)
	mux.HandleFunc(TaskAutoTag, w.handleAutoTag)
	return w
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.deliverer == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return fmt.Errorf("outbox id: %v: %w", err, asynq.SkipRetry)
	}

	return w.deliverer.Deliver(ctx, outboxID)
}

func (w *Worker) handleAutoTag(ctx context.Context, task *asynq.Task) error {
	if w.tagger == nil {
		return nil
	}

	payload, err := ParseAutoTagPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	id, err := uuid.Parse(payload.ID)
	if err != nil {
		return fmt.Errorf("autotag id: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.tagger.AutoTag(ctx, payload.Target, id); err != nil {
		w.log.Warn("autotag task failed", "target", payload.Target, "id", id, "error", err)
		return err
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
