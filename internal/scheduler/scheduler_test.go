package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"marketplace_backend/internal/notification/outbox"
	"marketplace_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeClaimer struct {
	records []outbox.Record
	pending map[uuid.UUID]string
}

func (f *fakeClaimer) ClaimPending(_ context.Context, limit int) ([]outbox.Record, error) {
	if limit != outboxClaimBatch {
		return nil, errors.New("unexpected limit")
	}
	out := f.records
	f.records = nil
	return out, nil
}

func (f *fakeClaimer) MarkPending(_ context.Context, id uuid.UUID, lastError *string) error {
	if f.pending == nil {
		f.pending = map[uuid.UUID]string{}
	}
	f.pending[id] = *lastError
	return nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	failN int
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.failN > 0 {
		f.failN--
		return nil, errors.New("redis down")
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func TestDispatchEnqueuesClaimedRows(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	repo := &fakeClaimer{records: []outbox.Record{
		{ID: first, RunAt: time.Now()},
		{ID: second, RunAt: time.Now()},
	}}
	client := &fakeEnqueuer{failN: 1}
	d := &NotificationOutboxDispatcher{client: client, queue: "default", repo: repo, log: logger.Discard()}

	if got := d.dispatch(context.Background()); got != 1 {
		t.Fatalf("expected one enqueued task, got %d", got)
	}
	if repo.pending[first] != "redis down" {
		t.Fatalf("expected failed row back to pending, got %v", repo.pending)
	}

	payload, err := ParseNotificationOutboxDuePayload(client.tasks[0])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if payload.OutboxID != second.String() {
		t.Fatalf("expected task for %s, got %s", second, payload.OutboxID)
	}
	if client.tasks[0].Type() != TaskNotificationOutboxDue {
		t.Fatalf("unexpected task type %s", client.tasks[0].Type())
	}
}

type recordingDeliverer struct {
	ids []uuid.UUID
	err error
}

func (r *recordingDeliverer) Deliver(_ context.Context, id uuid.UUID) error {
	r.ids = append(r.ids, id)
	return r.err
}

type recordingTagger struct {
	target string
	id     uuid.UUID
}

func (r *recordingTagger) AutoTag(_ context.Context, target string, id uuid.UUID) error {
	r.target, r.id = target, id
	return nil
}

func TestWorkerRoutesOutboxTasks(t *testing.T) {
	deliverer := &recordingDeliverer{}
	w := newWorker(nil, deliverer, nil, logger.Discard())
	id := uuid.New()

	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{OutboxID: id.String()})
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if err := w.handleNotificationOutboxDue(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(deliverer.ids) != 1 || deliverer.ids[0] != id {
		t.Fatalf("expected delivery of %s, got %v", id, deliverer.ids)
	}

	deliverer.err = errors.New("db down")
	if err := w.handleNotificationOutboxDue(context.Background(), task); err == nil {
		t.Fatalf("expected delivery error to surface for retry")
	}
}

func TestWorkerSkipsRetryForMalformedPayload(t *testing.T) {
	w := newWorker(nil, &recordingDeliverer{}, &recordingTagger{}, logger.Discard())

	bad := asynq.NewTask(TaskNotificationOutboxDue, []byte(`{"outboxId":"nope"}`))
	if err := w.handleNotificationOutboxDue(context.Background(), bad); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}

	garbage := asynq.NewTask(TaskAutoTag, []byte(`not json`))
	if err := w.handleAutoTag(context.Background(), garbage); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestWorkerRoutesAutoTagTasks(t *testing.T) {
	tagger := &recordingTagger{}
	w := newWorker(nil, nil, tagger, logger.Discard())
	id := uuid.New()

	task, err := NewAutoTagTask(AutoTagPayload{Target: "request", ID: id.String()})
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if err := w.handleAutoTag(context.Background(), task); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if tagger.target != "request" || tagger.id != id {
		t.Fatalf("unexpected call %s %s", tagger.target, tagger.id)
	}
}

type countingExpirer struct {
	calls atomic.Int32
}

func (c *countingExpirer) ExpireDue(context.Context) (int, error) {
	c.calls.Add(1)
	return 2, nil
}

func TestProposalExpiryRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	expirer := &countingExpirer{}
	p := NewProposalExpiry(expirer, logger.Discard(), time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("sweep did not run")
		case <-time.After(10 * time.Millisecond):
		}
		if expirer.calls.Load() > 0 {
			break
		}
	}
	cancel()
	<-done
}

func TestProposalExpiryDefaultsInterval(t *testing.T) {
	p := NewProposalExpiry(&countingExpirer{}, logger.Discard(), 0)
	if p.interval != defaultProposalExpiryInterval {
		t.Fatalf("expected default interval, got %s", p.interval)
	}
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt("redis://:secret@localhost:6380/2", false)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opt.Addr != "localhost:6380" || opt.Password != "secret" || opt.DB != 2 || opt.TLSConfig != nil {
		t.Fatalf("unexpected options %+v", opt)
	}

	opt, err = redisClientOpt("rediss://localhost:6380", true)
	if err != nil {
		t.Fatalf("parse tls: %v", err)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatalf("expected insecure tls config")
	}
}
