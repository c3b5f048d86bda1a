package analytics

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const DefaultTrackTimeout = 5 * time.Second

// Tracker accepts events without making the caller wait for them to be
// stored. Failures are logged.
type Tracker interface {
	Track(ctx context.Context, ev Event)
}

var (
	_ Tracker = (*InlineTracker)(nil)
	_ Tracker = (*QueueTracker)(nil)
)

// InlineTracker records events in background goroutines of the current
// process.
type InlineTracker struct {
	recorder *Recorder
	timeout  time.Duration
	logger   *zap.Logger
	wg       sync.WaitGroup
}

func NewInlineTracker(recorder *Recorder, timeout time.Duration, logger *zap.Logger) *InlineTracker {
	if timeout <= 0 {
		timeout = DefaultTrackTimeout
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &InlineTracker{
		recorder: recorder,
		timeout:  timeout,
		logger:   logger,
	}
}

func (t *InlineTracker) Track(_ context.Context, ev Event) {
	t.wg.Add(1)

	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()

		if err := t.recorder.Record(ctx, ev); err != nil {
			t.logger.Warn("failed to record analytics event",
				zap.String("place_id", ev.PlaceID),
				zap.String("event_type", string(ev.Type)),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every tracked event has been recorded or has failed.
func (t *InlineTracker) Wait() {
	t.wg.Wait()
}

// Enqueuer is satisfied by the asynq backed redis.Client.
type Enqueuer interface {
	EnqueueTask(ctx context.Context, taskType string, payload []byte, opts ...asynq.Option) error
}

// QueueTracker hands events to the task queue; a worker process records them.
type QueueTracker struct {
	enqueuer Enqueuer
	queue    string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewQueueTracker(enqueuer Enqueuer, queue string, logger *zap.Logger) *QueueTracker {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &QueueTracker{
		enqueuer: enqueuer,
		queue:    queue,
		timeout:  DefaultTrackTimeout,
		logger:   logger,
	}
}

func (t *QueueTracker) Track(ctx context.Context, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		t.logger.Error("failed to encode analytics event", zap.Error(err))

		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()

	if err := t.enqueuer.EnqueueTask(ctx, TaskTypeRecord, payload, asynq.Queue(t.queue)); err != nil {
		t.logger.Warn("failed to enqueue analytics event",
			zap.String("place_id", ev.PlaceID),
			zap.Error(err))
	}
}
