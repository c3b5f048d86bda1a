// Package tasks provides Redis task handling functionality
package tasks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/analytics"
	"github.com/reviewlink/reviewlink/utils"
)

// TaskHandler handles processing of Redis tasks
type TaskHandler interface {
	ProcessTask(ctx context.Context, task *asynq.Task) error
}

// EventRecorder stores analytics events; *analytics.Recorder implements it.
type EventRecorder interface {
	Record(ctx context.Context, ev analytics.Event) error
}

var _ asynq.Handler = (*Handler)(nil)

// Handler implements TaskHandler interface
type Handler struct {
	recorder    EventRecorder
	taskTimeout time.Duration
	logger      *zap.Logger
}

// HandlerOption is a function that configures a Handler
type HandlerOption func(*Handler)

// WithTaskTimeout sets the timeout for task processing
func WithTaskTimeout(timeout time.Duration) HandlerOption {
	return func(h *Handler) {
		h.taskTimeout = timeout
	}
}

func WithLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a new task handler with the provided options
func NewHandler(recorder EventRecorder, opts ...HandlerOption) *Handler {
	h := &Handler{
		recorder:    recorder,
		taskTimeout: 30 * time.Second,
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// ProcessTask processes a task based on its type
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	ctx, cancel := context.WithTimeout(ctx, h.taskTimeout)
	defer cancel()

	switch task.Type() {
	case TypeAnalyticsRecord:
		return h.processAnalyticsTask(ctx, task)
	case TypeHealthCheck:
		return nil
	default:
		return fmt.Errorf("unknown task type: %s", task.Type())
	}
}

// processAnalyticsTask records one event. Malformed payloads are never
// retried.
func (h *Handler) processAnalyticsTask(ctx context.Context, task *asynq.Task) error {
	var payload AnalyticsPayload

	if err := utils.UnmarshalJSON(bytes.NewReader(task.Payload()), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal analytics payload: %w: %w", err, asynq.SkipRetry)
	}

	err := h.recorder.Record(ctx, payload)

	switch {
	case errors.Is(err, analytics.ErrInvalidEvent):
		h.logger.Warn("dropping invalid analytics event", zap.Error(err))

		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	case err != nil:
		return fmt.Errorf("failed to record analytics event: %w", err)
	}

	return nil
}
