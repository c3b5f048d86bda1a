package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/redis/config"
)

// Server wraps asynq server functionality
type Server struct {
	server *asynq.Server
	cfg    *config.RedisConfig
	logger *zap.Logger
	mu     sync.Mutex
}

// NewServer creates a task queue consumer for the configured Redis server.
func NewServer(cfg *config.RedisConfig, logger *zap.Logger) (*Server, error) {
	redisOpt, err := cfg.AsynqOpt()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency:     cfg.Workers,
			RetryDelayFunc:  retryDelay(cfg.RetryInterval),
			Queues:          cfg.QueuePriorities,
			StrictPriority:  true,
			ShutdownTimeout: 10 * time.Second,
			Logger:          logger.Sugar(),
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				logger.Warn("task failed",
					zap.String("type", task.Type()),
					zap.Int("retried", retried),
					zap.Error(err))
			}),
		},
	)

	return &Server{
		server: srv,
		cfg:    cfg,
		logger: logger,
	}, nil
}

// retryDelay is an exponential backoff starting at one second and capped at
// maxDelay.
func retryDelay(maxDelay time.Duration) asynq.RetryDelayFunc {
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		if n > 30 {
			return maxDelay
		}

		delay := time.Duration(1<<uint(n)) * time.Second
		if delay > maxDelay {
			delay = maxDelay
		}

		return delay
	}
}

// Run processes tasks until ctx is cancelled and then shuts the server down.
func (s *Server) Run(ctx context.Context, handler asynq.Handler) error {
	s.mu.Lock()

	if err := s.server.Start(handler); err != nil {
		s.mu.Unlock()

		return fmt.Errorf("failed to start server: %w", err)
	}

	s.mu.Unlock()

	s.logger.Info("task worker started", zap.Int("concurrency", s.cfg.Workers))

	<-ctx.Done()

	s.Shutdown()

	return nil
}

// Shutdown gracefully stops the server, waiting for active tasks.
func (s *Server) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.server.Shutdown()
	s.logger.Info("task worker stopped")
}
