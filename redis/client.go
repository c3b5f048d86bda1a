package redis

import (
	"context"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	goredis "github.com/redis/go-redis/v9"

	"github.com/reviewlink/reviewlink/redis/config"
)

// Client wraps asynq client functionality
type Client struct {
	client *asynq.Client
	cfg    *config.RedisConfig
	mu     sync.RWMutex
}

// NewClient creates a task queue client for the configured Redis server.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	redisOpt, err := cfg.AsynqOpt()
	if err != nil {
		return nil, err
	}

	if err := ping(ctx, cfg); err != nil {
		return nil, err
	}

	client := asynq.NewClient(redisOpt)

	return &Client{
		client: client,
		cfg:    cfg,
	}, nil
}

// EnqueueTask enqueues a task with the given type and payload. Unless
// overridden by opts the task goes to the default queue with the configured
// retry count and retention.
func (c *Client) EnqueueTask(ctx context.Context, taskType string, payload []byte, opts ...asynq.Option) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defaults := []asynq.Option{
		asynq.Queue(config.QueueDefault),
		asynq.MaxRetry(c.cfg.MaxRetries),
	}

	if c.cfg.RetentionPeriod > 0 {
		defaults = append(defaults, asynq.Retention(c.cfg.RetentionPeriod))
	}

	task := asynq.NewTask(taskType, payload)

	if _, err := c.client.EnqueueContext(ctx, task, append(defaults, opts...)...); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	return nil
}

// ping checks connectivity with a short lived go-redis connection since the
// asynq client connects lazily.
func ping(ctx context.Context, cfg *config.RedisConfig) error {
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	rdb := goredis.NewClient(opts)
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return nil
}

// Close closes the Redis client connection
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis client: %w", err)
	}

	return nil
}
