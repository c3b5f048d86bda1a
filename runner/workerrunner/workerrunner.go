// Package workerrunner consumes queued analytics events.
package workerrunner

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/config"
	"github.com/reviewlink/reviewlink/redis"
	"github.com/reviewlink/reviewlink/redis/tasks"
	"github.com/reviewlink/reviewlink/runner"
)

type workerrunner struct {
	app    *runner.App
	server *redis.Server
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (runner.Runner, error) {
	app, err := runner.NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	server, err := redis.NewServer(app.RedisConfig, logger.Named("worker"))
	if err != nil {
		return nil, multierr.Append(err, app.Close())
	}

	return &workerrunner{app: app, server: server}, nil
}

func (w *workerrunner) Run(ctx context.Context) error {
	handler := tasks.NewHandler(w.app.Recorder, tasks.WithLogger(w.app.Logger.Named("tasks")))

	return w.server.Run(ctx, handler)
}

func (w *workerrunner) Close(context.Context) error {
	return w.app.Close()
}
