// Package webrunner serves the HTTP API and, with asynchronous analytics,
// consumes the analytics queue in the same process.
package webrunner

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reviewlink/reviewlink/analytics"
	"github.com/reviewlink/reviewlink/config"
	"github.com/reviewlink/reviewlink/redis"
	rconfig "github.com/reviewlink/reviewlink/redis/config"
	"github.com/reviewlink/reviewlink/redis/tasks"
	"github.com/reviewlink/reviewlink/runner"
	"github.com/reviewlink/reviewlink/web"
	"github.com/reviewlink/reviewlink/web/auth"
	"github.com/reviewlink/reviewlink/web/handlers"
)

const trackTimeout = 5 * time.Second

type webrunner struct {
	app    *runner.App
	srv    *web.Server
	inline *analytics.InlineTracker
	client *redis.Client
	worker *redis.Server
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (runner.Runner, error) {
	app, err := runner.NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	ans := &webrunner{app: app}

	tracker, err := ans.tracker(ctx)
	if err != nil {
		return nil, multierr.Append(err, ans.Close(ctx))
	}

	var authMiddleware *auth.AuthMiddleware

	if cfg.ClerkKey != "" {
		authMiddleware, err = auth.NewAuthMiddleware(cfg.ClerkKey, logger.Named("auth"))
		if err != nil {
			return nil, multierr.Append(err, ans.Close(ctx))
		}
	}

	ans.srv = web.New(web.Config{
		Addr:           cfg.Addr,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger.Named("http"),
		Deps: handlers.Dependencies{
			Logger:        logger.Named("handlers"),
			Review:        app.Review,
			Places:        app.Places,
			Tracker:       tracker,
			Analytics:     app.Recorder,
			Subscriptions: app.Subscriptions,
			Auth:          authMiddleware,
		},
	})

	return ans, nil
}

func (w *webrunner) tracker(ctx context.Context) (analytics.Tracker, error) {
	logger := w.app.Logger.Named("tracker")

	if !w.app.Config.AsyncAnalytics {
		w.inline = analytics.NewInlineTracker(w.app.Recorder, trackTimeout, logger)

		return w.inline, nil
	}

	client, err := redis.NewClient(ctx, w.app.RedisConfig)
	if err != nil {
		return nil, err
	}

	w.client = client

	w.worker, err = redis.NewServer(w.app.RedisConfig, w.app.Logger.Named("worker"))
	if err != nil {
		return nil, err
	}

	return analytics.NewQueueTracker(client, rconfig.QueueAnalytics, logger), nil
}

func (w *webrunner) Run(ctx context.Context) error {
	egroup, ctx := errgroup.WithContext(ctx)

	egroup.Go(func() error {
		return w.srv.Start(ctx)
	})

	if w.worker != nil {
		handler := tasks.NewHandler(w.app.Recorder, tasks.WithLogger(w.app.Logger.Named("tasks")))

		egroup.Go(func() error {
			return w.worker.Run(ctx, handler)
		})
	}

	return egroup.Wait()
}

func (w *webrunner) Close(context.Context) error {
	if w.inline != nil {
		w.inline.Wait()
	}

	var errs error

	if w.client != nil {
		errs = multierr.Append(errs, w.client.Close())
		w.client = nil
	}

	return multierr.Append(errs, w.app.Close())
}
