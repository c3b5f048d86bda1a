package runner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/analytics"
	"github.com/reviewlink/reviewlink/config"
	"github.com/reviewlink/reviewlink/deduper"
	"github.com/reviewlink/reviewlink/entities"
	"github.com/reviewlink/reviewlink/gmaps"
	"github.com/reviewlink/reviewlink/places"
	"github.com/reviewlink/reviewlink/postgres"
	"github.com/reviewlink/reviewlink/redis"
	rconfig "github.com/reviewlink/reviewlink/redis/config"
	"github.com/reviewlink/reviewlink/review"
	"github.com/reviewlink/reviewlink/subscription"
	"github.com/reviewlink/reviewlink/tlmt"
	"github.com/reviewlink/reviewlink/web/memory"
	"github.com/reviewlink/reviewlink/web/sqlite"
)

const (
	sqliteFileName = "reviewlink.db"
	visitorTTL     = 48 * time.Hour
)

// App holds the components shared by all run modes.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Store     entities.Store
	Telemetry tlmt.Telemetry
	Recorder  *analytics.Recorder

	// Places and Review are nil in worker mode.
	Places        *places.Client
	Review        *review.Service
	Subscriptions *subscription.Service

	// RedisConfig and RedisClient are set when a component needs Redis.
	RedisConfig *rconfig.RedisConfig
	RedisClient *goredis.Client

	closers []func() error
}

// NewApp connects the storage backend and builds the domain services.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.setup(ctx); err != nil {
		return nil, multierr.Append(err, app.Close())
	}

	return app, nil
}

func (a *App) setup(ctx context.Context) error {
	cfg := a.Config

	if cfg.NeedsRedis() {
		redisCfg, err := rconfig.NewRedisConfig()
		if err != nil {
			return fmt.Errorf("redis configuration: %w", err)
		}

		if cfg.RedisURL != "" {
			if err := redisCfg.ApplyURL(cfg.RedisURL); err != nil {
				return err
			}
		}

		a.RedisConfig = redisCfg
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}

	a.Store = store
	a.closers = append(a.closers, store.Close)

	if a.RedisConfig != nil && a.RedisClient == nil {
		opts, err := a.RedisConfig.Options()
		if err != nil {
			return err
		}

		client := goredis.NewClient(opts)
		a.closers = append(a.closers, client.Close)

		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}

		a.RedisClient = client
	}

	a.Telemetry = NewTelemetry(cfg, a.Logger)
	a.closers = append(a.closers, a.Telemetry.Close)

	dedup := deduper.NewWithTTL(visitorTTL)
	if a.RedisClient != nil {
		dedup = deduper.NewRedis(a.RedisClient, a.RedisConfig.KeyPrefix, visitorTTL)
	}

	a.Recorder = analytics.NewRecorder(store,
		analytics.WithDeduper(dedup),
		analytics.WithSink(a.Telemetry),
		analytics.WithRecorderLogger(a.Logger.Named("analytics")),
	)

	a.Subscriptions = subscription.NewService(store, a.Logger.Named("subscription"))

	if cfg.RunMode == config.RunModeWorker {
		return nil
	}

	placesClient, err := places.New(places.Config{
		APIKey:            cfg.PlacesAPIKey,
		BaseURL:           cfg.PlacesBaseURL,
		AutocompleteURL:   cfg.PlacesAutocompleteURL,
		Timeout:           cfg.LookupTimeout,
		RequestsPerSecond: cfg.PlacesRPS,
	}, places.WithLogger(a.Logger.Named("places")))
	if err != nil {
		return err
	}

	resolver := gmaps.NewResolver(gmaps.ResolverConfig{
		Timeout:      cfg.ResolveTimeout,
		MaxRedirects: cfg.MaxRedirects,
		MaxBodyBytes: cfg.MaxBodyBytes,
		UserAgent:    cfg.UserAgent,
	}, gmaps.WithResolverLogger(a.Logger.Named("resolver")))

	a.Places = placesClient
	a.Review = review.NewService(resolver, placesClient,
		review.WithLogger(a.Logger.Named("review")),
		review.WithCache(review.NewStoreCache(store, cfg.CacheTTL, a.Logger)),
		review.WithBaseURL(cfg.BaseURL),
	)

	return nil
}

func (a *App) openStore(ctx context.Context) (entities.Store, error) {
	cfg := a.Config

	switch cfg.Store {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StoreSQLite:
		if err := os.MkdirAll(cfg.DataFolder, os.ModePerm); err != nil {
			return nil, err
		}

		return sqlite.New(filepath.Join(cfg.DataFolder, sqliteFileName))
	case config.StorePostgres:
		return postgres.Open(ctx, cfg.DSN, a.Logger.Named("postgres"))
	case config.StoreRedis:
		store, err := redis.NewStore(ctx, a.RedisConfig)
		if err != nil {
			return nil, err
		}

		a.RedisClient = store.Client()

		return store, nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs error

	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, a.closers[i]())
	}

	a.closers = nil

	return errs
}
