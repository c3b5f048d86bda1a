package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/config"
	"github.com/reviewlink/reviewlink/runner"
	"github.com/reviewlink/reviewlink/runner/resolverunner"
	"github.com/reviewlink/reviewlink/runner/webrunner"
	"github.com/reviewlink/reviewlink/runner/workerrunner"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load() // Load .env file if present

	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 2
	}

	logger, err := runner.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)

		return 1
	}

	defer func() {
		_ = logger.Sync()
	}()

	runner.Banner(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runnerInstance, err := runnerFactory(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", zap.Error(err))

		return 1
	}

	code := 0

	if err := runnerInstance.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		if !errors.Is(err, resolverunner.ErrUnsuccessful) {
			logger.Error("runner failed", zap.Error(err))
		}

		code = 1
	}

	if err := runnerInstance.Close(context.Background()); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}

	return code
}

func runnerFactory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (runner.Runner, error) {
	switch cfg.RunMode {
	case config.RunModeWeb:
		return webrunner.New(ctx, cfg, logger)
	case config.RunModeWorker:
		return workerrunner.New(ctx, cfg, logger)
	case config.RunModeResolve:
		return resolverunner.New(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}
}
