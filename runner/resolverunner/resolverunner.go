// Package resolverunner resolves a single input, prints the JSON response to
// stdout and exits.
package resolverunner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/config"
	"github.com/reviewlink/reviewlink/places"
	"github.com/reviewlink/reviewlink/review"
	"github.com/reviewlink/reviewlink/runner"
)

// ErrUnsuccessful is returned after an unsuccessful response was printed.
var ErrUnsuccessful = errors.New("resolution unsuccessful")

type resolver interface {
	ResolveAndLookup(ctx context.Context, input string) (*places.BusinessInfo, error)
}

type resolverunner struct {
	app   *runner.App
	svc   resolver
	input string
	out   io.Writer
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (runner.Runner, error) {
	app, err := runner.NewApp(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &resolverunner{
		app:   app,
		svc:   app.Review,
		input: cfg.Resolve,
		out:   os.Stdout,
	}, nil
}

func (r *resolverunner) Run(ctx context.Context) error {
	return resolve(ctx, r.svc, r.input, r.out)
}

func (r *resolverunner) Close(context.Context) error {
	if r.app == nil {
		return nil
	}

	return r.app.Close()
}

func resolve(ctx context.Context, svc resolver, input string, out io.Writer) error {
	info, err := svc.ResolveAndLookup(ctx, input)

	resp := review.Respond(info, err)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if encErr := enc.Encode(resp); encErr != nil {
		return fmt.Errorf("failed to write response: %w", encErr)
	}

	if !resp.Success {
		return ErrUnsuccessful
	}

	return nil
}
