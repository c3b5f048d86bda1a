package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/analytics"
	"github.com/reviewlink/reviewlink/places"
	"github.com/reviewlink/reviewlink/review"
	"github.com/reviewlink/reviewlink/subscription"
	"github.com/reviewlink/reviewlink/web/auth"
)

const DefaultMaxEventBytes = 16 << 10

// Dependencies aggregates shared services used by handlers.
type Dependencies struct {
	Logger        *zap.Logger
	Review        ReviewService
	Places        Autocompleter
	Tracker       analytics.Tracker
	Analytics     SummaryProvider
	Subscriptions SubscriptionReader
	// Auth is nil when authentication is not configured.
	Auth          *auth.AuthMiddleware
	MaxEventBytes int64
}

// HandlerGroup groups all handler categories for routing setup.
type HandlerGroup struct {
	Places    *PlaceHandlers
	Analytics *AnalyticsHandlers
	Account   *AccountHandlers
}

// NewHandlerGroup constructs a HandlerGroup with initialized handlers.
func NewHandlerGroup(deps Dependencies) *HandlerGroup {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	if deps.MaxEventBytes <= 0 {
		deps.MaxEventBytes = DefaultMaxEventBytes
	}

	return &HandlerGroup{
		Places:    &PlaceHandlers{Deps: deps},
		Analytics: &AnalyticsHandlers{Deps: deps},
		Account:   &AccountHandlers{Deps: deps},
	}
}

// PlaceHandlers resolve links and look up businesses. They are public.
type PlaceHandlers struct{ Deps Dependencies }

// AnalyticsHandlers accept tracking events and serve summaries.
type AnalyticsHandlers struct{ Deps Dependencies }

// AccountHandlers expose data of the authenticated user.
type AccountHandlers struct{ Deps Dependencies }

// ReviewService is the subset of *review.Service used by handlers.
type ReviewService interface {
	ResolveAndLookup(ctx context.Context, input string) (*places.BusinessInfo, error)
	Links(ctx context.Context, input string) (*review.Links, error)
}

type Autocompleter interface {
	Autocomplete(ctx context.Context, input string) ([]places.Prediction, error)
}

type SummaryProvider interface {
	Summary(ctx context.Context, placeID string, days int) (*analytics.Summary, error)
}

type SubscriptionReader interface {
	Get(ctx context.Context, userID string) (*subscription.Subscription, error)
	HasActiveEntitlement(ctx context.Context, userID string) bool
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func renderJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func renderError(w http.ResponseWriter, code int, msg string) {
	renderJSON(w, code, errorResponse{Error: msg})
}

// Health reports liveness.
func Health(w http.ResponseWriter, _ *http.Request) {
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
