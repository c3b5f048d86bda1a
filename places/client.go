package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL         = "https://places.googleapis.com/v1"
	DefaultAutocompleteURL = "https://maps.googleapis.com/maps/api/place/autocomplete/json"
	DefaultTimeout         = 8 * time.Second

	// FieldMask restricts the place resource to the fields BusinessInfo uses.
	FieldMask = "id,displayName,formattedAddress,photos,rating,userRatingCount,websiteUri,nationalPhoneNumber"

	minAutocompleteInput = 2
	maxLoggedBody        = 2 << 10

	// MaxResponseBytes bounds how much of an upstream response is read.
	MaxResponseBytes = 1 << 20
)

var (
	ErrMissingAPIKey = errors.New("places api key is not configured")
	ErrAutocomplete  = errors.New("places autocomplete failed")
)

// StatusError is returned for non-success upstream responses other than 404.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("places api %s responded with status %d", e.Endpoint, e.StatusCode)
}

type Config struct {
	APIKey          string
	BaseURL         string
	AutocompleteURL string
	Timeout         time.Duration
	// RequestsPerSecond limits outbound calls when > 0.
	RequestsPerSecond float64
}

type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// Client talks to the Google Places API. It holds no per-call state and is
// safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	if cfg.AutocompleteURL == "" {
		cfg.AutocompleteURL = DefaultAutocompleteURL
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	c := Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     zap.NewNop(),
	}

	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	for _, opt := range opts {
		opt(&c)
	}

	return &c, nil
}

// Lookup fetches the details of placeID. A place unknown to the provider
// yields (nil, nil); any other non-success response yields a *StatusError.
func (c *Client) Lookup(ctx context.Context, placeID string) (*BusinessInfo, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/places/" + url.PathEscape(placeID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)
	req.Header.Set("X-Goog-FieldMask", FieldMask)

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("places lookup: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(resp, "place details", zap.String("place_id", placeID))
	}

	var payload placeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode place details: %w", err)
	}

	return normalize(&payload, placeID, c.cfg.BaseURL, c.cfg.APIKey), nil
}

// Autocomplete returns business suggestions for a partial name. Inputs
// shorter than two characters return an empty list without calling upstream.
func (c *Client) Autocomplete(ctx context.Context, input string) ([]Prediction, error) {
	input = strings.TrimSpace(input)
	if utf8.RuneCountInString(input) < minAutocompleteInput {
		return []Prediction{}, nil
	}

	u, err := url.Parse(c.cfg.AutocompleteURL)
	if err != nil {
		return nil, fmt.Errorf("invalid autocomplete url: %w", err)
	}

	q := u.Query()
	q.Set("input", input)
	q.Set("types", "establishment")
	q.Set("key", c.cfg.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("places autocomplete: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(resp, "autocomplete")
	}

	var payload autocompleteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxResponseBytes)).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode autocomplete response: %w", err)
	}

	if payload.Status != "OK" && payload.Status != "ZERO_RESULTS" {
		c.logger.Error("places autocomplete rejected",
			zap.String("status", payload.Status),
			zap.String("message", payload.ErrorMessage))

		return nil, fmt.Errorf("%w: status %s", ErrAutocomplete, payload.Status)
	}

	predictions := make([]Prediction, 0, len(payload.Predictions))

	for _, p := range payload.Predictions {
		if p.PlaceID == "" {
			continue
		}

		predictions = append(predictions, toPrediction(p))
	}

	return predictions, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	return c.httpClient.Do(req)
}

// drainAndClose reads what is left of a bounded body so the connection can be
// reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseBytes))
	_ = body.Close()
}

// statusError logs the upstream body server side and returns an error that
// carries only the status code.
func (c *Client) statusError(resp *http.Response, endpoint string, fields ...zap.Field) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))

	fields = append(fields,
		zap.String("endpoint", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", body))

	c.logger.Error("places api error", fields...)

	return &StatusError{StatusCode: resp.StatusCode, Endpoint: endpoint}
}
