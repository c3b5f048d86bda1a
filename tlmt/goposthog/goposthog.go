// Package goposthog forwards analytics events to PostHog.
package goposthog

import (
	"context"
	"time"

	"github.com/posthog/posthog-go"

	"github.com/reviewlink/reviewlink/tlmt"
)

const (
	defaultInterval  = 5 * time.Second
	defaultBatchSize = 100
)

type Option func(*posthog.Config)

// WithBatching overrides how often and how many events are flushed.
func WithBatching(interval time.Duration, size int) Option {
	return func(cfg *posthog.Config) {
		cfg.Interval = interval
		cfg.BatchSize = size
	}
}

type service struct {
	client posthog.Client
}

func New(publicAPIKEY, endpointURL string, opts ...Option) (tlmt.Telemetry, error) {
	cfg := posthog.Config{
		Endpoint:  endpointURL,
		Interval:  defaultInterval,
		BatchSize: defaultBatchSize,
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := posthog.NewWithConfig(publicAPIKEY, cfg)
	if err != nil {
		return nil, err
	}

	return &service{client: client}, nil
}

// Send enqueues the event. Delivery happens in the background batches of the
// PostHog client.
func (s *service) Send(_ context.Context, event tlmt.Event) error {
	properties := posthog.NewProperties()
	for k, v := range event.Properties {
		properties.Set(k, v)
	}

	capture := posthog.Capture{
		DistinctId: event.DistinctID,
		Event:      event.Name,
		Timestamp:  event.Timestamp,
		Properties: properties,
	}

	if err := capture.Validate(); err != nil {
		return err
	}

	return s.client.Enqueue(capture)
}

// Close flushes pending events.
func (s *service) Close() error {
	if s.client != nil {
		return s.client.Close()
	}

	return nil
}
