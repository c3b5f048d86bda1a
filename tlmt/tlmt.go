// Package tlmt forwards product analytics events to an external sink.
package tlmt

import (
	"context"
	"time"
)

type Event struct {
	// DistinctID identifies the visitor, usually the analytics session id.
	DistinctID string
	Name       string
	Properties map[string]any
	Timestamp  time.Time
}

func NewEvent(name, distinctID string, props map[string]any) Event {
	ev := Event{
		DistinctID: distinctID,
		Name:       name,
		Properties: make(map[string]any, len(props)+1),
		Timestamp:  time.Now().UTC(),
	}

	for k, v := range props {
		ev.Properties[k] = v
	}

	ev.Properties["source"] = "reviewlink"

	return ev
}

type Telemetry interface {
	Send(ctx context.Context, event Event) error
	Close() error
}
