// Package analytics records review page events and builds per place
// summaries on top of an entities.Store.
package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/reviewlink/reviewlink/gmaps"
)

type EventType string

const (
	PageView    EventType = "page_view"
	ButtonClick EventType = "button_click"
	QRScan      EventType = "qr_scan"
)

// TaskTypeRecord is the asynq task type carrying an Event.
const TaskTypeRecord = "analytics:record"

// MaxEventAge bounds how far in the past an event may be dated. Older
// timestamps are replaced with the time the event is recorded.
const MaxEventAge = 48 * time.Hour

var ErrInvalidEvent = errors.New("invalid analytics event")

type Event struct {
	Type      EventType `json:"eventType" validate:"required,oneof=page_view button_click qr_scan"`
	PlaceID   string    `json:"placeId" validate:"required,placeid"`
	SessionID string    `json:"sessionId,omitempty" validate:"max=128"`
	UserAgent string    `json:"userAgent,omitempty" validate:"max=512"`
	Referrer  string    `json:"referrer,omitempty" validate:"max=2048"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("placeid", func(fl validator.FieldLevel) bool {
		return gmaps.IsPlaceID(fl.Field().String())
	})

	return v
}

// Validate reports every field problem wrapped in ErrInvalidEvent.
func (e *Event) Validate() error {
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	return nil
}

// normalize fills the server side defaults. Events without a session are
// attributed to a fresh one.
func (e *Event) normalize(now time.Time) {
	if e.Timestamp.IsZero() || e.Timestamp.After(now) || e.Timestamp.Before(now.Add(-MaxEventAge)) {
		e.Timestamp = now
	}

	e.Timestamp = e.Timestamp.UTC()

	if e.SessionID == "" {
		e.SessionID = uuid.NewString()
	}
}
