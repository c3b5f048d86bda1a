package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/deduper"
	"github.com/reviewlink/reviewlink/entities"
	"github.com/reviewlink/reviewlink/tlmt"
	"github.com/reviewlink/reviewlink/tlmt/gonoop"
)

const (
	DefaultSummaryDays = 30
	MaxSummaryDays     = 365
)

type Totals struct {
	PlaceID           string    `json:"placeId"`
	TotalPageViews    int       `json:"totalPageViews"`
	TotalButtonClicks int       `json:"totalButtonClicks"`
	TotalQRScans      int       `json:"totalQrScans"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type DailyStats struct {
	Date           string `json:"date"`
	PageViews      int    `json:"pageViews"`
	ButtonClicks   int    `json:"buttonClicks"`
	QRScans        int    `json:"qrScans"`
	UniqueVisitors int    `json:"uniqueVisitors"`
}

type Summary struct {
	PlaceID             string       `json:"placeId"`
	Days                int          `json:"days"`
	TotalPageViews      int          `json:"totalPageViews"`
	TotalButtonClicks   int          `json:"totalButtonClicks"`
	TotalQRScans        int          `json:"totalQrScans"`
	TotalUniqueVisitors int          `json:"totalUniqueVisitors"`
	ConversionRate      float64      `json:"conversionRate"`
	DailyData           []DailyStats `json:"dailyData"`
}

type Recorder struct {
	store  entities.Store
	seen   deduper.Deduper
	sink   tlmt.Telemetry
	logger *zap.Logger
	now    func() time.Time
}

type RecorderOption func(*Recorder)

func WithDeduper(d deduper.Deduper) RecorderOption {
	return func(r *Recorder) {
		r.seen = d
	}
}

// WithSink forwards every recorded event to an external analytics sink.
func WithSink(sink tlmt.Telemetry) RecorderOption {
	return func(r *Recorder) {
		r.sink = sink
	}
}

func WithRecorderLogger(logger *zap.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithClock(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.now = now
	}
}

func NewRecorder(store entities.Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:  store,
		seen:   deduper.New(),
		sink:   gonoop.New(),
		logger: zap.NewNop(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Record validates ev and folds it into the place totals and the daily
// aggregate of the event's day. A session counts as a unique visitor once per
// place and day.
func (r *Recorder) Record(ctx context.Context, ev Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	now := r.now().UTC()
	ev.normalize(now)

	err := entities.UpdateJSON(ctx, r.store, entities.AnalyticsTotalsKey(ev.PlaceID), func(t *Totals) error {
		if t.PlaceID == "" {
			t.PlaceID = ev.PlaceID
			t.CreatedAt = now
		}

		switch ev.Type {
		case PageView:
			t.TotalPageViews++
		case ButtonClick:
			t.TotalButtonClicks++
		case QRScan:
			t.TotalQRScans++
		}

		t.UpdatedAt = now

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update totals: %w", err)
	}

	day := ev.Timestamp.Format(entities.DayLayout)
	unique := r.seen.AddIfNotExists(ctx, ev.PlaceID+"|"+day+"|"+ev.SessionID)

	err = entities.UpdateJSON(ctx, r.store, entities.AnalyticsDailyKey(ev.PlaceID, ev.Timestamp), func(d *DailyStats) error {
		d.Date = day

		switch ev.Type {
		case PageView:
			d.PageViews++
		case ButtonClick:
			d.ButtonClicks++
		case QRScan:
			d.QRScans++
		}

		if unique {
			d.UniqueVisitors++
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update daily stats: %w", err)
	}

	props := map[string]any{
		"place_id": ev.PlaceID,
		"referrer": ev.Referrer,
	}

	if err := r.sink.Send(ctx, tlmt.NewEvent("analytics:"+string(ev.Type), ev.SessionID, props)); err != nil {
		r.logger.Warn("failed to forward analytics event", zap.String("place_id", ev.PlaceID), zap.Error(err))
	}

	return nil
}

// Summary aggregates the last days days, today included. Days without events
// are reported with zero counts. days is clamped to 1..MaxSummaryDays.
func (r *Recorder) Summary(ctx context.Context, placeID string, days int) (*Summary, error) {
	switch {
	case days <= 0:
		days = DefaultSummaryDays
	case days > MaxSummaryDays:
		days = MaxSummaryDays
	}

	today := r.now().UTC()

	ans := Summary{
		PlaceID:   placeID,
		Days:      days,
		DailyData: make([]DailyStats, 0, days),
	}

	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)

		var stats DailyStats

		err := entities.GetJSON(ctx, r.store, entities.AnalyticsDailyKey(placeID, day), &stats)

		switch {
		case errors.Is(err, entities.ErrNotFound):
		case err != nil:
			return nil, err
		}

		stats.Date = day.Format(entities.DayLayout)

		ans.TotalPageViews += stats.PageViews
		ans.TotalButtonClicks += stats.ButtonClicks
		ans.TotalQRScans += stats.QRScans
		ans.TotalUniqueVisitors += stats.UniqueVisitors
		ans.DailyData = append(ans.DailyData, stats)
	}

	ans.ConversionRate = conversionRate(ans.TotalButtonClicks, ans.TotalPageViews)

	return &ans, nil
}

// Totals returns the all time counters of a place.
func (r *Recorder) Totals(ctx context.Context, placeID string) (*Totals, error) {
	var t Totals

	err := entities.GetJSON(ctx, r.store, entities.AnalyticsTotalsKey(placeID), &t)
	if errors.Is(err, entities.ErrNotFound) {
		return &Totals{PlaceID: placeID}, nil
	}

	if err != nil {
		return nil, err
	}

	return &t, nil
}

// conversionRate is clicks per hundred views rounded to one decimal.
func conversionRate(clicks, views int) float64 {
	if views <= 0 {
		return 0
	}

	rate := decimal.NewFromInt(int64(clicks)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(views))).
		Round(1)

	return rate.InexactFloat64()
}
