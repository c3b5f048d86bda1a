package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/reviewlink/reviewlink/analytics"
	"github.com/reviewlink/reviewlink/gmaps"
	"github.com/reviewlink/reviewlink/utils"
	"github.com/reviewlink/reviewlink/web/auth"
)

// Summary windows in days.
const (
	FreeSummaryDays     = 7
	EntitledSummaryDays = 90
	defaultEntitledDays = 30
)

type acceptedResponse struct {
	Success bool `json:"success"`
}

type summaryResponse struct {
	Success bool               `json:"success"`
	Data    *analytics.Summary `json:"data"`
	MaxDays int                `json:"maxDays"`
}

// Event handles POST /api/analytics/events. Events are accepted before they
// are stored.
func (h *AnalyticsHandlers) Event(w http.ResponseWriter, r *http.Request) {
	var ev analytics.Event

	if err := utils.DecodeLimited(r.Body, h.Deps.MaxEventBytes, &ev); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, utils.ErrInputTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}

		renderError(w, status, "Invalid event payload")

		return
	}

	if ev.UserAgent == "" {
		ev.UserAgent = truncate(r.UserAgent(), 512)
	}

	if ev.Referrer == "" {
		ev.Referrer = truncate(r.Referer(), 2048)
	}

	if err := ev.Validate(); err != nil {
		h.Deps.Logger.Debug("rejected analytics event", zap.Error(err))
		renderError(w, http.StatusBadRequest, "Invalid event payload")

		return
	}

	h.Deps.Tracker.Track(r.Context(), ev)

	renderJSON(w, http.StatusAccepted, acceptedResponse{Success: true})
}

// Summary handles GET /api/analytics/{placeId}?days=N. Users without an
// active subscription only see the last FreeSummaryDays days.
func (h *AnalyticsHandlers) Summary(w http.ResponseWriter, r *http.Request) {
	placeID, err := url.PathUnescape(mux.Vars(r)["placeId"])
	if err != nil || !gmaps.IsPlaceID(placeID) {
		renderError(w, http.StatusBadRequest, "Invalid Place ID")

		return
	}

	maxDays := FreeSummaryDays
	days := FreeSummaryDays

	if userID, err := auth.GetUserID(r.Context()); err == nil && h.Deps.Subscriptions != nil &&
		h.Deps.Subscriptions.HasActiveEntitlement(r.Context(), userID) {
		maxDays = EntitledSummaryDays
		days = defaultEntitledDays
	}

	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			renderError(w, http.StatusBadRequest, "days must be a positive number")

			return
		}

		days = min(n, maxDays)
	}

	summary, err := h.Deps.Analytics.Summary(r.Context(), placeID, days)
	if err != nil {
		h.Deps.Logger.Error("analytics summary failed", zap.String("place_id", placeID), zap.Error(err))
		renderError(w, http.StatusInternalServerError, "Failed to load analytics")

		return
	}

	renderJSON(w, http.StatusOK, summaryResponse{Success: true, Data: summary, MaxDays: maxDays})
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}

	return s[:n]
}
