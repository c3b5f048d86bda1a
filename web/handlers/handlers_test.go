package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewlink/reviewlink/analytics"
	"github.com/reviewlink/reviewlink/places"
	"github.com/reviewlink/reviewlink/review"
	"github.com/reviewlink/reviewlink/subscription"
	"github.com/reviewlink/reviewlink/web/auth"
	"github.com/reviewlink/reviewlink/web/handlers"
)

const sydneyID = "ChIJN1t_tDeuEmsRUsoyG83frY4"

type fakeReview struct {
	mu     sync.Mutex
	inputs []string
	info   *places.BusinessInfo
	err    error
}

func (f *fakeReview) ResolveAndLookup(_ context.Context, input string) (*places.BusinessInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inputs = append(f.inputs, input)

	return f.info, f.err
}

func (f *fakeReview) Links(_ context.Context, input string) (*review.Links, error) {
	if f.err != nil {
		return nil, f.err
	}

	return &review.Links{PlaceID: input, ReviewPageURL: "https://x/review/" + input, GoogleReviewURL: "https://g/" + input}, nil
}

type fakePlaces struct {
	predictions []places.Prediction
	err         error
}

func (f *fakePlaces) Autocomplete(context.Context, string) ([]places.Prediction, error) {
	return f.predictions, f.err
}

type fakeTracker struct {
	events []analytics.Event
}

func (f *fakeTracker) Track(_ context.Context, ev analytics.Event) {
	f.events = append(f.events, ev)
}

type fakeSummary struct {
	placeID string
	days    int
}

func (f *fakeSummary) Summary(_ context.Context, placeID string, days int) (*analytics.Summary, error) {
	f.placeID = placeID
	f.days = days

	return &analytics.Summary{PlaceID: placeID, Days: days}, nil
}

type fakeSubscriptions struct {
	entitled map[string]bool
}

func (f *fakeSubscriptions) Get(_ context.Context, userID string) (*subscription.Subscription, error) {
	if f.entitled[userID] {
		return &subscription.Subscription{Status: subscription.StatusActive, Plan: subscription.PlanBusiness}, nil
	}

	return &subscription.Subscription{Status: subscription.StatusFree}, nil
}

func (f *fakeSubscriptions) HasActiveEntitlement(_ context.Context, userID string) bool {
	return f.entitled[userID]
}

type fixture struct {
	review  *fakeReview
	places  *fakePlaces
	tracker *fakeTracker
	summary *fakeSummary
	router  *mux.Router
}

func newFixture(t *testing.T, withAuth bool) *fixture {
	t.Helper()

	f := &fixture{
		review:  &fakeReview{info: &places.BusinessInfo{PlaceID: sydneyID, Name: "Google Sydney"}},
		places:  &fakePlaces{},
		tracker: &fakeTracker{},
		summary: &fakeSummary{},
	}

	deps := handlers.Dependencies{
		Review:        f.review,
		Places:        f.places,
		Tracker:       f.tracker,
		Analytics:     f.summary,
		Subscriptions: &fakeSubscriptions{entitled: map[string]bool{"pro_user": true}},
	}

	if withAuth {
		deps.Auth = auth.NewWithVerifier(func(token string) (string, error) {
			if token == "" || token == "bad" {
				return "", errors.New("invalid")
			}

			return token, nil
		}, nil)
	}

	f.router = mux.NewRouter().UseEncodedPath()
	handlers.NewHandlerGroup(deps).RegisterRoutes(f.router)

	return f
}

func (f *fixture) do(t *testing.T, method, target, body string, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())

	return rec, decoded
}

func TestHealth(t *testing.T) {
	f := newFixture(t, false)

	rec, body := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestPlaceDetails(t *testing.T) {
	t.Run("place id in path", func(t *testing.T) {
		f := newFixture(t, false)

		rec, body := f.do(t, http.MethodGet, "/api/places/"+sydneyID, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "Google Sydney", body["data"].(map[string]any)["name"])
		assert.Equal(t, []string{sydneyID}, f.review.inputs)
	})

	t.Run("url encoded link in path", func(t *testing.T) {
		f := newFixture(t, false)
		link := "https://g.page/r/CXlUl0ZZohrjEAE/review"

		rec, _ := f.do(t, http.MethodGet, "/api/places/"+url.PathEscape(link), "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{link}, f.review.inputs)
	})

	t.Run("error taxonomy", func(t *testing.T) {
		tests := []struct {
			err        error
			wantStatus int
			wantError  string
		}{
			{review.ErrInvalidInput, http.StatusBadRequest, review.MsgInvalidInput},
			{review.ErrResolutionFailed, http.StatusBadRequest, review.MsgResolutionFailed},
			{review.ErrNotFound, http.StatusNotFound, review.MsgNotFound},
			{errors.Join(review.ErrUpstream, errors.New("status 503")), http.StatusInternalServerError, review.MsgUpstream},
		}

		for _, tt := range tests {
			t.Run(tt.wantError, func(t *testing.T) {
				f := newFixture(t, false)
				f.review.err = tt.err

				rec, body := f.do(t, http.MethodGet, "/api/places/resolve?input=whatever", "", nil)
				assert.Equal(t, tt.wantStatus, rec.Code)
				assert.Equal(t, false, body["success"])
				assert.Equal(t, tt.wantError, body["error"])
				assert.NotContains(t, body, "data")
			})
		}
	})

	t.Run("missing input", func(t *testing.T) {
		f := newFixture(t, false)

		rec, body := f.do(t, http.MethodGet, "/api/places/resolve", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Place ID required", body["error"])
		assert.Empty(t, f.review.inputs)
	})
}

func TestAutocomplete(t *testing.T) {
	f := newFixture(t, false)

	rec, body := f.do(t, http.MethodGet, "/api/places/autocomplete?input=c", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["predictions"])

	f.places.predictions = []places.Prediction{{PlaceID: sydneyID, Name: "Google Sydney"}}

	_, body = f.do(t, http.MethodGet, "/api/places/autocomplete?input=google", "", nil)
	require.Len(t, body["predictions"], 1)

	f.places.err = errors.New("REQUEST_DENIED")

	rec, body = f.do(t, http.MethodGet, "/api/places/autocomplete?input=google", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.NotContains(t, body["error"], "REQUEST_DENIED")
}

func TestLinksAndTemplates(t *testing.T) {
	f := newFixture(t, false)

	rec, body := f.do(t, http.MethodGet, "/api/links?input="+sydneyID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sydneyID, body["data"].(map[string]any)["placeId"])

	f.review.err = review.ErrInvalidInput

	rec, body = f.do(t, http.MethodGet, "/api/links?input=nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, review.MsgInvalidInput, body["error"])

	_, body = f.do(t, http.MethodGet, "/api/templates", "", nil)
	assert.Len(t, body["templates"], 5)

	_, body = f.do(t, http.MethodGet, "/api/templates?category=professional", "", nil)
	assert.Len(t, body["templates"], 1)

	rec, _ = f.do(t, http.MethodGet, "/api/templates?category=funny", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsEvent(t *testing.T) {
	f := newFixture(t, true)

	rec, body := f.do(t, http.MethodPost, "/api/analytics/events",
		`{"eventType":"button_click","placeId":"`+sydneyID+`","sessionId":"s1"}`,
		map[string]string{"User-Agent": "test-agent", "Referer": "https://reviews.example.com/review/x"})
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, true, body["success"])

	require.Len(t, f.tracker.events, 1)
	assert.Equal(t, analytics.ButtonClick, f.tracker.events[0].Type)
	assert.Equal(t, "test-agent", f.tracker.events[0].UserAgent)
	assert.Equal(t, "https://reviews.example.com/review/x", f.tracker.events[0].Referrer)

	for _, payload := range []string{
		``,
		`{"eventType":"purchase","placeId":"` + sydneyID + `"}`,
		`{"eventType":"page_view","placeId":"not-a-place"}`,
		`{"eventType":"page_view"`,
	} {
		rec, _ := f.do(t, http.MethodPost, "/api/analytics/events", payload, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, payload)
	}

	rec, _ = f.do(t, http.MethodPost, "/api/analytics/events", `{"referrer":"`+strings.Repeat("x", 20000)+`"}`, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	assert.Len(t, f.tracker.events, 1)
}

func TestAnalyticsEventTruncatesHeadersOnRuneBoundary(t *testing.T) {
	f := newFixture(t, false)

	agent := "a" + strings.Repeat("é", 600)
	referrer := "https://reviews.example.com/" + strings.Repeat("日", 1000)

	rec, _ := f.do(t, http.MethodPost, "/api/analytics/events",
		`{"eventType":"page_view","placeId":"`+sydneyID+`"}`,
		map[string]string{"User-Agent": agent, "Referer": referrer})
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, f.tracker.events, 1)

	ev := f.tracker.events[0]

	assert.True(t, utf8.ValidString(ev.UserAgent))
	assert.LessOrEqual(t, len(ev.UserAgent), 512)
	assert.Equal(t, agent[:511], ev.UserAgent)

	assert.True(t, utf8.ValidString(ev.Referrer))
	assert.LessOrEqual(t, len(ev.Referrer), 2048)
	assert.True(t, strings.HasPrefix(referrer, ev.Referrer))
	assert.Greater(t, len(ev.Referrer), 2048-utf8.UTFMax)
}

func TestAnalyticsSummary(t *testing.T) {
	tests := []struct {
		name       string
		withAuth   bool
		token      string
		query      string
		wantStatus int
		wantDays   int
		wantMax    float64
	}{
		{name: "auth required", withAuth: true, wantStatus: http.StatusUnauthorized},
		{name: "invalid token", withAuth: true, token: "bad", wantStatus: http.StatusUnauthorized},
		{name: "free user default", withAuth: true, token: "free_user", wantStatus: http.StatusOK, wantDays: 7, wantMax: 7},
		{name: "free user clamped", withAuth: true, token: "free_user", query: "?days=30", wantStatus: http.StatusOK, wantDays: 7, wantMax: 7},
		{name: "entitled default", withAuth: true, token: "pro_user", wantStatus: http.StatusOK, wantDays: 30, wantMax: 90},
		{name: "entitled clamped", withAuth: true, token: "pro_user", query: "?days=365", wantStatus: http.StatusOK, wantDays: 90, wantMax: 90},
		{name: "entitled custom", withAuth: true, token: "pro_user", query: "?days=14", wantStatus: http.StatusOK, wantDays: 14, wantMax: 90},
		{name: "invalid days", withAuth: true, token: "pro_user", query: "?days=abc", wantStatus: http.StatusBadRequest},
		{name: "no auth configured", query: "?days=3", wantStatus: http.StatusOK, wantDays: 3, wantMax: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.withAuth)

			header := map[string]string{}
			if tt.token != "" {
				header[auth.AuthHeaderName] = "Bearer " + tt.token
			}

			rec, body := f.do(t, http.MethodGet, "/api/analytics/"+sydneyID+tt.query, "", header)
			assert.Equal(t, tt.wantStatus, rec.Code)

			if tt.wantStatus != http.StatusOK {
				assert.Equal(t, false, body["success"])

				return
			}

			assert.Equal(t, sydneyID, f.summary.placeID)
			assert.Equal(t, tt.wantDays, f.summary.days)
			assert.Equal(t, tt.wantMax, body["maxDays"])
		})
	}
}

func TestAnalyticsSummaryRejectsBadPlaceID(t *testing.T) {
	f := newFixture(t, false)

	rec, _ := f.do(t, http.MethodGet, "/api/analytics/events", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscription(t *testing.T) {
	f := newFixture(t, true)

	rec, body := f.do(t, http.MethodGet, "/api/subscription", "", map[string]string{auth.AuthHeaderName: "Bearer pro_user"})
	assert.Equal(t, http.StatusOK, rec.Code)

	data := body["data"].(map[string]any)
	assert.Equal(t, "active", data["status"])
	assert.Equal(t, true, data["active"])
	assert.Equal(t, float64(5), data["businessLimit"])

	rec, _ = f.do(t, http.MethodGet, "/api/subscription", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
