package places_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewlink/reviewlink/places"
)

const testKey = "test-key"

func newClient(t *testing.T, handler http.HandlerFunc) *places.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := places.New(places.Config{
		APIKey:          testKey,
		BaseURL:         srv.URL + "/v1",
		AutocompleteURL: srv.URL + "/autocomplete/json",
	})
	require.NoError(t, err)

	return c
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := places.New(places.Config{})
	assert.ErrorIs(t, err, places.ErrMissingAPIKey)
}

func TestLookup(t *testing.T) {
	var gotPath, gotKey, gotMask string

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotKey = r.Header.Get("X-Goog-Api-Key")
		gotMask = r.Header.Get("X-Goog-FieldMask")

		fmt.Fprint(w, `{
			"id": "ChIJN1t_tDeuEmsRUsoyG83frY4",
			"displayName": {"text": "Google Sydney", "languageCode": "en"},
			"formattedAddress": "48 Pirrama Rd, Pyrmont NSW 2009, Australia",
			"rating": 4.4,
			"userRatingCount": 1203,
			"photos": [
				{"name": "places/ChIJN1t_tDeuEmsRUsoyG83frY4/photos/AbC", "widthPx": 4032, "heightPx": 3024},
				{"name": "places/ChIJN1t_tDeuEmsRUsoyG83frY4/photos/Second"}
			],
			"websiteUri": "https://about.google",
			"nationalPhoneNumber": "(02) 9374 4000"
		}`)
	})

	info, err := c.Lookup(context.Background(), "ChIJN1t_tDeuEmsRUsoyG83frY4")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "/v1/places/ChIJN1t_tDeuEmsRUsoyG83frY4", gotPath)
	assert.Equal(t, testKey, gotKey)
	assert.Equal(t, places.FieldMask, gotMask)

	assert.Equal(t, "ChIJN1t_tDeuEmsRUsoyG83frY4", info.PlaceID)
	assert.Equal(t, "Google Sydney", info.Name)
	assert.Equal(t, "48 Pirrama Rd, Pyrmont NSW 2009, Australia", info.Address)

	require.NotNil(t, info.PhotoURL)
	assert.Contains(t, *info.PhotoURL, "/v1/places/ChIJN1t_tDeuEmsRUsoyG83frY4/photos/AbC/media?")
	assert.Contains(t, *info.PhotoURL, "key=test-key")
	assert.Contains(t, *info.PhotoURL, "maxHeightPx=400")
	assert.Contains(t, *info.PhotoURL, "maxWidthPx=400")

	require.NotNil(t, info.Rating)
	assert.InDelta(t, 4.4, *info.Rating, 0.0001)
	require.NotNil(t, info.TotalRatings)
	assert.Equal(t, 1203, *info.TotalRatings)
	require.NotNil(t, info.WebsiteURI)
	assert.Equal(t, "https://about.google", *info.WebsiteURI)
	require.NotNil(t, info.PhoneNumber)
	assert.Equal(t, "(02) 9374 4000", *info.PhoneNumber)
}

func TestLookupEscapesIdentifier(t *testing.T) {
	var gotPath string

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()

		fmt.Fprint(w, `{"id":"x"}`)
	})

	_, err := c.Lookup(context.Background(), "ChIJ a/b")
	require.NoError(t, err)
	assert.Equal(t, "/v1/places/ChIJ%20a%2Fb", gotPath)
}

func TestLookupSparseResponse(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"photos": []}`)
	})

	info, err := c.Lookup(context.Background(), "ChIJsparse")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, "ChIJsparse", info.PlaceID)
	assert.Equal(t, places.UnknownBusinessName, info.Name)
	assert.Equal(t, "", info.Address)
	assert.Nil(t, info.PhotoURL)
	assert.Nil(t, info.Rating)
	assert.Nil(t, info.TotalRatings)
	assert.Nil(t, info.WebsiteURI)
	assert.Nil(t, info.PhoneNumber)

	raw, err := json.Marshal(info)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"placeId": "ChIJsparse",
		"name": "Unknown Business",
		"address": "",
		"photoUrl": null,
		"rating": null,
		"totalRatings": null
	}`, string(raw))
}

func TestLookupKeepsZeroRating(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":"ChIJzero","displayName":{"text":"  "},"rating":0,"userRatingCount":0}`)
	})

	info, err := c.Lookup(context.Background(), "ChIJzero")
	require.NoError(t, err)

	assert.Equal(t, places.UnknownBusinessName, info.Name)
	require.NotNil(t, info.Rating)
	assert.Zero(t, *info.Rating)
	require.NotNil(t, info.TotalRatings)
	assert.Zero(t, *info.TotalRatings)
}

func TestLookupDropsOutOfRangeValues(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":"ChIJodd","rating":7.5,"userRatingCount":-3}`)
	})

	info, err := c.Lookup(context.Background(), "ChIJodd")
	require.NoError(t, err)
	assert.Nil(t, info.Rating)
	assert.Nil(t, info.TotalRatings)
}

func TestLookupNotFound(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":404}}`, http.StatusNotFound)
	})

	info, err := c.Lookup(context.Background(), "ChIJmissing")
	assert.NoError(t, err)
	assert.Nil(t, info)
}

func TestLookupReusesConnectionAfterNotFound(t *testing.T) {
	var conns atomic.Int32

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"code":404,"message":"`+strings.Repeat("x", 8<<10)+`"}}`, http.StatusNotFound)
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			conns.Add(1)
		}
	}
	srv.Start()
	t.Cleanup(srv.Close)

	c, err := places.New(places.Config{APIKey: testKey, BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		info, err := c.Lookup(context.Background(), "ChIJmissing")
		require.NoError(t, err)
		require.Nil(t, info)
	}

	assert.Equal(t, int32(1), conns.Load())
}

func TestLookupOversizedResponse(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"id":"ChIJbig","displayName":{"text":"`)
		fmt.Fprint(w, strings.Repeat("a", places.MaxResponseBytes))
		fmt.Fprint(w, `"}}`)
	})

	info, err := c.Lookup(context.Background(), "ChIJbig")
	require.Error(t, err)
	assert.Nil(t, info)
	assert.Contains(t, err.Error(), "failed to decode place details")
}

func TestLookupUpstreamFailure(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusTooManyRequests, http.StatusInternalServerError} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "upstream details that must not leak", code)
			})

			info, err := c.Lookup(context.Background(), "ChIJfail")
			require.Error(t, err)
			assert.Nil(t, info)

			var statusErr *places.StatusError
			require.True(t, errors.As(err, &statusErr))
			assert.Equal(t, code, statusErr.StatusCode)
			assert.NotContains(t, err.Error(), "must not leak")
		})
	}
}

func TestLookupCancelled(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{}`)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Lookup(ctx, "ChIJx")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAutocomplete(t *testing.T) {
	var query map[string]string

	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{
			"input": r.URL.Query().Get("input"),
			"types": r.URL.Query().Get("types"),
			"key":   r.URL.Query().Get("key"),
		}

		fmt.Fprint(w, `{
			"status": "OK",
			"predictions": [
				{"place_id": "ChIJone", "description": "Blue Bottle, Oakland", "structured_formatting": {"main_text": "Blue Bottle", "secondary_text": "Oakland"}},
				{"place_id": "ChIJtwo", "description": "Blue Door Cafe"},
				{"place_id": "", "description": "dropped"}
			]
		}`)
	})

	predictions, err := c.Autocomplete(context.Background(), "blue b")
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"input": "blue b", "types": "establishment", "key": testKey}, query)
	assert.Equal(t, []places.Prediction{
		{PlaceID: "ChIJone", Name: "Blue Bottle", Address: "Oakland"},
		{PlaceID: "ChIJtwo", Name: "Blue Door Cafe", Address: ""},
	}, predictions)
}

func TestAutocompleteShortInput(t *testing.T) {
	called := false

	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		called = true

		fmt.Fprint(w, `{"status":"OK"}`)
	})

	for _, input := range []string{"", "a", " b "} {
		predictions, err := c.Autocomplete(context.Background(), input)
		require.NoError(t, err)
		assert.NotNil(t, predictions)
		assert.Empty(t, predictions)
	}

	assert.False(t, called)
}

func TestAutocompleteZeroResults(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"ZERO_RESULTS","predictions":[]}`)
	})

	predictions, err := c.Autocomplete(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Empty(t, predictions)
}

func TestAutocompleteRejected(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`)
	})

	_, err := c.Autocomplete(context.Background(), "coffee")
	assert.ErrorIs(t, err, places.ErrAutocomplete)
}

func TestAutocompleteHTTPFailure(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Autocomplete(context.Background(), "coffee")

	var statusErr *places.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}
