package gmaps_test

import (
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewlink/reviewlink/gmaps"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected gmaps.ParsedInput
	}{
		{
			name:  "raw identifier",
			input: "ChIJN1t_tDeuEmsRUsoyG83frY4",
			expected: gmaps.ParsedInput{
				CanonicalID: "ChIJN1t_tDeuEmsRUsoyG83frY4",
				SourceKind:  gmaps.SourceRawIdentifier,
			},
		},
		{
			name:  "raw identifier surrounded by whitespace",
			input: "  ChIJN1t_tDeuEmsRUsoyG83frY4\n",
			expected: gmaps.ParsedInput{
				CanonicalID: "ChIJN1t_tDeuEmsRUsoyG83frY4",
				SourceKind:  gmaps.SourceRawIdentifier,
			},
		},
		{
			name:  "write review link",
			input: "https://search.google.com/local/writereview?placeid=ChIJabc123",
			expected: gmaps.ParsedInput{
				CanonicalID: "ChIJabc123",
				SourceKind:  gmaps.SourceDirectQueryParam,
			},
		},
		{
			name:  "placeid wins over cid",
			input: "https://www.google.com/maps?cid=12345&placeid=ChIJabc123",
			expected: gmaps.ParsedInput{
				CanonicalID: "ChIJabc123",
				SourceKind:  gmaps.SourceDirectQueryParam,
			},
		},
		{
			name:  "numeric cid",
			input: "https://maps.google.com/?cid=12345",
			expected: gmaps.ParsedInput{
				AuxiliaryToken:            "12345",
				SourceKind:                gmaps.SourceNumericCID,
				RequiresNetworkResolution: true,
			},
		},
		{
			name:  "non numeric cid is ignored",
			input: "https://maps.google.com/?cid=abc",
			expected: gmaps.ParsedInput{
				SourceKind: gmaps.SourceUnrecognized,
			},
		},
		{
			name:  "g.page short link",
			input: "https://g.page/r/CXlUl0ZZohrjEAE/review",
			expected: gmaps.ParsedInput{
				AuxiliaryToken:            "CXlUl0ZZohrjEAE",
				SourceKind:                gmaps.SourceShortLink,
				RequiresNetworkResolution: true,
			},
		},
		{
			name:  "maps data blob",
			input: "https://www.google.com/maps/place/Foo/@1,2,17z/data=!4m6!3m5!1sChIJN1t_tDeuEmsRUsoyG83frY4!8m2",
			expected: gmaps.ParsedInput{
				CanonicalID: "ChIJN1t_tDeuEmsRUsoyG83frY4",
				SourceKind:  gmaps.SourceMapsDataBlob,
			},
		},
		{
			name:  "maps place_id pair",
			input: "https://www.google.com/maps/search/?api=1&query=Foo&query_place_id=x&place_id=ChIJpair",
			expected: gmaps.ParsedInput{
				CanonicalID: "ChIJpair",
				SourceKind:  gmaps.SourceMapsDataBlob,
			},
		},
		{
			name:  "maps ftid",
			input: "https://www.google.com/maps/search/foo?ftid=0x14e732fd76f0d90d:0xe5415928d6702b47",
			expected: gmaps.ParsedInput{
				AuxiliaryToken:            "0x14e732fd76f0d90d:0xe5415928d6702b47",
				SourceKind:                gmaps.SourceMapsDataBlob,
				RequiresNetworkResolution: true,
			},
		},
		{
			name:  "maps place path without identifiers",
			input: "https://www.google.com/maps/place/Some+Cafe/@37.77,-122.42,17z",
			expected: gmaps.ParsedInput{
				SourceKind:                gmaps.SourceMapsDataBlob,
				RequiresNetworkResolution: true,
			},
		},
		{
			name:  "maps place path keeps hex data id",
			input: "https://www.google.com/maps/place/Kipriakon/data=!4m2!3m1!1s0x14e732fd76f0d90d:0xe5415928d6702b47!10m1!1e1",
			expected: gmaps.ParsedInput{
				AuxiliaryToken:            "0x14e732fd76f0d90d:0xe5415928d6702b47",
				SourceKind:                gmaps.SourceMapsDataBlob,
				RequiresNetworkResolution: true,
			},
		},
		{
			name:  "maps search without place",
			input: "https://www.google.com/maps/search/coffee+shop/@37.7749,-122.4194,15z",
			expected: gmaps.ParsedInput{
				SourceKind: gmaps.SourceUnrecognized,
			},
		},
		{
			name:  "maps.app.goo.gl",
			input: "https://maps.app.goo.gl/AbCdEf123",
			expected: gmaps.ParsedInput{
				SourceKind:                gmaps.SourceShortLink,
				RequiresNetworkResolution: true,
			},
		},
		{
			name:  "goo.gl",
			input: "https://goo.gl/maps/xyz",
			expected: gmaps.ParsedInput{
				SourceKind:                gmaps.SourceShortLink,
				RequiresNetworkResolution: true,
			},
		},
		{
			name:  "unrelated url",
			input: "https://example.com/page?placeid=ChIJabc",
			expected: gmaps.ParsedInput{
				SourceKind: gmaps.SourceUnrecognized,
			},
		},
		{
			name:  "plain text",
			input: "not a url at all",
			expected: gmaps.ParsedInput{
				SourceKind: gmaps.SourceUnrecognized,
			},
		},
		{
			name:  "empty",
			input: "   ",
			expected: gmaps.ParsedInput{
				SourceKind: gmaps.SourceUnrecognized,
			},
		},
		{
			name:  "unparseable http url resolves optimistically",
			input: "https://exa mple.com/x",
			expected: gmaps.ParsedInput{
				SourceKind:                gmaps.SourceUnrecognized,
				RequiresNetworkResolution: true,
			},
		},
		{
			name:  "scheme without host",
			input: "http://",
			expected: gmaps.ParsedInput{
				SourceKind:                gmaps.SourceUnrecognized,
				RequiresNetworkResolution: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gmaps.Classify(tt.input)
			assert.Equal(t, tt.expected, got)

			if got.CanonicalID != "" {
				assert.False(t, got.RequiresNetworkResolution)
			}
		})
	}
}

func TestClassifyIsIdempotentForIdentifiers(t *testing.T) {
	ids := []string{"ChIJN1t_tDeuEmsRUsoyG83frY4", "ChIJ__abjyF-j4ARmyuzGS1yOdc", "ChIJx"}

	for _, id := range ids {
		first := gmaps.Classify(id)
		second := gmaps.Classify(first.CanonicalID)

		assert.Equal(t, first, second)
		assert.Equal(t, id, first.CanonicalID)
		assert.Equal(t, gmaps.SourceRawIdentifier, first.SourceKind)
		assert.False(t, first.RequiresNetworkResolution)
	}
}

func TestSourceKindJSON(t *testing.T) {
	raw, err := json.Marshal(gmaps.Classify("https://g.page/r/abc/review"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"auxiliaryToken":"abc","sourceKind":"short_link","requiresNetworkResolution":true}`, string(raw))

	var kind gmaps.SourceKind
	require.NoError(t, kind.UnmarshalText([]byte("numeric_cid")))
	assert.Equal(t, gmaps.SourceNumericCID, kind)
	assert.Error(t, kind.UnmarshalText([]byte("bogus")))
}

func TestGenerateGoogleReviewURLRoundTrip(t *testing.T) {
	ids := []string{"ChIJN1t_tDeuEmsRUsoyG83frY4", "ChIJ-_-", "ChIJabc123"}

	for _, id := range ids {
		link := gmaps.GenerateGoogleReviewURL(id)

		u, err := url.Parse(link)
		require.NoError(t, err)
		assert.Equal(t, "search.google.com", u.Host)
		assert.Equal(t, id, u.Query().Get("placeid"))

		parsed := gmaps.Classify(link)
		assert.Equal(t, id, parsed.CanonicalID)
		assert.Equal(t, gmaps.SourceDirectQueryParam, parsed.SourceKind)
	}
}

func TestGenerateReviewPageURL(t *testing.T) {
	id := "ChIJN1t_tDeuEmsRUsoyG83frY4"

	link := gmaps.GenerateReviewPageURL(id, "https://reviews.example.com")
	assert.Equal(t, "https://reviews.example.com/review/"+id, link)

	u, err := url.Parse(link)
	require.NoError(t, err)

	segment, err := url.PathUnescape(u.EscapedPath()[len("/review/"):])
	require.NoError(t, err)
	assert.Equal(t, id, segment)

	assert.Equal(t, "https://reviews.example.com/review/"+id, gmaps.GenerateReviewPageURL(id, "https://reviews.example.com/"))
}
