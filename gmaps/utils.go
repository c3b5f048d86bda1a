package gmaps

import (
	"net/url"
	"regexp"
	"strings"
)

// PlaceIDPrefix is the fixed prefix every canonical place identifier starts with.
const PlaceIDPrefix = "ChIJ"

var (
	placeIDShape = regexp.MustCompile(`^ChIJ[A-Za-z0-9_-]+$`)

	// !1s<id> is the classic data blob field, !19s<id> is what search result links carry.
	dataBlobPattern = regexp.MustCompile(`!(?:1|19)s(ChIJ[A-Za-z0-9_-]+)`)

	placeIDKeyValuePattern = regexp.MustCompile(`place_id[=:]([^&/]+)`)

	// tolerant of "place_id": "…", placeId='…', \"place_id\":\"…\" and friends
	looseBodyPlaceIDPattern = regexp.MustCompile(`(?i)place_?id\\?["']?\s*[:=]\s*\\?["']?(ChIJ[A-Za-z0-9_-]+)`)

	standalonePlaceIDPattern = regexp.MustCompile(`(?:^|[^A-Za-z0-9_-])(ChIJ[A-Za-z0-9_-]+)`)

	barePlaceIDPattern = regexp.MustCompile(`ChIJ[A-Za-z0-9_-]+`)

	ftidPattern = regexp.MustCompile(`(?i)ftid=(0x[0-9a-f]+:0x[0-9a-f]+)`)

	dataIDPattern = regexp.MustCompile(`1s(0x[a-f0-9]+:0x[a-f0-9]+)`)

	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
)

// IsPlaceID reports whether s has the shape of a canonical place identifier.
// Values failing this check must never reach the places API.
func IsPlaceID(s string) bool {
	return placeIDShape.MatchString(s)
}

// ExtractPlaceIDFromQuery returns the value of a placeid/place_id query
// parameter of rawURL. Keys are matched case-insensitively and only values
// with the canonical shape are accepted.
func ExtractPlaceIDFromQuery(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	isPlaceIDKey := func(key string) bool {
		return strings.EqualFold(key, "placeid") || strings.EqualFold(key, "place_id")
	}

	for _, v := range orderedQueryValues(u.RawQuery, isPlaceIDKey) {
		if IsPlaceID(v) {
			return v, true
		}
	}

	return "", false
}

// orderedQueryValues returns the values of the keys accepted by match in the
// order they appear in rawQuery. Pairs that fail to unescape are skipped.
func orderedQueryValues(rawQuery string, match func(key string) bool) []string {
	var ans []string

	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")

		key, err := url.QueryUnescape(key)
		if err != nil || !match(key) {
			continue
		}

		value, err = url.QueryUnescape(value)
		if err != nil {
			continue
		}

		ans = append(ans, value)
	}

	return ans
}

// ExtractPlaceIDFromDataBlob finds a place id embedded in the data= blob of a
// maps URL.
//
// Example:
//
//	Input:  "https://www.google.com/maps/place/Blue+Bottle+Coffee/data=!4m7!3m6!1s0x80858098babc2d4b:0xbeedd659cc698c92!16s%2Fm%2F03p12r2!19sChIJSy28upiAhYARkoxpzFnW7b4"
//	Output: "ChIJSy28upiAhYARkoxpzFnW7b4"
func ExtractPlaceIDFromDataBlob(s string) (string, bool) {
	return firstSubmatch(dataBlobPattern, s)
}

// ExtractPlaceIDKeyValue finds a "place_id=" or "place_id:" pair in s. The value
// is returned as found, shape is not checked.
func ExtractPlaceIDKeyValue(s string) (string, bool) {
	return firstSubmatch(placeIDKeyValuePattern, s)
}

// ExtractLoosePlaceID finds a place_id key followed by a place id anywhere in a
// page body, including JSON and JS-embedded metadata.
func ExtractLoosePlaceID(body string) (string, bool) {
	return firstSubmatch(looseBodyPlaceIDPattern, body)
}

// ExtractStandalonePlaceID finds a place id that is not glued to other
// identifier characters on its left.
func ExtractStandalonePlaceID(body string) (string, bool) {
	return firstSubmatch(standalonePlaceIDPattern, body)
}

// ExtractBarePlaceID finds the first occurrence of the place id pattern in s.
func ExtractBarePlaceID(s string) (string, bool) {
	m := barePlaceIDPattern.FindString(s)

	return m, m != ""
}

// ExtractFTID extracts the ftid=0x…:0x… parameter used by some maps links.
func ExtractFTID(s string) (string, bool) {
	return firstSubmatch(ftidPattern, s)
}

// ExtractDataIDFromURL extracts the DataID (0x[hex1]:0x[hex2]) from Google Maps URLs.
//
// Pattern: /maps/place/Name/data=!4m7!3m6!1s0x[hex1]:0x[hex2]!...
// Returns: "0x[hex1]:0x[hex2]" or empty string if not found
func ExtractDataIDFromURL(u string) string {
	m, _ := firstSubmatch(dataIDPattern, u)

	return m
}

// IsNumericCID reports whether s looks like a decimal customer id.
func IsNumericCID(s string) bool {
	return digitsPattern.MatchString(s)
}

func firstSubmatch(re *regexp.Regexp, s string) (string, bool) {
	matches := re.FindStringSubmatch(s)
	if len(matches) < 2 || matches[1] == "" {
		return "", false
	}

	return matches[1], true
}
