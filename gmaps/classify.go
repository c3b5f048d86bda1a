package gmaps

import (
	"fmt"
	"net/url"
	"strings"
)

// SourceKind names the classification rule that matched an input.
type SourceKind int

const (
	SourceUnrecognized SourceKind = iota
	SourceShortLink
	SourceDirectQueryParam
	SourceMapsDataBlob
	SourceNumericCID
	SourceRawIdentifier
)

var sourceKindNames = map[SourceKind]string{
	SourceUnrecognized:     "unrecognized",
	SourceShortLink:        "short_link",
	SourceDirectQueryParam: "direct_query_param",
	SourceMapsDataBlob:     "maps_data_blob",
	SourceNumericCID:       "numeric_cid",
	SourceRawIdentifier:    "raw_identifier",
}

func (k SourceKind) String() string {
	if name, ok := sourceKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("SourceKind(%d)", int(k))
}

func (k SourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *SourceKind) UnmarshalText(text []byte) error {
	for kind, name := range sourceKindNames {
		if name == string(text) {
			*k = kind

			return nil
		}
	}

	return fmt.Errorf("unknown source kind %q", text)
}

// ParsedInput is the outcome of Classify. Empty strings mean absent.
type ParsedInput struct {
	CanonicalID               string     `json:"canonicalId,omitempty"`
	AuxiliaryToken            string     `json:"auxiliaryToken,omitempty"`
	SourceKind                SourceKind `json:"sourceKind"`
	RequiresNetworkResolution bool       `json:"requiresNetworkResolution"`
}

const (
	googleDomain = "google.com"
	mapsSegment  = "maps"
	placeSegment = "place"
)

var (
	shortLinkHosts      = map[string]bool{"g.page": true, "www.g.page": true}
	genericShortDomains = map[string]bool{"goo.gl": true, "maps.app.goo.gl": true}
)

// Classify determines which Google URL shape input matches. It never performs
// I/O and never fails: anything it cannot make sense of is SourceUnrecognized.
// Rules are tried in order and the first match wins.
func Classify(input string) ParsedInput {
	trimmed := strings.TrimSpace(input)

	if IsPlaceID(trimmed) {
		return ParsedInput{CanonicalID: trimmed, SourceKind: SourceRawIdentifier}
	}

	u, ok := parseAbsoluteURL(trimmed)
	if !ok {
		return ParsedInput{
			SourceKind:                SourceUnrecognized,
			RequiresNetworkResolution: hasHTTPScheme(trimmed),
		}
	}

	host := strings.ToLower(u.Hostname())
	query := u.Query()

	if strings.Contains(host, googleDomain) {
		if id := firstQueryValue(u.RawQuery, "placeid"); id != "" {
			return ParsedInput{CanonicalID: id, SourceKind: SourceDirectQueryParam}
		}

		if cid := query.Get("cid"); IsNumericCID(cid) {
			return ParsedInput{
				AuxiliaryToken:            cid,
				SourceKind:                SourceNumericCID,
				RequiresNetworkResolution: true,
			}
		}
	}

	if shortLinkHosts[host] {
		return ParsedInput{
			AuxiliaryToken:            shortLinkToken(u.Path),
			SourceKind:                SourceShortLink,
			RequiresNetworkResolution: true,
		}
	}

	if strings.Contains(host, googleDomain) && hasPathSegment(u.Path, mapsSegment) {
		if parsed, ok := classifyMapsURL(u, trimmed); ok {
			return parsed
		}
	}

	if genericShortDomains[host] {
		return ParsedInput{SourceKind: SourceShortLink, RequiresNetworkResolution: true}
	}

	return ParsedInput{SourceKind: SourceUnrecognized}
}

func classifyMapsURL(u *url.URL, text string) (ParsedInput, bool) {
	if id, ok := ExtractPlaceIDFromDataBlob(text); ok {
		return ParsedInput{CanonicalID: id, SourceKind: SourceMapsDataBlob}, true
	}

	if id, ok := ExtractPlaceIDKeyValue(text); ok {
		return ParsedInput{CanonicalID: id, SourceKind: SourceMapsDataBlob}, true
	}

	if ftid, ok := ExtractFTID(text); ok {
		return ParsedInput{
			AuxiliaryToken:            ftid,
			SourceKind:                SourceMapsDataBlob,
			RequiresNetworkResolution: true,
		}, true
	}

	if hasPathSegment(u.Path, placeSegment) {
		return ParsedInput{
			AuxiliaryToken:            ExtractDataIDFromURL(text),
			SourceKind:                SourceMapsDataBlob,
			RequiresNetworkResolution: true,
		}, true
	}

	return ParsedInput{}, false
}

func parseAbsoluteURL(s string) (*url.URL, bool) {
	u, err := url.Parse(s)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, false
	}

	return u, true
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)

	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// firstQueryValue returns the first non-blank value of key, compared case
// insensitively, in the order the parameters appear in rawQuery.
func firstQueryValue(rawQuery, key string) string {
	values := orderedQueryValues(rawQuery, func(k string) bool { return strings.EqualFold(k, key) })

	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return ""
}

func hasPathSegment(path, segment string) bool {
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}

	return false
}

// shortLinkToken returns <token> from a /r/<token>/… short link path.
func shortLinkToken(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "r" && parts[i+1] != "" {
			return parts[i+1]
		}
	}

	return ""
}
