package gmaps

import (
	"net/url"
	"strings"
)

const writeReviewURL = "https://search.google.com/local/writereview"

// GenerateGoogleReviewURL returns the Google "write a review" link for placeID.
func GenerateGoogleReviewURL(placeID string) string {
	return writeReviewURL + "?placeid=" + url.QueryEscape(placeID)
}

// GenerateReviewPageURL returns the shareable landing page link served under baseURL.
func GenerateReviewPageURL(placeID, baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/review/" + url.PathEscape(placeID)
}
