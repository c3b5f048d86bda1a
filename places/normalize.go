package places

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	UnknownBusinessName = "Unknown Business"

	photoMaxPx = 400
)

// normalize turns an upstream place resource into a BusinessInfo. All
// knowledge about the provider's field names stays in this file.
func normalize(resp *placeResponse, requestedID, mediaBaseURL, apiKey string) *BusinessInfo {
	info := BusinessInfo{
		PlaceID: resp.ID,
		Name:    UnknownBusinessName,
		Address: strings.TrimSpace(resp.FormattedAddress),
	}

	if info.PlaceID == "" {
		info.PlaceID = requestedID
	}

	if resp.DisplayName != nil && strings.TrimSpace(resp.DisplayName.Text) != "" {
		info.Name = resp.DisplayName.Text
	}

	if len(resp.Photos) > 0 && resp.Photos[0].Name != "" {
		photo := buildPhotoURL(mediaBaseURL, resp.Photos[0].Name, apiKey)
		info.PhotoURL = &photo
	}

	if resp.Rating != nil && *resp.Rating >= 0 && *resp.Rating <= 5 {
		rating := *resp.Rating
		info.Rating = &rating
	}

	if resp.UserRatingCount != nil && *resp.UserRatingCount >= 0 {
		count := *resp.UserRatingCount
		info.TotalRatings = &count
	}

	info.WebsiteURI = optional(resp.WebsiteURI)
	info.PhoneNumber = optional(resp.NationalPhoneNumber)

	return &info
}

// buildPhotoURL returns <base>/<photo name>/media with the key and the fixed
// size bounds. The resource name already contains "places/<id>/photos/<ref>".
func buildPhotoURL(base, name, apiKey string) string {
	q := url.Values{}
	q.Set("key", apiKey)
	q.Set("maxHeightPx", strconv.Itoa(photoMaxPx))
	q.Set("maxWidthPx", strconv.Itoa(photoMaxPx))

	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(name, "/") + "/media?" + q.Encode()
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func toPrediction(p autocompletePrediction) Prediction {
	name := p.StructuredFormatting.MainText
	if name == "" {
		name = p.Description
	}

	return Prediction{
		PlaceID: p.PlaceID,
		Name:    name,
		Address: p.StructuredFormatting.SecondaryText,
	}
}
