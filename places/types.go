package places

// BusinessInfo is the normalized result of a place lookup.
type BusinessInfo struct {
	PlaceID      string   `json:"placeId"`
	Name         string   `json:"name"`
	Address      string   `json:"address"`
	PhotoURL     *string  `json:"photoUrl"`
	Rating       *float64 `json:"rating"`
	TotalRatings *int     `json:"totalRatings"`
	WebsiteURI   *string  `json:"websiteUri,omitempty"`
	PhoneNumber  *string  `json:"phoneNumber,omitempty"`
}

// Prediction is a single autocomplete suggestion.
type Prediction struct {
	PlaceID string `json:"placeId"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// placeResponse mirrors the subset of the Places API (New) place resource
// requested through the field mask.
type placeResponse struct {
	ID          string `json:"id"`
	DisplayName *struct {
		Text         string `json:"text"`
		LanguageCode string `json:"languageCode"`
	} `json:"displayName"`
	FormattedAddress    string       `json:"formattedAddress"`
	Rating              *float64     `json:"rating"`
	UserRatingCount     *int         `json:"userRatingCount"`
	Photos              []placePhoto `json:"photos"`
	WebsiteURI          string       `json:"websiteUri"`
	NationalPhoneNumber string       `json:"nationalPhoneNumber"`
}

type placePhoto struct {
	Name     string `json:"name"`
	WidthPx  int    `json:"widthPx"`
	HeightPx int    `json:"heightPx"`
}

type autocompleteResponse struct {
	Status       string                   `json:"status"`
	ErrorMessage string                   `json:"error_message"`
	Predictions  []autocompletePrediction `json:"predictions"`
}

type autocompletePrediction struct {
	PlaceID              string `json:"place_id"`
	Description          string `json:"description"`
	StructuredFormatting struct {
		MainText      string `json:"main_text"`
		SecondaryText string `json:"secondary_text"`
	} `json:"structured_formatting"`
}
