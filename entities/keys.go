package entities

import "time"

const DayLayout = "2006-01-02"

func PlaceCacheKey(placeID string) string {
	return "places/" + placeID
}

func AnalyticsTotalsKey(placeID string) string {
	return "analytics/" + placeID
}

func AnalyticsDailyKey(placeID string, day time.Time) string {
	return "analytics/" + placeID + "/daily/" + day.UTC().Format(DayLayout)
}

func SubscriptionKey(userID string) string {
	return "users/" + userID + "/subscription"
}
