package tasks

import "github.com/reviewlink/reviewlink/analytics"

// Task types
const (
	TypeAnalyticsRecord = analytics.TaskTypeRecord
	TypeHealthCheck     = "health:check"
)

// AnalyticsPayload is the JSON body of a TypeAnalyticsRecord task.
type AnalyticsPayload = analytics.Event
