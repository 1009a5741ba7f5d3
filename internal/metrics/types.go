// internal/metrics/types.go
package metrics

import "time"

// OperationMetrics is the aggregated record of one remote batch API operation.
type OperationMetrics struct {
	Operation      string      `json:"operation"`
	LastUpdatedUTC time.Time   `json:"last_updated_utc"`
	Calls          int64       `json:"calls"`
	Errors         int64       `json:"errors"`
	Bytes          int64       `json:"bytes"`
	DurationMillis RunningStat `json:"duration_ms"`
}

// RunningStat holds the necessary values for online calculation of mean, variance, and stddev.
type RunningStat struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	M2    float64 `json:"m2"` // Sum of squares of differences from the current mean
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}
