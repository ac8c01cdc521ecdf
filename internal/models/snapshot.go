package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// MetricValue holds a single reading, which is either numeric (vitals) or
// boolean (detection flags). JSON encoding is the bare number or bool.
type MetricValue struct {
	Number float64
	Bool   bool
	IsBool bool
}

// Num wraps a numeric reading.
func Num(f float64) MetricValue { return MetricValue{Number: f} }

// Flag wraps a boolean reading.
func Flag(b bool) MetricValue { return MetricValue{Bool: b, IsBool: true} }

func (v MetricValue) MarshalJSON() ([]byte, error) {
	if v.IsBool {
		return json.Marshal(v.Bool)
	}
	return json.Marshal(v.Number)
}

func (v *MetricValue) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = MetricValue{Number: n}
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*v = MetricValue{Bool: b, IsBool: true}
		return nil
	}
	return fmt.Errorf("metric value must be a number or a boolean, got %s", data)
}

// String renders the value the way it appears in alert messages.
func (v MetricValue) String() string {
	if v.IsBool {
		return strconv.FormatBool(v.Bool)
	}
	return strconv.FormatFloat(v.Number, 'f', -1, 64)
}

// MetricSnapshot is the ephemeral input supplied by the health-data pipeline.
// It is discarded after evaluation.
type MetricSnapshot struct {
	DriverID       string                 `json:"driver_id"`
	DriverName     string                 `json:"driver_name"`
	OrganizationID string                 `json:"organization_id"`
	Timestamp      time.Time              `json:"timestamp"`
	Metrics        map[string]MetricValue `json:"metrics"`
}

// Validate checks the identity fields the engine cannot work without.
func (s MetricSnapshot) Validate() error {
	if s.DriverID == "" {
		return fmt.Errorf("snapshot missing driver_id")
	}
	if s.OrganizationID == "" {
		return fmt.Errorf("snapshot missing organization_id")
	}
	if len(s.Metrics) == 0 {
		return fmt.Errorf("snapshot has no metrics")
	}
	return nil
}
