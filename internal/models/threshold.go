package models

import "strings"

// Condition describes how a reading is compared against the normal range.
type Condition string

const (
	ConditionBelow    Condition = "below"
	ConditionAbove    Condition = "above"
	ConditionOutside  Condition = "outside"
	ConditionDetected Condition = "detected"
)

// ThresholdConfig is a static rule describing a monitored parameter's normal
// range and alerting behavior. Loaded once at startup, never mutated.
type ThresholdConfig struct {
	Parameter        string
	Min              *float64
	Max              *float64
	Condition        Condition
	FlagInstances    int
	SendNotification bool
	CriticalAlert    bool
	Message          string
	Unit             string
}

// RenderMessage fills the {driver}, {value} and {unit} placeholders of the
// config's message template.
func (c ThresholdConfig) RenderMessage(driverName string, value MetricValue) string {
	r := strings.NewReplacer(
		"{driver}", driverName,
		"{value}", value.String(),
		"{unit}", c.Unit,
	)
	return r.Replace(c.Message)
}
