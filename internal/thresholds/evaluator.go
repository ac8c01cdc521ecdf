package thresholds

import "alerting-service/internal/models"

// Result of evaluating one reading against its config.
type Result struct {
	IsAlert    bool
	IsCritical bool
}

// Evaluate compares a reading against its threshold config. Pure, no side
// effects. Boundary values are non-alerting: for an outside config with
// min=60/max=100, readings of exactly 60 or 100 pass. A reading whose type
// does not match the condition (a bool against a numeric range, or vice versa)
// yields no alert rather than an error.
func Evaluate(cfg models.ThresholdConfig, value models.MetricValue) Result {
	alert := false
	switch cfg.Condition {
	case models.ConditionBelow:
		if !value.IsBool && cfg.Min != nil {
			alert = value.Number < *cfg.Min
		}
	case models.ConditionAbove:
		if !value.IsBool && cfg.Max != nil {
			alert = value.Number > *cfg.Max
		}
	case models.ConditionOutside:
		if !value.IsBool && cfg.Min != nil && cfg.Max != nil {
			alert = value.Number < *cfg.Min || value.Number > *cfg.Max
		}
	case models.ConditionDetected:
		alert = value.IsBool && value.Bool
	}
	return Result{
		IsAlert:    alert,
		IsCritical: alert && cfg.CriticalAlert,
	}
}
