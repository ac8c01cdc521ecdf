package thresholds

import (
	"fmt"

	"alerting-service/internal/models"
)

// ErrUnknownParameter is returned when a snapshot carries a metric no config
// exists for. The source of such a metric is misconfigured and should be
// observable, not silently ignored.
var ErrUnknownParameter = fmt.Errorf("unknown threshold parameter")

// Registry is the static table of monitored parameters.
type Registry struct {
	configs map[string]models.ThresholdConfig
}

// NewRegistry builds a registry from the given configs.
func NewRegistry(configs ...models.ThresholdConfig) *Registry {
	m := make(map[string]models.ThresholdConfig, len(configs))
	for _, c := range configs {
		if c.FlagInstances < 1 {
			c.FlagInstances = 1
		}
		m[c.Parameter] = c
	}
	return &Registry{configs: m}
}

// Get returns the config for a parameter or ErrUnknownParameter.
func (r *Registry) Get(parameter string) (models.ThresholdConfig, error) {
	c, ok := r.configs[parameter]
	if !ok {
		return models.ThresholdConfig{}, fmt.Errorf("%w: %q", ErrUnknownParameter, parameter)
	}
	return c, nil
}

// Parameters returns the monitored parameter keys.
func (r *Registry) Parameters() []string {
	keys := make([]string, 0, len(r.configs))
	for k := range r.configs {
		keys = append(keys, k)
	}
	return keys
}

func f(v float64) *float64 { return &v }

// Default returns the registry of fleet health parameters monitored by the
// dashboard.
func Default() *Registry {
	return NewRegistry(
		models.ThresholdConfig{
			Parameter:        "heartRate",
			Min:              f(60),
			Max:              f(100),
			Condition:        models.ConditionOutside,
			FlagInstances:    2,
			SendNotification: true,
			CriticalAlert:    false,
			Message:          "Driver {driver} heart rate of {value} {unit} is outside the normal range",
			Unit:             "bpm",
		},
		models.ThresholdConfig{
			Parameter:        "oxygenSaturation",
			Min:              f(90),
			Condition:        models.ConditionBelow,
			FlagInstances:    1,
			SendNotification: true,
			CriticalAlert:    true,
			Message:          "Driver {driver} oxygen saturation of {value}{unit} is below safe levels",
			Unit:             "%",
		},
		models.ThresholdConfig{
			Parameter:        "bodyTemperature",
			Min:              f(35.0),
			Max:              f(38.0),
			Condition:        models.ConditionOutside,
			FlagInstances:    2,
			SendNotification: true,
			CriticalAlert:    false,
			Message:          "Driver {driver} body temperature of {value}{unit} is outside the normal range",
			Unit:             "°C",
		},
		models.ThresholdConfig{
			Parameter:        "systolicPressure",
			Min:              f(90),
			Max:              f(140),
			Condition:        models.ConditionOutside,
			FlagInstances:    2,
			SendNotification: true,
			CriticalAlert:    false,
			Message:          "Driver {driver} systolic pressure of {value} {unit} is outside the normal range",
			Unit:             "mmHg",
		},
		models.ThresholdConfig{
			Parameter:        "diastolicPressure",
			Min:              f(60),
			Max:              f(90),
			Condition:        models.ConditionOutside,
			FlagInstances:    2,
			SendNotification: true,
			CriticalAlert:    false,
			Message:          "Driver {driver} diastolic pressure of {value} {unit} is outside the normal range",
			Unit:             "mmHg",
		},
		models.ThresholdConfig{
			Parameter:        "stressLevel",
			Max:              f(80),
			Condition:        models.ConditionAbove,
			FlagInstances:    3,
			SendNotification: true,
			CriticalAlert:    false,
			Message:          "Driver {driver} stress level of {value}{unit} is above the acceptable limit",
			Unit:             "%",
		},
		models.ThresholdConfig{
			Parameter:        "irregularHeartbeat",
			Condition:        models.ConditionDetected,
			FlagInstances:    1,
			SendNotification: true,
			CriticalAlert:    true,
			Message:          "Irregular heartbeat detected for driver {driver}",
		},
	)
}
