package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricValueMixedTypes(t *testing.T) {
	raw := []byte(`{"heartRate": 88.5, "alcoholDetected": true}`)

	var metrics map[string]MetricValue
	require.NoError(t, json.Unmarshal(raw, &metrics))

	hr := metrics["heartRate"]
	assert.False(t, hr.IsBool)
	assert.Equal(t, 88.5, hr.Number)
	assert.Equal(t, "88.5", hr.String())

	flag := metrics["alcoholDetected"]
	assert.True(t, flag.IsBool)
	assert.True(t, flag.Bool)
	assert.Equal(t, "true", flag.String())

	// Values marshal back to bare numbers and bools.
	out, err := json.Marshal(metrics)
	require.NoError(t, err)
	assert.JSONEq(t, `{"heartRate": 88.5, "alcoholDetected": true}`, string(out))
}

func TestMetricValueRejectsStrings(t *testing.T) {
	var v MetricValue
	assert.Error(t, json.Unmarshal([]byte(`"high"`), &v))
}

func TestSnapshotValidate(t *testing.T) {
	valid := MetricSnapshot{
		DriverID:       "d1",
		OrganizationID: "org1",
		Metrics:        map[string]MetricValue{"heartRate": Num(75)},
	}
	assert.NoError(t, valid.Validate())

	missing := valid
	missing.DriverID = ""
	assert.Error(t, missing.Validate())

	empty := valid
	empty.Metrics = nil
	assert.Error(t, empty.Validate())
}
