package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordCountsSameDay(t *testing.T) {
	tr := New()

	assert.Equal(t, 1, tr.Record("d1", "heartRate"))
	assert.Equal(t, 2, tr.Record("d1", "heartRate"))

	// Different driver and different parameter are independent keys.
	assert.Equal(t, 1, tr.Record("d2", "heartRate"))
	assert.Equal(t, 1, tr.Record("d1", "oxygenSaturation"))
}

func TestRecordResetsAcrossMidnight(t *testing.T) {
	tr := New()
	day1 := time.Date(2026, 3, 10, 23, 50, 0, 0, time.Local)
	tr.now = func() time.Time { return day1 }

	assert.Equal(t, 1, tr.Record("d1", "heartRate"))

	// Ten minutes later it is a new calendar day: yesterday's violation no
	// longer counts.
	tr.now = func() time.Time { return day1.Add(10 * time.Minute) }
	assert.Equal(t, 1, tr.Record("d1", "heartRate"))
	assert.Equal(t, 1, tr.Count("d1", "heartRate"))
}

func TestCountDoesNotRecord(t *testing.T) {
	tr := New()
	assert.Equal(t, 0, tr.Count("d1", "heartRate"))
	tr.Record("d1", "heartRate")
	assert.Equal(t, 1, tr.Count("d1", "heartRate"))
	assert.Equal(t, 1, tr.Count("d1", "heartRate"))
}

func TestReset(t *testing.T) {
	tr := New()
	tr.Record("d1", "heartRate")
	tr.Reset()
	assert.Equal(t, 0, tr.Count("d1", "heartRate"))
}
