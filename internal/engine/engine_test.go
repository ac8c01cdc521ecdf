package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alerting-service/internal/logging"
	"alerting-service/internal/models"
	"alerting-service/internal/thresholds"
	"alerting-service/internal/tracker"
)

type fakeStore struct {
	mu          sync.Mutex
	alerts      []models.Alert
	createErr   error
	hadDeadline bool

	// findDelay widens the gap between the recency check and the insert;
	// findInflight/findOverlap record whether two checks ever ran at once.
	findDelay    time.Duration
	findInflight int32
	findOverlap  int32
}

func (f *fakeStore) CreateAlert(ctx context.Context, a models.Alert) (models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, f.hadDeadline = ctx.Deadline()
	if f.createErr != nil {
		return models.Alert{}, f.createErr
	}
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	f.alerts = append(f.alerts, a)
	return a, nil
}

func (f *fakeStore) FindRecentAlertByParameter(_ context.Context, organizationID string, typ models.AlertType, parameter string, since time.Time) (*models.Alert, error) {
	if atomic.AddInt32(&f.findInflight, 1) > 1 {
		atomic.StoreInt32(&f.findOverlap, 1)
	}
	defer atomic.AddInt32(&f.findInflight, -1)
	if f.findDelay > 0 {
		time.Sleep(f.findDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.alerts) - 1; i >= 0; i-- {
		a := f.alerts[i]
		if a.OrganizationID == organizationID && a.Type == typ && a.Parameter == parameter && !a.CreatedAt.Before(since) {
			return &a, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.alerts)
}

func newTestEngine(store *fakeStore, reg *thresholds.Registry) *Engine {
	return New(store, reg, tracker.New(), logging.NewNop(), nil, Options{})
}

func healthParams(parameter string) HealthAlertParams {
	return HealthAlertParams{
		DriverID:         "d1",
		DriverName:       "Alex Carter",
		Parameter:        parameter,
		Value:            models.Num(120),
		ThresholdKey:     parameter,
		OrganizationID:   "org1",
		SendNotification: true,
		Message:          "out of range",
	}
}

func TestCreateHealthAlertDeduplicates(t *testing.T) {
	store := &fakeStore{}
	e := newTestEngine(store, thresholds.Default())
	ctx := context.Background()

	first, err := e.CreateHealthAlert(ctx, healthParams("heartRate"))
	require.NoError(t, err)
	require.NotNil(t, first)

	// Same organization and parameter inside the window: suppressed no-op.
	second, err := e.CreateHealthAlert(ctx, healthParams("heartRate"))
	require.NoError(t, err)
	assert.Nil(t, second)
	assert.Equal(t, 1, store.count())

	// A different parameter is a different dedup key.
	third, err := e.CreateHealthAlert(ctx, healthParams("stressLevel"))
	require.NoError(t, err)
	assert.NotNil(t, third)
	assert.Equal(t, 2, store.count())
}

func TestCreateHealthAlertSeverity(t *testing.T) {
	store := &fakeStore{}
	e := newTestEngine(store, thresholds.Default())

	p := healthParams("heartRate")
	created, err := e.CreateHealthAlert(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityWarning, created.Severity)

	p = healthParams("oxygenSaturation")
	p.IsCritical = true
	created, err = e.CreateHealthAlert(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityCritical, created.Severity)
	assert.Equal(t, "Critical Health Alert: oxygenSaturation", created.Title)
	require.NotNil(t, created.Metadata.Health)
	assert.True(t, created.Metadata.Health.SendNotification)
}

func TestProcessSnapshotInstanceGate(t *testing.T) {
	store := &fakeStore{}
	e := newTestEngine(store, thresholds.Default())

	snapshot := models.MetricSnapshot{
		DriverID:       "d1",
		DriverName:     "Alex Carter",
		OrganizationID: "org1",
		Timestamp:      time.Now(),
		Metrics:        map[string]models.MetricValue{"heartRate": models.Num(130)},
	}

	// heartRate requires two same-day violations before escalating.
	e.ProcessSnapshot(snapshot)
	assert.Equal(t, 0, store.count())

	e.ProcessSnapshot(snapshot)
	assert.Equal(t, 1, store.count())
}

func TestProcessSnapshotOxygenSaturationScenario(t *testing.T) {
	store := &fakeStore{}
	e := newTestEngine(store, thresholds.Default())

	e.ProcessSnapshot(models.MetricSnapshot{
		DriverID:       "d1",
		DriverName:     "Alex Carter",
		OrganizationID: "org1",
		Timestamp:      time.Now(),
		Metrics:        map[string]models.MetricValue{"oxygenSaturation": models.Num(88)},
	})

	// flagInstances=1, so the very first low reading creates a CRITICAL alert.
	require.Equal(t, 1, store.count())
	a := store.alerts[0]
	assert.Equal(t, models.AlertTypeHealth, a.Type)
	assert.Equal(t, models.SeverityCritical, a.Severity)
	assert.Contains(t, a.Message, "Alex Carter")
	assert.Contains(t, a.Message, "88")
}

func TestProcessSnapshotNormalReadingsCreateNothing(t *testing.T) {
	store := &fakeStore{}
	e := newTestEngine(store, thresholds.Default())

	e.ProcessSnapshot(models.MetricSnapshot{
		DriverID:       "d1",
		DriverName:     "Alex Carter",
		OrganizationID: "org1",
		Metrics: map[string]models.MetricValue{
			"heartRate":        models.Num(75),
			"oxygenSaturation": models.Num(98),
		},
	})
	assert.Equal(t, 0, store.count())
}

func TestProcessSnapshotUnknownParameterSkipped(t *testing.T) {
	store := &fakeStore{}
	e := newTestEngine(store, thresholds.Default())

	e.ProcessSnapshot(models.MetricSnapshot{
		DriverID:       "d1",
		DriverName:     "Alex Carter",
		OrganizationID: "org1",
		Metrics: map[string]models.MetricValue{
			"bloodGlucose":     models.Num(500),
			"oxygenSaturation": models.Num(85),
		},
	})

	// The unknown parameter is skipped, the known one still escalates.
	assert.Equal(t, 1, store.count())
}

func TestDetectionAlertsBypassDedup(t *testing.T) {
	store := &fakeStore{}
	e := newTestEngine(store, thresholds.Default())
	ctx := context.Background()
	p := DetectionParams{DriverID: "d1", DriverName: "Alex Carter", OrganizationID: "org1"}

	first, err := e.CreateAlcoholAlert(ctx, p)
	require.NoError(t, err)
	second, err := e.CreateAlcoholAlert(ctx, p)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.AlertTypeAlcoholDetected, first.Type)
	assert.Equal(t, models.SeverityCritical, first.Severity)

	drowsy, err := e.CreateDrowsinessAlert(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, models.AlertTypeSafety, drowsy.Type)
	assert.Equal(t, models.SeverityCritical, drowsy.Severity)

	assert.Equal(t, 3, store.count())
}

func TestConcurrentHealthAlertsSameKeyCreateOne(t *testing.T) {
	// Slow the recency check down so two unserialized callers would both see
	// an empty store and both insert. The per-key lock must prevent that.
	store := &fakeStore{findDelay: 20 * time.Millisecond}
	e := newTestEngine(store, thresholds.Default())

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.CreateHealthAlert(context.Background(), healthParams("heartRate"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.count())
	assert.Zero(t, atomic.LoadInt32(&store.findOverlap),
		"recency checks for the same key must not run concurrently")
}

func TestDifferentKeysDoNotSerialize(t *testing.T) {
	store := &fakeStore{}
	e := newTestEngine(store, thresholds.Default())

	var wg sync.WaitGroup
	for _, p := range []string{"heartRate", "stressLevel", "bodyTemperature"} {
		wg.Add(1)
		go func(parameter string) {
			defer wg.Done()
			_, err := e.CreateHealthAlert(context.Background(), healthParams(parameter))
			assert.NoError(t, err)
		}(p)
	}
	wg.Wait()

	assert.Equal(t, 3, store.count())
}

func TestStoreCallsCarryDeadline(t *testing.T) {
	store := &fakeStore{}
	e := newTestEngine(store, thresholds.Default())

	_, err := e.CreateAlcoholAlert(context.Background(), DetectionParams{
		DriverID: "d1", DriverName: "Alex Carter", OrganizationID: "org1",
	})
	require.NoError(t, err)
	assert.True(t, store.hadDeadline, "detection inserts must be bounded by the store timeout")

	store.hadDeadline = false
	_, err = e.CreateHealthAlert(context.Background(), healthParams("oxygenSaturation"))
	require.NoError(t, err)
	assert.True(t, store.hadDeadline, "health inserts must be bounded by the store timeout")
}

func TestCreateHealthAlertStoreFailure(t *testing.T) {
	store := &fakeStore{createErr: fmt.Errorf("connection refused")}
	e := newTestEngine(store, thresholds.Default())

	created, err := e.CreateHealthAlert(context.Background(), healthParams("heartRate"))
	require.Error(t, err)
	assert.Nil(t, created)

	// ProcessSnapshot swallows the same failure without panicking.
	e.ProcessSnapshot(models.MetricSnapshot{
		DriverID:       "d1",
		DriverName:     "Alex Carter",
		OrganizationID: "org1",
		Metrics:        map[string]models.MetricValue{"oxygenSaturation": models.Num(80)},
	})
}
