// Package engine runs the alerting pipeline: snapshots from the health-data
// pipeline are evaluated against the threshold registry, gated by the
// same-day instance tracker, deduplicated against the store and persisted as
// alerts. The whole path is fire-and-forget relative to ingestion: store
// failures are logged and counted, never propagated back to the caller.
package engine

import (
	"context"
	"sync"
	"time"

	"alerting-service/internal/logging"
	"alerting-service/internal/metrics"
	"alerting-service/internal/models"
	"alerting-service/internal/thresholds"
	"alerting-service/internal/tracker"
)

// AlertStore is the slice of the persistent store the engine needs.
type AlertStore interface {
	CreateAlert(ctx context.Context, a models.Alert) (models.Alert, error)
	FindRecentAlertByParameter(ctx context.Context, organizationID string, typ models.AlertType, parameter string, since time.Time) (*models.Alert, error)
}

// Broadcaster pushes created alerts to live dashboard connections.
type Broadcaster interface {
	BroadcastAlert(alert models.Alert)
}

// Options tune the engine's queue, worker pool and timing.
type Options struct {
	QueueSize    int
	MaxWorkers   int
	DedupWindow  time.Duration
	StoreTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 500
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = 4
	}
	if o.DedupWindow <= 0 {
		o.DedupWindow = time.Hour
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 5 * time.Second
	}
	return o
}

// Engine owns its tracker and registry explicitly; construct one per process
// (or per test) rather than sharing module-level state.
type Engine struct {
	store    AlertStore
	registry *thresholds.Registry
	tracker  *tracker.Tracker
	logger   *logging.Logger
	hub      Broadcaster

	snapshots chan models.MetricSnapshot
	ctx       context.Context
	cancel    context.CancelFunc
	wg        *sync.WaitGroup
	opts      Options

	// dedupLocks serializes the check-then-insert in CreateHealthAlert per
	// (organization, parameter), so concurrent workers cannot both pass the
	// recency check. The map is bounded by organizations x parameters.
	dedupMu    sync.Mutex
	dedupLocks map[string]*sync.Mutex

	now func() time.Time
}

// New constructs an engine. hub may be nil.
func New(store AlertStore, registry *thresholds.Registry, tr *tracker.Tracker, logger *logging.Logger, hub Broadcaster, opts Options) *Engine {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		store:      store,
		registry:   registry,
		tracker:    tr,
		logger:     logger,
		hub:        hub,
		snapshots:  make(chan models.MetricSnapshot, opts.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
		opts:       opts,
		dedupLocks: make(map[string]*sync.Mutex),
		now:        time.Now,
	}
}

// Start launches the worker pool.
func (e *Engine) Start(wg *sync.WaitGroup) {
	e.wg = wg
	for i := 0; i < e.opts.MaxWorkers; i++ {
		e.wg.Add(1)
		go e.worker(i)
	}
}

// Stop cancels the workers. Pending queue entries are discarded.
func (e *Engine) Stop() {
	e.cancel()
}

// Enqueue hands a snapshot to the worker pool. A full queue drops the
// snapshot rather than blocking the ingestion path.
func (e *Engine) Enqueue(s models.MetricSnapshot) {
	select {
	case e.snapshots <- s:
	default:
		metrics.SnapshotsDropped.Inc()
		e.logger.Errorf("Queue full, dropping snapshot for driver %s", s.DriverID)
	}
}

func (e *Engine) worker(id int) {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			e.logger.Infof("Engine worker %d stopped", id)
			return
		case s := <-e.snapshots:
			e.ProcessSnapshot(s)
		}
	}
}

// ProcessSnapshot evaluates every metric in the snapshot. Unknown parameters
// and store failures are logged and counted but never abort the remaining
// metrics.
func (e *Engine) ProcessSnapshot(s models.MetricSnapshot) {
	metrics.SnapshotsProcessed.Inc()

	for parameter, value := range s.Metrics {
		cfg, err := e.registry.Get(parameter)
		if err != nil {
			metrics.AlertsSuppressed.WithLabelValues("unknown_parameter").Inc()
			e.logger.Warnf("Snapshot for driver %s carries unmonitored parameter %q", s.DriverID, parameter)
			continue
		}

		res := thresholds.Evaluate(cfg, value)
		if !res.IsAlert {
			continue
		}

		count := e.tracker.Record(s.DriverID, parameter)
		if count < cfg.FlagInstances {
			metrics.AlertsSuppressed.WithLabelValues("instance_gate").Inc()
			e.logger.Debugf("Violation %d/%d for driver %s parameter %s, holding back",
				count, cfg.FlagInstances, s.DriverID, parameter)
			continue
		}

		_, err = e.CreateHealthAlert(e.ctx, HealthAlertParams{
			DriverID:         s.DriverID,
			DriverName:       s.DriverName,
			Parameter:        parameter,
			Value:            value,
			ThresholdKey:     cfg.Parameter,
			IsCritical:       res.IsCritical,
			OrganizationID:   s.OrganizationID,
			SendNotification: cfg.SendNotification,
			Unit:             cfg.Unit,
			Message:          cfg.RenderMessage(s.DriverName, value),
		})
		if err != nil {
			e.logger.Errorf("Failed to create health alert for driver %s parameter %s: %v", s.DriverID, parameter, err)
		}
	}
}

// HealthAlertParams describe one confirmed threshold violation.
type HealthAlertParams struct {
	DriverID         string
	DriverName       string
	Parameter        string
	Value            models.MetricValue
	ThresholdKey     string
	IsCritical       bool
	OrganizationID   string
	SendNotification bool
	Unit             string
	Message          string
}

// CreateHealthAlert persists a HEALTH alert unless one with the same exact
// key (organization, HEALTH, parameter) was already created inside the dedup
// window. A suppressed duplicate is a normal no-op and returns (nil, nil).
// The recency check and the insert run under a per-key lock; without it two
// workers confirming the same parameter could both miss the existing alert
// and insert twice.
func (e *Engine) CreateHealthAlert(ctx context.Context, p HealthAlertParams) (*models.Alert, error) {
	mu := e.dedupLock(p.OrganizationID, p.Parameter)
	mu.Lock()
	defer mu.Unlock()

	ctx, cancel := e.boundStoreCtx(ctx)
	defer cancel()

	since := e.now().Add(-e.opts.DedupWindow)
	existing, err := e.store.FindRecentAlertByParameter(ctx, p.OrganizationID, models.AlertTypeHealth, p.Parameter, since)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("find_recent_alert").Inc()
		return nil, err
	}
	if existing != nil {
		metrics.AlertsSuppressed.WithLabelValues("dedup").Inc()
		e.logger.Debugf("Duplicate health alert for org %s parameter %s suppressed", p.OrganizationID, p.Parameter)
		return nil, nil
	}

	severity := models.SeverityWarning
	if p.IsCritical {
		severity = models.SeverityCritical
	}

	alert := models.Alert{
		Title:          "Critical Health Alert: " + p.Parameter,
		Message:        p.Message,
		Type:           models.AlertTypeHealth,
		Severity:       severity,
		Parameter:      p.Parameter,
		OrganizationID: p.OrganizationID,
		Metadata: models.NewHealthMetadata(models.HealthMetadata{
			DriverID:         p.DriverID,
			DriverName:       p.DriverName,
			Parameter:        p.Parameter,
			Value:            p.Value,
			Threshold:        p.ThresholdKey,
			Unit:             p.Unit,
			SendNotification: p.SendNotification,
		}),
	}
	return e.persist(ctx, alert)
}

// DetectionParams describe an externally detected event (alcohol, drowsiness).
type DetectionParams struct {
	DriverID       string
	DriverName     string
	OrganizationID string
	Detail         string
}

// CreateAlcoholAlert unconditionally creates a CRITICAL alcohol-detection
// alert. No threshold machinery, no dedup check: the caller decides when to
// invoke it.
func (e *Engine) CreateAlcoholAlert(ctx context.Context, p DetectionParams) (*models.Alert, error) {
	return e.createDetectionAlert(ctx, models.AlertTypeAlcoholDetected,
		"Alcohol Detection Alert",
		"Alcohol detected for driver "+p.DriverName, p)
}

// CreateDrowsinessAlert unconditionally creates a CRITICAL safety alert for a
// drowsiness detection. Same bypass semantics as CreateAlcoholAlert.
func (e *Engine) CreateDrowsinessAlert(ctx context.Context, p DetectionParams) (*models.Alert, error) {
	return e.createDetectionAlert(ctx, models.AlertTypeSafety,
		"Drowsiness Alert",
		"Drowsiness detected for driver "+p.DriverName, p)
}

func (e *Engine) createDetectionAlert(ctx context.Context, typ models.AlertType, title, message string, p DetectionParams) (*models.Alert, error) {
	ctx, cancel := e.boundStoreCtx(ctx)
	defer cancel()

	alert := models.Alert{
		Title:          title,
		Message:        message,
		Type:           typ,
		Severity:       models.SeverityCritical,
		OrganizationID: p.OrganizationID,
		Metadata: models.NewDetectionMetadata(models.DetectionMetadata{
			DriverID:   p.DriverID,
			DriverName: p.DriverName,
			Detail:     p.Detail,
		}),
	}
	return e.persist(ctx, alert)
}

func (e *Engine) dedupLock(organizationID, parameter string) *sync.Mutex {
	key := organizationID + "\x00" + parameter
	e.dedupMu.Lock()
	defer e.dedupMu.Unlock()
	mu, ok := e.dedupLocks[key]
	if !ok {
		mu = &sync.Mutex{}
		e.dedupLocks[key] = mu
	}
	return mu
}

// boundStoreCtx caps store round trips at StoreTimeout so a stalled database
// cannot wedge a worker or a consumer goroutine. Callers that already carry a
// deadline keep their own.
func (e *Engine) boundStoreCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, e.opts.StoreTimeout)
}

func (e *Engine) persist(ctx context.Context, alert models.Alert) (*models.Alert, error) {
	created, err := e.store.CreateAlert(ctx, alert)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("create_alert").Inc()
		return nil, err
	}
	metrics.AlertsCreated.WithLabelValues(string(created.Type), string(created.Severity)).Inc()
	e.logger.Infof("Created %s alert %s for org %s", created.Type, created.ID, created.OrganizationID)
	if e.hub != nil {
		e.hub.BroadcastAlert(created)
	}
	return &created, nil
}
