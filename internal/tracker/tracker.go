// Package tracker counts same-day threshold violations per driver and
// parameter, so single-sample spikes do not escalate into alerts.
//
// Counters are process-lifetime, in-memory state: a restart resets every
// count. This is a deliberate best-effort trade — the gate filters noise
// within one day and losing at most flagInstances-1 samples across a restart
// keeps the hot path off the store.
package tracker

import (
	"sync"
	"time"
)

type key struct {
	driverID  string
	parameter string
}

// Tracker records violation timestamps keyed by (driver, parameter).
type Tracker struct {
	mu          sync.Mutex
	occurrences map[key][]time.Time
	now         func() time.Time
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{
		occurrences: make(map[key][]time.Time),
		now:         time.Now,
	}
}

// Record appends one violation for the pair and returns how many violations
// have been seen today. Entries from previous calendar days are pruned on
// each call, so the count implicitly resets at local midnight.
func (t *Tracker) Record(driverID, parameter string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	k := key{driverID: driverID, parameter: parameter}

	kept := t.occurrences[k][:0]
	for _, ts := range t.occurrences[k] {
		if sameDay(ts, now) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	t.occurrences[k] = kept
	return len(kept)
}

// Count returns today's violation count for the pair without recording one.
func (t *Tracker) Count(driverID, parameter string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	n := 0
	for _, ts := range t.occurrences[key{driverID: driverID, parameter: parameter}] {
		if sameDay(ts, now) {
			n++
		}
	}
	return n
}

// Reset drops all counters.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.occurrences = make(map[key][]time.Time)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
