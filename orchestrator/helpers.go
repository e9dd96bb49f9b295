package orchestrator

import (
	log "github.com/sirupsen/logrus"
)

// tracker forwards stage boundaries to the caller's ProgressFunc and the
// log, and keeps the reported fractions from going backwards.
type tracker struct {
	fn    ProgressFunc
	last  float64
	entry *log.Entry
}

func newTracker(fn ProgressFunc, entry *log.Entry) *tracker {
	return &tracker{fn: fn, entry: entry}
}

func (t *tracker) report(fraction float64, desc string) {
	fraction = t.clamp(fraction)
	t.entry.WithField("progress", fraction).Info(desc)
	t.emit(fraction, desc)
}

func (t *tracker) warn(fraction float64, desc string) {
	fraction = t.clamp(fraction)
	t.entry.WithField("progress", fraction).Warn(desc)
	t.emit(fraction, desc)
}

func (t *tracker) clamp(fraction float64) float64 {
	if fraction < t.last {
		fraction = t.last
	}
	if fraction > 1 {
		fraction = 1
	}
	t.last = fraction
	return fraction
}

func (t *tracker) emit(fraction float64, desc string) {
	if t.fn != nil {
		t.fn(fraction, desc)
	}
}
