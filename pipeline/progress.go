package pipeline

import "log"

// ProgressFunc receives the completed fraction of a run, in [0, 1].
type ProgressFunc func(fraction float64)

// progressTracker keeps reported values non-decreasing and isolates the run
// from a misbehaving sink.
type progressTracker struct {
	runID string
	fn    ProgressFunc
	last  float64
}

func newProgressTracker(runID string, fn ProgressFunc) *progressTracker {
	return &progressTracker{runID: runID, fn: fn}
}

func (t *progressTracker) report(fraction float64) {
	if fraction > 1 {
		fraction = 1
	}
	if fraction < t.last {
		fraction = t.last
	}
	t.last = fraction
	if t.fn == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Run %s: progress sink panicked: %v", t.runID, rec)
		}
	}()
	t.fn(fraction)
}
