package search

// DefaultFailureThreshold is the number of consecutive fruitless cycles that stops a run.
const DefaultFailureThreshold = 10

// FailureTracker counts consecutive cycles that produced no new term.
type FailureTracker struct {
	threshold   int
	consecutive int
}

// NewFailureTracker creates a tracker. threshold <= 0 selects DefaultFailureThreshold.
func NewFailureTracker(threshold int) FailureTracker {
	if threshold <= 0 {
		threshold = DefaultFailureThreshold
	}
	return FailureTracker{threshold: threshold}
}

// RecordSuccess resets the streak.
func (f *FailureTracker) RecordSuccess() { f.consecutive = 0 }

// RecordFailure extends the streak and reports whether the threshold is now reached.
func (f *FailureTracker) RecordFailure() bool {
	f.consecutive++
	return f.Reached()
}

// Reached reports whether the streak has hit the threshold.
func (f *FailureTracker) Reached() bool { return f.consecutive >= f.threshold }

// Count returns the current streak length.
func (f *FailureTracker) Count() int { return f.consecutive }

// Threshold returns the configured threshold.
func (f *FailureTracker) Threshold() int { return f.threshold }

// Reset clears the streak.
func (f *FailureTracker) Reset() { f.consecutive = 0 }
