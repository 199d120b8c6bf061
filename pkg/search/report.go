package search

import (
	"fmt"

	"github.com/japaniel/britishdays/pkg/slang"
	"github.com/japaniel/britishdays/pkg/source"
)

// Phase is the orchestrator's position in a cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFetching
	PhaseFiltering
	PhasePersisting
	PhaseStopped
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhaseFiltering:
		return "filtering"
	case PhasePersisting:
		return "persisting"
	case PhaseStopped:
		return "stopped"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

// Outcome classifies a cycle in the search history.
type Outcome string

const (
	OutcomeNew        Outcome = "new"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeExhausted  Outcome = "exhausted"
	OutcomeFetchError Outcome = "fetch_error"
	// OutcomeIdle means every source, fallback included, was already exhausted.
	OutcomeIdle Outcome = "idle"
)

// CycleReport describes one search cycle.
type CycleReport struct {
	RunID     string
	NewTerms  int
	Source    slang.SourceType
	Outcome   Outcome
	Exhausted bool
	// Stopped is set once the failure threshold is reached.
	Stopped  bool
	Failures int
	// FetchErr is the last fetch error absorbed during the cycle, if any.
	FetchErr error
}

// StopReason says why SearchUntilStopped returned.
type StopReason int

const (
	StopNone StopReason = iota
	StopThreshold
	StopCancelled
	StopStorageError
)

func (r StopReason) String() string {
	switch r {
	case StopThreshold:
		return "stopped after repeated failures"
	case StopCancelled:
		return "stopped by cancellation"
	case StopStorageError:
		return "stopped by storage error"
	}
	return "running"
}

// RunReport aggregates the cycles of one SearchUntilStopped call.
type RunReport struct {
	Cycles    int
	NewTerms  int
	BySource  map[slang.SourceType]int
	Last      CycleReport
	Stopped   bool
	Reason    StopReason
	FetchErrs int
}

func (r *RunReport) add(c CycleReport) {
	r.Cycles++
	r.NewTerms += c.NewTerms
	if r.BySource == nil {
		r.BySource = make(map[slang.SourceType]int)
	}
	if c.Source != "" {
		r.BySource[c.Source] += c.NewTerms
	}
	if c.FetchErr != nil {
		r.FetchErrs++
	}
	r.Last = c
	r.Stopped = c.Stopped
}

// TokenValidationError explains why a stored cursor was discarded. It is logged,
// never returned: the source restarts from its beginning instead.
type TokenValidationError struct {
	Source slang.SourceType
	Token  source.Token
	Err    error
}

func (e *TokenValidationError) Error() string {
	return fmt.Sprintf("invalid %s token %s: %v", e.Source, e.Token, e.Err)
}

func (e *TokenValidationError) Unwrap() error { return e.Err }
