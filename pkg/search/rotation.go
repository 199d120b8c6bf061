package search

import (
	"github.com/japaniel/britishdays/pkg/slang"
	"github.com/japaniel/britishdays/pkg/source"
)

// RotationState is the in-memory progress of one orchestrator. Durable progress lives
// in the ledger and cache; this state is rebuilt from configuration on every start.
type RotationState struct {
	Sources  []slang.SourceType
	Fallback slang.SourceType
	// Current indexes Sources: the source tried first in the next cycle.
	Current      int
	Cursors      map[slang.SourceType]source.Token
	Exhausted    map[slang.SourceType]bool
	LastLocation map[slang.SourceType]string
	Failures     FailureTracker

	// issued holds the last token each source handed back, for provenance checks.
	issued map[slang.SourceType]source.Token
}

// NewRotationState creates the initial state for a source list.
func NewRotationState(sources []slang.SourceType, fallback slang.SourceType, threshold int) RotationState {
	srcs := make([]slang.SourceType, len(sources))
	copy(srcs, sources)
	return RotationState{
		Sources:      srcs,
		Fallback:     fallback,
		Cursors:      make(map[slang.SourceType]source.Token),
		Exhausted:    make(map[slang.SourceType]bool),
		LastLocation: make(map[slang.SourceType]string),
		Failures:     NewFailureTracker(threshold),
		issued:       make(map[slang.SourceType]source.Token),
	}
}

// plan lists the sources to try this cycle, in order: every non-exhausted source
// starting at Current, then the fallback. Empty when everything is exhausted.
func (r *RotationState) plan() []slang.SourceType {
	var out []slang.SourceType
	listed := make(map[slang.SourceType]bool)
	n := len(r.Sources)
	for i := 0; i < n; i++ {
		st := r.Sources[(r.Current+i)%n]
		if r.Exhausted[st] || listed[st] {
			continue
		}
		listed[st] = true
		out = append(out, st)
	}
	if r.Fallback != "" && !listed[r.Fallback] && !r.Exhausted[r.Fallback] {
		out = append(out, r.Fallback)
	}
	return out
}

// advancePast points the rotation at the source after st.
func (r *RotationState) advancePast(st slang.SourceType) {
	for i, s := range r.Sources {
		if s == st {
			r.Current = (i + 1) % len(r.Sources)
			return
		}
	}
}

func (r *RotationState) issue(st slang.SourceType, tok source.Token) {
	r.Cursors[st] = tok
	r.issued[st] = tok
}

func (r *RotationState) markExhausted(st slang.SourceType) {
	r.Exhausted[st] = true
	r.dropCursor(st)
}

func (r *RotationState) dropCursor(st slang.SourceType) {
	delete(r.Cursors, st)
	delete(r.issued, st)
}

// wasIssued reports whether tok is exactly the token st returned last.
func (r *RotationState) wasIssued(st slang.SourceType, tok source.Token) bool {
	last, ok := r.issued[st]
	return ok && last == tok
}

// Reset forgets exhaustion, cursors and the failure streak.
func (r *RotationState) Reset() {
	r.Current = 0
	r.Cursors = make(map[slang.SourceType]source.Token)
	r.Exhausted = make(map[slang.SourceType]bool)
	r.issued = make(map[slang.SourceType]source.Token)
	r.Failures.Reset()
}

// Clone returns a deep copy.
func (r RotationState) Clone() RotationState {
	c := r
	c.Sources = append([]slang.SourceType(nil), r.Sources...)
	c.Cursors = copyMap(r.Cursors)
	c.Exhausted = copyMap(r.Exhausted)
	c.LastLocation = copyMap(r.LastLocation)
	c.issued = copyMap(r.issued)
	return c
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
