// Package search drives fetch cycles across the configured sources, deduplicating
// against the term cache and primary store and recording progress in the ledger.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/japaniel/britishdays/pkg/db"
	"github.com/japaniel/britishdays/pkg/slang"
	"github.com/japaniel/britishdays/pkg/source"
)

// Ledger is the location ledger as seen by the orchestrator.
type Ledger interface {
	source.LocationChecker
	MarkVisited(sourceType slang.SourceType, identifier string, termsFound int) error
	LastVisited(sourceType slang.SourceType) (db.VisitedLocation, error)
}

// Cache is the term cache as seen by the orchestrator.
type Cache interface {
	Get(normalized string) (db.CachedTerm, error)
	Put(t slang.Term, sourceType slang.SourceType, sourceURL string) error
	MarkCommitted(normalized string) error
	CountUncommitted() (int, error)
}

// Store is the primary term store. Insert fails with db.ErrDuplicateTerm on duplicates.
type Store interface {
	Exists(normalized string) (bool, error)
	Insert(t slang.Term) error
}

// HistoryRecorder is implemented by stores that keep a search history.
type HistoryRecorder interface {
	RecordSearch(rec db.SearchRecord) error
}

// Config selects and orders the sources.
type Config struct {
	// Sources is the rotation order. Empty means every known source.
	Sources []slang.SourceType
	// Fallback is used once every source is exhausted or failed. Defaults to mock.
	Fallback slang.SourceType
	// MockOnly pins the rotation to the mock source.
	MockOnly         bool
	FailureThreshold int
	// Pause is waited between cycles of SearchUntilStopped.
	Pause time.Duration
}

// Orchestrator runs search cycles. At most one cycle runs at a time.
type Orchestrator struct {
	fetchers map[slang.SourceType]source.Fetcher
	ledger   Ledger
	cache    Cache
	store    Store
	history  HistoryRecorder
	pause    time.Duration
	logger   *zap.Logger

	mu    sync.Mutex
	state RotationState
	phase Phase
}

// New creates an orchestrator. Every configured source, and the fallback, needs a fetcher.
// The last visited location of each source is loaded from the ledger.
func New(cfg Config, fetchers []source.Fetcher, ledger Ledger, cache Cache, store Store, logger *zap.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ledger == nil || cache == nil || store == nil {
		return nil, errors.New("search: ledger, cache and store are required")
	}

	byType := make(map[slang.SourceType]source.Fetcher, len(fetchers))
	for _, f := range fetchers {
		byType[f.Type()] = f
	}

	sources := cfg.Sources
	fallback := cfg.Fallback
	if fallback == "" {
		fallback = slang.SourceMock
	}
	if cfg.MockOnly {
		sources = []slang.SourceType{slang.SourceMock}
		fallback = slang.SourceMock
	}
	if len(sources) == 0 {
		sources = slang.SourceTypes
	}
	for _, st := range append(append([]slang.SourceType(nil), sources...), fallback) {
		if _, ok := byType[st]; !ok {
			return nil, fmt.Errorf("search: no fetcher for source %q", st)
		}
	}

	o := &Orchestrator{
		fetchers: byType,
		ledger:   ledger,
		cache:    cache,
		store:    store,
		pause:    cfg.Pause,
		logger:   logger,
		state:    NewRotationState(sources, fallback, cfg.FailureThreshold),
	}
	if h, ok := store.(HistoryRecorder); ok {
		o.history = h
	}

	for _, st := range o.state.Sources {
		last, err := ledger.LastVisited(st)
		if errors.Is(err, db.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		o.state.LastLocation[st] = last.Location
		logger.Info("Resuming source",
			zap.String("source", string(st)),
			zap.String("last_location", last.Location),
			zap.Time("visited_at", last.VisitedAt))
	}
	return o, nil
}

// State returns a copy of the rotation state.
func (o *Orchestrator) State() RotationState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state.Clone()
}

// Restore replaces the rotation state, e.g. with one taken from State.
func (o *Orchestrator) Restore(s RotationState) {
	o.mu.Lock()
	defer o.mu.Unlock()
	c := s.Clone()
	if c.issued == nil {
		c.issued = make(map[slang.SourceType]source.Token)
	}
	if c.Cursors == nil {
		c.Cursors = make(map[slang.SourceType]source.Token)
	}
	if c.Exhausted == nil {
		c.Exhausted = make(map[slang.SourceType]bool)
	}
	if c.LastLocation == nil {
		c.LastLocation = make(map[slang.SourceType]string)
	}
	o.state = c
	if c.Failures.Reached() {
		o.phase = PhaseStopped
	} else {
		o.phase = PhaseIdle
	}
}

// Phase returns the current phase.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Reset clears exhaustion, cursors and the failure streak so a stopped orchestrator can run again.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state.Reset()
	o.phase = PhaseIdle
}

// CacheBacklog returns the number of cached terms not yet committed to the store.
func (o *Orchestrator) CacheBacklog() (int, error) {
	return o.cache.CountUncommitted()
}

// SearchOnce runs a single cycle. Fetch errors are absorbed into the report;
// storage errors are returned. Once stopped, cycles are no-ops until Reset.
func (o *Orchestrator) SearchOnce(ctx context.Context) (CycleReport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	report := CycleReport{RunID: uuid.NewString()}
	if o.state.Failures.Reached() {
		o.phase = PhaseStopped
		report.Stopped = true
		report.Failures = o.state.Failures.Count()
		return report, nil
	}

	err := o.cycle(ctx, &report)
	if err != nil {
		o.phase = PhaseError
		o.logger.Error("Search cycle failed", zap.String("run_id", report.RunID), zap.Error(err))
		return report, err
	}

	if report.NewTerms > 0 {
		o.state.Failures.RecordSuccess()
	} else {
		report.Stopped = o.state.Failures.RecordFailure()
	}
	report.Failures = o.state.Failures.Count()

	switch {
	case report.Stopped:
		o.phase = PhaseStopped
		o.logger.Warn("Stopping search after consecutive failures",
			zap.Int("failures", report.Failures),
			zap.Int("threshold", o.state.Failures.Threshold()))
	case report.Outcome == OutcomeFetchError && !isRetryable(report.FetchErr):
		o.phase = PhaseError
	default:
		o.phase = PhaseIdle
	}

	if o.history != nil {
		rec := db.SearchRecord{
			RunID:      report.RunID,
			SourceType: report.Source,
			NewTerms:   report.NewTerms,
			Outcome:    string(report.Outcome),
			SearchedAt: time.Now(),
		}
		if err := o.history.RecordSearch(rec); err != nil {
			return report, err
		}
	}

	o.logger.Info("Search cycle complete",
		zap.String("run_id", report.RunID),
		zap.String("source", string(report.Source)),
		zap.String("outcome", string(report.Outcome)),
		zap.Int("new_terms", report.NewTerms),
		zap.Int("failures", report.Failures))
	return report, nil
}

func (o *Orchestrator) cycle(ctx context.Context, report *CycleReport) error {
	plan := o.state.plan()
	if len(plan) == 0 {
		report.Source = o.state.Fallback
		report.Outcome = OutcomeIdle
		report.Exhausted = true
		return nil
	}

	// In-flight fetches are never interrupted; cancellation is observed between cycles.
	fetchCtx := context.WithoutCancel(ctx)

	var (
		res  source.FetchResult
		used slang.SourceType
		ok   bool
	)
	for _, st := range plan {
		o.phase = PhaseFetching
		r, err := o.fetch(fetchCtx, st)
		if err == nil {
			res, used, ok = r, st, true
			break
		}
		fe, isFetch := source.AsFetchError(err)
		if !isFetch {
			return err
		}
		report.FetchErr = fe
		o.state.advancePast(st)
		o.logger.Warn("Fetch failed, falling back",
			zap.String("source", string(st)),
			zap.String("kind", fe.Kind.String()),
			zap.Bool("retryable", fe.Retryable),
			zap.Error(fe))
	}
	if !ok {
		report.Source = plan[len(plan)-1]
		report.Outcome = OutcomeFetchError
		return nil
	}
	report.Source = used

	o.phase = PhaseFiltering
	fresh, locations, err := o.filter(used, res)
	if err != nil {
		return err
	}

	o.phase = PhasePersisting
	n, err := o.persist(used, fresh, locations)
	if err != nil {
		return err
	}
	report.NewTerms = n

	if res.Exhausted {
		o.state.markExhausted(used)
		report.Exhausted = true
		o.logger.Info("Source exhausted", zap.String("source", string(used)))
	} else {
		o.state.issue(used, res.Next)
	}
	o.state.advancePast(used)

	switch {
	case n > 0:
		report.Outcome = OutcomeNew
	case res.Exhausted:
		report.Outcome = OutcomeExhausted
	default:
		report.Outcome = OutcomeDuplicate
	}
	return nil
}

func (o *Orchestrator) fetch(ctx context.Context, st slang.SourceType) (source.FetchResult, error) {
	f := o.fetchers[st]
	cursor := o.validCursor(st, f)
	o.logger.Debug("Fetching", zap.String("source", string(st)), zap.Stringer("cursor", cursor))
	return f.Fetch(ctx, cursor, o.ledger)
}

// validCursor returns the stored cursor of st, or the start token when the stored
// one was not issued by st's previous fetch or fails st's token grammar.
func (o *Orchestrator) validCursor(st slang.SourceType, f source.Fetcher) source.Token {
	tok, ok := o.state.Cursors[st]
	if !ok || tok.IsZero() {
		return source.Token{}
	}

	var reason error
	switch {
	case tok.Source != st:
		reason = fmt.Errorf("%w: issued by %q", source.ErrMalformedToken, tok.Source)
	case !o.state.wasIssued(st, tok):
		reason = errors.New("not issued by the previous fetch")
	default:
		reason = f.ValidateToken(tok)
	}
	if reason == nil {
		return tok
	}
	o.logger.Warn("Restarting source from the beginning",
		zap.Error(&TokenValidationError{Source: st, Token: tok, Err: reason}))
	o.state.dropCursor(st)
	return source.Token{}
}

type pending struct {
	item source.Item
	key  string
}

// filter drops items without text, repeats within the page and terms already in the
// store. Every successfully read location is returned so it can be marked visited.
func (o *Orchestrator) filter(st slang.SourceType, res source.FetchResult) ([]pending, []string, error) {
	var (
		fresh     []pending
		locations []string
	)
	seenLoc := make(map[string]bool)
	addLoc := func(loc string) {
		if loc != "" && !seenLoc[loc] {
			seenLoc[loc] = true
			locations = append(locations, loc)
		}
	}
	batch := make(map[string]bool)

	for _, it := range res.Items {
		addLoc(it.Location)
		key := slang.Normalize(it.Term.Text)
		if key == "" || batch[key] {
			continue
		}
		batch[key] = true
		if it.Term.SourceType == "" {
			it.Term.SourceType = st
		}

		cached, err := o.cache.Get(key)
		switch {
		case err == nil && cached.Committed:
			continue
		case err != nil && !errors.Is(err, db.ErrNotFound):
			return nil, nil, err
		}

		exists, err := o.store.Exists(key)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			// Stored by an earlier run or import; record that in the cache.
			if err := o.cache.Put(it.Term, it.Term.SourceType, it.Term.SourceURL); err != nil {
				return nil, nil, err
			}
			if err := o.cache.MarkCommitted(key); err != nil {
				return nil, nil, err
			}
			continue
		}
		fresh = append(fresh, pending{item: it, key: key})
	}
	for _, loc := range res.Visited {
		addLoc(loc)
	}
	return fresh, locations, nil
}

// persist writes cache, then store, then the committed flag, and marks locations
// visited last so a crash never records a location whose terms were not saved.
func (o *Orchestrator) persist(st slang.SourceType, fresh []pending, locations []string) (int, error) {
	found := make(map[string]int)
	added := 0
	for _, p := range fresh {
		t := p.item.Term
		if err := o.cache.Put(t, t.SourceType, t.SourceURL); err != nil {
			return added, err
		}
		err := o.store.Insert(t)
		if err != nil && !errors.Is(err, db.ErrDuplicateTerm) {
			return added, err
		}
		if err := o.cache.MarkCommitted(p.key); err != nil {
			return added, err
		}
		if err != nil {
			continue
		}
		found[p.item.Location]++
		added++
		o.logger.Info("New term", zap.String("term", t.Text), zap.String("source", string(st)))
	}

	for _, loc := range locations {
		if err := o.ledger.MarkVisited(st, loc, found[loc]); err != nil {
			return added, err
		}
		o.state.LastLocation[st] = loc
	}
	return added, nil
}

// SearchUntilStopped runs cycles until the failure threshold is reached, ctx is
// cancelled, or a storage error occurs. ctx is only checked between cycles.
func (o *Orchestrator) SearchUntilStopped(ctx context.Context) (RunReport, error) {
	var run RunReport
	for {
		if ctx.Err() != nil {
			run.Reason = StopCancelled
			return run, nil
		}
		c, err := o.SearchOnce(ctx)
		run.add(c)
		if err != nil {
			run.Reason = StopStorageError
			return run, err
		}
		if c.Stopped {
			run.Reason = StopThreshold
			return run, nil
		}
		if o.pause > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(o.pause):
			}
		}
	}
}

func isRetryable(err error) bool {
	fe, ok := source.AsFetchError(err)
	return ok && fe.Retryable
}
