// Package ingest bulk-loads terms into the primary store and drains the term cache backlog.
package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/japaniel/britishdays/pkg/db"
	"github.com/japaniel/britishdays/pkg/slang"
)

// WorkerPoolInterface abstracts the worker pool so tests can inject failing implementations.
type WorkerPoolInterface interface {
	Start(ctx context.Context)
	Submit(Job) error
	// SubmitCtx attempts to enqueue a job but returns promptly if ctx is canceled.
	SubmitCtx(ctx context.Context, job Job) error
	Close()
}

// ErrInvalidTerm marks an import record that cannot become a term.
var ErrInvalidTerm = errors.New("invalid term")

const (
	maxDefinition = 500
	maxExample    = 200
)

// Importer writes term lists through the term cache into the primary store.
type Importer struct {
	DB        *sql.DB
	BatchSize int
	// Logger is used for progress and skipped records. nil means no logging.
	Logger *zap.Logger
	// OnProgress is called with the number of records handed to the writer and the total.
	OnProgress func(current, total int)

	Workers int

	// PoolFactory allows tests to inject custom worker pool implementations.
	PoolFactory func(workers, queue int) WorkerPoolInterface
}

// NewImporter creates a new Importer.
func NewImporter(conn *sql.DB) *Importer {
	return &Importer{
		DB:        conn,
		BatchSize: 50,
		Workers:   4,
	}
}

// ImportResult counts what happened to each record.
type ImportResult struct {
	Added      int
	Duplicates int
	Invalid    int
}

// Total is the number of records seen.
func (r ImportResult) Total() int { return r.Added + r.Duplicates + r.Invalid }

type preparedTerm struct {
	Index int
	Term  slang.Term
	Err   error
}

func (im *Importer) logger() *zap.Logger {
	if im.Logger == nil {
		return zap.NewNop()
	}
	return im.Logger
}

// PrepareTerm trims and validates a record, filling defaults for the category,
// source and discovery time.
func PrepareTerm(t slang.Term, st slang.SourceType, now time.Time) (slang.Term, error) {
	t.Text = strings.Join(strings.Fields(t.Text), " ")
	if t.Text == "" {
		return t, fmt.Errorf("%w: empty text", ErrInvalidTerm)
	}
	t.Definition = slang.Truncate(strings.TrimSpace(t.Definition), maxDefinition)
	if t.Definition == "" {
		return t, fmt.Errorf("%w: %q has no definition", ErrInvalidTerm, t.Text)
	}
	t.Example = slang.Truncate(strings.TrimSpace(t.Example), maxExample)
	t.Category = strings.ToLower(strings.TrimSpace(t.Category))
	if t.Category == "" {
		t.Category = "slang"
	}
	t.Translation = strings.TrimSpace(t.Translation)
	t.Pronunciation = strings.TrimSpace(t.Pronunciation)
	if t.SourceType == "" {
		t.SourceType = st
	}
	if t.DiscoveredAt.IsZero() {
		t.DiscoveredAt = now
	}
	return t, nil
}

// commitTerm caches t, inserts it unless the store already has it, and marks
// the cache entry committed, all on one transaction.
func commitTerm(tx db.DBExecutor, t slang.Term) (added bool, err error) {
	key := t.Key()
	exists, err := db.TermExists(tx, key)
	if err != nil {
		return false, err
	}
	if err := db.PutCached(tx, t); err != nil {
		return false, err
	}
	if !exists {
		if _, err := db.InsertTerm(tx, t); err != nil {
			return false, fmt.Errorf("insert %q: %w", t.Text, err)
		}
	}
	if err := db.MarkCachedCommitted(tx, key); err != nil {
		return false, err
	}
	return !exists, nil
}

// Import validates terms concurrently and writes them in transactional batches, in
// input order. Records with a normalized text already in the store, or repeated
// within terms, count as duplicates. st fills in records without a source type.
func (im *Importer) Import(ctx context.Context, terms []slang.Term, st slang.SourceType) (ImportResult, error) {
	if len(terms) == 0 {
		return ImportResult{}, nil
	}
	log := im.logger()
	workers := im.Workers
	if workers <= 0 {
		workers = 1
	}

	var wp WorkerPoolInterface
	if im.PoolFactory != nil {
		wp = im.PoolFactory(workers, workers*2)
	} else {
		wp = NewWorkerPool(workers, workers*2)
	}
	resultCh := make(chan preparedTerm, workers*2)
	doneCh := make(chan error, 1)

	var added, duplicates, invalid int64

	bw := NewBatchWriter(im.DB, im.BatchSize, 100*time.Millisecond)
	bw.Logger = log

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wp.Start(ctx)

	go func() {
		defer close(doneCh)
		buffer := make(map[int]preparedTerm)
		seen := make(map[string]bool, len(terms))
		nextIdx := 0

		for {
			var res preparedTerm
			var ok bool
			select {
			case <-ctx.Done():
				doneCh <- ctx.Err()
				return
			case res, ok = <-resultCh:
			}
			if !ok {
				doneCh <- nil
				return
			}
			buffer[res.Index] = res

			// Results arrive out of order; write them in input order.
			for {
				item, ok := buffer[nextIdx]
				if !ok {
					break
				}
				delete(buffer, nextIdx)
				nextIdx++

				if item.Err != nil {
					atomic.AddInt64(&invalid, 1)
					log.Debug("Skipping record", zap.Int("index", item.Index), zap.Error(item.Err))
					continue
				}
				key := item.Term.Key()
				if seen[key] {
					atomic.AddInt64(&duplicates, 1)
					continue
				}
				seen[key] = true

				term := item.Term
				err := bw.Submit(func(_ context.Context, tx *sql.Tx) error {
					ok, err := commitTerm(tx, term)
					if err != nil {
						return err
					}
					if ok {
						atomic.AddInt64(&added, 1)
					} else {
						atomic.AddInt64(&duplicates, 1)
					}
					return nil
				})
				if err != nil {
					cancel()
					doneCh <- err
					return
				}
				if im.OnProgress != nil && nextIdx%im.batchSize() == 0 {
					im.OnProgress(nextIdx, len(terms))
				}
			}
		}
	}()

	now := time.Now()
	var submitErr error
Loop:
	for i := range terms {
		idx, raw := i, terms[i]
		job := func(ctx context.Context) error {
			t, err := PrepareTerm(raw, st, now)
			select {
			case resultCh <- preparedTerm{Index: idx, Term: t, Err: err}:
			case <-ctx.Done():
			}
			return nil
		}
		if err := wp.SubmitCtx(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrPoolClosed) {
				break Loop
			}
			submitErr = err
			cancel()
			break Loop
		}
	}

	// Close waits for the workers, so nothing sends on resultCh afterwards.
	wp.Close()
	close(resultCh)

	err := <-doneCh
	if submitErr != nil {
		err = submitErr
	}
	if cerr := bw.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	result := ImportResult{
		Added:      int(atomic.LoadInt64(&added)),
		Duplicates: int(atomic.LoadInt64(&duplicates)),
		Invalid:    int(atomic.LoadInt64(&invalid)),
	}
	if err == nil && im.OnProgress != nil {
		im.OnProgress(len(terms), len(terms))
	}
	log.Info("Import finished",
		zap.Int("added", result.Added),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("invalid", result.Invalid),
		zap.Int("batches", bw.Batches()))
	return result, err
}

func (im *Importer) batchSize() int {
	if im.BatchSize <= 0 {
		return 10
	}
	return im.BatchSize
}

// Backfill commits every uncommitted cache entry to the primary store. Entries whose
// text the store already holds are only marked committed. It returns the counts per
// outcome; Invalid is always zero.
func (im *Importer) Backfill(ctx context.Context) (ImportResult, error) {
	log := im.logger()
	cache := db.NewCache(im.DB)
	pending, err := cache.ListUncommitted(0)
	if err != nil {
		return ImportResult{}, err
	}
	if len(pending) == 0 {
		return ImportResult{}, nil
	}

	var added, duplicates int64
	bw := NewBatchWriter(im.DB, im.BatchSize, 0)
	bw.Logger = log

	for i, entry := range pending {
		if err := ctx.Err(); err != nil {
			_ = bw.Close()
			return ImportResult{
				Added:      int(atomic.LoadInt64(&added)),
				Duplicates: int(atomic.LoadInt64(&duplicates)),
			}, err
		}
		t := entry.Term
		if err := bw.Submit(func(_ context.Context, tx *sql.Tx) error {
			ok, err := commitTerm(tx, t)
			if err != nil {
				return err
			}
			if ok {
				atomic.AddInt64(&added, 1)
			} else {
				atomic.AddInt64(&duplicates, 1)
			}
			return nil
		}); err != nil {
			_ = bw.Close()
			return ImportResult{}, err
		}
		if im.OnProgress != nil && (i+1)%im.batchSize() == 0 {
			im.OnProgress(i+1, len(pending))
		}
	}
	err = bw.Close()
	result := ImportResult{
		Added:      int(atomic.LoadInt64(&added)),
		Duplicates: int(atomic.LoadInt64(&duplicates)),
	}
	log.Info("Backfill finished",
		zap.Int("pending", len(pending)),
		zap.Int("added", result.Added),
		zap.Int("already_stored", result.Duplicates))
	return result, err
}
