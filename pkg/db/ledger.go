package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/japaniel/britishdays/pkg/slang"
)

// DefaultLedgerCacheSize bounds the in-memory set of known-visited locations.
const DefaultLedgerCacheSize = 4096

// Ledger is the durable set of already visited source locations.
// Visited is monotonic, so only positive lookups are remembered in memory.
type Ledger struct {
	db   DBExecutor
	seen *lru.Cache[string, struct{}]
}

// NewLedger creates a Ledger. cacheSize <= 0 selects DefaultLedgerCacheSize.
func NewLedger(db DBExecutor, cacheSize int) (*Ledger, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultLedgerCacheSize
	}
	cache, err := lru.New[string, struct{}](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("ledger cache: %w", err)
	}
	return &Ledger{db: db, seen: cache}, nil
}

func ledgerKey(sourceType slang.SourceType, identifier string) string {
	return string(sourceType) + "\x00" + identifier
}

// IsVisited is a pure lookup.
func (l *Ledger) IsVisited(sourceType slang.SourceType, identifier string) (bool, error) {
	key := ledgerKey(sourceType, identifier)
	if l.seen.Contains(key) {
		return true, nil
	}
	var one int
	err := l.db.QueryRow(`SELECT 1 FROM visited_locations WHERE source_type = ? AND location = ?`,
		string(sourceType), identifier).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storageErr("is visited", err)
	}
	l.seen.Add(key, struct{}{})
	return true, nil
}

// MarkVisited records the location as processed. Marking an already visited location
// again succeeds without touching the stored terms_found.
func (l *Ledger) MarkVisited(sourceType slang.SourceType, identifier string, termsFound int) error {
	if strings.TrimSpace(identifier) == "" {
		return fmt.Errorf("location identifier must be non-empty")
	}
	if termsFound < 0 {
		return fmt.Errorf("termsFound must not be negative, got %d", termsFound)
	}
	_, err := l.db.Exec(`INSERT INTO visited_locations (source_type, location, visited_at, terms_found)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(source_type, location) DO NOTHING`,
		string(sourceType), identifier, time.Now(), termsFound)
	if err != nil {
		return storageErr("mark visited", err)
	}
	l.seen.Add(ledgerKey(sourceType, identifier), struct{}{})
	return nil
}

// Get returns the visit record for a location, or ErrNotFound.
func (l *Ledger) Get(sourceType slang.SourceType, identifier string) (VisitedLocation, error) {
	v := VisitedLocation{SourceType: sourceType, Location: identifier}
	err := l.db.QueryRow(`SELECT visited_at, terms_found FROM visited_locations WHERE source_type = ? AND location = ?`,
		string(sourceType), identifier).Scan(&v.VisitedAt, &v.TermsFound)
	if err == sql.ErrNoRows {
		return VisitedLocation{}, fmt.Errorf("location %s/%s: %w", sourceType, identifier, ErrNotFound)
	}
	if err != nil {
		return VisitedLocation{}, storageErr("get visited", err)
	}
	return v, nil
}

// LastVisited returns the most recently visited location of a source, or ErrNotFound.
func (l *Ledger) LastVisited(sourceType slang.SourceType) (VisitedLocation, error) {
	v := VisitedLocation{SourceType: sourceType}
	err := l.db.QueryRow(`SELECT location, visited_at, terms_found FROM visited_locations
		WHERE source_type = ? ORDER BY visited_at DESC, rowid DESC LIMIT 1`,
		string(sourceType)).Scan(&v.Location, &v.VisitedAt, &v.TermsFound)
	if err == sql.ErrNoRows {
		return VisitedLocation{}, fmt.Errorf("no visits for %s: %w", sourceType, ErrNotFound)
	}
	if err != nil {
		return VisitedLocation{}, storageErr("last visited", err)
	}
	return v, nil
}
