package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/japaniel/britishdays/pkg/slang"
)

const mockQuery = "builtin"

// MockFetcher serves a fixed list, one unvisited entry per call.
// Entries are identified in the ledger by their normalized text.
type MockFetcher struct {
	entries []slang.Term
	now     clock
}

// NewMockFetcher creates a mock fetcher over entries, or DefaultMockTerms when empty.
func NewMockFetcher(entries []slang.Term) *MockFetcher {
	if len(entries) == 0 {
		entries = DefaultMockTerms
	}
	cp := make([]slang.Term, len(entries))
	copy(cp, entries)
	return &MockFetcher{entries: cp, now: time.Now}
}

// Type implements Fetcher.
func (m *MockFetcher) Type() slang.SourceType { return slang.SourceMock }

// Len returns the number of entries in the list.
func (m *MockFetcher) Len() int { return len(m.entries) }

// ValidateToken implements Fetcher.
func (m *MockFetcher) ValidateToken(t Token) error {
	if t.Source != slang.SourceMock || t.Query != mockQuery {
		return fmt.Errorf("%w: %s", ErrMalformedToken, t)
	}
	idx, err := strconv.Atoi(t.Value)
	if err != nil || idx < 0 || idx >= len(m.entries) {
		return fmt.Errorf("%w: index %q out of range", ErrMalformedToken, t.Value)
	}
	return nil
}

// Fetch implements Fetcher. The list is scanned circularly from the cursor;
// the source is exhausted once every entry has been visited.
func (m *MockFetcher) Fetch(_ context.Context, cursor Token, seen LocationChecker) (FetchResult, error) {
	n := len(m.entries)
	start := 0
	if !cursor.IsZero() {
		if idx, err := strconv.Atoi(cursor.Value); err == nil && idx >= 0 && idx < n {
			start = idx
		}
	}

	for i := 0; i < n; i++ {
		idx := (start + i) % n
		entry := m.entries[idx]
		loc := entry.Key()
		if loc == "" {
			continue
		}
		visited, err := isVisited(seen, slang.SourceMock, loc)
		if err != nil {
			return FetchResult{}, err
		}
		if visited {
			continue
		}

		entry.SourceType = slang.SourceMock
		entry.DiscoveredAt = m.now()
		return FetchResult{
			Items: []Item{{Term: entry, Location: loc}},
			Next:  Token{Source: slang.SourceMock, Query: mockQuery, Value: strconv.Itoa((idx + 1) % n)},
		}, nil
	}
	return FetchResult{Exhausted: true}, nil
}
