package db

import (
	"time"

	"github.com/japaniel/britishdays/pkg/slang"
)

// StoredTerm is a confirmed term row in the primary store.
type StoredTerm struct {
	ID int64
	slang.Term
	DateAdded time.Time
}

// VisitedLocation records that a source location has been fully processed.
type VisitedLocation struct {
	SourceType slang.SourceType
	Location   string
	VisitedAt  time.Time
	TermsFound int
}

// CachedTerm is a raw fetched term, kept independently of the primary store.
type CachedTerm struct {
	slang.Term
	Committed bool
	CachedAt  time.Time
}

// SearchRecord is one row of search history.
type SearchRecord struct {
	ID         int64
	RunID      string
	SourceType slang.SourceType
	NewTerms   int
	Outcome    string
	SearchedAt time.Time
}

// Stats summarizes the database contents.
type Stats struct {
	TotalTerms       int
	TotalSearches    int
	VisitedLocations int
	CacheBacklog     int
}

// TermFilter narrows ListTerms. Zero values mean "no filter".
type TermFilter struct {
	Query    string // matched against term and definition
	Category string
	Source   slang.SourceType
	Limit    int
}
