// Package source fetches pages of candidate slang terms from Wikipedia, Wiktionary
// and a built-in list. Fetchers are read-only with respect to local state: they may
// consult the location ledger but never write to it.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/japaniel/britishdays/pkg/slang"
)

// Token is an opaque pagination cursor issued by a source for one query context.
// The zero Token means "start from the beginning".
type Token struct {
	Source slang.SourceType
	Query  string
	Value  string
}

// IsZero reports whether the token is the start-over token.
func (t Token) IsZero() bool { return t == Token{} }

func (t Token) String() string {
	if t.IsZero() {
		return "<start>"
	}
	return fmt.Sprintf("%s[%s]:%s", t.Source, t.Query, t.Value)
}

// ErrMalformedToken is returned by ValidateToken implementations.
var ErrMalformedToken = errors.New("malformed continuation token")

// Item is one raw candidate term and the location it was read from.
type Item struct {
	Term     slang.Term
	Location string
}

// FetchResult is one page of a source.
type FetchResult struct {
	Items []Item
	// Visited lists locations that were read successfully but yielded no item,
	// e.g. entries filtered out by register. They are safe to mark as visited.
	Visited []string
	// Next is the cursor for the following page. Ignored when Exhausted.
	Next      Token
	Exhausted bool
}

// ErrorKind classifies a FetchError.
type ErrorKind int

const (
	// KindNetwork covers transport failures, timeouts, 5xx and 429 responses.
	KindNetwork ErrorKind = iota
	// KindHTTP covers other non-2xx responses.
	KindHTTP
	// KindParse covers responses of an unexpected shape.
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	case KindParse:
		return "parse"
	}
	return "unknown"
}

// FetchError is a failure talking to, or understanding, a source.
type FetchError struct {
	Source    slang.SourceType
	Location  string
	Kind      ErrorKind
	Retryable bool
	Err       error
}

func (e *FetchError) Error() string {
	loc := ""
	if e.Location != "" {
		loc = " " + e.Location
	}
	return fmt.Sprintf("%s fetch%s (%s): %v", e.Source, loc, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// AsFetchError extracts a FetchError from err.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// LocationChecker answers whether a location was already fully processed.
type LocationChecker interface {
	IsVisited(sourceType slang.SourceType, identifier string) (bool, error)
}

// Fetcher is the contract shared by every source variant.
type Fetcher interface {
	Type() slang.SourceType
	// Fetch returns the page at cursor. seen may be nil. Errors from seen are
	// returned unchanged; everything else is a *FetchError.
	Fetch(ctx context.Context, cursor Token, seen LocationChecker) (FetchResult, error)
	// ValidateToken checks a non-zero token against this source's grammar and
	// query context.
	ValidateToken(t Token) error
}

// Options configures every source variant.
type Options struct {
	Wikipedia  WikipediaOptions
	Wiktionary WiktionaryOptions
	// MockTerms overrides the built-in list when non-empty.
	MockTerms []slang.Term
}

// New builds the fetcher for a source type.
func New(t slang.SourceType, opts Options, logger *zap.Logger) (Fetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch t {
	case slang.SourceWikipedia:
		return NewWikipediaFetcher(opts.Wikipedia, logger), nil
	case slang.SourceWiktionary:
		return NewWiktionaryFetcher(opts.Wiktionary, logger), nil
	case slang.SourceMock:
		return NewMockFetcher(opts.MockTerms), nil
	}
	return nil, fmt.Errorf("no fetcher for source %q", t)
}

func isVisited(seen LocationChecker, st slang.SourceType, location string) (bool, error) {
	if seen == nil {
		return false, nil
	}
	return seen.IsVisited(st, location)
}

type clock func() time.Time
