package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/britishdays/pkg/slang"
)

func TestDefaultMockTerms(t *testing.T) {
	require.Len(t, DefaultMockTerms, 36)

	keys := make(map[string]bool)
	for _, term := range DefaultMockTerms {
		assert.NotEmpty(t, term.Definition, term.Text)
		assert.NotEmpty(t, term.Translation, term.Text)
		assert.NotEmpty(t, term.Pronunciation, term.Text)
		assert.False(t, keys[term.Key()], "duplicate %q", term.Text)
		keys[term.Key()] = true
	}
}

func TestMockFetchWalksListUntilExhausted(t *testing.T) {
	f := NewMockFetcher([]slang.Term{{Text: "Ace"}, {Text: "Gutted"}, {Text: "Chuffed"}})
	seen := visitedSet{}

	var got []string
	cursor := Token{}
	for i := 0; i < 3; i++ {
		res, err := f.Fetch(context.Background(), cursor, seen)
		require.NoError(t, err)
		require.False(t, res.Exhausted)
		require.Len(t, res.Items, 1)
		item := res.Items[0]
		assert.Equal(t, slang.SourceMock, item.Term.SourceType)
		assert.False(t, item.Term.DiscoveredAt.IsZero())
		require.NoError(t, f.ValidateToken(res.Next))

		got = append(got, item.Location)
		seen["mock/"+item.Location] = true
		cursor = res.Next
	}
	assert.Equal(t, []string{"ace", "gutted", "chuffed"}, got)

	res, err := f.Fetch(context.Background(), cursor, seen)
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.Empty(t, res.Items)
}

func TestMockFetchWrapsAroundFromCursor(t *testing.T) {
	f := NewMockFetcher([]slang.Term{{Text: "ace"}, {Text: "gutted"}, {Text: "chuffed"}})
	seen := visitedSet{"mock/chuffed": true}

	res, err := f.Fetch(context.Background(), Token{Source: slang.SourceMock, Query: "builtin", Value: "2"}, seen)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "ace", res.Items[0].Location)
	assert.Equal(t, "1", res.Next.Value)
}

type failingChecker struct{ err error }

func (f failingChecker) IsVisited(slang.SourceType, string) (bool, error) { return false, f.err }

func TestMockFetchPropagatesLedgerErrors(t *testing.T) {
	boom := errors.New("disk full")
	_, err := NewMockFetcher(nil).Fetch(context.Background(), Token{}, failingChecker{boom})
	assert.ErrorIs(t, err, boom)
}

func TestMockValidateToken(t *testing.T) {
	f := NewMockFetcher(nil)

	assert.NoError(t, f.ValidateToken(Token{slang.SourceMock, "builtin", "35"}))
	assert.ErrorIs(t, f.ValidateToken(Token{slang.SourceMock, "builtin", "36"}), ErrMalformedToken)
	assert.ErrorIs(t, f.ValidateToken(Token{slang.SourceMock, "builtin", "-1"}), ErrMalformedToken)
	assert.ErrorIs(t, f.ValidateToken(Token{slang.SourceMock, "other", "1"}), ErrMalformedToken)
	assert.ErrorIs(t, f.ValidateToken(Token{slang.SourceWikipedia, "builtin", "1"}), ErrMalformedToken)
}

func TestNewFetcher(t *testing.T) {
	for _, st := range slang.SourceTypes {
		f, err := New(st, Options{}, nil)
		require.NoError(t, err)
		assert.Equal(t, st, f.Type())
	}

	_, err := New("reddit", Options{}, nil)
	assert.Error(t, err)
}
