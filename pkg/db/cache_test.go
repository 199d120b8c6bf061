package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/britishdays/pkg/slang"
)

func TestCachePutAndGet(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()
	cache := NewCache(conn)

	term := slang.Term{
		Text:        "test_slang",
		Definition:  "A test definition",
		Example:     "This is a test example",
		Category:    "test",
		Translation: "Test po polsku",
	}
	require.NoError(t, cache.Put(term, slang.SourceWikipedia, "https://en.wikipedia.org/wiki/Test"))

	got, err := cache.Get("test_slang")
	require.NoError(t, err)
	assert.Equal(t, "test_slang", got.Text)
	assert.Equal(t, "A test definition", got.Definition)
	assert.Equal(t, slang.SourceWikipedia, got.SourceType)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Test", got.SourceURL)
	assert.False(t, got.Committed)
	assert.False(t, got.CachedAt.IsZero())

	n, err := cache.CountUncommitted()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCacheGetMissing(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	_, err := NewCache(conn).Get("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCachePutUpdatesUncommitted(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()
	cache := NewCache(conn)

	require.NoError(t, cache.Put(slang.Term{Text: "Bog", Definition: "old"}, slang.SourceWiktionary, ""))
	require.NoError(t, cache.Put(slang.Term{Text: "bog", Definition: "Toilet or bathroom"}, slang.SourceWiktionary, ""))

	got, err := cache.Get("bog")
	require.NoError(t, err)
	assert.Equal(t, "Toilet or bathroom", got.Definition)

	n, err := cache.CountUncommitted()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCacheCommittedEntriesAreImmutable(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()
	cache := NewCache(conn)

	require.NoError(t, cache.Put(slang.Term{Text: "skint", Definition: "Having no money"}, slang.SourceMock, ""))
	require.NoError(t, cache.MarkCommitted("skint"))

	require.NoError(t, cache.Put(slang.Term{Text: "skint", Definition: "stale re-fetch"}, slang.SourceWiktionary, "https://x"))

	got, err := cache.Get("skint")
	require.NoError(t, err)
	assert.True(t, got.Committed)
	assert.Equal(t, "Having no money", got.Definition)
	assert.Equal(t, slang.SourceMock, got.SourceType)

	n, err := cache.CountUncommitted()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCacheMarkCommittedMissing(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()

	err := NewCache(conn).MarkCommitted("ghost")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, IsStorageError(err))
}

func TestCacheThenStoreConsistency(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()
	cache := NewCache(conn)
	store := NewStore(conn)

	term := slang.Term{Text: "Gutted", Definition: "Extremely disappointed", SourceType: slang.SourceMock}
	require.NoError(t, cache.Put(term, slang.SourceMock, ""))
	require.NoError(t, store.Insert(term))
	require.NoError(t, cache.MarkCommitted(term.Key()))

	got, err := cache.Get("gutted")
	require.NoError(t, err)
	assert.True(t, got.Committed)

	exists, err := store.Exists("gutted")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCacheListUncommitted(t *testing.T) {
	conn := setupTestDB(t)
	defer conn.Close()
	cache := NewCache(conn)

	for _, text := range []string{"nosh", "scrummy", "cuppa"} {
		require.NoError(t, cache.Put(slang.Term{Text: text}, slang.SourceMock, ""))
	}
	require.NoError(t, cache.MarkCommitted("scrummy"))

	pending, err := cache.ListUncommitted(0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	texts := []string{pending[0].Text, pending[1].Text}
	assert.ElementsMatch(t, []string{"nosh", "cuppa"}, texts)

	limited, err := cache.ListUncommitted(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
