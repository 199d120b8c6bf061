package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/japaniel/britishdays/pkg/slang"
)

// Cache is the durable store of raw fetched terms, keyed by normalized text.
// Entries are never deleted; committed entries are immutable.
type Cache struct {
	db DBExecutor
}

// NewCache returns a Cache over the given connection.
func NewCache(db DBExecutor) *Cache {
	return &Cache{db: db}
}

// PutCached upserts a raw term. An existing entry is only updated while uncommitted.
func PutCached(db DBExecutor, t slang.Term) error {
	text := strings.TrimSpace(t.Text)
	if text == "" {
		return fmt.Errorf("term text must be non-empty")
	}
	discovered := t.DiscoveredAt
	if discovered.IsZero() {
		discovered = time.Now()
	}
	_, err := db.Exec(`INSERT INTO term_cache
		(normalized, term, definition, example, category, translation, pronunciation, source_type, source_url, discovered_at, committed, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(normalized) DO UPDATE SET
		  term = excluded.term,
		  definition = excluded.definition,
		  example = excluded.example,
		  category = excluded.category,
		  translation = excluded.translation,
		  pronunciation = excluded.pronunciation,
		  source_type = excluded.source_type,
		  source_url = excluded.source_url,
		  discovered_at = excluded.discovered_at,
		  cached_at = excluded.cached_at
		WHERE term_cache.committed = 0`,
		slang.Normalize(text), text, t.Definition, t.Example, t.Category, t.Translation,
		t.Pronunciation, string(t.SourceType), t.SourceURL, discovered, time.Now())
	return storageErr("cache put", err)
}

// MarkCachedCommitted flags a cache entry as written to the primary store.
func MarkCachedCommitted(db DBExecutor, normalized string) error {
	res, err := db.Exec(`UPDATE term_cache SET committed = 1 WHERE normalized = ?`, normalized)
	if err != nil {
		return storageErr("mark committed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("mark committed", err)
	}
	if n == 0 {
		return fmt.Errorf("cache entry %q: %w", normalized, ErrNotFound)
	}
	return nil
}

const cachedColumns = `term, definition, example, category, translation, pronunciation, source_type, source_url, discovered_at, committed, cached_at`

func scanCached(scan func(dest ...interface{}) error) (CachedTerm, error) {
	var c CachedTerm
	var def, ex, cat, tr, pron, url sql.NullString
	var srcType string
	if err := scan(&c.Text, &def, &ex, &cat, &tr, &pron, &srcType, &url, &c.DiscoveredAt, &c.Committed, &c.CachedAt); err != nil {
		return CachedTerm{}, err
	}
	c.Definition = def.String
	c.Example = ex.String
	c.Category = cat.String
	c.Translation = tr.String
	c.Pronunciation = pron.String
	c.SourceType = slang.SourceType(srcType)
	c.SourceURL = url.String
	return c, nil
}

// Get returns the cache entry for normalized text, or ErrNotFound.
func (c *Cache) Get(normalized string) (CachedTerm, error) {
	row := c.db.QueryRow(`SELECT `+cachedColumns+` FROM term_cache WHERE normalized = ?`, normalized)
	ct, err := scanCached(row.Scan)
	if err == sql.ErrNoRows {
		return CachedTerm{}, fmt.Errorf("cache entry %q: %w", normalized, ErrNotFound)
	}
	if err != nil {
		return CachedTerm{}, storageErr("cache get", err)
	}
	return ct, nil
}

// Put upserts a raw term under the given source.
func (c *Cache) Put(t slang.Term, sourceType slang.SourceType, sourceURL string) error {
	t.SourceType = sourceType
	t.SourceURL = sourceURL
	return PutCached(c.db, t)
}

// MarkCommitted flags an entry as committed; fails with ErrNotFound if absent.
func (c *Cache) MarkCommitted(normalized string) error {
	return MarkCachedCommitted(c.db, normalized)
}

// CountUncommitted returns the backlog of cached terms not yet in the primary store.
func (c *Cache) CountUncommitted() (int, error) {
	var n int
	if err := c.db.QueryRow(`SELECT COUNT(*) FROM term_cache WHERE committed = 0`).Scan(&n); err != nil {
		return 0, storageErr("count uncommitted", err)
	}
	return n, nil
}

// ListUncommitted returns cached terms not yet committed, oldest first.
func (c *Cache) ListUncommitted(limit int) ([]CachedTerm, error) {
	query := `SELECT ` + cachedColumns + ` FROM term_cache WHERE committed = 0 ORDER BY cached_at, normalized`
	var args []interface{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("list uncommitted", err)
	}
	defer rows.Close()
	var out []CachedTerm
	for rows.Next() {
		ct, err := scanCached(rows.Scan)
		if err != nil {
			return nil, storageErr("scan cached", err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list uncommitted", err)
	}
	return out, nil
}
