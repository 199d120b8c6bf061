package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/japaniel/britishdays/pkg/slang"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// TermExists reports whether the primary store holds a term with this normalized text.
func TermExists(db DBExecutor, normalized string) (bool, error) {
	var one int
	err := db.QueryRow(`SELECT 1 FROM slang_terms WHERE normalized = ?`, normalized).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storageErr("term exists", err)
	}
	return true, nil
}

// InsertTerm adds a confirmed term to the primary store and returns its id.
// Inserting a term whose normalized text is already present fails with ErrDuplicateTerm.
func InsertTerm(db DBExecutor, t slang.Term) (int64, error) {
	text := strings.TrimSpace(t.Text)
	if text == "" {
		return 0, fmt.Errorf("term text must be non-empty")
	}
	discovered := t.DiscoveredAt
	if discovered.IsZero() {
		discovered = time.Now()
	}
	res, err := db.Exec(`INSERT INTO slang_terms
		(term, normalized, definition, example, category, translation, pronunciation, source_type, source_url, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		text, slang.Normalize(text), t.Definition, t.Example, t.Category, t.Translation,
		t.Pronunciation, string(t.SourceType), t.SourceURL, discovered)
	if err != nil {
		if isUniqueConstraintErr(err) {
			return 0, fmt.Errorf("insert %q: %w", text, ErrDuplicateTerm)
		}
		return 0, storageErr("insert term", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("insert term", err)
	}
	return id, nil
}

var termColumns = []string{
	"id", "term", "definition", "example", "category", "translation",
	"pronunciation", "source_type", "source_url", "discovered_at", "date_added",
}

// ListTerms returns stored terms, newest first, narrowed by the filter.
func ListTerms(db DBExecutor, f TermFilter) ([]StoredTerm, error) {
	q := sq.Select(termColumns...).From("slang_terms").OrderBy("date_added DESC", "id DESC")
	if f.Query != "" {
		like := "%" + f.Query + "%"
		q = q.Where(sq.Or{sq.Like{"term": like}, sq.Like{"definition": like}})
	}
	if f.Category != "" {
		q = q.Where(sq.Eq{"category": f.Category})
	}
	if f.Source != "" {
		q = q.Where(sq.Eq{"source_type": string(f.Source)})
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, storageErr("list terms", err)
	}
	defer rows.Close()

	var out []StoredTerm
	for rows.Next() {
		var st StoredTerm
		var def, ex, cat, tr, pron, url sql.NullString
		var srcType string
		if err := rows.Scan(&st.ID, &st.Text, &def, &ex, &cat, &tr, &pron, &srcType, &url, &st.DiscoveredAt, &st.DateAdded); err != nil {
			return nil, storageErr("scan term", err)
		}
		st.Definition = def.String
		st.Example = ex.String
		st.Category = cat.String
		st.Translation = tr.String
		st.Pronunciation = pron.String
		st.SourceType = slang.SourceType(srcType)
		st.SourceURL = url.String
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list terms", err)
	}
	return out, nil
}

// RecordSearch appends a row to the search history.
func RecordSearch(db DBExecutor, rec SearchRecord) error {
	at := rec.SearchedAt
	if at.IsZero() {
		at = time.Now()
	}
	_, err := db.Exec(`INSERT INTO search_history (run_id, source_type, new_terms, outcome, searched_at) VALUES (?, ?, ?, ?, ?)`,
		rec.RunID, string(rec.SourceType), rec.NewTerms, rec.Outcome, at)
	return storageErr("record search", err)
}

// GetStats counts terms, searches, visited locations and the cache backlog.
func GetStats(db DBExecutor) (Stats, error) {
	var s Stats
	err := db.QueryRow(`SELECT
		(SELECT COUNT(*) FROM slang_terms),
		(SELECT COUNT(*) FROM search_history),
		(SELECT COUNT(*) FROM visited_locations),
		(SELECT COUNT(*) FROM term_cache WHERE committed = 0)`).Scan(
		&s.TotalTerms, &s.TotalSearches, &s.VisitedLocations, &s.CacheBacklog)
	if err != nil {
		return Stats{}, storageErr("stats", err)
	}
	return s, nil
}

// Store is the primary term store backed by the slang_terms table.
type Store struct {
	db DBExecutor
}

// NewStore returns a Store over the given connection.
func NewStore(db DBExecutor) *Store {
	return &Store{db: db}
}

// Exists reports whether a term with this normalized text is stored.
func (s *Store) Exists(normalized string) (bool, error) {
	return TermExists(s.db, normalized)
}

// Insert stores a confirmed term. Duplicates fail with ErrDuplicateTerm.
func (s *Store) Insert(t slang.Term) error {
	_, err := InsertTerm(s.db, t)
	return err
}

// RecordSearch appends a search history row.
func (s *Store) RecordSearch(rec SearchRecord) error {
	return RecordSearch(s.db, rec)
}
