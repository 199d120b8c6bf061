package db

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"

	"github.com/japaniel/britishdays/pkg/slang"
)

func setupTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Ensure single connection to avoid separate in-memory DBs per connection.
	db.SetMaxOpenConns(1)
	if err := InitDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func chuffed() slang.Term {
	return slang.Term{
		Text:          "Chuffed",
		Definition:    "Very pleased or happy",
		Example:       "I'm dead chuffed with my new car!",
		Category:      "emotion",
		Translation:   "Bardzo zadowolony",
		Pronunciation: "CHUFED",
		SourceType:    slang.SourceMock,
		DiscoveredAt:  time.Now(),
	}
}

func TestInsertTermAndExists(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	ok, err := TermExists(db, "chuffed")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatalf("expected chuffed to be absent")
	}

	id, err := InsertTerm(db, chuffed())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id <= 0 {
		t.Fatalf("expected positive id, got %d", id)
	}

	ok, err = TermExists(db, "chuffed")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !ok {
		t.Fatalf("expected chuffed to exist")
	}
}

func TestInsertTermRejectsNormalizedDuplicate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if _, err := InsertTerm(db, chuffed()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	dup := chuffed()
	dup.Text = "  CHUFFED "
	_, err := InsertTerm(db, dup)
	if !errors.Is(err, ErrDuplicateTerm) {
		t.Fatalf("expected ErrDuplicateTerm, got %v", err)
	}
	if IsStorageError(err) {
		t.Fatalf("duplicate must not be reported as a storage error")
	}

	var cnt int
	if err := db.QueryRow(`SELECT COUNT(*) FROM slang_terms`).Scan(&cnt); err != nil {
		t.Fatalf("count: %v", err)
	}
	if cnt != 1 {
		t.Fatalf("expected 1 term row, got %d", cnt)
	}
}

func TestInsertTermRejectsEmptyText(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	if _, err := InsertTerm(db, slang.Term{Text: "   "}); err == nil {
		t.Fatalf("expected error for empty term")
	}
}

func TestListTermsFilters(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	terms := []slang.Term{
		{Text: "gutted", Definition: "Extremely disappointed", Category: "emotion", SourceType: slang.SourceMock},
		{Text: "skint", Definition: "Having no money; broke", Category: "state", SourceType: slang.SourceWiktionary},
		{Text: "Cockney rhyming slang", Definition: "A form of English slang", Category: "slang", SourceType: slang.SourceWikipedia},
	}
	for _, term := range terms {
		if _, err := InsertTerm(db, term); err != nil {
			t.Fatalf("insert %s: %v", term.Text, err)
		}
	}

	all, err := ListTerms(db, TermFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 terms, got %d", len(all))
	}
	// Newest first; rows share a second so id breaks the tie.
	if all[0].Text != "Cockney rhyming slang" {
		t.Fatalf("expected newest term first, got %s", all[0].Text)
	}

	byQuery, err := ListTerms(db, TermFilter{Query: "money"})
	if err != nil {
		t.Fatalf("list by query: %v", err)
	}
	if len(byQuery) != 1 || byQuery[0].Text != "skint" {
		t.Fatalf("expected skint for definition match, got %+v", byQuery)
	}

	bySource, err := ListTerms(db, TermFilter{Source: slang.SourceMock})
	if err != nil {
		t.Fatalf("list by source: %v", err)
	}
	if len(bySource) != 1 || bySource[0].Text != "gutted" {
		t.Fatalf("expected gutted for mock source, got %+v", bySource)
	}

	limited, err := ListTerms(db, TermFilter{Category: "emotion", Limit: 5})
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	if len(limited) != 1 || limited[0].Category != "emotion" {
		t.Fatalf("expected one emotion term, got %+v", limited)
	}

	one, err := ListTerms(db, TermFilter{Limit: 1})
	if err != nil {
		t.Fatalf("list limit: %v", err)
	}
	if len(one) != 1 {
		t.Fatalf("expected limit 1, got %d", len(one))
	}
}

func TestStatsAndHistory(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if _, err := InsertTerm(db, chuffed()); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := PutCached(db, slang.Term{Text: "naff", SourceType: slang.SourceMock}); err != nil {
		t.Fatalf("cache put: %v", err)
	}
	ledger, err := NewLedger(db, 0)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	if err := ledger.MarkVisited(slang.SourceMock, "naff", 1); err != nil {
		t.Fatalf("mark visited: %v", err)
	}
	if err := RecordSearch(db, SearchRecord{RunID: "run-1", SourceType: slang.SourceMock, NewTerms: 1, Outcome: "new"}); err != nil {
		t.Fatalf("record search: %v", err)
	}

	stats, err := GetStats(db)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := Stats{TotalTerms: 1, TotalSearches: 1, VisitedLocations: 1, CacheBacklog: 1}
	if stats != want {
		t.Fatalf("expected %+v, got %+v", want, stats)
	}
}

func TestTermExistsWrapsDriverErrors(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectQuery(`SELECT 1 FROM slang_terms`).WillReturnError(errors.New("disk I/O error"))

	_, err = NewStore(conn).Exists("chuffed")
	if !IsStorageError(err) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestIsUniqueConstraintErrFallsBackToMessage(t *testing.T) {
	if !isUniqueConstraintErr(errors.New("UNIQUE constraint failed: slang_terms.normalized")) {
		t.Fatalf("expected message match")
	}
	if isUniqueConstraintErr(errors.New("database is locked")) {
		t.Fatalf("unexpected match")
	}
	if isUniqueConstraintErr(nil) {
		t.Fatalf("nil is not a constraint error")
	}
}
