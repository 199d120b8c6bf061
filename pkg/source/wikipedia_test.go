package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/britishdays/pkg/slang"
)

type visitedSet map[string]bool

func (v visitedSet) IsVisited(st slang.SourceType, id string) (bool, error) {
	return v[string(st)+"/"+id], nil
}

func extractJSON(t *testing.T, title, extract string) string {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"pages": []map[string]interface{}{{"pageid": 7, "title": title, "extract": extract}},
		},
	})
	require.NoError(t, err)
	return string(body)
}

func parseJSON(t *testing.T, title, html string) string {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"parse": map[string]interface{}{"title": title, "text": html},
	})
	require.NoError(t, err)
	return string(body)
}

const britishSlangPage1 = `{"continue":{"cmcontinue":"page|534b494e54|30","continue":"-||"},"query":{"categorymembers":[
	{"pageid":10,"ns":0,"title":"Bog (slang)"},
	{"pageid":20,"ns":0,"title":"Gobsmacked"},
	{"pageid":25,"ns":0,"title":"Naff"}]}}`

const britishSlangPage2 = `{"query":{"categorymembers":[{"pageid":30,"ns":0,"title":"Skint"}]}}`

func newWikipediaServer(t *testing.T) *WikipediaFetcher {
	srv := fakeWiki(t, func(q url.Values) (int, string) {
		switch {
		case q.Get("list") == "categorymembers":
			if q.Get("cmcontinue") == "page|534b494e54|30" {
				return http.StatusOK, britishSlangPage2
			}
			return http.StatusOK, britishSlangPage1
		case q.Get("prop") == "extracts":
			switch q.Get("titles") {
			case "Bog (slang)":
				return http.StatusOK, extractJSON(t, "Bog (slang)", `Bog is a British slang word for a toilet. It is commonly used in phrases like "Where's the bog?"`)
			case "Gobsmacked":
				return http.StatusOK, extractJSON(t, "Gobsmacked", "")
			case "Naff":
				return http.StatusOK, extractJSON(t, "Naff", "   ")
			case "Skint":
				return http.StatusOK, extractJSON(t, "Skint", "Skint means having no money.")
			}
		case q.Get("action") == "parse":
			switch q.Get("page") {
			case "Gobsmacked":
				para := "Gobsmacked is a British expression meaning utterly astonished, as if struck across the mouth. "
				return http.StatusOK, parseJSON(t, "Gobsmacked", `<div class="mw-parser-output"><p>`+
					strings.Repeat(para, 8)+`<sup class="reference">[1]</sup></p></div>`)
			case "Naff":
				return http.StatusOK, parseJSON(t, "Naff", "")
			}
		}
		return http.StatusNotFound, `{}`
	})

	f := NewWikipediaFetcher(WikipediaOptions{
		ClientOptions: ClientOptions{Endpoint: srv.URL, RetryDelay: time.Millisecond},
		PageSize:      3,
	}, nil)
	f.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return f
}

func TestWikipediaFetchPage(t *testing.T) {
	f := newWikipediaServer(t)

	res, err := f.Fetch(context.Background(), Token{}, nil)
	require.NoError(t, err)
	assert.False(t, res.Exhausted)
	assert.Equal(t, Token{Source: slang.SourceWikipedia, Query: DefaultWikipediaCategory, Value: "page|534b494e54|30"}, res.Next)

	// Naff has neither an extract nor renderable prose, so it yields nothing.
	require.Len(t, res.Items, 2)

	bog := res.Items[0]
	assert.Equal(t, "Bog (slang)", bog.Location)
	assert.Equal(t, "Bog", bog.Term.Text)
	assert.Equal(t, "Bog is a British slang word for a toilet.", bog.Term.Definition)
	assert.Equal(t, `It is commonly used in phrases like "Where's the bog?"`, bog.Term.Example)
	assert.Equal(t, "slang", bog.Term.Category)
	assert.Equal(t, slang.SourceWikipedia, bog.Term.SourceType)
	assert.True(t, strings.HasSuffix(bog.Term.SourceURL, "/wiki/Bog_(slang)"))
	assert.Equal(t, 2024, bog.Term.DiscoveredAt.Year())

	gob := res.Items[1]
	assert.Equal(t, "Gobsmacked", gob.Term.Text)
	assert.Contains(t, gob.Term.Definition, "utterly astonished")
	assert.NotContains(t, gob.Term.Definition, "[1]")
}

func TestWikipediaFetchLastPageIsExhausted(t *testing.T) {
	f := newWikipediaServer(t)

	cursor := Token{Source: slang.SourceWikipedia, Query: DefaultWikipediaCategory, Value: "page|534b494e54|30"}
	require.NoError(t, f.ValidateToken(cursor))

	res, err := f.Fetch(context.Background(), cursor, nil)
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.True(t, res.Next.IsZero())
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Skint", res.Items[0].Term.Text)
	assert.Empty(t, res.Items[0].Term.Example)
}

func TestWikipediaSkipsVisitedArticles(t *testing.T) {
	f := newWikipediaServer(t)
	seen := visitedSet{"wikipedia/Bog (slang)": true, "wikipedia/Gobsmacked": true}

	res, err := f.Fetch(context.Background(), Token{}, seen)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.False(t, res.Exhausted)
}

func TestWikipediaListingFailureIsFetchError(t *testing.T) {
	srv := fakeWiki(t, func(q url.Values) (int, string) {
		return http.StatusForbidden, `{}`
	})
	f := NewWikipediaFetcher(WikipediaOptions{ClientOptions: ClientOptions{Endpoint: srv.URL}}, nil)

	_, err := f.Fetch(context.Background(), Token{}, nil)
	fe, ok := AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, slang.SourceWikipedia, fe.Source)
	assert.Equal(t, KindHTTP, fe.Kind)
}

func TestWikipediaValidateToken(t *testing.T) {
	f := NewWikipediaFetcher(WikipediaOptions{}, nil)

	cases := []struct {
		name  string
		token Token
		ok    bool
	}{
		{"valid", Token{slang.SourceWikipedia, DefaultWikipediaCategory, "page|424f47|12"}, true},
		{"empty sortkey", Token{slang.SourceWikipedia, DefaultWikipediaCategory, "page||12"}, true},
		{"other source", Token{slang.SourceWiktionary, DefaultWikipediaCategory, "page|424f47|12"}, false},
		{"other category", Token{slang.SourceWikipedia, "Category:Scottish slang", "page|424f47|12"}, false},
		{"garbage", Token{slang.SourceWikipedia, DefaultWikipediaCategory, "not-a-token"}, false},
		{"non numeric id", Token{slang.SourceWikipedia, DefaultWikipediaCategory, "page|424f47|x"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.ValidateToken(tc.token)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrMalformedToken)
			}
		})
	}
}
