package ingest

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/britishdays/pkg/slang"
)

const wrappedTerms = `{"terms": [
  {"term": "Chuffed", "definition": "Very pleased", "polish": "Zadowolony", "pronunciation": "/tʃʌft/"},
  {"text": "Skint", "definition": "Broke", "source_type": "wiktionary", "source_url": "https://en.wiktionary.org/wiki/skint"}
]}`

const arrayTerms = `[
  {"term": "Cuppa", "definition": "A cup of tea", "category": "noun", "translation": "Filiżanka herbaty"}
]`

func TestDecodeTermsObjectAndArray(t *testing.T) {
	terms, err := DecodeTerms([]byte(wrappedTerms))
	require.NoError(t, err)
	require.Len(t, terms, 2)
	assert.Equal(t, "Chuffed", terms[0].Text)
	assert.Equal(t, "Zadowolony", terms[0].Translation)
	assert.Equal(t, "/tʃʌft/", terms[0].Pronunciation)
	assert.Equal(t, slang.SourceType(""), terms[0].SourceType)
	assert.Equal(t, "Skint", terms[1].Text)
	assert.Equal(t, slang.SourceWiktionary, terms[1].SourceType)

	terms, err = DecodeTerms([]byte(arrayTerms))
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "Filiżanka herbaty", terms[0].Translation)
	assert.Equal(t, "noun", terms[0].Category)

	_, err = DecodeTerms([]byte(`{"terms": 12}`))
	assert.Error(t, err)
}

func TestLoadTermsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms.json")
	require.NoError(t, os.WriteFile(path, []byte(arrayTerms), 0o644))

	terms, err := LoadTerms(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, terms, 1)
	assert.Equal(t, "Cuppa", terms[0].Text)

	_, err = LoadTerms(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadTermsFromURL(t *testing.T) {
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, err := w.Write([]byte(wrappedTerms))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/terms.json.gz":
			_, _ = w.Write(gz.Bytes())
		case "/terms.json":
			_, _ = w.Write([]byte(arrayTerms))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	terms, err := LoadTerms(context.Background(), srv.URL+"/terms.json.gz")
	require.NoError(t, err)
	assert.Len(t, terms, 2)

	terms, err = LoadTerms(context.Background(), srv.URL+"/terms.json")
	require.NoError(t, err)
	assert.Len(t, terms, 1)

	_, err = LoadTerms(context.Background(), srv.URL+"/nope.json")
	assert.ErrorContains(t, err, "404")
}
