package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/britishdays/pkg/slang"
)

// fakeWiki serves MediaWiki-shaped JSON chosen by the request's query parameters.
func fakeWiki(t *testing.T, route func(q url.Values) (int, string)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("format") != "json" || q.Get("formatversion") != "2" {
			http.Error(w, "bad format", http.StatusBadRequest)
			return
		}
		status, body := route(q)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testClient(endpoint string, retries int) *Client {
	return NewClient(slang.SourceWikipedia, ClientOptions{
		Endpoint:   endpoint,
		Timeout:    2 * time.Second,
		Retries:    retries,
		RetryDelay: time.Millisecond,
	}, nil)
}

func TestClientRetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := fakeWiki(t, func(q url.Values) (int, string) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return http.StatusServiceUnavailable, `{}`
		}
		return http.StatusOK, `{"parse":{"title":"Bog","text":"<p>ok</p>"}}`
	})

	html, err := pageHTML(context.Background(), testClient(srv.URL, 3), "Bog")
	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", html)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClientGivesUpAfterRetries(t *testing.T) {
	var calls int32
	srv := fakeWiki(t, func(q url.Values) (int, string) {
		atomic.AddInt32(&calls, 1)
		return http.StatusTooManyRequests, `{}`
	})

	_, err := pageHTML(context.Background(), testClient(srv.URL, 2), "Bog")
	require.Error(t, err)
	fe, ok := AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, KindNetwork, fe.Kind)
	assert.True(t, fe.Retryable)
	assert.Equal(t, "Bog", fe.Location)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := fakeWiki(t, func(q url.Values) (int, string) {
		atomic.AddInt32(&calls, 1)
		return http.StatusNotFound, `{}`
	})

	_, err := pageHTML(context.Background(), testClient(srv.URL, 3), "Bog")
	fe, ok := AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, KindHTTP, fe.Kind)
	assert.False(t, fe.Retryable)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestClientAPIErrorIsParseError(t *testing.T) {
	srv := fakeWiki(t, func(q url.Values) (int, string) {
		return http.StatusOK, `{"error":{"code":"missingtitle","info":"The page you specified doesn't exist."}}`
	})

	_, err := pageHTML(context.Background(), testClient(srv.URL, 3), "Nope")
	fe, ok := AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, KindParse, fe.Kind)
	assert.Contains(t, err.Error(), "missingtitle")
}

func TestClientMalformedJSON(t *testing.T) {
	srv := fakeWiki(t, func(q url.Values) (int, string) {
		return http.StatusOK, `<html>not json</html>`
	})

	_, _, err := listCategory(context.Background(), testClient(srv.URL, 0), "Category:British slang", "", "", 5)
	fe, ok := AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, KindParse, fe.Kind)
}

func TestClientCancelledContext(t *testing.T) {
	srv := fakeWiki(t, func(q url.Values) (int, string) {
		return http.StatusOK, `{"parse":{"text":""}}`
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pageHTML(ctx, testClient(srv.URL, 2), "Bog")
	require.Error(t, err)
	_, ok := AsFetchError(err)
	assert.True(t, ok)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestArticleURL(t *testing.T) {
	c := testClient("https://en.wikipedia.org/w/api.php", 0)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Bog_standard", c.ArticleURL("Bog standard"))

	assert.Equal(t, "", testClient("", 0).ArticleURL("Bog"))
}

func TestListCategoryPaging(t *testing.T) {
	srv := fakeWiki(t, func(q url.Values) (int, string) {
		assert.Equal(t, "categorymembers", q.Get("list"))
		if q.Get("cmcontinue") == "" {
			assert.Equal(t, "b", q.Get("cmstartsortkeyprefix"))
			return http.StatusOK, `{"continue":{"cmcontinue":"page|424f47|42"},"query":{"categorymembers":[{"pageid":1,"ns":0,"title":"Bloke"}]}}`
		}
		assert.Empty(t, q.Get("cmstartsortkeyprefix"))
		return http.StatusOK, `{"query":{"categorymembers":[{"pageid":42,"ns":0,"title":"Bog"}]}}`
	})
	c := testClient(srv.URL, 0)

	members, next, err := listCategory(context.Background(), c, "Category:British English", "b", "", 1)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "Bloke", members[0].Title)
	assert.Equal(t, "page|424f47|42", next)

	members, next, err = listCategory(context.Background(), c, "Category:British English", "b", next, 1)
	require.NoError(t, err)
	assert.Equal(t, "Bog", members[0].Title)
	assert.Empty(t, next)
}
