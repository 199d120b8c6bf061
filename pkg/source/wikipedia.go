package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"github.com/japaniel/britishdays/pkg/slang"
)

// Defaults for the Wikipedia source.
const (
	DefaultWikipediaEndpoint = "https://en.wikipedia.org/w/api.php"
	DefaultWikipediaCategory = "Category:British slang"
	defaultPageSize          = 10
)

// WikipediaOptions configures the Wikipedia fetcher.
type WikipediaOptions struct {
	ClientOptions
	Category string
	PageSize int
}

// ExtractFunc turns page prose into a definition and an example.
type ExtractFunc func(text string) (definition, example string)

// WikipediaFetcher walks one category of articles, one listing page per call,
// turning each unvisited article into a term.
type WikipediaFetcher struct {
	client   *Client
	category string
	pageSize int
	logger   *zap.Logger
	now      clock

	// Extract is the parsing strategy applied to article prose.
	Extract ExtractFunc
}

// NewWikipediaFetcher creates a Wikipedia fetcher.
func NewWikipediaFetcher(opts WikipediaOptions, logger *zap.Logger) *WikipediaFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultWikipediaEndpoint
	}
	if opts.Category == "" {
		opts.Category = DefaultWikipediaCategory
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	return &WikipediaFetcher{
		client:   NewClient(slang.SourceWikipedia, opts.ClientOptions, logger),
		category: opts.Category,
		pageSize: opts.PageSize,
		logger:   logger.With(zap.String("source", string(slang.SourceWikipedia))),
		now:      time.Now,
		Extract:  slang.ExtractDefinition,
	}
}

// Type implements Fetcher.
func (w *WikipediaFetcher) Type() slang.SourceType { return slang.SourceWikipedia }

// ValidateToken implements Fetcher.
func (w *WikipediaFetcher) ValidateToken(t Token) error {
	if t.Source != slang.SourceWikipedia {
		return fmt.Errorf("%w: issued by %q", ErrMalformedToken, t.Source)
	}
	if t.Query != w.category {
		return fmt.Errorf("%w: query %q is not %q", ErrMalformedToken, t.Query, w.category)
	}
	if !reCategoryContinue.MatchString(t.Value) {
		return fmt.Errorf("%w: %q", ErrMalformedToken, t.Value)
	}
	return nil
}

// Fetch implements Fetcher.
func (w *WikipediaFetcher) Fetch(ctx context.Context, cursor Token, seen LocationChecker) (FetchResult, error) {
	members, next, err := listCategory(ctx, w.client, w.category, "", cursor.Value, w.pageSize)
	if err != nil {
		return FetchResult{}, err
	}

	var res FetchResult
	for _, m := range members {
		visited, err := isVisited(seen, slang.SourceWikipedia, m.Title)
		if err != nil {
			return FetchResult{}, err
		}
		if visited {
			continue
		}

		term, ok, err := w.readArticle(ctx, m.Title)
		if err != nil {
			if fe, isFetch := AsFetchError(err); isFetch && fe.Kind == KindParse {
				w.logger.Debug("Skipping unreadable article", zap.String("title", m.Title), zap.Error(err))
				continue
			}
			return FetchResult{}, err
		}
		if !ok {
			w.logger.Debug("No definition found", zap.String("title", m.Title))
			continue
		}
		res.Items = append(res.Items, Item{Term: term, Location: m.Title})
	}

	if next == "" {
		res.Exhausted = true
	} else {
		res.Next = Token{Source: slang.SourceWikipedia, Query: w.category, Value: next}
	}
	return res, nil
}

func (w *WikipediaFetcher) readArticle(ctx context.Context, title string) (slang.Term, bool, error) {
	text, err := pageExtract(ctx, w.client, title)
	if err != nil {
		return slang.Term{}, false, err
	}
	if strings.TrimSpace(text) == "" {
		// Some pages have no lead section extract; fall back to the rendered article.
		text, err = w.renderedText(ctx, title)
		if err != nil {
			return slang.Term{}, false, err
		}
	}

	definition, example := w.Extract(text)
	if definition == "" {
		return slang.Term{}, false, nil
	}
	return slang.Term{
		Text:         slang.CleanTitle(title),
		Definition:   definition,
		Example:      example,
		Category:     "slang",
		SourceType:   slang.SourceWikipedia,
		SourceURL:    w.client.ArticleURL(title),
		DiscoveredAt: w.now(),
	}, true, nil
}

func (w *WikipediaFetcher) renderedText(ctx context.Context, title string) (string, error) {
	html, err := pageHTML(ctx, w.client, title)
	if err != nil {
		return "", err
	}
	page := "<html><head><title>" + title + "</title></head><body>" + html + "</body></html>"
	cleaned := slang.SanitizeWikiHTML([]byte(page))

	pageURL, _ := url.Parse(w.client.ArticleURL(title))
	article, err := readability.FromReader(bytes.NewReader(cleaned), pageURL)
	if err != nil {
		return "", w.client.fail(title, KindParse, false, fmt.Errorf("extract article: %w", err))
	}
	return article.TextContent, nil
}
