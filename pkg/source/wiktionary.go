package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/japaniel/britishdays/pkg/slang"
)

// Defaults for the Wiktionary source.
const (
	DefaultWiktionaryEndpoint = "https://en.wiktionary.org/w/api.php"
	DefaultWiktionaryCategory = "Category:British English"
	letterStart               = "start"
)

// DefaultLetters are common starting letters for British slang.
var DefaultLetters = []string{"b", "c", "d", "g", "k", "m", "p", "s", "w"}

// DefaultRegisters are the usage labels a sense must carry to be kept.
var DefaultRegisters = []string{"british", "britain", "uk", "slang", "colloquial", "informal", "cockney", "dialectal"}

var partsOfSpeech = map[string]bool{
	"noun": true, "proper noun": true, "verb": true, "adjective": true, "adverb": true,
	"interjection": true, "phrase": true, "idiom": true, "pronoun": true,
	"prepositional phrase": true, "contraction": true, "particle": true,
}

// WiktionaryOptions configures the Wiktionary fetcher.
type WiktionaryOptions struct {
	ClientOptions
	Category string
	Letters  []string
	// StartLetter pins the first letter; empty picks one from the day of year.
	StartLetter string
	Registers   []string
	PageSize    int
}

// WiktionaryFetcher walks a category one starting letter at a time and keeps
// the senses of each entry labelled with a British register.
type WiktionaryFetcher struct {
	client    *Client
	category  string
	letters   []string
	start     int
	registers []string
	pageSize  int
	logger    *zap.Logger
	now       clock
}

// NewWiktionaryFetcher creates a Wiktionary fetcher.
func NewWiktionaryFetcher(opts WiktionaryOptions, logger *zap.Logger) *WiktionaryFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultWiktionaryEndpoint
	}
	if opts.Category == "" {
		opts.Category = DefaultWiktionaryCategory
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}

	var letters []string
	for _, l := range opts.Letters {
		l = strings.ToLower(strings.TrimSpace(l))
		if l != "" {
			letters = append(letters, l)
		}
	}
	if len(letters) == 0 {
		letters = DefaultLetters
	}
	registers := opts.Registers
	if len(registers) == 0 {
		registers = DefaultRegisters
	}

	start := time.Now().YearDay() % len(letters)
	if opts.StartLetter != "" {
		start = indexOf(letters, strings.ToLower(opts.StartLetter))
		if start < 0 {
			start = 0
		}
	}

	return &WiktionaryFetcher{
		client:    NewClient(slang.SourceWiktionary, opts.ClientOptions, logger),
		category:  opts.Category,
		letters:   letters,
		start:     start,
		registers: registers,
		pageSize:  opts.PageSize,
		logger:    logger.With(zap.String("source", string(slang.SourceWiktionary))),
		now:       time.Now,
	}
}

// Type implements Fetcher.
func (w *WiktionaryFetcher) Type() slang.SourceType { return slang.SourceWiktionary }

// StartLetter returns the letter the walk begins (and ends) at.
func (w *WiktionaryFetcher) StartLetter() string { return w.letters[w.start] }

// ValidateToken implements Fetcher.
func (w *WiktionaryFetcher) ValidateToken(t Token) error {
	if t.Source != slang.SourceWiktionary {
		return fmt.Errorf("%w: issued by %q", ErrMalformedToken, t.Source)
	}
	if indexOf(w.letters, t.Query) < 0 {
		return fmt.Errorf("%w: unknown letter %q", ErrMalformedToken, t.Query)
	}
	if t.Value != letterStart && !reCategoryContinue.MatchString(t.Value) {
		return fmt.Errorf("%w: %q", ErrMalformedToken, t.Value)
	}
	return nil
}

// Fetch implements Fetcher.
func (w *WiktionaryFetcher) Fetch(ctx context.Context, cursor Token, seen LocationChecker) (FetchResult, error) {
	idx, cont := w.start, ""
	if !cursor.IsZero() {
		if i := indexOf(w.letters, cursor.Query); i >= 0 {
			idx = i
		}
		if cursor.Value != letterStart {
			cont = cursor.Value
		}
	}
	letter := w.letters[idx]

	members, next, err := listCategory(ctx, w.client, w.category, letter, cont, w.pageSize)
	if err != nil {
		return FetchResult{}, err
	}

	var res FetchResult
	letterDone := next == ""
	for _, m := range members {
		if !strings.HasPrefix(strings.ToLower(m.Title), letter) {
			letterDone = true
			break
		}
		visited, err := isVisited(seen, slang.SourceWiktionary, m.Title)
		if err != nil {
			return FetchResult{}, err
		}
		if visited {
			continue
		}

		html, err := pageHTML(ctx, w.client, m.Title)
		if err != nil {
			if fe, ok := AsFetchError(err); ok && fe.Kind == KindParse {
				w.logger.Debug("Skipping unreadable entry", zap.String("title", m.Title), zap.Error(err))
				continue
			}
			return FetchResult{}, err
		}
		entry, ok := ParseWiktionaryEntry(html, w.registers)
		if !ok {
			res.Visited = append(res.Visited, m.Title)
			continue
		}
		res.Items = append(res.Items, Item{
			Term: slang.Term{
				Text:          m.Title,
				Definition:    entry.Definition,
				Example:       entry.Example,
				Category:      entry.Category,
				Pronunciation: entry.Pronunciation,
				SourceType:    slang.SourceWiktionary,
				SourceURL:     w.client.ArticleURL(m.Title),
				DiscoveredAt:  w.now(),
			},
			Location: m.Title,
		})
	}

	if !letterDone {
		res.Next = Token{Source: slang.SourceWiktionary, Query: letter, Value: next}
		return res, nil
	}

	nextIdx := (idx + 1) % len(w.letters)
	if nextIdx == w.start {
		w.logger.Info("Letter walk complete", zap.String("last_letter", letter))
		res.Exhausted = true
		return res, nil
	}
	res.Next = Token{Source: slang.SourceWiktionary, Query: w.letters[nextIdx], Value: letterStart}
	return res, nil
}

// WiktionaryEntry is the first accepted sense of an English entry.
type WiktionaryEntry struct {
	Definition    string
	Example       string
	Category      string
	Pronunciation string
}

// ParseWiktionaryEntry reads the English section of a rendered entry and returns
// the first sense whose usage labels mention one of registers.
func ParseWiktionaryEntry(html string, registers []string) (WiktionaryEntry, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return WiktionaryEntry{}, false
	}

	heading := englishHeading(doc)
	if heading == nil {
		return WiktionaryEntry{}, false
	}

	var (
		entry WiktionaryEntry
		pos   string
		found bool
	)
	heading.NextAll().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if isHeading(s, 2) {
			return false
		}
		if entry.Pronunciation == "" {
			if ipa := s.Find(".IPA").First(); ipa.Length() > 0 {
				entry.Pronunciation = clean(ipa.Text())
			} else if s.HasClass("IPA") {
				entry.Pronunciation = clean(s.Text())
			}
		}
		if isHeading(s, 3) || isHeading(s, 4) || isHeading(s, 5) {
			if text := strings.ToLower(headingText(s)); partsOfSpeech[text] {
				pos = text
			}
			return true
		}
		if goquery.NodeName(s) != "ol" {
			return true
		}
		s.ChildrenFiltered("li").EachWithBreak(func(_ int, li *goquery.Selection) bool {
			labels := strings.ToLower(li.Find(".usage-label-sense, .ib-content").Text())
			if !matchesRegister(labels, registers) {
				return true
			}
			def := senseText(li)
			if def == "" {
				return true
			}
			example := li.Find(".e-example").First().Text()
			if strings.TrimSpace(example) == "" {
				example = li.Find("dl dd").First().Text()
			}
			entry.Definition = slang.Truncate(def, 500)
			entry.Example = slang.Truncate(clean(example), 200)
			found = true
			return false
		})
		if found {
			entry.Category = pos
			return false
		}
		return true
	})
	if !found {
		return WiktionaryEntry{}, false
	}
	if entry.Category == "" {
		entry.Category = "slang"
	}
	return entry, true
}

// englishHeading finds the level-2 heading block of the English section, handling
// both the <div class="mw-heading"><h2 id=...> and <h2><span id=...> layouts.
func englishHeading(doc *goquery.Document) *goquery.Selection {
	anchor := doc.Find("#English").First()
	if anchor.Length() == 0 {
		return nil
	}
	h2 := anchor
	if goquery.NodeName(h2) != "h2" {
		h2 = anchor.Closest("h2")
		if h2.Length() == 0 {
			return nil
		}
	}
	if parent := h2.Parent(); parent.HasClass("mw-heading") {
		return parent
	}
	return h2
}

func isHeading(s *goquery.Selection, level int) bool {
	tag := fmt.Sprintf("h%d", level)
	return goquery.NodeName(s) == tag || s.HasClass("mw-heading"+fmt.Sprint(level))
}

func headingText(s *goquery.Selection) string {
	if h := s.Find("h3, h4, h5").First(); h.Length() > 0 {
		s = h
	}
	text := s.Clone()
	text.Find(".mw-editsection").Remove()
	return clean(text.Text())
}

func senseText(li *goquery.Selection) string {
	c := li.Clone()
	c.Find("ol, ul, dl, .usage-label-sense, .ib-content, .ib-brac, sup, .e-example").Remove()
	return clean(c.Text())
}

func matchesRegister(labels string, registers []string) bool {
	for _, r := range registers {
		if r != "" && strings.Contains(labels, strings.ToLower(r)) {
			return true
		}
	}
	return false
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}
