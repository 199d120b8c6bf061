package slang

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

// Version returns the current version of the package.
func Version() string { return "0.2.0" }

// SourceType identifies which provider a term came from.
type SourceType string

const (
	SourceWikipedia  SourceType = "wikipedia"
	SourceWiktionary SourceType = "wiktionary"
	SourceMock       SourceType = "mock"
)

// SourceTypes lists every known source in its default rotation order.
var SourceTypes = []SourceType{SourceWikipedia, SourceWiktionary, SourceMock}

// ParseSourceType converts a configuration identifier to a SourceType.
func ParseSourceType(s string) (SourceType, error) {
	switch SourceType(strings.ToLower(strings.TrimSpace(s))) {
	case SourceWikipedia:
		return SourceWikipedia, nil
	case SourceWiktionary:
		return SourceWiktionary, nil
	case SourceMock:
		return SourceMock, nil
	}
	return "", fmt.Errorf("unknown source type %q", s)
}

// Term is a candidate or confirmed lexical entry.
type Term struct {
	Text          string
	Definition    string
	Example       string
	Category      string
	Translation   string // Polish gloss in the built-in list
	Pronunciation string
	SourceType    SourceType
	SourceURL     string
	DiscoveredAt  time.Time
}

// Key returns the dedup key of the term.
func (t Term) Key() string { return Normalize(t.Text) }

// Normalize case-folds and trims text, collapsing inner whitespace runs.
// The result is the dedup key shared by the cache and the primary store.
func Normalize(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

var reParenthetical = regexp.MustCompile(`\s*\([^)]*\)\s*$`)

// CleanTitle turns a page title into term text, e.g. "Bog (slang)" -> "Bog".
func CleanTitle(title string) string {
	t := strings.ReplaceAll(title, "_", " ")
	t = reParenthetical.ReplaceAllString(t, "")
	return strings.TrimSpace(t)
}

// SplitSentences breaks prose into sentences on terminal punctuation and newlines.
// Abbreviation handling is deliberately naive.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' {
			flush()
			continue
		}
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			// Keep closing quotes with their sentence.
			for i+1 < len(runes) && isClosingQuote(runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				flush()
			}
		}
	}
	flush()
	return sentences
}

func isClosingQuote(r rune) bool {
	return r == '"' || r == '\'' || r == '”' || r == '’' || r == ')'
}

const (
	maxDefinitionLen = 500
	maxExampleLen    = 200
)

var exampleKeywords = []string{"example", "used", "saying", "means"}

// ExtractDefinition picks a definition and an example out of plain prose.
// The first sentence is taken as the definition; the example is the first later
// sentence containing a quotation or one of a few illustrative keywords.
func ExtractDefinition(text string) (definition, example string) {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return "", ""
	}
	definition = Truncate(sentences[0], maxDefinitionLen)
	for _, s := range sentences[1:] {
		if looksLikeExample(s) {
			example = Truncate(s, maxExampleLen)
			break
		}
	}
	return definition, example
}

func looksLikeExample(s string) bool {
	if strings.ContainsAny(s, "\"“‘") {
		return true
	}
	lower := strings.ToLower(s)
	for _, kw := range exampleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Truncate shortens s to at most n runes, marking the cut with an ellipsis.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reSup         = regexp.MustCompile(`(?si)<sup\b[^>]*>.*?</sup>`)
	reEditSection = regexp.MustCompile(`(?si)<span\b[^>]*class="mw-editsection"[^>]*>.*?</span>\s*</span>`)
)

// SanitizeWikiHTML removes reference markers (<sup>...</sup>) and section edit links
// from rendered MediaWiki HTML. Readability otherwise folds "[1]" and "[edit]" into
// the extracted prose.
func SanitizeWikiHTML(content []byte) []byte {
	cleaned := reSup.ReplaceAll(content, []byte{})
	cleaned = reEditSection.ReplaceAll(cleaned, []byte{})
	return cleaned
}
