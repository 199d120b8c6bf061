package ingest

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/japaniel/britishdays/pkg/slang"
)

// TermRecord is one entry of a term file. Both the britishdays field names and the
// older term/polish spellings are accepted.
type TermRecord struct {
	Term          string `json:"term"`
	Text          string `json:"text"`
	Definition    string `json:"definition"`
	Example       string `json:"example"`
	Category      string `json:"category"`
	Translation   string `json:"translation"`
	Polish        string `json:"polish"`
	Pronunciation string `json:"pronunciation"`
	SourceType    string `json:"source_type"`
	SourceURL     string `json:"source_url"`
}

// ToTerm converts the record. An unknown source_type is left empty for the importer to fill.
func (r TermRecord) ToTerm() slang.Term {
	text := r.Term
	if text == "" {
		text = r.Text
	}
	translation := r.Translation
	if translation == "" {
		translation = r.Polish
	}
	st, err := slang.ParseSourceType(r.SourceType)
	if err != nil {
		st = ""
	}
	return slang.Term{
		Text:          text,
		Definition:    r.Definition,
		Example:       r.Example,
		Category:      r.Category,
		Translation:   translation,
		Pronunciation: r.Pronunciation,
		SourceType:    st,
		SourceURL:     r.SourceURL,
	}
}

// DecodeTerms parses either {"terms": [...]} or a bare array of records.
func DecodeTerms(data []byte) ([]slang.Term, error) {
	var wrapper struct {
		Terms []TermRecord `json:"terms"`
	}
	var records []TermRecord
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&wrapper); err == nil && len(wrapper.Terms) > 0 {
		records = wrapper.Terms
	} else if err := json.NewDecoder(bytes.NewReader(data)).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to parse term file as object or array: %w", err)
	}

	terms := make([]slang.Term, 0, len(records))
	for _, r := range records {
		terms = append(terms, r.ToTerm())
	}
	return terms, nil
}

// LoadTerms reads a term file from a local path or an http(s) URL. Names ending in
// .gz are decompressed.
func LoadTerms(ctx context.Context, location string) ([]slang.Term, error) {
	rc, err := openLocation(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if strings.HasSuffix(location, ".gz") {
		gz, err := gzip.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return DecodeTerms(data)
}

func openLocation(ctx context.Context, location string) (io.ReadCloser, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return os.Open(location)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "britishdays-cli")
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download failed: %s", resp.Status)
	}
	return resp.Body, nil
}
