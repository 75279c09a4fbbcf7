// Package store reads crawl inputs and appends records to NDJSON files.
package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	urlutil "github.com/law-makers/propcrawl/internal/utils/url"
	"github.com/law-makers/propcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// entry accepts every supported input element: a bare URL string, a single
// {url, source} item, or a group {urls: [...], source_url}.
type entry struct {
	URL       string   `json:"url"`
	URLs      []string `json:"urls"`
	Source    string   `json:"source"`
	SourceURL string   `json:"source_url"`
}

func (e *entry) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &e.URL)
	}
	type plain entry
	return json.Unmarshal(b, (*plain)(e))
}

func (e entry) items() []models.WorkItem {
	source := e.Source
	if source == "" {
		source = e.SourceURL
	}
	var out []models.WorkItem
	if e.URL != "" {
		out = append(out, models.WorkItem{URL: e.URL, Source: source})
	}
	for _, u := range e.URLs {
		out = append(out, models.WorkItem{URL: u, Source: source})
	}
	return out
}

// LoadWorkItems reads the URLs to crawl from path. The format follows the
// extension: .json holds an array of entries (or one group object),
// .ndjson/.jsonl hold one entry per line, anything else is plain text with
// one URL per line and # comments. Invalid URLs are skipped and duplicates
// are dropped case-insensitively, keeping the first occurrence.
func LoadWorkItems(path string) ([]models.WorkItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	var raw []models.WorkItem
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		raw, err = parseJSON(data)
	case ".ndjson", ".jsonl":
		raw, err = parseNDJSON(data)
	default:
		raw = parseText(data)
	}
	if err != nil {
		return nil, fmt.Errorf("parse input %s: %w", path, err)
	}

	return dedupe(raw), nil
}

func parseJSON(data []byte) ([]models.WorkItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var e entry
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return nil, err
		}
		return e.items(), nil
	}

	var entries []entry
	if err := json.Unmarshal(trimmed, &entries); err != nil {
		return nil, err
	}
	var out []models.WorkItem
	for _, e := range entries {
		out = append(out, e.items()...)
	}
	return out, nil
}

func parseNDJSON(data []byte) ([]models.WorkItem, error) {
	var out []models.WorkItem
	for i, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var e entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out = append(out, e.items()...)
	}
	return out, nil
}

func parseText(data []byte) []models.WorkItem {
	var out []models.WorkItem
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, models.WorkItem{URL: line})
	}
	return out
}

func dedupe(items []models.WorkItem) []models.WorkItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.WorkItem, 0, len(items))
	for _, it := range items {
		it.URL = strings.TrimSpace(it.URL)
		if err := urlutil.ValidateURL(it.URL); err != nil {
			log.Warn().Err(err).Str("url", it.URL).Msg("Skipping invalid input URL")
			continue
		}
		key := urlutil.Key(it.URL)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, it)
	}
	return out
}
