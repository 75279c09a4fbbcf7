package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	urlutil "github.com/law-makers/propcrawl/internal/utils/url"
	"github.com/law-makers/propcrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// NDJSONStore appends records to a newline-delimited JSON file. Existing
// content is never rewritten. Safe for concurrent use.
type NDJSONStore struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// OpenNDJSON opens path for appending, creating it and its parent directories as needed.
func OpenNDJSON(path string) (*NDJSONStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return &NDJSONStore{path: path, f: f}, nil
}

// Path returns the file the store writes to
func (s *NDJSONStore) Path() string {
	return s.path
}

// Append writes records, one JSON object per line, in a single write.
func (s *NDJSONStore) Append(records []*models.Record) error {
	if len(records) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode record %s: %w", r.URL, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return errors.New("store is closed")
	}
	if _, err := s.f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("append to %s: %w", s.path, err)
	}
	return nil
}

// Close syncs and closes the file
func (s *NDJSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Sync()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	s.f = nil
	return err
}

// ReadRecords streams the records of an NDJSON file to fn. Lines that do not
// decode are logged and skipped, so a file cut short by a crash stays readable.
func ReadRecords(path string, fn func(*models.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, readErr := r.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) > 0 {
			var rec models.Record
			if err := json.Unmarshal(line, &rec); err != nil {
				log.Debug().Err(err).Str("file", path).Int("line", lineNo).Msg("Skipping malformed record")
			} else if err := fn(&rec); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read %s: %w", path, readErr)
		}
	}
}

// SeenURLs returns the keys of the URLs already recorded in path. A missing
// file yields an empty set.
func SeenURLs(path string) (map[string]struct{}, error) {
	seen := make(map[string]struct{})
	err := ReadRecords(path, func(r *models.Record) error {
		if r.URL != "" {
			seen[urlutil.Key(r.URL)] = struct{}{}
		}
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return seen, nil
	}
	return seen, err
}
