package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"github.com/law-makers/propcrawl/internal/errs"
	"github.com/rs/zerolog/log"
)

// DefaultToken is the variable 99acres assigns its page state to
const DefaultToken = "window.__initialData__"

// DefaultEvalTimeout bounds the JavaScript fallback
const DefaultEvalTimeout = 2 * time.Second

// Extractor finds the object assigned to Token and decodes it.
type Extractor struct {
	Token       string
	EvalTimeout time.Duration
}

// New creates an Extractor for token
func New(token string) *Extractor {
	if token == "" {
		token = DefaultToken
	}
	return &Extractor{Token: token, EvalTimeout: DefaultEvalTimeout}
}

// Extract decodes the embedded object of the page at pageURL. Strict JSON is
// tried first; object literals that are valid JavaScript but not JSON
// (unquoted keys, undefined, trailing commas) are evaluated in an isolated VM.
// Failures are returned as PARSE_ERROR with a snippet of the input.
func (e *Extractor) Extract(pageURL, html string) (map[string]any, error) {
	candidates := e.scripts(html)
	if len(candidates) == 0 {
		candidates = []string{html}
	}

	var lastErr error
	for _, text := range candidates {
		literal, err := Balanced(text, e.Token)
		if err != nil {
			lastErr = err
			continue
		}

		data, err := e.decode(literal)
		if err != nil {
			log.Debug().Err(err).Str("url", pageURL).Msg("Embedded data did not decode, trying next script")
			lastErr = errs.Parse(pageURL, literal, err)
			continue
		}
		return data, nil
	}

	var parseErr *errs.Error
	if errors.As(lastErr, &parseErr) {
		return nil, parseErr
	}
	return nil, errs.Parse(pageURL, html, lastErr)
}

// scripts returns the text of every <script> that mentions the token
func (e *Extractor) scripts(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var out []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); strings.Contains(text, e.Token) {
			out = append(out, text)
		}
	})
	return out
}

func (e *Extractor) decode(literal string) (map[string]any, error) {
	data, err := decodeJSON(literal)
	if err == nil {
		return data, nil
	}

	normalized, evalErr := evalLiteral(literal, e.EvalTimeout)
	if evalErr != nil {
		return nil, fmt.Errorf("json: %v; js: %w", err, evalErr)
	}
	return decodeJSON(normalized)
}

func decodeJSON(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errors.New("embedded data is null")
	}
	return out, nil
}

// evalLiteral evaluates an object literal in a fresh VM and re-serializes it as JSON.
func evalLiteral(literal string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultEvalTimeout
	}

	vm := goja.New()
	timer := time.AfterFunc(timeout, func() {
		vm.Interrupt("evaluation timed out")
	})
	defer timer.Stop()

	v, err := vm.RunString("JSON.stringify(" + literal + ")")
	if err != nil {
		return "", err
	}
	s, ok := v.Export().(string)
	if !ok {
		return "", errors.New("literal is not serializable")
	}
	return s, nil
}
