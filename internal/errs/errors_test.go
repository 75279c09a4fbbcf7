package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("worker 1: %w", Parse("https://site/p1", "<html>", ErrTokenNotFound))

	if !errors.Is(err, &Error{Code: CodeParse}) {
		t.Error("Expected parse error to match by code")
	}
	if errors.Is(err, &Error{Code: CodeNetwork}) {
		t.Error("Parse error must not match network code")
	}
	if !errors.Is(err, ErrTokenNotFound) {
		t.Error("Expected underlying sentinel to be reachable")
	}
	if CodeOf(err) != CodeParse {
		t.Errorf("Expected code %s, got %s", CodeParse, CodeOf(err))
	}
}

func TestRetryClassification(t *testing.T) {
	if !IsRetryable(Network("u", errors.New("reset"))) {
		t.Error("Network errors must be retryable")
	}
	if !IsRetryable(HTTPStatus("u", 429, true)) {
		t.Error("Expected 429 marked retryable")
	}
	if IsRetryable(HTTPStatus("u", 404, false)) {
		t.Error("Expected 404 not retryable")
	}
	if IsRetryable(Captcha("u", "f")) {
		t.Error("Captcha block must never be retried")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("Plain errors are not retryable")
	}
}

func TestParseDetails(t *testing.T) {
	long := strings.Repeat("x", 500)
	e := Parse("https://site/p1", long, ErrUnbalanced)

	if e.Details["url"] != "https://site/p1" {
		t.Errorf("Expected url detail, got %v", e.Details["url"])
	}
	snippet, _ := e.Details["snippet"].(string)
	if len(snippet) != 203 {
		t.Errorf("Expected snippet truncated to 200 bytes plus ellipsis, got %d", len(snippet))
	}
}
