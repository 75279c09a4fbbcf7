// Package extract pulls the JSON object assigned to a script variable out of an HTML page.
package extract

import (
	"strings"

	"github.com/law-makers/propcrawl/internal/errs"
)

// Balanced returns the smallest brace-balanced object that starts at the
// first '{' after token. The scan is a single forward pass tracking nesting
// depth and whether it is inside a quoted string, so braces inside string
// literals are ignored.
func Balanced(text, token string) (string, error) {
	at := strings.Index(text, token)
	if at == -1 {
		return "", errs.ErrTokenNotFound
	}
	open := strings.IndexByte(text[at+len(token):], '{')
	if open == -1 {
		return "", errs.ErrUnbalanced
	}
	start := at + len(token) + open

	depth := 0
	var quote byte
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if quote != 0 {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}

		switch c {
		case '"', '\'':
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}

	return "", errs.ErrUnbalanced
}
