package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Map walks path through nested objects. Any missing key or non-object step
// yields an empty (non-nil) map.
func Map(v any, path ...string) map[string]any {
	cur, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	for _, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return map[string]any{}
		}
		cur = next
	}
	if cur == nil {
		return map[string]any{}
	}
	return cur
}

// Items returns the listing entries held by v: v itself when it is an array,
// otherwise the first array found under one of the usual container keys.
func Items(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		for _, key := range []string{"properties", "tuples", "list", "items"} {
			if arr, ok := t[key].([]any); ok {
				return arr
			}
		}
	}
	return nil
}

// String returns the first non-empty value among keys, rendered as text
func String(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := text(m[key]); s != "" {
			return s
		}
	}
	return ""
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
