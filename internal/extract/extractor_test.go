package extract

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/law-makers/propcrawl/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalanced(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		err  error
	}{
		{
			name: "simple assignment",
			text: `window.__initialData__={"a":1};`,
			want: `{"a":1}`,
		},
		{
			name: "nested objects and trailing code",
			text: `var x; window.__initialData__ = {"a":{"b":{"c":[1,{"d":2}]}}}; window.other={"z":0};`,
			want: `{"a":{"b":{"c":[1,{"d":2}]}}}`,
		},
		{
			name: "braces inside strings",
			text: `window.__initialData__={"s":"}{ not a brace }","t":"{"};`,
			want: `{"s":"}{ not a brace }","t":"{"}`,
		},
		{
			name: "escaped quotes inside strings",
			text: `window.__initialData__={"s":"say \"}\" now","u":"\\"};`,
			want: `{"s":"say \"}\" now","u":"\\"}`,
		},
		{
			name: "single quoted javascript string",
			text: `window.__initialData__={a:'}'};`,
			want: `{a:'}'}`,
		},
		{
			name: "missing token",
			text: `window.somethingElse={"a":1};`,
			err:  errs.ErrTokenNotFound,
		},
		{
			name: "truncated page",
			text: `window.__initialData__={"a":{"b":1}`,
			err:  errs.ErrUnbalanced,
		},
		{
			name: "no object after token",
			text: `window.__initialData__ = null;`,
			err:  errs.ErrUnbalanced,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Balanced(tt.text, DefaultToken)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_MatchesReferenceParse(t *testing.T) {
	blob := `{"projectDetailState":{"pageData":{"basicDetails":{"projectName":"X","id":12345678901234567},"components":{"list":[1,2,{"k":"}"}]}}}}`
	html := `<!DOCTYPE html><html><head>
<script src="/app.js"></script>
<script>var cfg = {"unrelated": true};</script>
<script>window.__initialData__=` + blob + `;window.__flags__={"x":1};</script>
</head><body><div>{not json}</div></body></html>`

	got, err := New("").Extract("https://site/p1", html)
	require.NoError(t, err)

	var want map[string]any
	dec := json.NewDecoder(strings.NewReader(blob))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&want))

	assert.Equal(t, want, got)
}

func TestExtract_MissingTokenIsParseError(t *testing.T) {
	got, err := New(DefaultToken).Extract("https://site/p1", `<html><script>var a = {"b":1};</script></html>`)

	require.Error(t, err)
	assert.Nil(t, got)
	assert.Equal(t, errs.CodeParse, errs.CodeOf(err))
	assert.True(t, errors.Is(err, errs.ErrTokenNotFound))

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "https://site/p1", e.Details["url"])
	assert.NotEmpty(t, e.Details["snippet"])
}

func TestExtract_TruncatedPageIsParseError(t *testing.T) {
	_, err := New(DefaultToken).Extract("u", `<html><script>window.__initialData__={"a":{"b":1}`)

	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUnbalanced))
}

func TestExtract_FallsBackToJavaScriptLiteral(t *testing.T) {
	html := `<script>window.__initialData__={projectDetailState:{pageData:{basicDetails:{projectName:'Y',skip:undefined,},},},};</script>`

	got, err := New(DefaultToken).Extract("u", html)
	require.NoError(t, err)

	pd := got["projectDetailState"].(map[string]any)["pageData"].(map[string]any)
	bd := pd["basicDetails"].(map[string]any)
	assert.Equal(t, "Y", bd["projectName"])
	assert.NotContains(t, bd, "skip")
}

func TestExtract_RawScanWhenNotInScriptTag(t *testing.T) {
	got, err := New(DefaultToken).Extract("u", `prefix window.__initialData__={"a":"b"} suffix`)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "b"}, got)
}

func TestExtract_InvalidLiteral(t *testing.T) {
	_, err := New(DefaultToken).Extract("u", `<script>window.__initialData__={"a": nope nope};</script>`)

	require.Error(t, err)
	assert.Equal(t, errs.CodeParse, errs.CodeOf(err))
}
