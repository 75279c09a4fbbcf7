package listing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/law-makers/propcrawl/internal/errs"
	"github.com/law-makers/propcrawl/internal/extract"
	"github.com/law-makers/propcrawl/internal/fetch"
	"github.com/law-makers/propcrawl/internal/retry"
	"github.com/law-makers/propcrawl/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchPage(offset, n, total int) string {
	props := make([]string, n)
	for i := range props {
		props[i] = fmt.Sprintf(`{"seoUrl":"/spid-%d"}`, offset+i)
	}
	return fmt.Sprintf(`<html><script>window.__initialData__={"srp":{"pageData":{"count":%d,"properties":[%s]}}};</script></html>`,
		total, strings.Join(props, ","))
}

func newFollower(t *testing.T, maxPages int) *Follower {
	t.Helper()
	cfg := retry.DefaultConfig()
	cfg.MaxAttempts = 1
	policy, err := fetch.NewCaptchaPolicy([]string{`/load/verifycaptcha`}, nil)
	require.NoError(t, err)

	f := fetch.NewFetcher(fetch.Options{Retry: cfg, Captcha: policy})
	return New(f, extract.New(""), Options{PageSize: 25, MaxPages: maxPages})
}

func components(saleURL string) map[string]any {
	return map[string]any{
		"resaleProperties": map[string]any{
			"data": map[string]any{"metaTagInfo": map[string]any{"CANONICAL_URL": saleURL}},
		},
	}
}

func session() *fetch.Session {
	return fetch.NewSession(fetch.SessionOptions{Timeout: 5 * time.Second})
}

func TestFollow_PagesUntilCount(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page <= 1 {
			fmt.Fprint(w, searchPage(0, 25, 30))
			return
		}
		fmt.Fprint(w, searchPage(25, 5, 30))
	}))
	defer server.Close()

	got, err := newFollower(t, 10).Follow(context.Background(), session(), components(server.URL+"/sale"))

	require.NoError(t, err)
	assert.Len(t, got[models.ListingSale], 30)
	assert.Empty(t, got[models.ListingRent])
	assert.Equal(t, int32(2), hits.Load())
}

func TestFollow_StopsAtMaxPages(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1))
		fmt.Fprint(w, searchPage((n-1)*25, 25, 1000))
	}))
	defer server.Close()

	got, err := newFollower(t, 3).Follow(context.Background(), session(), components(server.URL+"/sale"))

	require.NoError(t, err)
	assert.Len(t, got[models.ListingSale], 75)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFollow_BlockedPageAborts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sale", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			http.Redirect(w, r, "/load/verifycaptcha?redirect=sale", http.StatusFound)
			return
		}
		fmt.Fprint(w, searchPage(0, 25, 100))
	})
	mux.HandleFunc("/load/verifycaptcha", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>please verify you are human</html>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	got, err := newFollower(t, 10).Follow(context.Background(), session(), components(server.URL+"/sale"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrCaptchaBlocked))
	assert.Len(t, got[models.ListingSale], 25)
}

func TestFollow_FailedPageKeepsPartialResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, searchPage(0, 25, 100))
	}))
	defer server.Close()

	got, err := newFollower(t, 10).Follow(context.Background(), session(), components(server.URL+"/sale"))

	require.NoError(t, err)
	assert.Len(t, got[models.ListingSale], 25)
}

func TestFollow_NoCanonicalURLIssuesNoRequest(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	got, err := newFollower(t, 10).Follow(context.Background(), session(), map[string]any{
		"rentalProperties": map[string]any{"data": []any{}},
	})

	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, hits.Load())
}
