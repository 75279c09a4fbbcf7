package fetch

import (
	"math/rand/v2"
	"net/http"
)

// Browser-like defaults. Accept-Encoding is left to the transport so that
// gzip responses are decompressed transparently.
var baseHeaders = map[string]string{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Cache-Control":             "max-age=0",
	"DNT":                       "1",
}

// HeaderSet applies the request headers, picking a User-Agent from the pool
// on every call.
type HeaderSet struct {
	userAgents []string
	extra      map[string]string
	pick       func(n int) int
}

// NewHeaderSet builds a header set. Extra headers override the defaults.
func NewHeaderSet(userAgents []string, extra map[string]string) *HeaderSet {
	return &HeaderSet{
		userAgents: userAgents,
		extra:      extra,
		pick:       rand.IntN,
	}
}

// Apply sets all headers on req and returns the chosen User-Agent
func (h *HeaderSet) Apply(req *http.Request) string {
	for k, v := range baseHeaders {
		req.Header.Set(k, v)
	}

	ua := ""
	if len(h.userAgents) > 0 {
		ua = h.userAgents[h.pick(len(h.userAgents))]
		req.Header.Set("User-Agent", ua)
	}

	for k, v := range h.extra {
		req.Header.Set(k, v)
	}
	return req.Header.Get("User-Agent")
}
