package fetch

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/law-makers/propcrawl/internal/proxy"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

// SessionOptions configures a worker's HTTP session
type SessionOptions struct {
	Timeout            time.Duration // whole request including body
	ConnectTimeout     time.Duration // TCP connect
	Proxies            *proxy.Pool
	TLSFingerprint     bool
	InsecureSkipVerify bool
}

// Session is an HTTP client owned by a single worker. It keeps its own
// connection pool and cookie jar, and sticks to one proxy until that proxy fails.
type Session struct {
	client  *http.Client
	pool    *proxy.Pool
	mu      sync.Mutex
	current *url.URL
}

// NewSession creates a session with its own transport
func NewSession(opts SessionOptions) *Session {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}

	s := &Session{pool: opts.Proxies}
	s.current = s.pool.Next()

	dialer := &net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:         dialer.DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: opts.ConnectTimeout,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: opts.InsecureSkipVerify},
	}
	if s.pool.Len() > 0 {
		transport.Proxy = s.proxyFor
	}
	// The fingerprinting dialer only handles direct connections.
	if opts.TLSFingerprint && s.pool.Len() == 0 {
		transport.DialTLSContext = chromeDialer(dialer, opts.InsecureSkipVerify)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		log.Warn().Err(err).Msg("Cookie jar unavailable, continuing without cookies")
	}

	s.client = &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
		Jar:       jar,
	}
	return s
}

// Do sends the request through the session's client
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	return s.client.Do(req)
}

// Proxy returns the proxy currently in use, or nil for direct connections
func (s *Session) Proxy() *url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Close releases idle connections
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}

func (s *Session) proxyFor(*http.Request) (*url.URL, error) {
	return s.Proxy(), nil
}

// reportFailure puts the current proxy on cooldown and switches to the next one.
func (s *Session) reportFailure() {
	if s.pool.Len() == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pool.MarkFailed(s.current)
	prev := s.current
	s.current = s.pool.Next()
	log.Debug().
		Str("from", prev.Redacted()).
		Str("to", s.current.Redacted()).
		Msg("Rotated proxy")
}

func (s *Session) reportSuccess() {
	if s.pool.Len() == 0 {
		return
	}
	s.pool.MarkHealthy(s.Proxy())
}
