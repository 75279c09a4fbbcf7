package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel          = "info"
	DefaultJSONLog           = false
	DefaultWorkers           = 2
	DefaultMaxWorkers        = 32
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultConnectTimeout    = 10 * time.Second
	DefaultMaxRetries        = 5
	DefaultInitialBackoff    = 1 * time.Second
	DefaultMaxBackoff        = 30 * time.Second
	DefaultBackoffMultiplier = 2.0
	DefaultSaveEvery         = 10
	DefaultProxyCooldown     = 5 * time.Minute
	DefaultRateLimitRPS      = 1.0
	DefaultRateLimitBurst    = 2
	DefaultMinDelay          = 500 * time.Millisecond
	DefaultMaxDelay          = 2 * time.Second
	DefaultStartToken        = "window.__initialData__"
	DefaultBaseURL           = "https://www.99acres.com"
	DefaultListingPageSize   = 25
	DefaultMaxListingPages   = 20
	DefaultMinBodyBytes      = 100
	DefaultEnvFile           = ".env"
	EnvPrefix                = "PROPCRAWL_"
)

// DefaultRetryableStatuses are retried with backoff
var DefaultRetryableStatuses = []int{429, 500, 502, 503, 504}

// DefaultCaptchaURLPatterns match the final URL of a captcha redirect
var DefaultCaptchaURLPatterns = []string{
	`^https?://(www\.)?99acres\.com/load/verifycaptcha`,
}

// DefaultUserAgents are rotated per request
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_7_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.1 Safari/605.1.15",
}
