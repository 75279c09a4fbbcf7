package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/law-makers/propcrawl/internal/utils/headers"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level"`
	JSONLog  bool   `yaml:"json_log"`

	// Pool
	Workers   int  `yaml:"workers"`
	SaveEvery int  `yaml:"save_every"`
	Resume    bool `yaml:"resume"`

	// HTTP
	HTTPTimeout        Duration          `yaml:"http_timeout"`
	ConnectTimeout     Duration          `yaml:"connect_timeout"`
	UserAgents         []string          `yaml:"user_agents"`
	Headers            map[string]string `yaml:"headers"`
	Proxies            []string          `yaml:"proxies"`
	ProxyCooldown      Duration          `yaml:"proxy_cooldown"`
	TLSFingerprint     bool              `yaml:"tls_fingerprint"`
	InsecureSkipVerify bool              `yaml:"insecure_skip_verify"`
	MinBodyBytes       int               `yaml:"min_body_bytes"`

	// Retries
	MaxRetries        int      `yaml:"max_retries"`
	InitialBackoff    Duration `yaml:"initial_backoff"`
	MaxBackoff        Duration `yaml:"max_backoff"`
	BackoffMultiplier float64  `yaml:"backoff_multiplier"`
	RetryableStatuses []int    `yaml:"retryable_statuses"`

	// Rate limiting
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
	MinDelay       Duration `yaml:"min_delay"`
	MaxDelay       Duration `yaml:"max_delay"`

	// Block detection
	CaptchaURLPatterns []string `yaml:"captcha_url_patterns"`
	CaptchaBodyMarkers []string `yaml:"captcha_body_markers"`

	// Extraction
	StartToken      string `yaml:"start_token"`
	BaseURL         string `yaml:"base_url"`
	IncludeListings bool   `yaml:"include_listings"`
	IncludeMetrics  bool   `yaml:"include_metrics"`
	FollowListings  bool   `yaml:"follow_listings"`
	ListingPageSize int    `yaml:"listing_page_size"`
	MaxListingPages int    `yaml:"max_listing_pages"`
}

// Default returns a Config populated with defaults
func Default() *Config {
	return &Config{
		LogLevel:           DefaultLogLevel,
		JSONLog:            DefaultJSONLog,
		Workers:            DefaultWorkers,
		SaveEvery:          DefaultSaveEvery,
		Resume:             true,
		HTTPTimeout:        DurationFrom(DefaultHTTPTimeout),
		ConnectTimeout:     DurationFrom(DefaultConnectTimeout),
		UserAgents:         append([]string(nil), DefaultUserAgents...),
		Headers:            map[string]string{},
		ProxyCooldown:      DurationFrom(DefaultProxyCooldown),
		MinBodyBytes:       DefaultMinBodyBytes,
		MaxRetries:         DefaultMaxRetries,
		InitialBackoff:     DurationFrom(DefaultInitialBackoff),
		MaxBackoff:         DurationFrom(DefaultMaxBackoff),
		BackoffMultiplier:  DefaultBackoffMultiplier,
		RetryableStatuses:  append([]int(nil), DefaultRetryableStatuses...),
		RateLimitRPS:       DefaultRateLimitRPS,
		RateLimitBurst:     DefaultRateLimitBurst,
		MinDelay:           DurationFrom(DefaultMinDelay),
		MaxDelay:           DurationFrom(DefaultMaxDelay),
		CaptchaURLPatterns: append([]string(nil), DefaultCaptchaURLPatterns...),
		StartToken:         DefaultStartToken,
		BaseURL:            DefaultBaseURL,
		ListingPageSize:    DefaultListingPageSize,
		MaxListingPages:    DefaultMaxListingPages,
	}
}

// Load builds a Config by layering defaults, an optional YAML file, a .env
// file, PROPCRAWL_* environment variables and CLI flags, in that order.
// Caller should pass the executing *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Default()

	path := os.Getenv(EnvPrefix + "CONFIG")
	if s := flagString(cmd, "config"); s != "" {
		path = s
	}
	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	envFile := DefaultEnvFile
	if s := flagString(cmd, "env-file"); s != "" {
		envFile = s
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}
	if cfg.FollowListings {
		cfg.IncludeListings = true
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides cfg from PROPCRAWL_* variables. List values are comma separated.
func applyEnv(cfg *Config) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			*dst = splitList(v)
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	float := func(name string, dst *float64) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}
	duration := func(name string, dst *Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok && v != "" {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
			}
		}
	}

	str("LOG_LEVEL", &cfg.LogLevel)
	boolean("JSON_LOG", &cfg.JSONLog)
	integer("WORKERS", &cfg.Workers)
	integer("SAVE_EVERY", &cfg.SaveEvery)
	boolean("RESUME", &cfg.Resume)
	duration("HTTP_TIMEOUT", &cfg.HTTPTimeout)
	duration("CONNECT_TIMEOUT", &cfg.ConnectTimeout)
	list("USER_AGENTS", &cfg.UserAgents)
	list("PROXIES", &cfg.Proxies)
	duration("PROXY_COOLDOWN", &cfg.ProxyCooldown)
	boolean("TLS_FINGERPRINT", &cfg.TLSFingerprint)
	boolean("INSECURE_SKIP_VERIFY", &cfg.InsecureSkipVerify)
	integer("MIN_BODY_BYTES", &cfg.MinBodyBytes)
	integer("MAX_RETRIES", &cfg.MaxRetries)
	duration("INITIAL_BACKOFF", &cfg.InitialBackoff)
	duration("MAX_BACKOFF", &cfg.MaxBackoff)
	float("BACKOFF_MULTIPLIER", &cfg.BackoffMultiplier)
	float("RATE_LIMIT_RPS", &cfg.RateLimitRPS)
	integer("RATE_LIMIT_BURST", &cfg.RateLimitBurst)
	duration("MIN_DELAY", &cfg.MinDelay)
	duration("MAX_DELAY", &cfg.MaxDelay)
	list("CAPTCHA_URL_PATTERNS", &cfg.CaptchaURLPatterns)
	list("CAPTCHA_BODY_MARKERS", &cfg.CaptchaBodyMarkers)
	str("START_TOKEN", &cfg.StartToken)
	str("BASE_URL", &cfg.BaseURL)
	boolean("INCLUDE_LISTINGS", &cfg.IncludeListings)
	boolean("INCLUDE_METRICS", &cfg.IncludeMetrics)
	boolean("FOLLOW_LISTINGS", &cfg.FollowListings)
	integer("LISTING_PAGE_SIZE", &cfg.ListingPageSize)
	integer("MAX_LISTING_PAGES", &cfg.MaxListingPages)

	if v, ok := os.LookupEnv(EnvPrefix + "RETRYABLE_STATUSES"); ok && v != "" {
		var statuses []int
		for _, s := range splitList(v) {
			n, err := strconv.Atoi(s)
			if err != nil {
				errs = append(errs, fmt.Errorf("%sRETRYABLE_STATUSES: %w", EnvPrefix, err))
				break
			}
			statuses = append(statuses, n)
		}
		cfg.RetryableStatuses = statuses
	}
	if v, ok := os.LookupEnv(EnvPrefix + "USER_AGENT"); ok && v != "" {
		cfg.UserAgents = []string{v}
	}

	return errors.Join(errs...)
}

// applyFlags overrides cfg with the flags the user actually set
func applyFlags(cmd *cobra.Command, cfg *Config) error {
	if cmd == nil {
		return nil
	}
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("verbose") {
		if v, _ := flags.GetBool("verbose"); v {
			cfg.LogLevel = "debug"
		}
	}
	if changed("quiet") {
		if v, _ := flags.GetBool("quiet"); v {
			cfg.LogLevel = "error"
		}
	}
	if changed("json") {
		cfg.JSONLog, _ = flags.GetBool("json")
	}
	if changed("proxy") {
		cfg.Proxies, _ = flags.GetStringArray("proxy")
	}
	if changed("timeout") {
		s, _ := flags.GetString("timeout")
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("--timeout: %w", err)
		}
		cfg.HTTPTimeout = DurationFrom(d)
	}
	if changed("user-agent") {
		if s, _ := flags.GetString("user-agent"); s != "" {
			cfg.UserAgents = []string{s}
		}
	}
	if changed("header") {
		h, _ := flags.GetStringArray("header")
		cfg.Headers = headers.Merge(cfg.Headers, headers.ParseHeaders(h))
	}
	if changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if changed("save-every") {
		cfg.SaveEvery, _ = flags.GetInt("save-every")
	}
	if changed("listings") {
		cfg.IncludeListings, _ = flags.GetBool("listings")
	}
	if changed("follow-listings") {
		cfg.FollowListings, _ = flags.GetBool("follow-listings")
	}
	if changed("metrics") {
		cfg.IncludeMetrics, _ = flags.GetBool("metrics")
	}
	if changed("no-resume") {
		if v, _ := flags.GetBool("no-resume"); v {
			cfg.Resume = false
		}
	}
	if changed("fingerprint") {
		cfg.TLSFingerprint, _ = flags.GetBool("fingerprint")
	}
	return nil
}

func flagString(cmd *cobra.Command, name string) string {
	if cmd == nil {
		return ""
	}
	if f := cmd.Flags().Lookup(name); f != nil {
		return f.Value.String()
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
