package config

import (
	"fmt"
	"regexp"
	"strings"

	urlutil "github.com/law-makers/propcrawl/internal/utils/url"
	"github.com/rs/zerolog"
)

func validate(c *Config) error {
	if c.Workers <= 0 || c.Workers > DefaultMaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d", DefaultMaxWorkers)
	}
	if c.HTTPTimeout.Duration <= 0 {
		return fmt.Errorf("http timeout must be > 0")
	}
	if c.ConnectTimeout.Duration <= 0 {
		return fmt.Errorf("connect timeout must be > 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be >= 0")
	}
	if c.InitialBackoff.Duration <= 0 || c.MaxBackoff.Duration < c.InitialBackoff.Duration {
		return fmt.Errorf("backoff must satisfy 0 < initial_backoff <= max_backoff")
	}
	if c.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff multiplier must be >= 1")
	}
	for _, s := range c.RetryableStatuses {
		if s < 100 || s > 599 {
			return fmt.Errorf("retryable status %d is not an HTTP status", s)
		}
	}
	if c.SaveEvery <= 0 {
		return fmt.Errorf("save_every must be > 0")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit rps and burst must be > 0")
	}
	if c.MinDelay.Duration < 0 || c.MaxDelay.Duration < c.MinDelay.Duration {
		return fmt.Errorf("delays must satisfy 0 <= min_delay <= max_delay")
	}
	for _, p := range c.CaptchaURLPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("captcha url pattern %q: %w", p, err)
		}
	}
	if strings.TrimSpace(c.StartToken) == "" {
		return fmt.Errorf("start token must not be empty")
	}
	if err := urlutil.ValidateURL(c.BaseURL); err != nil {
		return fmt.Errorf("base url: %w", err)
	}
	if c.ListingPageSize <= 0 || c.MaxListingPages <= 0 {
		return fmt.Errorf("listing page size and max listing pages must be > 0")
	}
	if c.MinBodyBytes < 0 {
		return fmt.Errorf("min body bytes must be >= 0")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}
