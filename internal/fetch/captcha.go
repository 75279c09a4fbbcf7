package fetch

import (
	"fmt"
	"regexp"
	"strings"
)

// CaptchaPolicy decides whether a response is a captcha challenge.
type CaptchaPolicy struct {
	URLPatterns []*regexp.Regexp
	BodyMarkers []string
}

// NewCaptchaPolicy compiles URL patterns; body markers match case-insensitively.
func NewCaptchaPolicy(patterns, markers []string) (CaptchaPolicy, error) {
	var p CaptchaPolicy
	for _, s := range patterns {
		re, err := regexp.Compile(s)
		if err != nil {
			return CaptchaPolicy{}, fmt.Errorf("invalid captcha pattern %q: %w", s, err)
		}
		p.URLPatterns = append(p.URLPatterns, re)
	}
	for _, m := range markers {
		if m = strings.TrimSpace(m); m != "" {
			p.BodyMarkers = append(p.BodyMarkers, strings.ToLower(m))
		}
	}
	return p, nil
}

// Blocked reports whether the final URL or the body identifies a challenge page
func (p CaptchaPolicy) Blocked(finalURL, body string) bool {
	for _, re := range p.URLPatterns {
		if re.MatchString(finalURL) {
			return true
		}
	}
	if len(p.BodyMarkers) == 0 {
		return false
	}
	lower := strings.ToLower(body)
	for _, m := range p.BodyMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
