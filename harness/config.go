package harness

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pfrest/api-contract-tests/framework"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultRetryMax       = 3
	defaultRetryWaitMin   = 250 * time.Millisecond
	defaultRetryWaitMax   = 4 * time.Second
)

// Config describes the target system and how sessions talk to it.
type Config struct {
	// BaseURL is the root of the target API, e.g. "https://172.16.209.129".
	BaseURL string

	// ClientID and ClientToken are the administrative credentials used both to
	// provision exact-privilege test identities and to obtain tokens.
	ClientID    string
	ClientToken string

	// LocalAuth switches from JWT token exchange to HTTP basic authentication.
	LocalAuth bool

	// TLSSkipVerify disables certificate verification. Verification is strict
	// by default; certificate failures are fatal for the session and never
	// retried.
	TLSSkipVerify bool

	// RequestTimeout bounds each individual HTTP request.
	RequestTimeout time.Duration

	// RetryMax bounds retries of transient transport failures. HTTP responses
	// of any status are never retried.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	Logger framework.Logger
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.RetryMax < 0 {
		c.RetryMax = 0
	} else if c.RetryMax == 0 {
		c.RetryMax = defaultRetryMax
	}
	if c.RetryWaitMin <= 0 {
		c.RetryWaitMin = defaultRetryWaitMin
	}
	if c.RetryWaitMax <= 0 {
		c.RetryWaitMax = defaultRetryWaitMax
	}
	if c.Logger == nil {
		c.Logger = framework.NullLogger()
	}
	c.BaseURL = strings.TrimSuffix(c.BaseURL, "/")
	return c
}

// Validate checks that the configuration can produce working sessions.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("target URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("target URL %q is not a valid http(s) URL", c.BaseURL)
	}
	if c.ClientID == "" || c.ClientToken == "" {
		return fmt.Errorf("administrative credentials are required")
	}
	return nil
}
