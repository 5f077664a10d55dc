package harness

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/alessio/shellescape"
	"github.com/hashicorp/go-retryablehttp"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/pfrest/api-contract-tests/framework"
)

const accessTokenURI = "/api/v1/access_token"

// Credentials identify one user of the target system.
type Credentials struct {
	Username string
	Password string
}

// Session is the HTTP client state for one worker: an authentication state
// machine (unauthenticated -> authenticated-as-identity) plus a reused
// connection pool. Switching identities goes through Login, which replaces the
// previous identity outright; there is no ambient credential mutation. A
// Session is owned by a single worker and must not be shared across
// concurrently running workers.
type Session struct {
	cfg    Config
	client *retryablehttp.Client
	logger framework.Logger

	mu            sync.Mutex
	authenticated bool
	current       Credentials
	token         string
}

// NewSession creates a session in the unauthenticated state.
func NewSession(cfg Config) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = cfg.RetryWaitMin
	rc.RetryWaitMax = cfg.RetryWaitMax
	rc.CheckRetry = transportRetryPolicy
	rc.HTTPClient = &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.TLSSkipVerify}, //nolint:gosec // operator opt-in
		},
	}

	return &Session{
		cfg:    cfg,
		client: rc,
		logger: cfg.Logger,
	}, nil
}

// transportRetryPolicy retries connection-level failures only. An HTTP
// response of any status is test evidence and is returned as-is; certificate
// verification failures are fatal for the session and not retried.
func transportRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil {
		return false, nil
	}
	if isCertificateError(err) {
		return false, err
	}
	return true, nil
}

func isCertificateError(err error) bool {
	var verifyErr *tls.CertificateVerificationError
	if errors.As(err, &verifyErr) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return true
	}
	var invalidErr x509.CertificateInvalidError
	return errors.As(err, &invalidErr)
}

// Login re-authenticates the session as the given identity, replacing whatever
// identity it held before. With token authentication this performs the token
// exchange immediately so that a bad identity surfaces here as an AuthError
// rather than mid-test.
func (s *Session) Login(ctx context.Context, creds Credentials) error {
	s.mu.Lock()
	if s.authenticated && s.current == creds {
		s.mu.Unlock()
		return nil
	}
	// Invalidate the previous identity before attempting the new one.
	s.authenticated = false
	s.token = ""
	s.mu.Unlock()

	if !s.cfg.LocalAuth {
		token, err := s.exchangeToken(ctx, creds)
		if err != nil {
			return &AuthError{Identity: creds.Username, Err: err}
		}
		s.mu.Lock()
		s.token = token
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.current = creds
	s.authenticated = true
	s.mu.Unlock()
	s.logger.Printf("Authenticated as %q", creds.Username)
	return nil
}

// Logout returns the session to the unauthenticated state. Requests issued
// afterwards carry no identity at all, which is how publicly accessible
// endpoints are exercised.
func (s *Session) Logout() {
	s.mu.Lock()
	s.authenticated = false
	s.current = Credentials{}
	s.token = ""
	s.mu.Unlock()
}

// Identity returns the current identity, if any.
func (s *Session) Identity() (Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.authenticated
}

func (s *Session) exchangeToken(ctx context.Context, creds Credentials) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"client-id":    creds.Username,
		"client-token": creds.Password,
	})
	resp, err := s.do(ctx, http.MethodPost, accessTokenURI, body, "")
	if err != nil {
		return "", err
	}
	if !resp.Success() {
		return "", fmt.Errorf("token request rejected: %s", resp.Summary())
	}
	if resp.Envelope == nil {
		return "", fmt.Errorf("token response did not carry the expected envelope")
	}
	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Envelope.Data, &data); err != nil || data.Token == "" {
		return "", fmt.Errorf("token response carried no token")
	}
	return data.Token, nil
}

// Request issues one HTTP operation against the target. Params, when defined,
// are sent as a JSON body for every method; the target API reads its inputs
// from the body regardless of method. Transient transport failures are retried
// with exponential backoff up to the configured bound, then surface as a
// TransportError.
func (s *Session) Request(ctx context.Context, method, uri string, params ldvalue.Value) (*Response, error) {
	var body []byte
	if !params.IsNull() {
		body = []byte(params.JSONString())
	}

	s.mu.Lock()
	authHeader := ""
	basicCreds := Credentials{}
	useBasic := false
	if s.authenticated {
		if s.cfg.LocalAuth {
			useBasic = true
			basicCreds = s.current
		} else {
			authHeader = "Bearer " + s.token
		}
	}
	s.mu.Unlock()

	if useBasic {
		return s.doBasic(ctx, method, uri, body, basicCreds)
	}
	return s.do(ctx, method, uri, body, authHeader)
}

func (s *Session) do(ctx context.Context, method, uri string, body []byte, authHeader string) (*Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, s.cfg.BaseURL+uri, body)
	if err != nil {
		return nil, &TransportError{Op: method + " " + uri, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	return s.roundTrip(req, method, uri, body)
}

func (s *Session) doBasic(ctx context.Context, method, uri string, body []byte, creds Credentials) (*Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, s.cfg.BaseURL+uri, body)
	if err != nil {
		return nil, &TransportError{Op: method + " " + uri, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(creds.Username, creds.Password)
	return s.roundTrip(req, method, uri, body)
}

func (s *Session) roundTrip(req *retryablehttp.Request, method, uri string, body []byte) (*Response, error) {
	s.logger.Printf("%s %s%s body=%s", method, s.cfg.BaseURL, uri, string(body))
	httpResp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: method + " " + uri, Err: err}
	}
	defer httpResp.Body.Close()
	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &TransportError{Op: method + " " + uri, Err: fmt.Errorf("reading response body: %w", err)}
	}
	resp := parseResponse(httpResp.StatusCode, respBody)
	s.logger.Printf("Response: %s", resp.Summary())
	return resp, nil
}

// RequestInfo returns the framework snapshot of a request this session would
// issue, for failure diagnostics.
func (s *Session) RequestInfo(method, uri string, params ldvalue.Value) framework.RequestInfo {
	info := framework.RequestInfo{Method: method, URL: s.cfg.BaseURL + uri}
	if !params.IsNull() {
		info.Body = params.JSONString()
	}
	return info
}

// ReproCommand builds a copy-pasteable curl invocation equivalent to a request
// issued by this session. Credentials are elided behind variables.
func (s *Session) ReproCommand(method, uri string, params ldvalue.Value) string {
	var b commandBuilder
	b.add("curl")
	if s.cfg.TLSSkipVerify {
		b.add("-k")
	}
	b.add("-X", method)
	s.mu.Lock()
	if s.authenticated {
		if s.cfg.LocalAuth {
			b.add("-u", s.current.Username+":$PASSWORD")
		} else {
			b.addRaw("-H", `"Authorization: Bearer $TOKEN"`)
		}
	}
	s.mu.Unlock()
	if !params.IsNull() {
		b.add("-H", "Content-Type: application/json")
		b.add("-d", params.JSONString())
	}
	b.add(s.cfg.BaseURL + uri)
	return b.String()
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b *commandBuilder) addRaw(args ...string) {
	*b = append(*b, args...)
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
