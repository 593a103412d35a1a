// Package supclient wraps the Sup chat service HTTP API for use by supbridge.
//
// It provides an authenticated request client plus methods for sending
// messages, fetching chat panel snapshots, and searching users.
package supclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fernwick/supbridge/internal/models"
)

// Header names used on every Sup API request
const (
	// HeaderClientVersion carries the optional client version identifier.
	HeaderClientVersion = "x-sup-client-version"
	// HeaderSessionID carries the optional session identifier.
	HeaderSessionID = "x-sup-session-id"
	// authCookieName is the cookie holding the session token.
	authCookieName = "auth_session"
)

// Opts holds configuration options for the Sup client.
type Opts struct {
	BaseURL       string       // Sup service base URL (required)
	Session       string       // auth_session cookie value (required)
	ClientVersion string       // omitted from requests when empty
	SessionID     string       // omitted from requests when empty
	HTTPClient    *http.Client // underlying transport; defaults apply when nil
}

// Option defines a configuration option for the Sup client.
type Option func(*Opts)

// WithBaseURL sets the Sup service base URL.
func WithBaseURL(baseURL string) Option {
	return func(o *Opts) {
		o.BaseURL = baseURL
	}
}

// WithSession sets the auth session token used for every request.
func WithSession(session string) Option {
	return func(o *Opts) {
		o.Session = session
	}
}

// WithClientVersion sets the optional x-sup-client-version header value.
func WithClientVersion(version string) Option {
	return func(o *Opts) {
		o.ClientVersion = version
	}
}

// WithSessionID sets the optional x-sup-session-id header value.
func WithSessionID(sessionID string) Option {
	return func(o *Opts) {
		o.SessionID = sessionID
	}
}

// WithHTTPClient sets the underlying HTTP client. Useful for tests and for
// callers that want their own timeout policy; no timeout is imposed here
// beyond what the supplied transport carries.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Opts) {
		o.HTTPClient = client
	}
}

// RequestError reports a non-success HTTP status from the Sup service.
type RequestError struct {
	StatusCode int
	Status     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("sup request failed: %s", e.Status)
}

// RequestOptions customizes a single request. The zero value means GET with
// no body and no extra headers.
type RequestOptions struct {
	Method  string
	Body    any
	Headers map[string]string
}

// Client issues authenticated requests against the Sup service.
// The session token is immutable for the client's lifetime.
type Client struct {
	http          *http.Client
	baseURL       string
	session       string
	clientVersion string
	sessionID     string
}

// New creates a Sup client, applying any provided options for customization.
func New(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, models.ErrMissingBaseURL
	}
	if strings.TrimSpace(cfg.Session) == "" {
		return nil, models.ErrMissingSession
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	slog.Debug("Sup client created",
		"base_url", baseURL,
		"client_version_set", cfg.ClientVersion != "",
		"session_id_set", cfg.SessionID != "")

	return &Client{
		http:          httpClient,
		baseURL:       baseURL,
		session:       strings.TrimSpace(cfg.Session),
		clientVersion: cfg.ClientVersion,
		sessionID:     cfg.SessionID,
	}, nil
}

// Request issues one authenticated request against the given relative API
// path and returns the decoded JSON response body. A non-2xx status yields a
// *RequestError; transport failures are returned wrapped. No retries are
// attempted; retry policy belongs to the caller.
func (c *Client) Request(ctx context.Context, path string, opts *RequestOptions) (any, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader *bytes.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cookie", authCookieName+"="+c.session)
	if c.clientVersion != "" {
		req.Header.Set(HeaderClientVersion, c.clientVersion)
	}
	if c.sessionID != "" {
		req.Header.Set(HeaderSessionID, c.sessionID)
	}
	// Caller headers win on conflicting keys.
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sup request transport: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("Sup request returned non-success status", "method", method, "path", path, "status", resp.Status)
		return nil, &RequestError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var decoded any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response body: %w", err)
	}

	slog.Debug("Sup request completed", "method", method, "path", path, "status", resp.StatusCode)
	return decoded, nil
}
