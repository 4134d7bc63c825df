// Package client issues calls against the Ech0 API. Every call attaches the
// session token, serializes the body for its verb and decodes the
// {code, msg, data} envelope.
//
// The four verb functions differ only in how they recover failures:
//
//   - Get turns an HTTP 401 into a {code: 0, msg: "Unauthorized"} envelope.
//   - Put turns a failure code into a toast and a nil envelope.
//   - Post and Delete recover nothing.
//
// Send exposes the underlying classification as a tagged Result for callers
// that prefer to branch on it.
package client

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/okian/ech0client/internal/notify"
	"github.com/okian/ech0client/pkg/logger"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// TokenSource yields the current session token, or "" when there is none.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token returns f().
func (f TokenFunc) Token() string { return f() }

// Client is safe for concurrent use.
type Client struct {
	baseURL  string
	tokens   TokenSource
	notifier notify.Notifier
	log      logger.Logger
	doer     Doer
	timeout  time.Duration
	jar      http.CookieJar
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL sets the absolute URL request paths are joined to.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithTokenSource sets where the Authorization token is read from.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		if ts != nil {
			c.tokens = ts
		}
	}
}

// WithNotifier sets the sink for toasts raised by Put.
func WithNotifier(n notify.Notifier) Option {
	return func(c *Client) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the logger used for failed calls.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithHTTPDoer replaces the transport. WithTimeout has no effect on it.
func WithHTTPDoer(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.doer = d
		}
	}
}

// WithTimeout bounds each round trip of the default transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCookieJar sets the jar used by calls made with IncludeCredentials.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Client) {
		if jar != nil {
			c.jar = jar
		}
	}
}

// New creates a Client. A base URL is required.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		tokens:   TokenFunc(func() string { return "" }),
		notifier: notify.Nop,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	u, err := url.Parse(c.baseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.baseURL)
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")

	if c.doer == nil {
		c.doer = &http.Client{Timeout: c.timeout}
	}
	if c.jar == nil {
		// cookiejar.New only fails on a bad PublicSuffixList, and nil is valid.
		c.jar, _ = cookiejar.New(nil)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// url builds {baseURL}/{path}{?query}.
func (c *Client) url(path string, params Params) string {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if q := params.Encode(); q != "" {
		u += "?" + q
	}
	return u
}

// authorization returns the header value for a captured token. A missing
// token is sent as the literal "null" so the backend rejects it explicitly.
func authorization(token string) string {
	if token == "" {
		return "null"
	}
	return token
}
