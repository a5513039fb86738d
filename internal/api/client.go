package api

import (
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// SessionCookieName is the cookie the server issues on login.
const SessionCookieName = "session"

// Navigator is told where the page should go when a response redirects it.
type Navigator interface {
	Navigate(location string)
}

// NavigatorFunc is a function adapter for Navigator.
type NavigatorFunc func(location string)

func (f NavigatorFunc) Navigate(location string) {
	f(location)
}

// Client provides access to the list server's HTTP endpoints.
type Client struct {
	baseURL    string
	loginPath  string
	httpClient *http.Client
	navigator  Navigator
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new HTTP client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	jar, _ := cookiejar.New(nil)

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		loginPath: "/login",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	// Redirects are surfaced to the caller, never followed.
	c.httpClient.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return c
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client. A client without a cookie jar gets one.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc.Jar == nil {
			hc.Jar = c.httpClient.Jar
		}
		c.httpClient = hc
	}
}

// WithLoginPath sets the path a 401 navigates to.
func WithLoginPath(path string) ClientOption {
	return func(c *Client) {
		c.loginPath = path
	}
}

// WithNavigator sets the receiver of redirect directives.
func WithNavigator(n Navigator) ClientOption {
	return func(c *Client) {
		c.navigator = n
	}
}

// BaseURL returns the server origin the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Jar returns the cookie jar shared with the realtime connection.
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// SessionCookie returns the current session cookie value, or "" if none.
func (c *Client) SessionCookie() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, ck := range c.httpClient.Jar.Cookies(u) {
		if ck.Name == SessionCookieName {
			return ck.Value
		}
	}
	return ""
}

// SetSessionCookie installs a previously saved session cookie. An empty
// value removes it.
func (c *Client) SetSessionCookie(value string) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return
	}
	ck := &http.Cookie{Name: SessionCookieName, Value: value, Path: "/"}
	if value == "" {
		ck.MaxAge = -1
	}
	c.httpClient.Jar.SetCookies(u, []*http.Cookie{ck})
}

func (c *Client) navigate(location string) {
	c.logger.Info("navigating", "location", location)
	if c.navigator != nil {
		c.navigator.Navigate(location)
	}
}
