package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/rickgao/listsync/internal/version"
)

// ErrUnauthorized matches any APIError carrying a 401.
var ErrUnauthorized = errors.New("unauthorized")

// APIError represents a non-2xx response from the list server.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("list api error %d: %s", e.StatusCode, e.Message)
}

// Is reports whether target is ErrUnauthorized and this is a 401.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// RedirectError is returned when a response redirects the page instead of
// carrying content. The caller must not apply the response.
type RedirectError struct {
	StatusCode int
	Location   string
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("redirected to %s (status %d)", e.Location, e.StatusCode)
}

// IsRedirect reports whether err is a RedirectError.
func IsRedirect(err error) bool {
	var re *RedirectError
	return errors.As(err, &re)
}

// request describes a single call to the server.
type request struct {
	method string
	path   string
	form   url.Values // form-encoded body when non-nil
	htmx   bool       // send HX-Request: true
}

// do performs an HTTP request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	var body io.Reader
	if r.form != nil {
		body = strings.NewReader(r.form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	req.Header.Set("User-Agent", version.UserAgent())
	if r.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if r.htmx {
		req.Header.Set("HX-Request", "true")
		req.Header.Set("Accept", "text/html")
	} else {
		req.Header.Set("Accept", "application/json, text/html")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("request complete",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", requestID,
	)

	// HX-Redirect wins over everything; a bare 401 goes to the login page.
	if loc := resp.Header.Get("HX-Redirect"); loc != "" {
		c.navigate(loc)
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Body: respBody}
		}
		return nil, &RedirectError{StatusCode: resp.StatusCode, Location: loc}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		c.navigate(c.loginPath)
		return nil, &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode), Body: respBody}
	}

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		loc := resp.Header.Get("Location")
		if c.isLoginLocation(loc) {
			c.navigate(loc)
		}
		return nil, &RedirectError{StatusCode: resp.StatusCode, Location: loc}
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       respBody,
		}
	}

	return respBody, nil
}

// isLoginLocation reports whether a Location header points at the login page.
func (c *Client) isLoginLocation(loc string) bool {
	u, err := url.Parse(loc)
	if err != nil {
		return false
	}
	return u.Path == c.loginPath
}

// getJSON performs a GET request and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, path string, result any) error {
	body, err := c.do(ctx, request{method: http.MethodGet, path: path})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
