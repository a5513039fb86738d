package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rickgao/listsync/internal/model"
)

// ErrInvalidPassword is returned when the server rejects a login.
var ErrInvalidPassword = errors.New("invalid password")

// Page fetches the full page, as a browser navigation would.
func (c *Client) Page(ctx context.Context) ([]byte, error) {
	return c.do(ctx, request{method: http.MethodGet, path: "/"})
}

// Fragment fetches an HTML fragment the way htmx does.
func (c *Client) Fragment(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, request{method: http.MethodGet, path: path, htmx: true})
}

// Stats fetches the current stats summary.
func (c *Client) Stats(ctx context.Context) (model.StatsSummary, error) {
	var stats model.StatsSummary
	if err := c.getJSON(ctx, "/stats", &stats); err != nil {
		return model.StatsSummary{}, err
	}
	return stats, nil
}

// Preferences fetches the stored preferences.
func (c *Client) Preferences(ctx context.Context) (model.Preferences, error) {
	var prefs model.Preferences
	if err := c.getJSON(ctx, "/preferences", &prefs); err != nil {
		return model.Preferences{}, err
	}
	return prefs, nil
}

// ToggleMobileHelper flips the mobile helper preference and returns the new value.
func (c *Client) ToggleMobileHelper(ctx context.Context) (model.MobileHelper, error) {
	body, err := c.do(ctx, request{method: http.MethodPost, path: "/preferences/toggle-mobile-helper"})
	if err != nil {
		return "", err
	}

	var prefs struct {
		MobileHelper string `json:"mobile_helper"`
	}
	if err := json.Unmarshal(body, &prefs); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	return model.ParseMobileHelper(prefs.MobileHelper)
}

// BatchDeleteSections deletes several sections in one request.
func (c *Client) BatchDeleteSections(ctx context.Context, ids []int64) error {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}

	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/sections/batch-delete",
		form:   url.Values{"ids": {strings.Join(parts, ",")}},
	})
	return err
}

// ToggleUncertain flips an item's uncertain flag. The response carries no state.
func (c *Client) ToggleUncertain(ctx context.Context, itemID int64) error {
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/items/%d/uncertain", itemID),
	})
	return err
}

// MoveItem moves an item to another section.
func (c *Client) MoveItem(ctx context.Context, itemID, sectionID int64) error {
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   fmt.Sprintf("/items/%d/move", itemID),
		form:   url.Values{"section_id": {strconv.FormatInt(sectionID, 10)}},
	})
	return err
}

// DeleteItem deletes an item.
func (c *Client) DeleteItem(ctx context.Context, itemID int64) error {
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/items/%d", itemID),
	})
	return err
}

// UpdateItem replaces an item's name and description.
func (c *Client) UpdateItem(ctx context.Context, itemID int64, name, description string) error {
	_, err := c.do(ctx, request{
		method: http.MethodPut,
		path:   fmt.Sprintf("/items/%d", itemID),
		form:   url.Values{"name": {name}, "description": {description}},
	})
	return err
}

// Login exchanges the app password for a session cookie, kept in the client's jar.
func (c *Client) Login(ctx context.Context, password string) error {
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   c.loginPath,
		form:   url.Values{"password": {password}},
	})

	var re *RedirectError
	if !errors.As(err, &re) {
		if err == nil {
			return fmt.Errorf("login: expected redirect from %s", c.loginPath)
		}
		return fmt.Errorf("login: %w", err)
	}

	loc, perr := url.Parse(re.Location)
	if perr != nil || loc.Path == c.loginPath || c.SessionCookie() == "" {
		return ErrInvalidPassword
	}
	return nil
}

// Logout ends the server session and drops the local cookie.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/logout"})
	c.SetSessionCookie("")
	if err != nil && !IsRedirect(err) {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}
