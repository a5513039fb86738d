// Package auth persists the list server session between CLI invocations
// and runs the password login flow.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoSession is returned when no saved session exists.
var ErrNoSession = errors.New("no saved session")

// sessionFileMode keeps the cookie readable by the owner only.
const sessionFileMode = 0o600

// Session is what a client needs to resume an authenticated session.
type Session struct {
	Cookie string // value of the server's session cookie
}

// Client is the part of the HTTP client the login flow drives.
type Client interface {
	Login(ctx context.Context, password string) error
	Logout(ctx context.Context) error
	SessionCookie() string
	SetSessionCookie(value string)
}

// PasswordSource supplies the app password when none is configured.
type PasswordSource func() (string, error)

// LoadSession reads a saved session from path.
func LoadSession(path string) (*Session, error) {
	if path == "" {
		return nil, fmt.Errorf("session file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	cookie := strings.TrimSpace(string(data))
	if cookie == "" {
		return nil, ErrNoSession
	}

	return &Session{Cookie: cookie}, nil
}

// SaveSession writes s to path, creating parent directories as needed.
func SaveSession(path string, s *Session) error {
	if path == "" {
		return fmt.Errorf("session file path is required")
	}
	if s == nil || s.Cookie == "" {
		return fmt.Errorf("session cookie is empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(s.Cookie+"\n"), sessionFileMode); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// ClearSession removes the saved session. A missing file is not an error.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// Resume installs the saved session at path into c. It reports whether a
// session was found.
func Resume(c Client, path string) (bool, error) {
	s, err := LoadSession(path)
	if errors.Is(err, ErrNoSession) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	c.SetSessionCookie(s.Cookie)
	return true, nil
}

// Login authenticates c with password, asking prompt when password is
// empty, and saves the resulting session to path.
func Login(ctx context.Context, c Client, password string, prompt PasswordSource, path string) error {
	if password == "" {
		if prompt == nil {
			return fmt.Errorf("password is required")
		}
		p, err := prompt()
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = p
	}

	if err := c.Login(ctx, password); err != nil {
		return err
	}

	return SaveSession(path, &Session{Cookie: c.SessionCookie()})
}

// Logout ends the server session and removes the saved one. The local
// file is removed even when the server call fails.
func Logout(ctx context.Context, c Client, path string) error {
	serverErr := c.Logout(ctx)
	if err := ClearSession(path); err != nil {
		return err
	}
	return serverErr
}
