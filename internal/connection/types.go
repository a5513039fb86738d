package connection

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrAlreadyRunning  = errors.New("manager already running")
	ErrUnsupportedURL  = errors.New("unsupported url scheme")
	errHandshakeClosed = errors.New("closed during handshake")
)

// State is the lifecycle state of the realtime connection.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string         // WebSocket URL (e.g., ws://localhost:3000/ws)
	Jar              http.CookieJar // Carries the session cookie on the handshake
	WriteTimeout     time.Duration  // Write deadline for sends
	HandshakeTimeout time.Duration  // Dial handshake limit
	BufferSize       int            // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		WriteTimeout:     5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		BufferSize:       256,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	URL                  string         // WebSocket URL, see WebSocketURL
	Jar                  http.CookieJar // Shared with the HTTP client
	MaxReconnectAttempts int            // Scheduled reconnects before giving up
	ReconnectBaseDelay   time.Duration  // Delay unit for exponential backoff
	ReconnectMaxDelay    time.Duration  // Backoff ceiling
	PingInterval         time.Duration  // Application ping period while open
	WriteTimeout         time.Duration
	HandshakeTimeout     time.Duration
	BufferSize           int
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxReconnectAttempts: 5,
		ReconnectBaseDelay:   1 * time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		PingInterval:         30 * time.Second,
		WriteTimeout:         5 * time.Second,
		HandshakeTimeout:     10 * time.Second,
		BufferSize:           256,
	}
}

// clientConfig derives the per-handle client configuration.
func (c ManagerConfig) clientConfig() ClientConfig {
	return ClientConfig{
		URL:              c.URL,
		Jar:              c.Jar,
		WriteTimeout:     c.WriteTimeout,
		HandshakeTimeout: c.HandshakeTimeout,
		BufferSize:       c.BufferSize,
	}
}

// BackoffDelay returns min(base * 2^attempt, max).
func BackoffDelay(base, max time.Duration, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		if d >= max {
			return max
		}
		d *= 2
	}
	if d > max {
		return max
	}
	return d
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	State             State
	ReconnectAttempts int // Attempts since the last successful open
	Dials             int
	Connects          int
	Disconnects       int
	Errors            int
	PingsSent         int
	MessagesReceived  int
	PongsDropped      int
	StaleEvents       int // Events dropped because their handle was released
}

// WebSocketURL derives the realtime endpoint from the page origin:
// http becomes ws, https becomes wss, and the path is /ws.
func WebSocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base url %q has no host", base)
	}

	u.Path = "/ws"
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil

	return u.String(), nil
}
