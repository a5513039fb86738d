package config

import "time"

// ClientConfig is the root configuration for a listsync client.
type ClientConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Connection ConnectionConfig `yaml:"connection"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig locates the list server.
type ServerConfig struct {
	BaseURL   string        `yaml:"base_url"`   // Page origin; the socket scheme follows it (http→ws, https→wss)
	LoginPath string        `yaml:"login_path"` // Where a 401 navigates to
	Timeout   time.Duration `yaml:"timeout"`    // Per-request HTTP timeout
}

// AuthConfig holds login settings.
type AuthConfig struct {
	Password    string `yaml:"password"`     // Usually ${APP_PASSWORD}; empty = prompt
	SessionFile string `yaml:"session_file"` // Where the session cookie is kept between CLI invocations
}

// ConnectionConfig holds realtime connection settings.
type ConnectionConfig struct {
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay    time.Duration `yaml:"reconnect_max_delay"`
	PingInterval         time.Duration `yaml:"ping_interval"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
	BufferSize           int           `yaml:"buffer_size"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
