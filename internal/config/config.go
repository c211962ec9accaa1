// Package config handles matchchat configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tOgg1/matchchat/internal/models"
)

// Config is the root configuration structure for matchchat.
type Config struct {
	// Server holds API and socket endpoints.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Session holds the identity and credential issued by the auth flow.
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// Chat tunes the chat session controller.
	Chat ChatConfig `yaml:"chat" mapstructure:"chat"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// ServerConfig contains connection settings.
type ServerConfig struct {
	// BaseURL is the API root, e.g. https://tinderdev.xyz/api.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`

	// SocketPath is the socket endpoint path relative to the host.
	SocketPath string `yaml:"socket_path" mapstructure:"socket_path"`

	// HTTPTimeout bounds each history/delete/connections request.
	HTTPTimeout time.Duration `yaml:"http_timeout" mapstructure:"http_timeout"`

	// DialTimeout bounds each socket dial.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`

	// ReconnectInterval is the first reconnect backoff step.
	ReconnectInterval time.Duration `yaml:"reconnect_interval" mapstructure:"reconnect_interval"`

	// ReconnectMax caps the reconnect backoff.
	ReconnectMax time.Duration `yaml:"reconnect_max" mapstructure:"reconnect_max"`
}

// SessionConfig carries the credential context attached to every request.
type SessionConfig struct {
	// Identity is the current user's id; it doubles as the room name.
	Identity string `yaml:"identity" mapstructure:"identity"`

	// CookieName is the session cookie name set by the auth service.
	CookieName string `yaml:"cookie_name" mapstructure:"cookie_name"`

	// Cookie is the session cookie value.
	Cookie string `yaml:"cookie" mapstructure:"cookie"`
}

// ChatConfig contains chat view tuning.
type ChatConfig struct {
	// LoadMoreThreshold is how many lines from the top trigger loading older history.
	LoadMoreThreshold int `yaml:"load_more_threshold" mapstructure:"load_more_threshold"`

	// InboxBuffer sizes the channel carrying live events to the UI loop.
	InboxBuffer int `yaml:"inbox_buffer" mapstructure:"inbox_buffer"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path. The TUI always logs to a file.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// Theme is the color theme (default, high-contrast).
	Theme string `yaml:"theme" mapstructure:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Server: ServerConfig{
			BaseURL:           "http://localhost:7777",
			SocketPath:        "/socket",
			HTTPTimeout:       15 * time.Second,
			DialTimeout:       10 * time.Second,
			ReconnectInterval: 1 * time.Second,
			ReconnectMax:      30 * time.Second,
		},
		Session: SessionConfig{
			CookieName: "token",
		},
		Chat: ChatConfig{
			LoadMoreThreshold: 2,
			InboxBuffer:       256,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			File:   filepath.Join(homeDir, ".local", "state", "matchchat", "matchchat.log"),
		},
		TUI: TUIConfig{
			Theme: "default",
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validation := &models.ValidationErrors{}

	base, err := url.Parse(strings.TrimSpace(c.Server.BaseURL))
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		validation.Addf("server.base_url", "must be an absolute http(s) URL")
	}
	if c.Server.HTTPTimeout <= 0 {
		validation.Addf("server.http_timeout", "must be positive")
	}
	if c.Server.DialTimeout <= 0 {
		validation.Addf("server.dial_timeout", "must be positive")
	}
	if c.Server.ReconnectInterval < 100*time.Millisecond {
		validation.Addf("server.reconnect_interval", "must be at least 100ms")
	}
	if c.Server.ReconnectMax < c.Server.ReconnectInterval {
		validation.Addf("server.reconnect_max", "must not be below reconnect_interval")
	}
	if strings.TrimSpace(c.Session.Identity) == "" {
		validation.Addf("session.identity", "is required")
	}
	if c.Chat.LoadMoreThreshold < 0 {
		validation.Addf("chat.load_more_threshold", "must not be negative")
	}
	if c.Chat.InboxBuffer < 1 {
		validation.Addf("chat.inbox_buffer", "must be at least 1")
	}
	switch c.TUI.Theme {
	case "default", "high-contrast":
	default:
		validation.Addf("tui.theme", "must be one of default, high-contrast")
	}

	if err := validation.Err(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SocketURL derives the websocket endpoint from the base URL and socket path.
func (c *Config) SocketURL() (string, error) {
	base, err := url.Parse(strings.TrimSpace(c.Server.BaseURL))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch base.Scheme {
	case "https":
		base.Scheme = "wss"
	default:
		base.Scheme = "ws"
	}
	path := strings.TrimSpace(c.Server.SocketPath)
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	base.Path = path
	base.RawQuery = ""
	return base.String(), nil
}
