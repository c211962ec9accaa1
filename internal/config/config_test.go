package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
server:
  base_url: https://tinderdev.xyz/api/
  socket_path: api/socket
  reconnect_interval: 2s
session:
  identity: "  user123 "
  cookie: abc
chat:
  load_more_threshold: 4
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "https://tinderdev.xyz/api", cfg.Server.BaseURL)
	require.Equal(t, 2*time.Second, cfg.Server.ReconnectInterval)
	require.Equal(t, "user123", cfg.Session.Identity)
	require.Equal(t, "token", cfg.Session.CookieName)
	require.Equal(t, 4, cfg.Chat.LoadMoreThreshold)
	require.Equal(t, 256, cfg.Chat.InboxBuffer)

	socketURL, err := cfg.SocketURL()
	require.NoError(t, err)
	require.Equal(t, "wss://tinderdev.xyz/api/socket", socketURL)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
session:
  identity: from-file
`)
	t.Setenv("MATCHCHAT_SESSION_IDENTITY", "from-env")
	t.Setenv("MATCHCHAT_LOGGING_LEVEL", "debug")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Session.Identity)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestFlagOverridesEnv(t *testing.T) {
	path := writeConfig(t, "session:\n  identity: from-file\n")
	t.Setenv("MATCHCHAT_SERVER_BASE_URL", "http://env.example")

	loader := NewLoader()
	loader.SetConfigFile(path)
	loader.Set("server.base_url", "http://flag.example")

	cfg, err := loader.Load()
	require.NoError(t, err)
	require.Equal(t, "http://flag.example", cfg.Server.BaseURL)
}

func TestMissingExplicitFileFails(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing identity",
			mutate:  func(c *Config) { c.Session.Identity = "" },
			wantErr: "session.identity",
		},
		{
			name:    "bad scheme",
			mutate:  func(c *Config) { c.Server.BaseURL = "ftp://x" },
			wantErr: "server.base_url",
		},
		{
			name:    "reconnect max below interval",
			mutate:  func(c *Config) { c.Server.ReconnectMax = 10 * time.Millisecond },
			wantErr: "server.reconnect_max",
		},
		{
			name:    "unknown theme",
			mutate:  func(c *Config) { c.TUI.Theme = "neon" },
			wantErr: "tui.theme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Session.Identity = "me"
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestContextStoreRoundTrip(t *testing.T) {
	store := NewContextStore(filepath.Join(t.TempDir(), "nested", "context.yaml"))

	ctx, err := store.Load()
	require.NoError(t, err)
	require.True(t, ctx.IsEmpty())

	ctx.SetPeer("peer-1", "Ada Lovelace")
	require.NoError(t, store.Save(ctx))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.False(t, loaded.IsEmpty())
	require.Equal(t, "peer-1", loaded.PeerID)
	require.Equal(t, "Ada Lovelace", loaded.PeerName)
}
