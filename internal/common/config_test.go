package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8190, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Queue.MaxAttempts)
	assert.Equal(t, "gemini", cfg.Generation.Provider)
	assert.Equal(t, 2, cfg.Workers.Character)
	assert.Equal(t, 5, cfg.Workers.Video)

	assert.Equal(t, 500*time.Millisecond, cfg.QueuePollInterval())
	assert.Equal(t, 2*time.Second, cfg.RetryBaseDelay())
	assert.Equal(t, 10*time.Minute, cfg.StaleThreshold())
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storymill.toml")
	content := `
environment = "production"

[server]
port = 9000

[queue]
max_attempts = 5
retry_base_delay = "1s"

[workers]
video = 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Queue.MaxAttempts)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay())
	assert.Equal(t, 8, cfg.Workers.Video)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 2, cfg.Workers.Character)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storymill.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 9000\n"), 0644))

	t.Setenv("STORYMILL_SERVER_PORT", "9100")
	t.Setenv("STORYMILL_GENERATION_PROVIDER", "claude")
	t.Setenv("STORYMILL_GOOGLE_API_KEY", "test-key")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "claude", cfg.Generation.Provider)
	assert.Equal(t, "test-key", cfg.Generation.GoogleAPIKey)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storymill.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport ="), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"empty badger path", func(c *Config) { c.Storage.Badger.Path = "" }},
		{"bad poll interval", func(c *Config) { c.Queue.PollInterval = "soon" }},
		{"bad retry delay", func(c *Config) { c.Queue.RetryBaseDelay = "later" }},
		{"zero attempts", func(c *Config) { c.Queue.MaxAttempts = 0 }},
		{"unknown provider", func(c *Config) { c.Generation.Provider = "openai" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, DefaultConfig().Validate())
}
