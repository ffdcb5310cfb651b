package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Server      ServerConfig     `toml:"server"`
	Storage     StorageConfig    `toml:"storage"`
	Queue       QueueConfig      `toml:"queue"`
	Workers     WorkersConfig    `toml:"workers"`
	Logging     LoggingConfig    `toml:"logging"`
	WebSocket   WebSocketConfig  `toml:"websocket"`
	Generation  GenerationConfig `toml:"generation"`
	Maintenance MaintConfig      `toml:"maintenance"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type StorageConfig struct {
	Badger     BadgerConfig     `toml:"badger"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type FilesystemConfig struct {
	MediaDir string `toml:"media_dir"` // Root directory for generated assets
}

type QueueConfig struct {
	PollInterval   string `toml:"poll_interval"`    // e.g. "500ms" - how often workers poll for messages
	MaxAttempts    int    `toml:"max_attempts"`     // Delivery attempts before a job fails terminally
	RetryBaseDelay string `toml:"retry_base_delay"` // e.g. "2s" - backoff start, doubles per attempt
}

// WorkersConfig holds per-kind concurrency limits. Image/video kinds tolerate
// higher concurrency than text kinds bound by a single model's rate limits.
type WorkersConfig struct {
	Character int `toml:"character"`
	Object    int `toml:"object"`
	Scene     int `toml:"scene"`
	Frame     int `toml:"frame"`
	Video     int `toml:"video"`
	Stitch    int `toml:"stitch"`
	Script    int `toml:"script"`
	ImageEdit int `toml:"image_edit"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// WebSocketConfig contains configuration for the project status stream
type WebSocketConfig struct {
	PollInterval     string `toml:"poll_interval"`     // Ledger poll tick, e.g. "1s"
	ProgressInterval string `toml:"progress_interval"` // Min interval between batch_progress events per project
}

// GenerationConfig selects and configures the generation provider
type GenerationConfig struct {
	Provider     string `toml:"provider"` // "gemini" or "claude"
	Timeout      string `toml:"timeout"`
	PromptsFile  string `toml:"prompts_file"` // Optional YAML file with per-kind system prompts
	GoogleAPIKey string `toml:"google_api_key"`
	ClaudeAPIKey string `toml:"claude_api_key"`
	TextModel    string `toml:"text_model"`
	ImageModel   string `toml:"image_model"`
	VideoModel   string `toml:"video_model"`
}

// MaintConfig configures the scheduled maintenance sweep
type MaintConfig struct {
	Schedule       string `toml:"schedule"`        // Cron expression, default every minute
	StaleThreshold string `toml:"stale_threshold"` // Processing jobs idle longer than this are failed
}

// DefaultConfig returns the configuration defaults applied before any file or
// environment override.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8190,
		},
		Storage: StorageConfig{
			Badger:     BadgerConfig{Path: "./data/storymill"},
			Filesystem: FilesystemConfig{MediaDir: "./data/media"},
		},
		Queue: QueueConfig{
			PollInterval:   "500ms",
			MaxAttempts:    3,
			RetryBaseDelay: "2s",
		},
		Workers: WorkersConfig{
			Character: 2,
			Object:    2,
			Scene:     2,
			Frame:     4,
			Video:     5,
			Stitch:    1,
			Script:    1,
			ImageEdit: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		WebSocket: WebSocketConfig{
			PollInterval:     "1s",
			ProgressInterval: "2s",
		},
		Generation: GenerationConfig{
			Provider: "gemini",
			Timeout:  "120s",
		},
		Maintenance: MaintConfig{
			Schedule:       "*/1 * * * *",
			StaleThreshold: "10m",
		},
	}
}

// LoadConfig loads configuration from defaults, then the optional TOML file,
// then environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies STORYMILL_* environment variables on top of the
// loaded configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STORYMILL_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("STORYMILL_BADGER_PATH"); v != "" {
		cfg.Storage.Badger.Path = v
	}
	if v := os.Getenv("STORYMILL_MEDIA_DIR"); v != "" {
		cfg.Storage.Filesystem.MediaDir = v
	}
	if v := os.Getenv("STORYMILL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("STORYMILL_GOOGLE_API_KEY"); v != "" {
		cfg.Generation.GoogleAPIKey = v
	}
	if v := os.Getenv("STORYMILL_CLAUDE_API_KEY"); v != "" {
		cfg.Generation.ClaudeAPIKey = v
	}
	if v := os.Getenv("STORYMILL_GENERATION_PROVIDER"); v != "" {
		cfg.Generation.Provider = v
	}
}

// Validate checks the configuration for values that would break startup.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Storage.Badger.Path == "" {
		return fmt.Errorf("storage.badger.path is required")
	}
	if _, err := time.ParseDuration(c.Queue.PollInterval); err != nil {
		return fmt.Errorf("invalid queue.poll_interval %q: %w", c.Queue.PollInterval, err)
	}
	if _, err := time.ParseDuration(c.Queue.RetryBaseDelay); err != nil {
		return fmt.Errorf("invalid queue.retry_base_delay %q: %w", c.Queue.RetryBaseDelay, err)
	}
	if c.Queue.MaxAttempts <= 0 {
		return fmt.Errorf("queue.max_attempts must be positive")
	}
	if c.Generation.Provider != "gemini" && c.Generation.Provider != "claude" {
		return fmt.Errorf("invalid generation.provider %q: must be 'gemini' or 'claude'", c.Generation.Provider)
	}
	return nil
}

// QueuePollInterval returns the parsed worker poll interval.
func (c *Config) QueuePollInterval() time.Duration {
	d, err := time.ParseDuration(c.Queue.PollInterval)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// RetryBaseDelay returns the parsed backoff base delay.
func (c *Config) RetryBaseDelay() time.Duration {
	d, err := time.ParseDuration(c.Queue.RetryBaseDelay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// StaleThreshold returns the parsed maintenance stale threshold.
func (c *Config) StaleThreshold() time.Duration {
	d, err := time.ParseDuration(c.Maintenance.StaleThreshold)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}
