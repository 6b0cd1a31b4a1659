package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Backend
	BackendURL     string
	RequestTimeout time.Duration

	// Job polling
	PollInterval   time.Duration
	CompletionHold time.Duration // How long a completed job stays visible before reset
	StallThreshold int           // Consecutive failed polls before a job is declared stalled
	JobTimeout     time.Duration // Max wait for a terminal status, 0 disables

	// Playlist
	EntryURLTemplate string
	PlaylistParallel int
	PlaylistRate     float64 // Analyze calls per second in batch mode

	// Output
	DownloadDir string

	// Status server, empty disables
	StatusAddr string

	// Paths
	DatabaseFile string // $CONFIG_DIR/vortex.db

	// Logging
	LogLevel  string
	LogFormat string
}

// flagKeys maps command-line flags onto configuration keys
var flagKeys = map[string]string{
	"backend":      "BACKEND_URL",
	"download-dir": "DOWNLOAD_DIR",
	"log-level":    "LOG_LEVEL",
	"status-addr":  "STATUS_ADDR",
	"parallel":     "PLAYLIST_PARALLEL",
}

// Load loads configuration from flags, environment variables and .env file.
// flags may be nil.
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	// Load .env file if it exists (ignore if not found)
	_ = v.ReadInConfig()

	v.SetDefault("BACKEND_URL", "http://localhost:8000")
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("POLL_INTERVAL_SECONDS", 1)
	v.SetDefault("COMPLETION_HOLD_SECONDS", 5)
	v.SetDefault("STALL_THRESHOLD", 5)
	v.SetDefault("JOB_TIMEOUT_MINUTES", 60)
	v.SetDefault("ENTRY_URL_TEMPLATE", "https://www.youtube.com/watch?v=%s")
	v.SetDefault("PLAYLIST_PARALLEL", 2)
	v.SetDefault("PLAYLIST_RATE", 1.0)
	v.SetDefault("DOWNLOAD_DIR", ".")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	configDir := v.GetString("CONFIG_DIR")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config", "vortex")
	} else {
		absPath, err := filepath.Abs(configDir)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path for CONFIG_DIR: %w", err)
		}
		configDir = absPath
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	config := &Config{
		BackendURL:     strings.TrimRight(v.GetString("BACKEND_URL"), "/"),
		RequestTimeout: time.Duration(v.GetInt("REQUEST_TIMEOUT_SECONDS")) * time.Second,

		PollInterval:   time.Duration(v.GetInt("POLL_INTERVAL_SECONDS")) * time.Second,
		CompletionHold: time.Duration(v.GetInt("COMPLETION_HOLD_SECONDS")) * time.Second,
		StallThreshold: v.GetInt("STALL_THRESHOLD"),
		JobTimeout:     time.Duration(v.GetInt("JOB_TIMEOUT_MINUTES")) * time.Minute,

		EntryURLTemplate: v.GetString("ENTRY_URL_TEMPLATE"),
		PlaylistParallel: v.GetInt("PLAYLIST_PARALLEL"),
		PlaylistRate:     v.GetFloat64("PLAYLIST_RATE"),

		DownloadDir: v.GetString("DOWNLOAD_DIR"),
		StatusAddr:  v.GetString("STATUS_ADDR"),

		DatabaseFile: filepath.Join(configDir, "vortex.db"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("BACKEND_URL must be an absolute http(s) URL, got %q", c.BackendURL)
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("POLL_INTERVAL_SECONDS must be at least 1")
	}
	if c.StallThreshold < 1 {
		return fmt.Errorf("STALL_THRESHOLD must be at least 1")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if c.CompletionHold < 0 || c.JobTimeout < 0 {
		return fmt.Errorf("COMPLETION_HOLD_SECONDS and JOB_TIMEOUT_MINUTES must not be negative")
	}
	if strings.Count(c.EntryURLTemplate, "%s") != 1 {
		return fmt.Errorf("ENTRY_URL_TEMPLATE must contain exactly one %%s, got %q", c.EntryURLTemplate)
	}
	if c.PlaylistParallel < 1 {
		return fmt.Errorf("PLAYLIST_PARALLEL must be at least 1")
	}
	if c.PlaylistRate <= 0 {
		return fmt.Errorf("PLAYLIST_RATE must be positive")
	}
	return nil
}
