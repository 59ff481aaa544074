// Package config handles mxview configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config is the root configuration structure for mxview.
type Config struct {
	// Global settings
	Global GlobalConfig `yaml:"global" mapstructure:"global"`

	// Session identifies the signed-in viewer.
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// Database settings for the sandbox store
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`

	// Logging settings
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// Timeline rendering settings
	Timeline TimelineConfig `yaml:"timeline" mapstructure:"timeline"`

	// Sync controls how often open timelines look for new events.
	Sync SyncConfig `yaml:"sync" mapstructure:"sync"`

	// TUI settings
	TUI TUIConfig `yaml:"tui" mapstructure:"tui"`
}

// GlobalConfig contains global settings.
type GlobalConfig struct {
	// DataDir is where mxview stores its data (default: ~/.local/share/mxview).
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	// ConfigDir is where config files are stored (default: ~/.config/mxview).
	ConfigDir string `yaml:"config_dir" mapstructure:"config_dir"`
}

// SessionConfig contains the viewer identity.
type SessionConfig struct {
	// HomeserverURL is used to build media download URLs.
	HomeserverURL string `yaml:"homeserver_url" mapstructure:"homeserver_url"`

	// UserID is the viewer's Matrix user id (@name:server).
	UserID string `yaml:"user_id" mapstructure:"user_id"`

	// AccessTokenRef references the access token (env:VAR, $VAR, file:path
	// or a literal). It is never logged.
	AccessTokenRef string `yaml:"access_token_ref" mapstructure:"access_token_ref"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	// Path is the SQLite database file path.
	Path string `yaml:"path" mapstructure:"path"`

	// BusyTimeout is how long to wait for a locked database (milliseconds).
	BusyTimeoutMs int `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `yaml:"level" mapstructure:"level"`

	// Format is the output format (json, console).
	Format string `yaml:"format" mapstructure:"format"`

	// File is an optional log file path.
	File string `yaml:"file" mapstructure:"file"`

	// EnableCaller adds caller information to logs.
	EnableCaller bool `yaml:"enable_caller" mapstructure:"enable_caller"`
}

// TimelineConfig contains timeline projection settings.
type TimelineConfig struct {
	// GroupWindow is the longest gap between two messages of one sender
	// that still renders them as a group.
	GroupWindow time.Duration `yaml:"group_window" mapstructure:"group_window"`

	// PageSize is how many events one back-pagination loads.
	PageSize int `yaml:"page_size" mapstructure:"page_size"`

	// Placeholders is the number of loading rows shown above history.
	Placeholders int `yaml:"placeholders" mapstructure:"placeholders"`

	// Timezone decides day dividers ("Local", "UTC" or an IANA name).
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// SyncConfig contains poller intervals.
type SyncConfig struct {
	// FocusedInterval is how often the room on screen is refreshed.
	FocusedInterval time.Duration `yaml:"focused_interval" mapstructure:"focused_interval"`

	// BackgroundInterval is how often other open rooms are refreshed.
	BackgroundInterval time.Duration `yaml:"background_interval" mapstructure:"background_interval"`
}

// TUIConfig contains TUI settings.
type TUIConfig struct {
	// Theme is the color theme (default, high-contrast).
	Theme string `yaml:"theme" mapstructure:"theme"`

	// ShowTimestamps shows timestamps next to group heads.
	ShowTimestamps bool `yaml:"show_timestamps" mapstructure:"show_timestamps"`

	// CompactMode drops blank lines between message groups.
	CompactMode bool `yaml:"compact_mode" mapstructure:"compact_mode"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Global: GlobalConfig{
			DataDir:   filepath.Join(homeDir, ".local", "share", "mxview"),
			ConfigDir: filepath.Join(homeDir, ".config", "mxview"),
		},
		Session: SessionConfig{
			AccessTokenRef: "env:MXVIEW_ACCESS_TOKEN",
		},
		Database: DatabaseConfig{
			Path:          "", // Will be set to DataDir/mxview.db
			BusyTimeoutMs: 5000,
		},
		Logging: LoggingConfig{
			Level:        "info",
			Format:       "console",
			EnableCaller: false,
		},
		Timeline: TimelineConfig{
			GroupWindow:  5 * time.Minute,
			PageSize:     50,
			Placeholders: 3,
			Timezone:     "Local",
		},
		Sync: SyncConfig{
			FocusedInterval:    500 * time.Millisecond,
			BackgroundInterval: 5 * time.Second,
		},
		TUI: TUIConfig{
			Theme:          "default",
			ShowTimestamps: true,
			CompactMode:    false,
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Session.UserID != "" && !validUserID(c.Session.UserID) {
		return fmt.Errorf("session.user_id must look like @name:server, got %q", c.Session.UserID)
	}

	if c.Database.BusyTimeoutMs < 0 {
		return fmt.Errorf("database.busy_timeout_ms must not be negative")
	}

	if c.Timeline.GroupWindow < 0 {
		return fmt.Errorf("timeline.group_window must not be negative")
	}
	if c.Timeline.PageSize < 1 {
		return fmt.Errorf("timeline.page_size must be at least 1")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("timeline.timezone: %w", err)
	}

	if c.Sync.FocusedInterval < 50*time.Millisecond {
		return fmt.Errorf("sync.focused_interval must be at least 50ms")
	}
	if c.Sync.BackgroundInterval < c.Sync.FocusedInterval {
		return fmt.Errorf("sync.background_interval must not be shorter than sync.focused_interval")
	}

	switch c.TUI.Theme {
	case "default", "high-contrast":
	default:
		return fmt.Errorf("tui.theme must be one of default, high-contrast")
	}

	return nil
}

// Location resolves the timeline timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Timeline.Timezone {
	case "", "Local":
		return time.Local, nil
	case "UTC":
		return time.UTC, nil
	default:
		return time.LoadLocation(c.Timeline.Timezone)
	}
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Global.DataDir,
		c.Global.ConfigDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// DatabasePath returns the full database path.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return filepath.Join(c.Global.DataDir, "mxview.db")
}

// ContextPath returns the path of the persisted CLI context.
func (c *Config) ContextPath() string {
	return filepath.Join(c.Global.ConfigDir, "context.yaml")
}

func validUserID(id string) bool {
	if !strings.HasPrefix(id, "@") {
		return false
	}
	local, server, ok := strings.Cut(id[1:], ":")
	return ok && local != "" && server != ""
}
