// Package config provides configuration loading and defaults for the Negar daemon.
//
// Configuration is loaded from a TOML file in the daemon's data directory.
// The package covers the Telegram connection, the text canvas (paddings,
// font-size candidates, pagination policy), font and background resources,
// the date stamp, and logging, with sensible defaults for everything except
// the bot token.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/negar-bot/negar/internal/paths"
)

// DefaultTokenEnv is the environment variable consulted for the bot token
// when no inline token is configured.
const DefaultTokenEnv = "NEGAR_BOT_TOKEN"

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Version is the config schema version.
	Version int `toml:"version"`
	// Telegram holds Bot API connection settings.
	Telegram TelegramConfig `toml:"telegram"`
	// Canvas holds text layout settings applied to every render.
	Canvas CanvasConfig `toml:"canvas"`
	// Fonts holds font file paths keyed by logical role.
	Fonts FontsConfig `toml:"fonts"`
	// Backgrounds holds background image catalog settings.
	Backgrounds BackgroundsConfig `toml:"backgrounds"`
	// Stamp holds date stamp settings.
	Stamp StampConfig `toml:"stamp"`
	// Behavior holds bot behavior settings.
	Behavior BehaviorConfig `toml:"behavior"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// TelegramConfig holds Bot API connection settings.
type TelegramConfig struct {
	// Token is the bot token issued by BotFather. Prefer TokenEnv so the
	// token never lands in a config file.
	Token string `toml:"token,omitempty"`
	// TokenEnv is the environment variable read when Token is empty.
	TokenEnv string `toml:"token_env"`
	// PollTimeoutSeconds is the getUpdates long-poll timeout.
	PollTimeoutSeconds int `toml:"poll_timeout_seconds"`
	// ReconnectIntervalSeconds is the pause between failed poll attempts.
	ReconnectIntervalSeconds int `toml:"reconnect_interval_seconds"`
}

// CanvasConfig holds text layout settings.
//
// Paddings are fractions of the background image dimensions so the same
// config works for backgrounds of any size. Top padding is deliberately the
// largest: backgrounds usually carry their visual weight in the upper third.
type CanvasConfig struct {
	// TopPaddingPercent is the top padding as a percentage of image height.
	TopPaddingPercent float64 `toml:"top_padding_percent"`
	// BottomPaddingPercent is the bottom padding as a percentage of image height.
	BottomPaddingPercent float64 `toml:"bottom_padding_percent"`
	// SidePaddingPercent is the left/right padding as a percentage of image width.
	SidePaddingPercent float64 `toml:"side_padding_percent"`
	// LineHeightFactor multiplies the font size to obtain the line height.
	LineHeightFactor float64 `toml:"line_height_factor"`
	// FontSizes lists candidate font sizes in pixels. They are tried in
	// descending order until the text fits within MaxPages pages.
	FontSizes []float64 `toml:"font_sizes"`
	// MaxPages is how many pages a candidate font size may use before the
	// engine moves to the next smaller size. The smallest size is allowed
	// to exceed it so long text always produces output.
	MaxPages int `toml:"max_pages"`
	// EmphasisScale multiplies the chosen font size for the first line.
	EmphasisScale float64 `toml:"emphasis_scale"`
	// JPEGQuality is the encoder quality for outgoing images (1-100).
	JPEGQuality int `toml:"jpeg_quality"`
}

// FontsConfig holds font file paths keyed by logical role. Empty paths fall
// back to the embedded Go fonts (regular for body, bold for emphasis).
type FontsConfig struct {
	// Body is the path to the regular-weight font file.
	Body string `toml:"body,omitempty"`
	// Emphasis is the path to the bold-weight font file.
	Emphasis string `toml:"emphasis,omitempty"`
}

// BackgroundsConfig holds background image catalog settings.
type BackgroundsConfig struct {
	// Dir is the directory scanned for background images.
	// Empty means <data-dir>/backgrounds.
	Dir string `toml:"dir,omitempty"`
	// Pattern is a doublestar glob matched against paths relative to Dir.
	Pattern string `toml:"pattern"`
	// Selection picks the background per message: "random" or "first".
	Selection string `toml:"selection"`
	// Watch enables rescanning the catalog when files change on disk.
	Watch bool `toml:"watch"`
}

// StampConfig holds date stamp settings.
type StampConfig struct {
	// Enabled toggles the calendar date stamp.
	Enabled bool `toml:"enabled"`
	// Corner places the stamp: "bottom-left", "bottom-right", "top-left",
	// or "top-right".
	Corner string `toml:"corner"`
	// Size is the stamp font size in pixels.
	Size float64 `toml:"size"`
}

// BehaviorConfig holds bot behavior settings.
type BehaviorConfig struct {
	// MaxWords rejects messages longer than this many words.
	MaxWords int `toml:"max_words"`
	// SendAck sends a "processing" message before rendering starts.
	SendAck bool `toml:"send_ack"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Telegram: TelegramConfig{
			TokenEnv:                 DefaultTokenEnv,
			PollTimeoutSeconds:       30,
			ReconnectIntervalSeconds: 5,
		},
		Canvas: CanvasConfig{
			TopPaddingPercent:    25,
			BottomPaddingPercent: 15,
			SidePaddingPercent:   10,
			LineHeightFactor:     1.5,
			FontSizes:            []float64{110, 100, 90, 80},
			MaxPages:             2,
			EmphasisScale:        1.25,
			JPEGQuality:          90,
		},
		Backgrounds: BackgroundsConfig{
			Pattern:   "**/*.{jpg,jpeg,png}",
			Selection: "random",
			Watch:     true,
		},
		Stamp: StampConfig{
			Enabled: true,
			Corner:  "bottom-left",
			Size:    28,
		},
		Behavior: BehaviorConfig{
			MaxWords: 350,
			SendAck:  true,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ///////////////////////////////////////////////
// Loading
// ///////////////////////////////////////////////

// Load reads and parses the configuration file from dataDir/config.toml.
// If the file doesn't exist, returns DefaultConfig. Values present in the
// file override defaults; absent values keep them.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, paths.ConfigFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// Candidate sizes are tried largest-first regardless of file order.
	sort.Sort(sort.Reverse(sort.Float64Slice(cfg.Canvas.FontSizes)))

	return cfg, nil
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

// validStampCorners is the set of accepted stamp corner names.
var validStampCorners = map[string]bool{
	"bottom-left": true, "bottom-right": true, "top-left": true, "top-right": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Telegram.PollTimeoutSeconds <= 0 {
		return fmt.Errorf("poll_timeout_seconds must be > 0, got %d", c.Telegram.PollTimeoutSeconds)
	}
	if c.Telegram.ReconnectIntervalSeconds <= 0 {
		return fmt.Errorf("reconnect_interval_seconds must be > 0, got %d", c.Telegram.ReconnectIntervalSeconds)
	}

	if len(c.Canvas.FontSizes) == 0 {
		return fmt.Errorf("font_sizes must list at least one candidate size")
	}
	for _, s := range c.Canvas.FontSizes {
		if s <= 0 {
			return fmt.Errorf("font_sizes entries must be > 0, got %g", s)
		}
	}
	if c.Canvas.MaxPages < 1 {
		return fmt.Errorf("max_pages must be >= 1, got %d", c.Canvas.MaxPages)
	}
	if c.Canvas.LineHeightFactor <= 0 {
		return fmt.Errorf("line_height_factor must be > 0, got %g", c.Canvas.LineHeightFactor)
	}
	if c.Canvas.EmphasisScale <= 0 {
		return fmt.Errorf("emphasis_scale must be > 0, got %g", c.Canvas.EmphasisScale)
	}
	if c.Canvas.JPEGQuality < 1 || c.Canvas.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be 1-100, got %d", c.Canvas.JPEGQuality)
	}

	for _, p := range []struct {
		name  string
		value float64
	}{
		{"top_padding_percent", c.Canvas.TopPaddingPercent},
		{"bottom_padding_percent", c.Canvas.BottomPaddingPercent},
		{"side_padding_percent", c.Canvas.SidePaddingPercent},
	} {
		if p.value < 0 || p.value >= 50 {
			return fmt.Errorf("%s must be in [0, 50), got %g", p.name, p.value)
		}
	}

	if !doublestar.ValidatePattern(c.Backgrounds.Pattern) {
		return fmt.Errorf("invalid backgrounds pattern %q", c.Backgrounds.Pattern)
	}
	switch c.Backgrounds.Selection {
	case "random", "first":
	default:
		return fmt.Errorf("invalid backgrounds.selection %q: must be random or first", c.Backgrounds.Selection)
	}

	if !validStampCorners[c.Stamp.Corner] {
		return fmt.Errorf("invalid stamp.corner %q: must be bottom-left, bottom-right, top-left, or top-right", c.Stamp.Corner)
	}
	if c.Stamp.Size <= 0 {
		return fmt.Errorf("stamp.size must be > 0, got %g", c.Stamp.Size)
	}

	if c.Behavior.MaxWords < 1 {
		return fmt.Errorf("max_words must be >= 1, got %d", c.Behavior.MaxWords)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be debug, info, warn, or error", c.Log.Level)
	}

	return nil
}

// ///////////////////////////////////////////////
// Resolution Helpers
// ///////////////////////////////////////////////

// ResolveToken returns the bot token from the inline setting or, when that
// is empty, from the configured environment variable. An empty result means
// no token is configured anywhere.
func (c *Config) ResolveToken() string {
	if c.Telegram.Token != "" {
		return c.Telegram.Token
	}
	env := c.Telegram.TokenEnv
	if env == "" {
		env = DefaultTokenEnv
	}
	return os.Getenv(env)
}

// BackgroundsDir returns the background directory, defaulting to the
// backgrounds folder inside dataDir when unset.
func (c *Config) BackgroundsDir(dataDir string) string {
	if c.Backgrounds.Dir != "" {
		return c.Backgrounds.Dir
	}
	return paths.DataDir{Root: dataDir}.Backgrounds()
}
