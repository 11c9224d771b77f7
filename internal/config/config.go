// Package config loads the md2pdf-web YAML configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/md2pdf-web/internal/assets"
	"github.com/alnah/md2pdf-web/internal/dateutil"
	"github.com/alnah/md2pdf-web/internal/fileutil"
	"github.com/alnah/md2pdf-web/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// AppName is the directory name under the user config and state dirs.
const AppName = "md2pdf-web"

// Field length limits.
const (
	MaxURLLength     = 2048 // Browser limit
	MaxAddrLength    = 255
	MaxPathLength    = 4096
	MaxOriginLength  = 255
	MaxCreatorLength = 100
)

// Numeric limits.
const (
	MaxWorkers     = 32
	MaxConcurrency = 64
	MaxImageBytes  = 100 << 20
)

// Config holds all configuration for md2pdf-web.
type Config struct {
	Preview PreviewConfig `yaml:"preview"`
	Export  ExportConfig  `yaml:"export"`
	Inliner InlinerConfig `yaml:"inliner"`
	Server  ServerConfig  `yaml:"server"`
	Session SessionConfig `yaml:"session"`
}

// PreviewConfig defines rendering defaults.
type PreviewConfig struct {
	Theme     string `yaml:"theme"`     // laetus, githubDark, githubLight
	AssetsDir string `yaml:"assetsDir"` // overrides for styles/*.css and documents/*.md
}

// ExportConfig defines how PDF artifacts are produced.
type ExportConfig struct {
	Endpoint   string `yaml:"endpoint"`   // render service URL; empty = native print
	Timeout    string `yaml:"timeout"`    // e.g. "60s"
	OutputDir  string `yaml:"outputDir"`  // empty = current directory
	DateFormat string `yaml:"dateFormat"` // artifact name date, dateutil tokens or preset
	Creator    string `yaml:"creator"`    // PDF creator metadata (local assembly)
}

// InlinerConfig defines image retrieval for local assembly.
type InlinerConfig struct {
	Concurrency   int     `yaml:"concurrency"`
	Timeout       string  `yaml:"timeout"`       // per image
	RatePerHost   float64 `yaml:"ratePerHost"`   // requests per second, 0 = unlimited
	MaxImageBytes int64   `yaml:"maxImageBytes"` // per image
	AllowFiles    bool    `yaml:"allowFiles"`    // resolve file:// images under the document directory
}

// ServerConfig defines the render service.
type ServerConfig struct {
	Addr          string `yaml:"addr"`
	Workers       int    `yaml:"workers"`       // concurrent render sessions, 0 = auto
	RecycleAfter  int    `yaml:"recycleAfter"`  // pages per browser before relaunch, 0 = never
	Timeout       string `yaml:"timeout"`       // per render
	AllowedOrigin string `yaml:"allowedOrigin"` // Access-Control-Allow-Origin
}

// SessionConfig defines where session state is persisted.
type SessionConfig struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path"` // SQLite file; empty = user state dir
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Preview: PreviewConfig{Theme: string(assets.DefaultTheme)},
		Export: ExportConfig{
			Timeout:    "60s",
			DateFormat: dateutil.DefaultDateFormat,
			Creator:    AppName,
		},
		Inliner: InlinerConfig{
			Concurrency:   4,
			Timeout:       "10s",
			MaxImageBytes: 20 << 20,
			AllowFiles:    true,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			RecycleAfter:  100,
			Timeout:       "60s",
			AllowedOrigin: "*",
		},
	}
}

// Validate checks field lengths, ranges and formats.
// Called automatically by LoadConfig, but available for consumers
// who construct Config manually.
func (c *Config) Validate() error {
	if c.Preview.Theme != "" {
		if _, err := assets.ParseTheme(c.Preview.Theme); err != nil {
			return fmt.Errorf("%w: preview.theme: %v", ErrInvalidValue, err)
		}
	}

	if err := validateFieldLength("export.endpoint", c.Export.Endpoint, MaxURLLength); err != nil {
		return err
	}
	if c.Export.Endpoint != "" {
		if err := validateEndpoint(c.Export.Endpoint); err != nil {
			return err
		}
	}
	if err := validateDuration("export.timeout", c.Export.Timeout); err != nil {
		return err
	}
	if err := validateFieldLength("export.outputDir", c.Export.OutputDir, MaxPathLength); err != nil {
		return err
	}
	if c.Export.DateFormat != "" {
		if _, err := dateutil.Format(c.Export.DateFormat, time.Time{}); err != nil {
			return fmt.Errorf("%w: export.dateFormat: %v", ErrInvalidValue, err)
		}
	}
	if err := validateFieldLength("export.creator", c.Export.Creator, MaxCreatorLength); err != nil {
		return err
	}

	if c.Inliner.Concurrency < 0 || c.Inliner.Concurrency > MaxConcurrency {
		return fmt.Errorf("%w: inliner.concurrency: must be between 0 and %d, got %d", ErrInvalidValue, MaxConcurrency, c.Inliner.Concurrency)
	}
	if err := validateDuration("inliner.timeout", c.Inliner.Timeout); err != nil {
		return err
	}
	if c.Inliner.RatePerHost < 0 {
		return fmt.Errorf("%w: inliner.ratePerHost: must not be negative, got %.2f", ErrInvalidValue, c.Inliner.RatePerHost)
	}
	if c.Inliner.MaxImageBytes < 0 || c.Inliner.MaxImageBytes > MaxImageBytes {
		return fmt.Errorf("%w: inliner.maxImageBytes: must be between 0 and %d, got %d", ErrInvalidValue, MaxImageBytes, c.Inliner.MaxImageBytes)
	}

	if err := validateFieldLength("server.addr", c.Server.Addr, MaxAddrLength); err != nil {
		return err
	}
	if c.Server.Workers < 0 || c.Server.Workers > MaxWorkers {
		return fmt.Errorf("%w: server.workers: must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Server.Workers)
	}
	if c.Server.RecycleAfter < 0 {
		return fmt.Errorf("%w: server.recycleAfter: must not be negative, got %d", ErrInvalidValue, c.Server.RecycleAfter)
	}
	if err := validateDuration("server.timeout", c.Server.Timeout); err != nil {
		return err
	}
	if err := validateFieldLength("server.allowedOrigin", c.Server.AllowedOrigin, MaxOriginLength); err != nil {
		return err
	}

	return validateFieldLength("session.path", c.Session.Path, MaxPathLength)
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// validateDuration accepts an empty value (default applies) or a positive
// Go duration string.
func validateDuration(fieldName, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fmt.Errorf("%w: %s: %q is not a positive duration", ErrInvalidValue, fieldName, value)
	}
	return nil
}

func validateEndpoint(endpoint string) error {
	if !fileutil.IsURL(endpoint) {
		return fmt.Errorf("%w: export.endpoint: %q is not an http(s) URL", ErrInvalidValue, endpoint)
	}
	if u, err := url.Parse(endpoint); err != nil || u.Host == "" {
		return fmt.Errorf("%w: export.endpoint: %q is not an http(s) URL", ErrInvalidValue, endpoint)
	}
	return nil
}

// Duration parses a validated duration field, returning fallback when empty.
func Duration(value string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return fallback
}

// Theme returns the configured preview theme, or the default.
func (c *Config) Theme() assets.Theme {
	if t, err := assets.ParseTheme(c.Preview.Theme); err == nil {
		return t
	}
	return assets.DefaultTheme
}

// YAML renders the configuration, for `md2pdf config`.
func (c *Config) YAML() (string, error) {
	data, err := yamlutil.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Unset fields keep their DefaultConfig values.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	f, err := os.Open(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	defer f.Close()

	// An empty file keeps every default.
	cfg := DefaultConfig()
	if err := yamlutil.Decode(f, cfg); err != nil && !errors.Is(err, yamlutil.ErrEmptyInput) {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SearchPaths lists where a config name is looked up, in order:
// current directory, then the user config directory (~/.config/md2pdf-web/).
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, AppName, name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing search path for name.
func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}

// DefaultStatePath is the session database location when none is configured.
func DefaultStatePath() (string, error) {
	dir := os.Getenv("XDG_STATE_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(dir, AppName, "state.db"), nil
}
