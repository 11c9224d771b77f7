package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/md2pdf-web/internal/config"
	"github.com/alnah/md2pdf-web/internal/hints"
)

// envConfig holds configuration from environment variables.
// Provides container-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string        // MD2PDF_CONFIG: config file name or path
	WorkerURL  string        // MD2PDF_WORKER_URL: render service endpoint
	Theme      string        // MD2PDF_THEME: preview/export theme
	Timeout    time.Duration // MD2PDF_TIMEOUT: export and render timeout
	OutputDir  string        // MD2PDF_OUTPUT_DIR: artifact directory
	Addr       string        // MD2PDF_ADDR: render service listen address
	Workers    int           // MD2PDF_WORKERS: concurrent render sessions
	StateDB    string        // MD2PDF_STATE_DB: session database path
}

// knownEnvVars lists valid MD2PDF_* environment variables.
// Used to detect typos and warn users about unknown variables.
var knownEnvVars = map[string]bool{
	"MD2PDF_CONFIG":     true,
	"MD2PDF_WORKER_URL": true,
	"MD2PDF_THEME":      true,
	"MD2PDF_TIMEOUT":    true,
	"MD2PDF_OUTPUT_DIR": true,
	"MD2PDF_ADDR":       true,
	"MD2PDF_WORKERS":    true,
	"MD2PDF_STATE_DB":   true,
	"MD2PDF_CONTAINER":  true, // read by doctor
}

// loadEnvConfig reads configuration from environment variables.
// Unparsable timeout and worker values are ignored.
func loadEnvConfig() *envConfig {
	cfg := &envConfig{
		ConfigPath: os.Getenv("MD2PDF_CONFIG"),
		WorkerURL:  strings.TrimSpace(os.Getenv("MD2PDF_WORKER_URL")),
		Theme:      os.Getenv("MD2PDF_THEME"),
		OutputDir:  os.Getenv("MD2PDF_OUTPUT_DIR"),
		Addr:       os.Getenv("MD2PDF_ADDR"),
		StateDB:    os.Getenv("MD2PDF_STATE_DB"),
	}

	if timeout := os.Getenv("MD2PDF_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d > 0 {
			cfg.Timeout = d
		}
	}

	if workers := os.Getenv("MD2PDF_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil && w > 0 {
			cfg.Workers = w
		}
	}

	return cfg
}

// warnUnknownEnvVars logs warnings for unrecognized MD2PDF_* variables.
// Helps catch typos like MD2PDF_WORKER instead of MD2PDF_WORKER_URL.
func warnUnknownEnvVars(w io.Writer) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, "MD2PDF_") {
			name := strings.SplitN(env, "=", 2)[0]
			if !knownEnvVars[name] {
				fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
			}
		}
	}
}

// applyEnvConfig overwrites config file values with set environment
// variables, giving: CLI flags > env vars > config file > defaults
// (CLI flags are applied afterwards by each command).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.WorkerURL != "" {
		cfg.Export.Endpoint = env.WorkerURL
	}
	if env.Theme != "" {
		cfg.Preview.Theme = env.Theme
	}
	if env.Timeout > 0 {
		cfg.Export.Timeout = env.Timeout.String()
		cfg.Server.Timeout = env.Timeout.String()
	}
	if env.OutputDir != "" {
		cfg.Export.OutputDir = env.OutputDir
	}
	if env.Addr != "" {
		cfg.Server.Addr = env.Addr
	}
	if env.Workers > 0 {
		cfg.Server.Workers = env.Workers
	}
	if env.StateDB != "" {
		cfg.Session.Path = env.StateDB
	}
}

// loadConfig resolves the configuration for a command before its flags
// are applied. The file comes from --config, then MD2PDF_CONFIG; without
// either the defaults are used.
func loadConfig(name string) (*config.Config, error) {
	env := loadEnvConfig()
	if name == "" {
		name = env.ConfigPath
	}

	cfg := config.DefaultConfig()
	if name != "" {
		var err error
		if cfg, err = config.LoadConfig(name); err != nil {
			err = fmt.Errorf("loading config: %w", err)
			if errors.Is(err, config.ErrConfigNotFound) {
				err = withHint(err, hints.ForConfigNotFound(config.SearchPaths(name)))
			}
			return nil, err
		}
	}

	applyEnvConfig(env, cfg)
	return cfg, nil
}
