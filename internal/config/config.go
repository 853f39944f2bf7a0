// Package config loads the sitecontent configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/tailscale/hujson"

	"github.com/calvinalkan/sitecontent/internal/source"
)

// Errors returned by [Load].
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrContentDirEmpty    = errors.New("content-dir cannot be empty")
	ErrInvalidLogLevel    = errors.New("invalid log level")
)

// LogLevels lists the accepted log_level values.
var LogLevels = []string{"debug", "info", "warn", "error"}

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	ContentDir      string        `json:"content_dir"`                 //nolint:tagliatelle // snake_case for config file
	SchemaFile      string        `json:"schema_file,omitempty"`       //nolint:tagliatelle // snake_case for config file
	ExportDir       string        `json:"export_dir,omitempty"`        //nolint:tagliatelle // snake_case for config file
	LogLevel        string        `json:"log_level,omitempty"`         //nolint:tagliatelle // snake_case for config file
	WatchDebounceMS int           `json:"watch_debounce_ms,omitempty"` //nolint:tagliatelle // snake_case for config file
	Layout          source.Layout `json:"layout,omitempty"`

	// Resolved paths (computed, not serialized)
	EffectiveCwd  string `json:"-"` // Absolute working directory (from -C flag or os.Getwd)
	ContentDirAbs string `json:"-"`
	SchemaFileAbs string `json:"-"` // Empty when the built-in schemas are used
	ExportDirAbs  string `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// WatchDebounce returns the watch debounce as a duration.
func (c Config) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMS) * time.Millisecond
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ContentDir:      "content",
		ExportDir:       "public/data",
		LogLevel:        "warn",
		WatchDebounceMS: 300,
		Layout:          source.DefaultLayout(),
	}
}

// FileName is the default project config file name.
const FileName = ".sitecontent.json"

// globalPath returns the path to the global config file.
// Uses $XDG_CONFIG_HOME/sitecontent/config.json if set, otherwise
// ~/.config/sitecontent/config.json. Returns empty string if neither is known.
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "sitecontent", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "sitecontent", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride    string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath         string            // -c/--config flag value
	ContentDirOverride string            // --content-dir flag value; empty means no override
	LogLevelOverride   string            // --log-level flag value; empty means no override
	Env                map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/sitecontent/config.json)
// 3. Project config file at default location (.sitecontent.json, if exists)
// 4. Explicit config file via ConfigPath (replaces 3)
// 5. CLI overrides.
//
// All paths in the returned Config are resolved to absolute paths.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("cannot resolve working directory: %w", err)
	}

	cfg := Default()

	globalCfg, globalFile, err := loadGlobal(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalFile
	cfg = merge(cfg, globalCfg)

	projectCfg, projectFile, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectFile
	cfg = merge(cfg, projectCfg)

	if input.ContentDirOverride != "" {
		cfg.ContentDir = input.ContentDirOverride
	}

	if input.LogLevelOverride != "" {
		cfg.LogLevel = input.LogLevelOverride
	}

	err = validate(cfg)
	if err != nil {
		return Config{}, err
	}

	cfg.EffectiveCwd = workDir
	cfg.ContentDirAbs = absPath(workDir, cfg.ContentDir)
	cfg.ExportDirAbs = absPath(workDir, cfg.ExportDir)

	if cfg.SchemaFile != "" {
		cfg.SchemaFileAbs = absPath(workDir, cfg.SchemaFile)
	}

	return cfg, nil
}

func absPath(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(workDir, path)
}

// loadGlobal loads the global user config file if it exists.
// Returns the config, the path if loaded, and any error.
func loadGlobal(env map[string]string) (Config, string, error) {
	path := globalPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, explicitEmpty, loaded, err := loadFile(path, false)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	if explicitEmpty["content_dir"] {
		return Config{}, "", fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrContentDirEmpty)
	}

	return cfg, path, nil
}

// loadProject loads the project config file (.sitecontent.json) or an
// explicit config file. Returns the config, the path if loaded, and any error.
func loadProject(workDir, configPath string) (Config, string, error) {
	var (
		file      string
		mustExist bool
	)

	if configPath != "" {
		file = absPath(workDir, configPath)
		mustExist = true

		_, statErr := os.Stat(file)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		file = filepath.Join(workDir, FileName)
	}

	cfg, explicitEmpty, loaded, err := loadFile(file, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	if explicitEmpty["content_dir"] {
		return Config{}, "", fmt.Errorf("%w %s: %w", ErrConfigInvalid, file, ErrContentDirEmpty)
	}

	return cfg, file, nil
}

// loadFile loads a config file. If mustExist is false, missing files return
// zero config. Returns the config, a map of explicitly empty fields, whether
// the file was loaded, and any error.
func loadFile(path string, mustExist bool) (Config, map[string]bool, bool, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, nil, false, nil
		}

		if mustExist {
			return Config{}, nil, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, nil, false, nil
	}

	cfg, explicitEmpty, parseErr := parse(data)
	if parseErr != nil {
		return Config{}, nil, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, explicitEmpty, true, nil
}

func parse(data []byte) (Config, map[string]bool, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return Config{}, nil, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	// Check which fields were explicitly set to empty
	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	explicitEmpty := make(map[string]bool)

	if val, exists := raw["content_dir"]; exists {
		if str, ok := val.(string); ok && str == "" {
			explicitEmpty["content_dir"] = true
		}
	}

	return cfg, explicitEmpty, nil
}

func merge(base, overlay Config) Config {
	if overlay.ContentDir != "" {
		base.ContentDir = overlay.ContentDir
	}

	if overlay.SchemaFile != "" {
		base.SchemaFile = overlay.SchemaFile
	}

	if overlay.ExportDir != "" {
		base.ExportDir = overlay.ExportDir
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	if overlay.WatchDebounceMS != 0 {
		base.WatchDebounceMS = overlay.WatchDebounceMS
	}

	if len(overlay.Layout) > 0 {
		base.Layout = base.Layout.Merge(overlay.Layout)
	}

	return base
}

func validate(cfg Config) error {
	if cfg.ContentDir == "" {
		return ErrContentDirEmpty
	}

	if !slices.Contains(LogLevels, cfg.LogLevel) {
		return fmt.Errorf("%w: %q (want one of %v)", ErrInvalidLogLevel, cfg.LogLevel, LogLevels)
	}

	if cfg.WatchDebounceMS < 0 {
		return fmt.Errorf("%w: watch_debounce_ms must be non-negative", ErrConfigInvalid)
	}

	err := cfg.Layout.Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}

	return nil
}

// Format returns the config as formatted JSON.
func Format(cfg Config) (string, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}

	return string(data), nil
}
