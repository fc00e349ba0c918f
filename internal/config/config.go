package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StorageDir string `toml:"storage_dir"`
	WorkDir    string `toml:"work_dir"`
	LogDir     string `toml:"log_dir"`
	APIBind    string `toml:"api_bind"`
}

// Upstream contains configuration for the remote comic metadata API.
type Upstream struct {
	BaseURL        string `toml:"base_url"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Fetcher contains configuration for the external album-fetch command that
// populates a working directory with raw page files.
type Fetcher struct {
	Command string `toml:"command"`
	Timeout int    `toml:"timeout"`
}

// Convert contains configuration for the isolated fetch+convert subprocess
// and the PDF assembly step.
type Convert struct {
	Binary  string `toml:"binary"`
	Timeout int    `toml:"timeout"`
	DPI     int    `toml:"dpi"`
}

// Cache contains configuration for the artifact cache.
type Cache struct {
	MaxGiB int `toml:"max_gib"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for bindery.
//
// Configuration sections by subsystem:
//   - Paths: storage, working and log directories plus the API bind address
//   - Upstream: remote comic metadata API
//   - Fetcher: external album-fetch command
//   - Convert: subordinate process binary, timeout and PDF resolution
//   - Cache: artifact cache size budget
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Upstream Upstream `toml:"upstream"`
	Fetcher  Fetcher  `toml:"fetcher"`
	Convert  Convert  `toml:"convert"`
	Cache    Cache    `toml:"cache"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/bindery/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. A missing or
// unparseable file yields the repository defaults; parse failures are
// reported through the returned warning so the caller can log them instead
// of refusing to start.
func Load(path string) (*Config, string, string, error) {
	cfg := Default()
	warning := ""

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", "", err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", "", fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			cfg = Default()
			warning = fmt.Sprintf("parse config %s: %v; using defaults", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", "", err
	}

	return &cfg, resolvedPath, warning, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("bindery.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for service operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StorageDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EntryDir returns the cache directory for the given identifier.
func (c *Config) EntryDir(id string) string {
	return filepath.Join(c.Paths.StorageDir, id)
}

// WorkDirFor returns the ephemeral working directory for the given identifier.
func (c *Config) WorkDirFor(id string) string {
	return filepath.Join(c.Paths.WorkDir, id)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
