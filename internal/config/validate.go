package config

import (
	"fmt"
	"net"
	"strings"
)

// Validate checks semantic correctness of the configuration and returns the
// first problem found.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.StorageDir) == "" {
		return fmt.Errorf("paths.storage_dir is required")
	}
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return fmt.Errorf("paths.work_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("paths.log_dir is required")
	}
	if c.Paths.StorageDir == c.Paths.WorkDir {
		return fmt.Errorf("paths.storage_dir and paths.work_dir must differ")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
	}

	if c.Upstream.BaseURL != "" &&
		!strings.HasPrefix(c.Upstream.BaseURL, "http://") &&
		!strings.HasPrefix(c.Upstream.BaseURL, "https://") {
		return fmt.Errorf("upstream.base_url %q must start with http:// or https://", c.Upstream.BaseURL)
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}

	return nil
}
