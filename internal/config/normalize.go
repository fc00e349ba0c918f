package config

import "strings"

// normalize trims string fields, expands user paths, and fills zero values
// with defaults so validation only has to reject genuinely bad input.
func (c *Config) normalize() error {
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}

	c.Upstream.BaseURL = strings.TrimSpace(strings.TrimRight(c.Upstream.BaseURL, "/"))
	if c.Upstream.RequestTimeout <= 0 {
		c.Upstream.RequestTimeout = defaultUpstreamTimeout
	}

	c.Fetcher.Command = strings.TrimSpace(c.Fetcher.Command)
	if c.Fetcher.Command == "" {
		c.Fetcher.Command = defaultFetcherCommand
	}
	if c.Fetcher.Timeout <= 0 {
		c.Fetcher.Timeout = defaultFetcherTimeout
	}

	c.Convert.Binary = strings.TrimSpace(c.Convert.Binary)
	if c.Convert.Binary == "" {
		c.Convert.Binary = defaultConvertBinary
	}
	if c.Convert.Timeout <= 0 {
		c.Convert.Timeout = defaultConvertTimeout
	}
	if c.Convert.DPI <= 0 {
		c.Convert.DPI = defaultConvertDPI
	}

	if c.Cache.MaxGiB < 0 {
		c.Cache.MaxGiB = 0
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}

	for _, field := range []*string{&c.Paths.StorageDir, &c.Paths.WorkDir, &c.Paths.LogDir} {
		value := strings.TrimSpace(*field)
		if value == "" {
			continue
		}
		expanded, err := expandPath(value)
		if err != nil {
			return err
		}
		*field = expanded
	}

	return nil
}
