package config

const (
	defaultStorageDir      = "~/.local/share/bindery/storage"
	defaultWorkDir         = "~/.local/share/bindery/work"
	defaultLogDir          = "~/.local/share/bindery/logs"
	defaultAPIBind         = "0.0.0.0:8000"
	defaultUpstreamTimeout = 30
	defaultFetcherCommand  = "album-fetch"
	defaultFetcherTimeout  = 900
	defaultConvertBinary   = "bindery"
	defaultConvertTimeout  = 1800
	defaultConvertDPI      = 100
	defaultCacheMaxGiB     = 50
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			WorkDir:    defaultWorkDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Upstream: Upstream{
			RequestTimeout: defaultUpstreamTimeout,
		},
		Fetcher: Fetcher{
			Command: defaultFetcherCommand,
			Timeout: defaultFetcherTimeout,
		},
		Convert: Convert{
			Binary:  defaultConvertBinary,
			Timeout: defaultConvertTimeout,
			DPI:     defaultConvertDPI,
		},
		Cache: Cache{
			MaxGiB: defaultCacheMaxGiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
