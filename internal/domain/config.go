package domain

import "time"

// Config mirrors ~/.phishnet/config.yaml.
type Config struct {
	ConfigFormatVersion string          `yaml:"config_format_version"`
	Scan                ScanSettings    `yaml:"scan"`
	History             HistorySettings `yaml:"history"`
	Storage             StorageSettings `yaml:"storage"`
	StorageKeys         StorageKeys     `yaml:"storage_keys"`
	Server              ServerSettings  `yaml:"server"`
	Ignore              IgnoreSettings  `yaml:"ignore"`
}

// ScanSettings configures the remote threat-scanning call.
type ScanSettings struct {
	Endpoint string `yaml:"endpoint"`
	Timeout  string `yaml:"timeout"`
	CacheTTL string `yaml:"cache_ttl"`
}

// TimeoutDuration parses Timeout, falling back to DefaultScanTimeout.
func (s ScanSettings) TimeoutDuration() time.Duration {
	return parseDurationOr(s.Timeout, DefaultScanTimeout)
}

// CacheTTLDuration parses CacheTTL, falling back to DefaultScanCacheTTL.
func (s ScanSettings) CacheTTLDuration() time.Duration {
	return parseDurationOr(s.CacheTTL, DefaultScanCacheTTL)
}

// HistorySettings bounds the scan history log.
type HistorySettings struct {
	MaxEntries int `yaml:"max_entries"`
}

// StorageSettings selects the persistent key-value backend.
type StorageSettings struct {
	Backend  string `yaml:"backend"`
	Path     string `yaml:"path"`
	WatchDir string `yaml:"watch_dir"`
}

// Storage backends.
const (
	StorageBackendLevelDB = "leveldb"
	StorageBackendSQLite  = "sqlite"
	StorageBackendMemory  = "memory"
)

// StorageKeys names the records shared with other contexts.
type StorageKeys struct {
	Protection  string `yaml:"protection"`
	History     string `yaml:"history"`
	AccessToken string `yaml:"access_token"`
}

// ServerSettings configures the coordinator's HTTP surface.
type ServerSettings struct {
	Listen          string `yaml:"listen"`
	InterstitialURL string `yaml:"interstitial_url"`
	// AllowedOrigins lists browser origins, besides the server's own, that may
	// call /api/v1 (typically the extension, e.g. chrome-extension://<id>).
	AllowedOrigins []string `yaml:"allowed_origins"`
	// APIKey, when set, must accompany /api/v1 calls that do not come from
	// the server's own pages.
	APIKey string `yaml:"api_key"`
}

// IgnoreSettings lists destinations the gate never intercepts.
type IgnoreSettings struct {
	Schemes         []string `yaml:"schemes"`
	DebugHost       string   `yaml:"debug_host"`
	DebugPathPrefix string   `yaml:"debug_path_prefix"`
	Patterns        []string `yaml:"patterns"`
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
