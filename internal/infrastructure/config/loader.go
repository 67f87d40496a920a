package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/phishnet-go/assets"
	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/infrastructure/ignore"
	"github.com/doeshing/phishnet-go/internal/pkg/filesystem"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// EnvConfigPath overrides the config location.
const EnvConfigPath = "PHISHNET_CONFIG"

// FileLoader loads YAML configuration from ~/.phishnet/config.yaml (overridable via PHISHNET_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, fmt.Errorf("ensure config dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := writeDefault(path, cfg); err != nil {
				return domain.Config{}, err
			}
			return cfg, nil
		}
		return domain.Config{}, err
	}

	var cfg domain.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	return hydrateDefaults(cfg), nil
}

// Path returns the resolved config file path.
func (l *FileLoader) Path() string {
	return l.resolvePath()
}

// Save writes the given config back to disk.
func (l *FileLoader) Save(cfg domain.Config) error {
	if err := ensureConfigDir(l.resolvePath()); err != nil {
		return err
	}
	return writeDefault(l.resolvePath(), cfg)
}

// Reset backs up the current file, if any, and overwrites it with defaults.
func (l *FileLoader) Reset() (domain.Config, string, error) {
	backup, err := l.backup()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.Config{}, "", err
	}
	cfg := DefaultConfig()
	if err := l.Save(cfg); err != nil {
		return domain.Config{}, "", err
	}
	return cfg, backup, nil
}

func (l *FileLoader) backup() (string, error) {
	path := l.resolvePath()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	backup := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102T150405"))
	if err := os.WriteFile(backup, data, domain.SecureFilePermissions); err != nil {
		return "", err
	}
	return backup, nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.UserHome(), ".phishnet", "config.yaml")
}

func ensureConfigDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
}

func writeDefault(path string, cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

// DefaultConfig exposes the bootstrap configuration.
func DefaultConfig() domain.Config {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		cfg = domain.Config{ConfigFormatVersion: "1"}
	}
	return hydrateDefaults(cfg)
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.Scan.Endpoint == "" {
		cfg.Scan.Endpoint = domain.DefaultScanEndpoint
	}
	if cfg.Scan.Timeout == "" {
		cfg.Scan.Timeout = domain.DefaultScanTimeout.String()
	}
	if cfg.Scan.CacheTTL == "" {
		cfg.Scan.CacheTTL = domain.DefaultScanCacheTTL.String()
	}
	if cfg.History.MaxEntries <= 0 {
		cfg.History.MaxEntries = domain.DefaultMaxScanHistory
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = domain.StorageBackendLevelDB
	}
	if cfg.StorageKeys.Protection == "" {
		cfg.StorageKeys.Protection = domain.DefaultProtectionStorageKey
	}
	if cfg.StorageKeys.History == "" {
		cfg.StorageKeys.History = domain.DefaultScanHistoryKey
	}
	if cfg.StorageKeys.AccessToken == "" {
		cfg.StorageKeys.AccessToken = domain.DefaultAccessTokenKey
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = domain.DefaultListenAddr
	}
	if cfg.Server.InterstitialURL == "" {
		cfg.Server.InterstitialURL = domain.DefaultInterstitialURL
	}
	if len(cfg.Ignore.Schemes) == 0 {
		cfg.Ignore.Schemes = ignore.DefaultSchemes()
	}
	return cfg
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
