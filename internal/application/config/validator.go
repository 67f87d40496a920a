package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/doeshing/phishnet-go/internal/domain"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if err := validateScan(cfg.Scan); err != nil {
		return err
	}
	if cfg.History.MaxEntries < 0 {
		return fmt.Errorf("history.max_entries must be >= 0")
	}
	if err := validateStorage(cfg.Storage); err != nil {
		return err
	}
	if err := validateServer(cfg.Server); err != nil {
		return err
	}
	for _, pattern := range cfg.Ignore.Patterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("ignore.patterns: %q: %w", pattern, err)
		}
	}
	return nil
}

func validateScan(scan domain.ScanSettings) error {
	if scan.Endpoint != "" {
		if err := absoluteHTTPURL(scan.Endpoint); err != nil {
			return fmt.Errorf("scan.endpoint: %w", err)
		}
	}
	if err := positiveDuration(scan.Timeout); err != nil {
		return fmt.Errorf("scan.timeout invalid: %w", err)
	}
	if err := positiveDuration(scan.CacheTTL); err != nil {
		return fmt.Errorf("scan.cache_ttl invalid: %w", err)
	}
	return nil
}

func validateStorage(storage domain.StorageSettings) error {
	switch strings.ToLower(storage.Backend) {
	case "", domain.StorageBackendLevelDB, domain.StorageBackendSQLite, domain.StorageBackendMemory:
		return nil
	default:
		return fmt.Errorf("storage.backend must be leveldb|sqlite|memory, got %s", storage.Backend)
	}
}

func validateServer(server domain.ServerSettings) error {
	if server.Listen != "" {
		if _, _, err := net.SplitHostPort(server.Listen); err != nil {
			return fmt.Errorf("server.listen: %w", err)
		}
	}
	if server.InterstitialURL != "" {
		if err := absoluteHTTPURL(server.InterstitialURL); err != nil {
			return fmt.Errorf("server.interstitial_url: %w", err)
		}
	}
	for _, origin := range server.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" || (u.Path != "" && u.Path != "/") {
			return fmt.Errorf("server.allowed_origins: %q must be scheme://host", origin)
		}
	}
	return nil
}

func absoluteHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must be an http(s) URL")
	}
	if u.Host == "" {
		return errors.New("host is required")
	}
	return nil
}

func positiveDuration(value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	if d <= 0 {
		return errors.New("must be positive")
	}
	return nil
}
