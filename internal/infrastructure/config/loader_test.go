package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/phishnet-go/internal/domain"
)

func TestLoadWritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	loader := NewFileLoader(path)

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultScanEndpoint, cfg.Scan.Endpoint)
	assert.Equal(t, domain.DefaultScanTimeout, cfg.Scan.TimeoutDuration())
	assert.Equal(t, domain.DefaultScanCacheTTL, cfg.Scan.CacheTTLDuration())
	assert.Equal(t, domain.DefaultMaxScanHistory, cfg.History.MaxEntries)
	assert.Equal(t, domain.DefaultProtectionStorageKey, cfg.StorageKeys.Protection)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(domain.SecureFilePermissions), info.Mode().Perm())
}

func TestLoadHydratesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan:\n  endpoint: https://scan.internal/api\nserver:\n  listen: 0.0.0.0:9000\n"), 0o600))

	cfg, err := NewFileLoader(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://scan.internal/api", cfg.Scan.Endpoint)
	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Listen)
	assert.Equal(t, domain.DefaultInterstitialURL, cfg.Server.InterstitialURL)
	assert.Equal(t, domain.StorageBackendLevelDB, cfg.Storage.Backend)
	assert.NotEmpty(t, cfg.Ignore.Schemes)
}

func TestEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	t.Setenv(EnvConfigPath, path)

	loader := NewFileLoader("")
	assert.Equal(t, path, loader.Path())
	_, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestResetBacksUpExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history:\n  max_entries: 5\n"), 0o600))

	cfg, backup, err := NewFileLoader(path).Reset()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultMaxScanHistory, cfg.History.MaxEntries)
	require.NotEmpty(t, backup)
	data, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_entries: 5")
}

func TestMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scan: [unterminated"), 0o600))

	_, err := NewFileLoader(path).Load(context.Background())
	assert.Error(t, err)
}
