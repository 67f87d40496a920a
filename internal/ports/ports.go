// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// The navigation guard depends only on these abstractions; storage engines,
// the HTTP scanner, and the browser-facing transport are adapters living in
// the infrastructure layer and can be replaced by fakes in tests.
package ports

import (
	"context"

	"github.com/doeshing/phishnet-go/internal/domain"
)

// ConfigProvider loads the latest configuration from persistent storage.
// Implementations typically read from ~/.phishnet/config.yaml.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// StorageChange is fired when a key is rewritten, by this process or another context.
type StorageChange struct {
	Key      string
	NewValue []byte
}

// KeyValueStore is the persistent store shared with the extension's other contexts.
// Get returns domain.ErrNotFound for absent keys.
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Subscribe registers fn for every subsequent change and returns an unsubscribe func.
	Subscribe(fn func(StorageChange)) func()
	Close() error
}

// ThreatScanner classifies a URL. Scan never fails: every error is folded into SAFE.
type ThreatScanner interface {
	Scan(ctx context.Context, url string, token string) domain.ScanResult
}

// TokenSource supplies the optional bearer token for the scan endpoint.
// An empty token with a nil error means "no token".
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// VerdictCache remembers recent verdicts by exact URL.
type VerdictCache interface {
	Get(url string) (domain.Verdict, bool)
	Put(url string, verdict domain.Verdict)
}

// URLFilter reports navigation targets that bypass interception entirely.
type URLFilter interface {
	ShouldIgnore(url string) bool
}

// TabNavigator instructs a browser tab to load a URL.
type TabNavigator interface {
	Navigate(ctx context.Context, tabID int, url string) error
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
