package domain

import "time"

// File permissions constants
const (
	// DirectoryPermissions is the default permission for directories (rwxr-xr-x)
	DirectoryPermissions = 0o755
	// SecureFilePermissions is the permission for sensitive files (rw-------)
	SecureFilePermissions = 0o600
)

// Scan constants
const (
	// DefaultScanEndpoint is the remote scanning service used when none is configured
	DefaultScanEndpoint = "http://localhost:5000/api/v1/urls/scan"
	// DefaultScanTimeout bounds one scan call
	DefaultScanTimeout = 3000 * time.Millisecond
	// DefaultScanCacheTTL is how long a verdict is served without rescanning
	DefaultScanCacheTTL = 5 * time.Minute
)

// History constants
const (
	// DefaultMaxScanHistory is the number of scan records kept, newest first
	DefaultMaxScanHistory = 50
	// DefaultHistoryLimit is the default number of history records to display
	DefaultHistoryLimit = 20
)

// Storage keys shared with the extension's other contexts
const (
	DefaultProtectionStorageKey = "phishnetProtectionState"
	DefaultScanHistoryKey       = "phishnetScanHistory"
	DefaultAccessTokenKey       = "accessToken"
)

// Server constants
const (
	DefaultListenAddr      = "127.0.0.1:8787"
	DefaultInterstitialURL = "http://127.0.0.1:8787/warning"
	DefaultShutdownTimeout = 10 * time.Second
	// APIKeyHeader carries server.api_key on bridge requests.
	APIKeyHeader = "X-PhishNet-Key"
)

// Time formats
const (
	// TimestampFormat is the standard timestamp format
	TimestampFormat = time.RFC3339
)
