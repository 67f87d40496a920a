package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/pkg/filesystem"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// Open builds the configured KeyValueStore backend.
func Open(settings domain.StorageSettings) (ports.KeyValueStore, error) {
	backend := strings.ToLower(strings.TrimSpace(settings.Backend))
	if backend == "" {
		backend = domain.StorageBackendLevelDB
	}
	if backend == domain.StorageBackendMemory {
		return NewMemoryStore(), nil
	}
	path := settings.Path
	if path == "" {
		path = DefaultPath(backend)
	}
	path = filesystem.ExpandPath(path)

	switch backend {
	case domain.StorageBackendLevelDB:
		return OpenLevelDB(path)
	case domain.StorageBackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", settings.Backend)
	}
}

// DefaultPath is where a backend keeps its data when no path is configured.
func DefaultPath(backend string) string {
	base := filepath.Join(filesystem.UserHome(), ".phishnet")
	if backend == domain.StorageBackendSQLite {
		return filepath.Join(base, "storage.db")
	}
	return filepath.Join(base, "leveldb")
}
