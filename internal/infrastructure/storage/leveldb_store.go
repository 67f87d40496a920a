package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// keyPrefix namespaces records so the database can be shared with other tooling.
const keyPrefix = "kv:"

// LevelDBStore persists key-value records in a leveldb directory.
type LevelDBStore struct {
	db     *leveldb.DB
	path   string
	notify *notifier
}

// OpenLevelDB opens (or creates) the database at path.
func OpenLevelDB(path string) (*LevelDBStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, err
	}
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDBStore{db: db, path: path, notify: newNotifier()}, nil
}

// Get implements ports.KeyValueStore.
func (s *LevelDBStore) Get(_ context.Context, key string) ([]byte, error) {
	b, err := s.db.Get([]byte(keyPrefix+key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrStorage, key, err)
	}
	return b, nil
}

// Set implements ports.KeyValueStore.
func (s *LevelDBStore) Set(_ context.Context, key string, value []byte) error {
	if err := s.db.Put([]byte(keyPrefix+key), value, &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrStorage, key, err)
	}
	s.notify.publish(ports.StorageChange{Key: key, NewValue: clone(value)})
	return nil
}

// Delete implements ports.KeyValueStore.
func (s *LevelDBStore) Delete(_ context.Context, key string) error {
	if err := s.db.Delete([]byte(keyPrefix+key), nil); err != nil {
		return fmt.Errorf("%w: delete %s: %v", domain.ErrStorage, key, err)
	}
	s.notify.publish(ports.StorageChange{Key: key})
	return nil
}

// Subscribe implements ports.KeyValueStore.
func (s *LevelDBStore) Subscribe(fn func(ports.StorageChange)) func() {
	return s.notify.subscribe(fn)
}

// Path returns the database directory.
func (s *LevelDBStore) Path() string {
	return s.path
}

// Close implements ports.KeyValueStore.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var _ ports.KeyValueStore = (*LevelDBStore)(nil)
