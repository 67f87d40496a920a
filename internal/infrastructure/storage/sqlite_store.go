package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// sqlitePollInterval is how often a subscribed store checks for commits made
// by other processes sharing the database file.
const sqlitePollInterval = 250 * time.Millisecond

// SQLiteStore persists key-value records in a single SQLite table. Once a
// subscriber is registered it also polls PRAGMA data_version, so rows written
// by another process (the CLI while a server runs) are published too.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	mu     sync.Mutex
	notify *notifier

	pollEvery time.Duration
	watchOnce sync.Once
	// seen maps each key to the updated_at stamp last observed; nil until watching.
	seen   map[string]string
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// OpenSQLite creates (or opens) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	store := &SQLiteStore{
		db:        db,
		path:      path,
		notify:    newNotifier(),
		pollEvery: sqlitePollInterval,
		stopCh:    make(chan struct{}),
	}
	if err := store.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB,
		updated_at TEXT
	);`)
	return err
}

// Get implements ports.KeyValueStore.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", domain.ErrStorage, key, err)
	}
	return value, nil
}

// Set implements ports.KeyValueStore.
func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	stamp := time.Now().UTC().Format(time.RFC3339Nano)
	s.mu.Lock()
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, stamp)
	if err == nil && s.seen != nil {
		s.seen[key] = stamp
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrStorage, key, err)
	}
	s.notify.publish(ports.StorageChange{Key: key, NewValue: clone(value)})
	return nil
}

// Delete implements ports.KeyValueStore.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	if err == nil && s.seen != nil {
		delete(s.seen, key)
	}
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", domain.ErrStorage, key, err)
	}
	s.notify.publish(ports.StorageChange{Key: key})
	return nil
}

// Subscribe implements ports.KeyValueStore. The first subscription starts
// the cross-process poller.
func (s *SQLiteStore) Subscribe(fn func(ports.StorageChange)) func() {
	unsubscribe := s.notify.subscribe(fn)
	s.watchOnce.Do(s.startWatching)
	return unsubscribe
}

// startWatching records a baseline and launches the poll loop. A failure
// leaves the store with in-process notifications only.
func (s *SQLiteStore) startWatching() {
	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return
	}
	version, err := dataVersion(ctx, conn)
	if err != nil {
		_ = conn.Close()
		return
	}

	s.mu.Lock()
	rows, err := readStamps(ctx, conn)
	if err == nil {
		s.seen = make(map[string]string, len(rows))
		for key, row := range rows {
			s.seen[key] = row.stamp
		}
	}
	s.mu.Unlock()
	if err != nil {
		_ = conn.Close()
		return
	}

	s.wg.Add(1)
	go s.watch(conn, version)
}

func (s *SQLiteStore) watch(conn *sql.Conn, version int64) {
	defer s.wg.Done()
	defer conn.Close()

	ctx := context.Background()
	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
		}
		current, err := dataVersion(ctx, conn)
		if err != nil || current == version {
			continue
		}
		version = current
		changes, err := s.externalChanges(ctx, conn)
		if err != nil {
			continue
		}
		for _, change := range changes {
			s.notify.publish(change)
		}
	}
}

// externalChanges diffs the table against the stamps this store has already
// seen or written itself.
func (s *SQLiteStore) externalChanges(ctx context.Context, conn *sql.Conn) ([]ports.StorageChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := readStamps(ctx, conn)
	if err != nil {
		return nil, err
	}
	var changes []ports.StorageChange
	for key, row := range rows {
		if s.seen[key] == row.stamp {
			continue
		}
		s.seen[key] = row.stamp
		changes = append(changes, ports.StorageChange{Key: key, NewValue: row.value})
	}
	for key := range s.seen {
		if _, ok := rows[key]; !ok {
			delete(s.seen, key)
			changes = append(changes, ports.StorageChange{Key: key})
		}
	}
	return changes, nil
}

type stampedRow struct {
	value []byte
	stamp string
}

func readStamps(ctx context.Context, conn *sql.Conn) (map[string]stampedRow, error) {
	rows, err := conn.QueryContext(ctx, `SELECT key, value, COALESCE(updated_at, '') FROM kv`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]stampedRow)
	for rows.Next() {
		var key string
		var row stampedRow
		if err := rows.Scan(&key, &row.value, &row.stamp); err != nil {
			return nil, err
		}
		out[key] = row
	}
	return out, rows.Err()
}

func dataVersion(ctx context.Context, conn *sql.Conn) (int64, error) {
	var v int64
	err := conn.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v)
	return v, err
}

// Path returns the sqlite database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close stops the poller and closes the database.
func (s *SQLiteStore) Close() error {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.wg.Wait()
	return s.db.Close()
}

var _ ports.KeyValueStore = (*SQLiteStore)(nil)
