package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/phishnet-go/internal/pkg/logger"
	"github.com/doeshing/phishnet-go/internal/ports"
)

func TestStateFileWatcher_MirrorsWatchedKeys(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenLevelDB(filepath.Join(t.TempDir(), "db"))
	require.NoError(t, err)
	defer store.Close()

	changes := make(chan ports.StorageChange, 16)
	store.Subscribe(func(c ports.StorageChange) { changes <- c })

	w, err := NewStateFileWatcher(dir, store, logger.Nop(), "protection")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "protection.json"), []byte(`{"isProtected":true}`), 0o644))

	select {
	case c := <-changes:
		assert.Equal(t, "protection", c.Key)
		assert.JSONEq(t, `{"isProtected":true}`, string(c.NewValue))
	case <-time.After(2 * time.Second):
		t.Fatal("expected storage change from watched file")
	}
}

func TestStateFileWatcher_RequiresDir(t *testing.T) {
	_, err := NewStateFileWatcher("", nil, logger.Nop())
	assert.Error(t, err)
}
