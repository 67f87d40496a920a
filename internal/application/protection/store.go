package protection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// Store holds the process-wide protection flags. It is fed by explicit
// protection-state messages and by storage change notifications; both paths
// go through Apply and the last write observed wins.
type Store struct {
	mu    sync.RWMutex
	state domain.ProtectionState

	kv          ports.KeyValueStore
	key         string
	logger      ports.Logger
	unsubscribe func()
}

// NewStore builds a store that persists under key in kv.
func NewStore(kv ports.KeyValueStore, key string, logger ports.Logger) *Store {
	if key == "" {
		key = domain.DefaultProtectionStorageKey
	}
	return &Store{kv: kv, key: key, logger: logger}
}

// Load reads the persisted state and starts listening for rewrites of it.
// Absent or malformed records leave the default {false, false} in place.
func (s *Store) Load(ctx context.Context) {
	if s.unsubscribe == nil {
		s.unsubscribe = s.kv.Subscribe(s.onChange)
	}

	raw, err := s.kv.Get(ctx, s.key)
	if errors.Is(err, domain.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.Error("load protection state", err, map[string]interface{}{"key": s.key})
		return
	}
	update, err := DecodeUpdate(raw)
	if err != nil {
		s.logger.Warn("ignoring malformed protection state", map[string]interface{}{"error": err.Error()})
		return
	}
	s.Apply(update)
}

// Get returns the current flags.
func (s *Store) Get() domain.ProtectionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Apply merges update into the current state and returns the result.
func (s *Store) Apply(update domain.ProtectionUpdate) domain.ProtectionState {
	s.mu.Lock()
	s.state = update.ApplyTo(s.state)
	state := s.state
	s.mu.Unlock()

	s.logger.Info("protection state applied", map[string]interface{}{
		"isProtected": state.IsProtected,
		"alwaysOn":    state.AlwaysOn,
	})
	return state
}

// Persist writes update merged over the stored record. Subscribers, including
// this store, observe it through the change notification.
func (s *Store) Persist(ctx context.Context, update domain.ProtectionUpdate) (domain.ProtectionState, error) {
	current := domain.ProtectionState{}
	raw, err := s.kv.Get(ctx, s.key)
	switch {
	case err == nil:
		if stored, decodeErr := DecodeUpdate(raw); decodeErr == nil {
			current = stored.ApplyTo(current)
		}
	case !errors.Is(err, domain.ErrNotFound):
		return domain.ProtectionState{}, fmt.Errorf("read protection state: %w", err)
	}

	next := update.ApplyTo(current)
	data, err := json.Marshal(next)
	if err != nil {
		return domain.ProtectionState{}, err
	}
	if err := s.kv.Set(ctx, s.key, data); err != nil {
		return domain.ProtectionState{}, fmt.Errorf("write protection state: %w", err)
	}
	return next, nil
}

// Close stops listening for storage changes.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Store) onChange(change ports.StorageChange) {
	if change.Key != s.key || change.NewValue == nil {
		return
	}
	update, err := DecodeUpdate(change.NewValue)
	if err != nil {
		s.logger.Warn("ignoring malformed protection change", map[string]interface{}{"error": err.Error()})
		return
	}
	s.Apply(update)
}

// DecodeUpdate parses a full or partial state object. Anything that is not a
// JSON object is rejected.
func DecodeUpdate(raw []byte) (domain.ProtectionUpdate, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return domain.ProtectionUpdate{}, errors.New("protection state must be an object")
	}
	var update domain.ProtectionUpdate
	if err := json.Unmarshal(raw, &update); err != nil {
		return domain.ProtectionUpdate{}, err
	}
	return update, nil
}
