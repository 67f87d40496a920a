package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"github.com/doeshing/phishnet-go/internal/domain"
	"github.com/doeshing/phishnet-go/internal/ports"
)

// StoreTokenSource reads the access token written by the account context.
// It never writes the key.
type StoreTokenSource struct {
	store ports.KeyValueStore
	key   string
}

// NewStoreTokenSource reads key from store.
func NewStoreTokenSource(store ports.KeyValueStore, key string) *StoreTokenSource {
	if key == "" {
		key = domain.DefaultAccessTokenKey
	}
	return &StoreTokenSource{store: store, key: key}
}

// Token implements ports.TokenSource. A missing key is not an error.
func (s *StoreTokenSource) Token(ctx context.Context) (string, error) {
	raw, err := s.store.Get(ctx, s.key)
	if errors.Is(err, domain.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	raw = bytes.TrimSpace(raw)
	var token string
	if err := json.Unmarshal(raw, &token); err == nil {
		return token, nil
	}
	return string(raw), nil
}

var _ ports.TokenSource = (*StoreTokenSource)(nil)
