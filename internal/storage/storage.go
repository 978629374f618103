// Package storage persists small JSON documents of per-session client state
// (cart, shipping address, auth session) under namespaced keys.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("key not found")

// Storage is a flat key/value store. Implementations must treat Delete of a
// missing key as success.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

// Key builds "<namespace>:<session>:<field>".
func Key(namespace, session, field string) string {
	return fmt.Sprintf("%s:%s:%s", namespace, session, field)
}

// splitKey separates a key into its "<namespace>:<session>" group and field.
// Keys of one group expire together. A key without a separator is its own
// group.
func splitKey(key string) (group, field string) {
	i := strings.LastIndex(key, ":")
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

// LoadJSON decodes the value stored under key into dst. It reports false
// without error when the key does not exist.
func LoadJSON(ctx context.Context, s Storage, key string, dst any) (bool, error) {
	data, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return true, nil
}

func SaveJSON(ctx context.Context, s Storage, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
