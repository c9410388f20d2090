// Package savedviews persists the named filter snapshots of each list page
// in a string keyed store.
package savedviews

import (
	"context"
	"errors"
	"sync"
)

// ErrKeyNotFound is returned by a KV when nothing is stored under a key.
var ErrKeyNotFound = errors.New("savedviews: key not found")

// KV is the persisted get/set collaborator behind a Store.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Key returns the storage key for the views of an entity, e.g. "employeeViews".
func Key(entity string) string {
	return entity + "Views"
}

// MemoryKV keeps values in process memory. It backs tests and the
// single-process default.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryKV constructs an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.values[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), value...), nil
}

// Set stores a copy of value under key.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

type scopedKV struct {
	kv    KV
	scope string
}

// Scoped prefixes every key with scope, giving each client its own saved
// view sets on a shared backend. An empty scope returns kv unchanged.
func Scoped(kv KV, scope string) KV {
	if scope == "" {
		return kv
	}
	return &scopedKV{kv: kv, scope: scope}
}

func (s *scopedKV) Get(ctx context.Context, key string) ([]byte, error) {
	return s.kv.Get(ctx, s.scope+":"+key)
}

func (s *scopedKV) Set(ctx context.Context, key string, value []byte) error {
	return s.kv.Set(ctx, s.scope+":"+key, value)
}
