package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

type mockEntry struct {
	value   []byte
	expires time.Time
}

// MockRedisClient provides an in-process implementation for tests and for
// running without Redis.
type MockRedisClient struct {
	mu     sync.Mutex
	data   map[string]mockEntry
	prefix string
	now    func() time.Time
}

var _ RedisInterface = (*MockRedisClient)(nil)

func NewMockRedisClient(prefix string) *MockRedisClient {
	return &MockRedisClient{
		data:   make(map[string]mockEntry),
		prefix: prefix,
		now:    time.Now,
	}
}

func (m *MockRedisClient) Close() error {
	return nil
}

// get must be called with mu held.
func (m *MockRedisClient) get(key string) ([]byte, bool) {
	e, ok := m.data[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.data, key)
		return nil, false
	}
	return e.value, true
}

func (m *MockRedisClient) set(key string, value []byte, ttl time.Duration) {
	e := mockEntry{value: value}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.data[key] = e
}

func (m *MockRedisClient) IsProcessed(ctx context.Context, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.get(m.prefix + processedNS + hash)
	return exists, nil
}

func (m *MockRedisClient) MarkProcessed(ctx context.Context, hash string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(m.prefix+processedNS+hash, []byte("1"), ttl)
	return nil
}

func (m *MockRedisClient) ClearProcessed(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, m.prefix+processedNS) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *MockRedisClient) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	data, ok := m.get(m.prefix + key)
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

func (m *MockRedisClient) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(m.prefix+key, data, ttl)
	return nil
}

func (m *MockRedisClient) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, m.prefix+k)
	}
	return nil
}
