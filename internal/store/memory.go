package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory keeps values in process memory. Useful for development and tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

var (
	_ Store  = (*Memory)(nil)
	_ Purger = (*Memory)(nil)
)

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		ttl:     ttlOrDefault(ttl),
		now:     time.Now,
	}
}

func memoryKey(sessionID, key string) string {
	return sessionID + "\x00" + key
}

func (m *Memory) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[memoryKey(sessionID, key)]
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.value...), nil
}

// Set writes the value and pushes back the expiry of the session's other
// live keys so a session expires as a whole.
func (m *Memory) Set(_ context.Context, sessionID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	expires := now.Add(m.ttl)
	for _, other := range sessionKeys {
		k := memoryKey(sessionID, other)
		if e, ok := m.entries[k]; ok && now.Before(e.expiresAt) {
			e.expiresAt = expires
			m.entries[k] = e
		}
	}
	m.entries[memoryKey(sessionID, key)] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: expires,
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, sessionID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, memoryKey(sessionID, key))
	return nil
}

func (m *Memory) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }
