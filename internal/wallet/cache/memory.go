package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory is an in-process TTL cache. Contents are lost on restart and not
// shared across instances; a background sweep evicts expired keys and every
// read applies lazy expiry as well.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	log     *zap.Logger

	stopOnce sync.Once
	quit     chan struct{}
}

// NewMemory creates a memory cache and starts its sweep loop.
func NewMemory(sweepInterval time.Duration, log *zap.Logger) *Memory {
	m := &Memory{
		entries: make(map[string]memoryEntry),
		log:     log,
		quit:    make(chan struct{}),
	}
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	go m.sweep(sweepInterval)
	return m
}

// Stop halts the background sweep.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() { close(m.quit) })
}

func (m *Memory) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.quit:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			removed := 0
			for key, entry := range m.entries {
				if entry.expired(now) {
					delete(m.entries, key)
					removed++
				}
			}
			m.mu.Unlock()
			if removed > 0 {
				m.log.Debug("swept expired cache entries", zap.Int("removed", removed))
			}
		}
	}
}

// lookup returns the live entry for key, deleting it if expired.
func (m *Memory) lookup(key string) (memoryEntry, bool) {
	now := time.Now()
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return memoryEntry{}, false
	}
	if entry.expired(now) {
		m.mu.Lock()
		if current, still := m.entries[key]; still && current.expired(now) {
			delete(m.entries, key)
		}
		m.mu.Unlock()
		return memoryEntry{}, false
	}
	return entry, true
}

func (m *Memory) Get(ctx context.Context, key string) (string, error) {
	entry, ok := m.lookup(key)
	if !ok {
		return "", ErrMiss
	}
	return entry.value, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	_, ok := m.lookup(key)
	return ok, nil
}

func (m *Memory) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok || entry.expired(now) {
		return false, nil
	}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	} else {
		entry.expiresAt = time.Time{}
	}
	m.entries[key] = entry
	return true, nil
}

func (m *Memory) TTL(ctx context.Context, key string) (time.Duration, error) {
	entry, ok := m.lookup(key)
	if !ok {
		return 0, ErrMiss
	}
	if entry.expiresAt.IsZero() {
		return NoExpiry, nil
	}
	return time.Until(entry.expiresAt), nil
}

func (m *Memory) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	values := make([]*string, len(keys))
	for i, key := range keys {
		if entry, ok := m.lookup(key); ok {
			v := entry.value
			values[i] = &v
		}
	}
	return values, nil
}

func (m *Memory) MSet(ctx context.Context, values map[string]string) error {
	m.mu.Lock()
	for key, value := range values {
		m.entries[key] = memoryEntry{value: value}
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) FlushAll(ctx context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}
