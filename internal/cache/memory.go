package cache

import (
	"context"
	"runtime"
	"sync"
	"time"

	"DisplayAPI/internal/logger"
)

const memorySweepFreq = time.Minute

type memoryEntry struct {
	value     []byte
	createdAt time.Time
}

// Memory is an in-process cache with a TTL and an optional byte cap.
type Memory struct {
	mu         sync.Mutex
	items      map[string]*memoryEntry
	ttl        time.Duration
	maxBytes   int64
	totalBytes int64
	lastSweep  time.Time
	now        func() time.Time
}

func NewMemory(ttl time.Duration, maxBytes int64) *Memory {
	return &Memory{
		items:    make(map[string]*memoryEntry),
		ttl:      ttl,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.maybeSweepLocked(now)
	entry, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if c.expired(entry, now) {
		c.deleteLocked(key, entry)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *Memory) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.maybeSweepLocked(now)

	size := int64(len(value))
	if c.maxBytes > 0 && size > c.maxBytes {
		logger.Warn("response_cache_item_too_large", map[string]any{
			"item_bytes": size,
			"max_bytes":  c.maxBytes,
		})
		return nil
	}

	var replaced int64
	if existing, ok := c.items[key]; ok {
		replaced = int64(len(existing.value))
	}
	if c.maxBytes > 0 && c.totalBytes-replaced+size > c.maxBytes {
		logger.Warn("response_cache_memory_limit_exceeded", map[string]any{
			"item_bytes":  size,
			"total_bytes": c.totalBytes,
			"max_bytes":   c.maxBytes,
		})
		logMemoryPressure()
		return nil
	}

	c.items[key] = &memoryEntry{value: value, createdAt: now}
	c.totalBytes += size - replaced
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Memory) expired(entry *memoryEntry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(entry.createdAt) > c.ttl
}

func (c *Memory) deleteLocked(key string, entry *memoryEntry) {
	delete(c.items, key)
	c.totalBytes -= int64(len(entry.value))
}

func (c *Memory) maybeSweepLocked(now time.Time) {
	if !c.lastSweep.IsZero() && now.Sub(c.lastSweep) < memorySweepFreq {
		return
	}
	for key, entry := range c.items {
		if c.expired(entry, now) {
			c.deleteLocked(key, entry)
		}
	}
	c.lastSweep = now
}

func logMemoryPressure() {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	logger.Error("response_cache_memory_pressure", map[string]any{
		"alloc_bytes": stats.Alloc,
		"heap_inuse":  stats.HeapInuse,
	})
}
