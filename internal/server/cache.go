package server

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mj1618/desktop-narrator/internal/platform/scripted"
)

// cacheEntry holds a parsed script with the file state it was parsed from.
type cacheEntry struct {
	script    *scripted.Script
	modTime   time.Time
	timestamp time.Time
}

// ScriptCache provides a TTL-based cache of parsed scripts. An entry is
// also dropped when the file's modification time changes.
type ScriptCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	load    func(string) (*scripted.Script, error)
}

// NewScriptCache creates a new cache. A ttl of 0 disables caching.
func NewScriptCache(ttl time.Duration) *ScriptCache {
	return &ScriptCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		load:    scripted.Load,
	}
}

// Load returns the cached script for path if within TTL, otherwise parses
// the file again.
func (c *ScriptCache) Load(path string) (*scripted.Script, error) {
	if c.ttl == 0 {
		return c.load(path)
	}
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}
	var modTime time.Time
	if info, err := os.Stat(key); err == nil {
		modTime = info.ModTime()
	}

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && time.Since(entry.timestamp) < c.ttl && entry.modTime.Equal(modTime) {
		script := entry.script
		c.mu.Unlock()
		return script, nil
	}
	c.mu.Unlock()

	script, err := c.load(key)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{script: script, modTime: modTime, timestamp: time.Now()}
	c.mu.Unlock()

	return script, nil
}

// Invalidate removes the entry for path.
func (c *ScriptCache) Invalidate(path string) {
	key, err := filepath.Abs(path)
	if err != nil {
		key = path
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll clears the entire cache.
func (c *ScriptCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of cached scripts.
func (c *ScriptCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
