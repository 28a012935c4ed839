// Package cache is a small file-backed response cache. Repeated
// questions skip the whole generation pipeline; every operation is
// best-effort and a broken cache file just means a cold cache.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/liftwise/liftwise/internal/log"
)

const cacheFileName = "responses.json"

type entry struct {
	Response string    `json:"response"`
	SavedAt  time.Time `json:"saved_at"`
}

// Cache maps normalized prompts to responses, persisted as one JSON
// file under dir. Safe for concurrent use.
type Cache struct {
	path   string
	logger log.Logger

	mu      sync.RWMutex
	entries map[string]entry
}

// New opens (or initializes) the cache under dir. A missing or corrupt
// cache file starts an empty cache rather than failing.
func New(dir string, logger log.Logger) (*Cache, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, err
	}

	c := &Cache{
		path:    filepath.Join(dir, cacheFileName),
		logger:  logger,
		entries: make(map[string]entry),
	}
	c.load()
	return c, nil
}

// Get returns the cached response for prompt, if any.
func (c *Cache) Get(prompt string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key(prompt)]
	return e.Response, ok
}

// Set stores a response and persists the cache. Persistence failures
// are logged, never returned; the in-memory entry still serves.
func (c *Cache) Set(prompt, response string) {
	if strings.TrimSpace(prompt) == "" || response == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key(prompt)] = entry{Response: response, SavedAt: time.Now().UTC()}
	c.save()
}

// Size returns the number of cached responses.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops all entries and persists the empty cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.save()
}

// key normalizes the prompt and hashes it, so whitespace and casing
// variants hit the same entry.
func key(prompt string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(prompt))))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.logger.Warn("reading cache file failed", "path", c.path, "error", err)
		}
		return
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		c.logger.Warn("cache file corrupt, starting empty", "path", c.path, "error", err)
		c.entries = make(map[string]entry)
	}
}

// save writes atomically via a temp file. Caller holds the lock.
func (c *Cache) save() {
	data, err := json.Marshal(c.entries)
	if err != nil {
		c.logger.Warn("encoding cache failed", "error", err)
		return
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		c.logger.Warn("writing cache failed", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, c.path); err != nil {
		c.logger.Warn("replacing cache file failed", "path", c.path, "error", err)
	}
}
