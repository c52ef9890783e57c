package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FileCache is the local snapshot cache: one JSON file per logical key.
type FileCache struct {
	basePath string
	mu       sync.Mutex
}

// NewFileCache creates a FileCache and ensures the base directory exists.
func NewFileCache(basePath string) (*FileCache, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", basePath, err)
	}
	return &FileCache{basePath: basePath}, nil
}

func (c *FileCache) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(c.basePath, key+".json"), nil
}

// Save writes v under key, replacing any previous value.
func (c *FileCache) Save(key string, v any) error {
	p, err := c.path(key)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry %s: %w", key, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// Load decodes the entry for key into v. It reports false, with no error,
// when the key has never been saved.
func (c *FileCache) Load(key string, v any) (bool, error) {
	p, err := c.path(key)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	data, err := os.ReadFile(p)
	c.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read cache file: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache entry %s: %w", key, err)
	}
	return true, nil
}

// Exists checks if an entry for key has been saved.
func (c *FileCache) Exists(key string) bool {
	p, err := c.path(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return !os.IsNotExist(err)
}

// Remove deletes the entry for key. Removing a missing key is not an error.
func (c *FileCache) Remove(key string) error {
	p, err := c.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove cache file %s: %w", p, err)
	}
	return nil
}

// MemoryCache keeps JSON-encoded entries in memory. Values round-trip
// through encoding/json exactly as they would through FileCache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]byte)}
}

// Save stores v under key.
func (c *MemoryCache) Save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry %s: %w", key, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = data
	return nil
}

// Load decodes the entry for key into v.
func (c *MemoryCache) Load(key string, v any) (bool, error) {
	c.mu.Lock()
	data, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache entry %s: %w", key, err)
	}
	return true, nil
}
