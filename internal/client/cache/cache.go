// Package cache persists client-side state as JSON files under a data
// directory, so the stores survive restarts and work without a server.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Cache reads and writes named JSON documents under a single directory.
type Cache struct {
	dir string
}

// New creates a cache rooted at dir, creating the directory if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string {
	return c.dir
}

func (c *Cache) path(name string) string {
	return filepath.Join(c.dir, name+".json")
}

// Save writes v as indented JSON to <dir>/<name>.json. The write goes
// through a temp file and rename so readers never observe a partial
// document.
func (c *Cache) Save(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	tmp := c.path(name) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := os.Rename(tmp, c.path(name)); err != nil {
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}

// Load reads <dir>/<name>.json into out. Returns (false, nil) when the
// document does not exist.
func (c *Cache) Load(name string, out any) (bool, error) {
	data, err := os.ReadFile(c.path(name))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return true, nil
}

// Remove deletes the named document. Missing documents are not an error.
func (c *Cache) Remove(name string) error {
	err := os.Remove(c.path(name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", name, err)
	}
	return nil
}
