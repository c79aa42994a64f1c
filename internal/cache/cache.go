// Package cache stores compiled WASM viewer builds keyed by a hash of the
// sources they were built from, so unchanged trees skip the compiler.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Cache is an on-disk artifact store with an LRU size bound
type Cache struct {
	mu      sync.RWMutex
	dir     string
	index   *Index
	maxSize int64 // Maximum cache size in bytes
	stats   Stats
}

// Index tracks all cached entries
type Index struct {
	Version string            `json:"version"`
	Entries map[string]*Entry `json:"entries"`
	Updated time.Time         `json:"updated"`
}

// Entry represents a single cached artifact
type Entry struct {
	Key        string    `json:"key"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	Created    time.Time `json:"created"`
	LastAccess time.Time `json:"last_access"`
}

// Stats tracks cache performance counters
type Stats struct {
	Hits       int64 `json:"hits"`
	Misses     int64 `json:"misses"`
	Evictions  int64 `json:"evictions"`
	TotalSize  int64 `json:"total_size"`
	EntryCount int   `json:"entry_count"`
}

// Config holds cache configuration
type Config struct {
	Dir     string // Cache directory (default: $HOME/.cache/mapview)
	MaxSize int64  // Maximum cache size in bytes, <= 0 for no limit (default: 256MB)
}

const indexVersion = "1.0"

// DefaultConfig returns the default cache configuration
func DefaultConfig() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		Dir:     filepath.Join(homeDir, ".cache", "mapview"),
		MaxSize: 256 << 20,
	}
}

// New opens the cache in config.Dir, creating it if needed. A missing or
// corrupt index starts the cache empty.
func New(config Config) (*Cache, error) {
	if config.Dir == "" {
		config = DefaultConfig()
	}

	if err := os.MkdirAll(filepath.Join(config.Dir, "artifacts"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &Cache{
		dir:     config.Dir,
		maxSize: config.MaxSize,
		index:   newIndex(),
	}
	if err := c.loadIndex(); err != nil {
		c.index = newIndex()
	}
	return c, nil
}

func newIndex() *Index {
	return &Index{
		Version: indexVersion,
		Entries: make(map[string]*Entry),
		Updated: time.Now(),
	}
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

// Get retrieves a cached artifact
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index.Entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.Path)
	if err != nil {
		// Artifact vanished behind our back
		c.dropLocked(key, entry)
		c.stats.Misses++
		c.saveIndexLocked()
		return nil, false
	}

	entry.LastAccess = time.Now()
	c.stats.Hits++
	c.saveIndexLocked()
	return data, true
}

// Put stores an artifact, evicting least recently used entries to make room
func (c *Cache) Put(key string, data []byte) error {
	size := int64(len(data))
	if c.maxSize > 0 && size > c.maxSize {
		return fmt.Errorf("artifact of %d bytes exceeds cache size %d", size, c.maxSize)
	}

	path := filepath.Join(c.dir, "artifacts", sanitizeKey(key))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit cache file: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.index.Entries[key]; ok {
		// Same path, the file was already replaced
		c.stats.TotalSize -= old.Size
		delete(c.index.Entries, key)
	}
	c.evictLocked(size)

	now := time.Now()
	c.index.Entries[key] = &Entry{
		Key:        key,
		Path:       path,
		Size:       size,
		Created:    now,
		LastAccess: now,
	}
	c.stats.TotalSize += size
	c.stats.EntryCount = len(c.index.Entries)
	return c.saveIndexLocked()
}

// GetFile copies a cached artifact to dst. It reports false on a miss.
func (c *Cache) GetFile(key, dst string) (bool, error) {
	data, ok := c.Get(key)
	if !ok {
		return false, nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return false, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(dst, data, 0644); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return true, nil
}

// PutFile stores the contents of src under key
func (c *Cache) PutFile(key, src string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	return c.Put(key, data)
}

// Delete removes an entry from the cache
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index.Entries[key]
	if !ok {
		return nil
	}
	c.dropLocked(key, entry)
	return c.saveIndexLocked()
}

// Clear removes all cached entries
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	artifacts := filepath.Join(c.dir, "artifacts")
	if err := os.RemoveAll(artifacts); err != nil {
		return fmt.Errorf("failed to clear artifacts: %w", err)
	}
	if err := os.MkdirAll(artifacts, 0755); err != nil {
		return fmt.Errorf("failed to recreate artifacts directory: %w", err)
	}

	c.index = newIndex()
	c.stats = Stats{}
	return c.saveIndexLocked()
}

// GetStats returns cache statistics
func (c *Cache) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Key generates a cache key from inputs. Inputs are length-prefixed so
// ("ab", "c") and ("a", "bc") differ.
func Key(inputs ...string) string {
	h := sha256.New()
	for _, input := range inputs {
		fmt.Fprintf(h, "%d:%s", len(input), input)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// SourceKey hashes every .go file plus go.mod and go.sum under root, then
// combines that digest with extra inputs such as the target platform and
// toolchain version through Key. Paths take part in the hash so renames
// invalidate too.
func SourceKey(root string, extra ...string) (string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") || name == "testdata" || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if (strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")) || name == "go.mod" || name == "go.sum" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(files)

	h := sha256.New()
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		rel, _ := filepath.Rel(root, file)
		fmt.Fprintf(h, "%s\x00%d\x00", filepath.ToSlash(rel), len(data))
		h.Write(data)
	}
	return Key(append(extra, hex.EncodeToString(h.Sum(nil)))...), nil
}

func (c *Cache) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(c.dir, "index.json"))
	if err != nil {
		return err
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return err
	}
	if index.Version != indexVersion || index.Entries == nil {
		return fmt.Errorf("unsupported index version %q", index.Version)
	}
	c.index = &index

	for _, entry := range c.index.Entries {
		c.stats.TotalSize += entry.Size
	}
	c.stats.EntryCount = len(c.index.Entries)
	return nil
}

// saveIndexLocked writes the index; caller holds c.mu
func (c *Cache) saveIndexLocked() error {
	c.index.Updated = time.Now()
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.dir, "index.json"), data, 0644)
}

// evictLocked drops least recently used entries until needed more bytes fit
func (c *Cache) evictLocked(needed int64) {
	if c.maxSize <= 0 {
		return
	}
	for c.stats.TotalSize+needed > c.maxSize && len(c.index.Entries) > 0 {
		var oldestKey string
		var oldest *Entry
		for key, entry := range c.index.Entries {
			if oldest == nil || entry.LastAccess.Before(oldest.LastAccess) {
				oldestKey, oldest = key, entry
			}
		}
		c.dropLocked(oldestKey, oldest)
		c.stats.Evictions++
	}
}

func (c *Cache) dropLocked(key string, entry *Entry) {
	if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to remove cache file %s: %v\n", entry.Path, err)
	}
	delete(c.index.Entries, key)
	c.stats.TotalSize -= entry.Size
	c.stats.EntryCount = len(c.index.Entries)
}

func sanitizeKey(key string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "_",
	)
	sanitized := replacer.Replace(key)
	if len(sanitized) > 100 {
		sanitized = sanitized[:100]
	}
	return sanitized
}
