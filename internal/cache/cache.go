package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Infinite disables the TTL or the entry cap when used as TTLHours or MaxEntries.
const Infinite = -1

// TimeLayout is the on-disk format of an entry's lastUpdate field.
const TimeLayout = "2006-01-02 15:04:05"

const entryExt = ".json"

// Entry is the JSON document stored for each cache key.
type Entry struct {
	LastUpdate string          `json:"lastUpdate"`
	Data       json.RawMessage `json:"data"`
}

// Options configures a Cache. Zero or negative TTLHours and MaxEntries mean
// Infinite; config.Validate rejects 0 so that only Infinite (-1) disables them
// from configuration.
type Options struct {
	BaseDir    string
	Namespace  string
	TTLHours   int
	MaxEntries int
	// Now overrides the clock, for tests.
	Now    func() time.Time
	Logger zerolog.Logger
}

// Cache is a file-per-entry store for resolver results under <BaseDir>/<Namespace>.
type Cache struct {
	dir        string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	log        zerolog.Logger

	// evictMu serializes eviction between goroutines of one process.
	evictMu sync.Mutex
}

// New creates a Cache. If BaseDir is empty, the user cache directory is used.
// The namespace directory is created lazily on the first Store.
func New(opts Options) (*Cache, error) {
	base := opts.BaseDir
	if base == "" {
		d, err := DefaultBaseDir()
		if err != nil {
			return nil, err
		}
		base = d
	}
	if opts.Namespace == "" {
		return nil, errors.New("cache namespace is required")
	}
	c := &Cache{
		dir:        filepath.Join(base, opts.Namespace),
		ttl:        Infinite,
		maxEntries: Infinite,
		now:        opts.Now,
		log:        opts.Logger,
	}
	if opts.TTLHours > 0 {
		c.ttl = time.Duration(opts.TTLHours) * time.Hour
	}
	if opts.MaxEntries > 0 {
		c.maxEntries = opts.MaxEntries
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Dir returns the namespace directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns the file an entry for key is stored in.
func (c *Cache) Path(key string) string {
	return filepath.Join(c.dir, Filename(key))
}

// Store writes payload under key and then enforces the entry cap.
func (c *Cache) Store(key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling cache payload: %w", err)
	}
	entry := Entry{
		LastUpdate: c.now().Format(TimeLayout),
		Data:       data,
	}
	doc, err := json.MarshalIndent(entry, "", "    ")
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if err := writeAtomic(c.Path(key), doc); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	c.evict()
	return nil
}

// Lookup decodes the fresh entry stored under key into dst. Missing, malformed,
// undecodable, and expired entries all report false.
func (c *Cache) Lookup(key string, dst any) bool {
	path := c.Path(key)
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		c.log.Debug().Str("path", path).Err(err).Msg("ignoring malformed cache entry")
		return false
	}
	if entry.LastUpdate == "" || !c.fresh(entry.LastUpdate) {
		return false
	}
	if err := json.Unmarshal(entry.Data, dst); err != nil {
		c.log.Debug().Str("path", path).Err(err).Msg("ignoring undecodable cache payload")
		return false
	}
	return true
}

// fresh reports whether lastUpdate + ttl has not yet passed. An entry read at
// exactly its expiry instant is still fresh. lastUpdate has second precision,
// so an entry stored at T+0.9s may expire up to a second before T+0.9s+ttl.
func (c *Cache) fresh(lastUpdate string) bool {
	stored, err := time.ParseInLocation(TimeLayout, lastUpdate, time.Local)
	if err != nil {
		return false
	}
	if c.ttl == Infinite {
		return true
	}
	return !c.now().After(stored.Add(c.ttl))
}

// Clear removes every entry in the namespace and returns how many were removed.
func (c *Cache) Clear() (int, error) {
	return clearDir(c.dir)
}

// ClearNamespace removes every entry under <baseDir>/<namespace> without
// constructing a Cache.
func ClearNamespace(baseDir, namespace string) (int, error) {
	if baseDir == "" {
		d, err := DefaultBaseDir()
		if err != nil {
			return 0, err
		}
		baseDir = d
	}
	return clearDir(filepath.Join(baseDir, namespace))
}

func clearDir(dir string) (int, error) {
	files, err := entryFiles(dir)
	if err != nil {
		return 0, err
	}
	var removed int
	for _, f := range files {
		if err := os.Remove(f.path); err == nil {
			removed++
		}
	}
	return removed, nil
}

// evict keeps the newest maxEntries files by modification time. Removal
// failures are ignored.
func (c *Cache) evict() {
	if c.maxEntries == Infinite {
		return
	}
	c.evictMu.Lock()
	defer c.evictMu.Unlock()

	files, err := entryFiles(c.dir)
	if err != nil || len(files) <= c.maxEntries {
		return
	}
	sort.SliceStable(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})
	for _, f := range files[c.maxEntries:] {
		if err := os.Remove(f.path); err != nil {
			c.log.Debug().Str("path", f.path).Err(err).Msg("cache eviction skipped file")
		}
	}
}

// Stats describes the contents of a cache namespace.
type Stats struct {
	Dir        string    `json:"dir"`
	Entries    int       `json:"entries"`
	TotalBytes int64     `json:"totalBytes"`
	Expired    int       `json:"expired"`
	Oldest     time.Time `json:"oldest,omitempty"`
	Newest     time.Time `json:"newest,omitempty"`
}

// Stats returns information about the namespace.
func (c *Cache) Stats() (Stats, error) {
	stats := Stats{Dir: c.dir}
	files, err := entryFiles(c.dir)
	if err != nil {
		return stats, err
	}
	for _, f := range files {
		stats.Entries++
		stats.TotalBytes += f.size
		if stats.Oldest.IsZero() || f.modTime.Before(stats.Oldest) {
			stats.Oldest = f.modTime
		}
		if f.modTime.After(stats.Newest) {
			stats.Newest = f.modTime
		}

		raw, err := os.ReadFile(f.path)
		if err != nil {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil || !c.fresh(entry.LastUpdate) {
			stats.Expired++
		}
	}
	return stats, nil
}

type entryFile struct {
	path    string
	modTime time.Time
	size    int64
}

func entryFiles(dir string) ([]entryFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}
	files := make([]entryFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != entryExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, entryFile{
			path:    filepath.Join(dir, e.Name()),
			modTime: info.ModTime(),
			size:    info.Size(),
		})
	}
	return files, nil
}

// writeAtomic writes data to a sibling temp file and renames it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// DefaultBaseDir returns the user-scoped mender cache root. Namespaces live beneath it.
func DefaultBaseDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "mender"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "mender"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "mender", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "mender", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "mender"), nil
	}
}
