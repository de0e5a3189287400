package docstore

import (
	"container/list"
	"os"
	"strings"
	"sync"
)

// docCacheEnvDisable, when set to a non-empty value, forces every cache's
// effective max entry count to zero (caching disabled process-wide). Useful
// for reproducing bugs with every read going to disk.
const docCacheEnvDisable = "DOCSTORE_DISABLE_CACHE"

// statKey is the (mtime, size) pair a cache entry is validated against.
// Both fields come from a single os.Stat call so they observe the file
// atomically from the filesystem's point of view.
type statKey struct {
	mtimeNS int64
	size    int64
}

func (s statKey) valid() bool {
	return s.mtimeNS >= 0 && s.size >= 0
}

type cacheEntry struct {
	path  string
	doc   Doc
	stat  statKey
	bytes int64
}

// docCache is a bounded map from absolute path to parsed document, keyed for
// validity by (mtime, size). Entries are evicted least-recently-used first
// once the entry count cap, or the optional byte cap, is exceeded.
//
// Safe for concurrent use.
type docCache struct {
	mu         sync.Mutex
	maxEntries int
	maxBytes   int64 // 0 means unbounded.
	order      *list.List
	index      map[string]*list.Element

	totalBytes int64

	hits, misses, evictions uint64
}

// newDocCache returns a cache capped at maxEntries entries and, if maxBytes
// > 0, at maxBytes aggregate estimated bytes. maxEntries <= 0 (or the
// DOCSTORE_DISABLE_CACHE environment switch) disables caching: every get
// misses and every set is a no-op.
func newDocCache(maxEntries int, maxBytes int64) *docCache {
	if os.Getenv(docCacheEnvDisable) != "" {
		maxEntries = 0
	}

	return &docCache{
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		order:      list.New(),
		index:      map[string]*list.Element{},
	}
}

// get returns a deep copy of the cached document for path if an entry
// exists and its stored stat matches current exactly. On a stale entry it is
// removed and counted as a miss.
func (c *docCache) get(path string, current statKey) (Doc, bool) {
	if !current.valid() {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.index[path]
	if !ok {
		c.misses++
		return nil, false
	}

	entry := elem.Value.(*cacheEntry) //nolint:forcetypeassert // only this package inserts into the list.

	if entry.stat != current {
		c.removeElementLocked(elem)
		c.misses++

		return nil, false
	}

	c.order.MoveToFront(elem)
	c.hits++

	return deepCopyDoc(entry.doc).(Doc), true
}

// set inserts or replaces the cached entry for path, then evicts LRU entries
// until both the entry-count cap and, if configured, the byte cap hold.
// Refuses insertion if stat is not finite (both fields non-negative).
func (c *docCache) set(path string, doc Doc, stat statKey, byteSize int64) {
	if c.maxEntries <= 0 || !stat.valid() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[path]; ok {
		c.removeElementLocked(elem)
	}

	entry := &cacheEntry{path: path, doc: deepCopyDoc(doc).(Doc), stat: stat, bytes: byteSize}
	elem := c.order.PushFront(entry)
	c.index[path] = elem
	c.totalBytes += byteSize

	for c.order.Len() > c.maxEntries || (c.maxBytes > 0 && c.totalBytes > c.maxBytes) {
		back := c.order.Back()
		if back == nil {
			break
		}

		c.removeElementLocked(back)
		c.evictions++
	}
}

// delete removes path's entry, if any.
func (c *docCache) delete(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.index[path]; ok {
		c.removeElementLocked(elem)
	}
}

// clear removes every entry. If typePrefix is non-empty, only entries whose
// path (normalized to forward slashes) is under ".../typePrefix/" are
// removed.
func (c *docCache) clear(root, typePrefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if typePrefix == "" {
		c.order.Init()
		c.index = map[string]*list.Element{}
		c.totalBytes = 0

		return
	}

	prefix := strings.ReplaceAll(root, "\\", "/") + "/" + typePrefix + "/"

	var toRemove []*list.Element

	for p, elem := range c.index {
		if strings.HasPrefix(strings.ReplaceAll(p, "\\", "/"), prefix) {
			toRemove = append(toRemove, elem)
		}
	}

	for _, elem := range toRemove {
		c.removeElementLocked(elem)
	}
}

func (c *docCache) removeElementLocked(elem *list.Element) {
	entry := elem.Value.(*cacheEntry) //nolint:forcetypeassert
	delete(c.index, entry.path)
	c.order.Remove(elem)
	c.totalBytes -= entry.bytes
}

// stats reports cache diagnostics.
type cacheStats struct {
	Entries   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

func (c *docCache) stats() cacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return cacheStats{Entries: c.order.Len(), Hits: c.hits, Misses: c.misses, Evictions: c.evictions}
}

// deepCopyDoc returns a structural copy of v so callers can't mutate cached
// or about-to-be-cached state through the returned value.
func deepCopyDoc(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = deepCopyDoc(elem)
		}

		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = deepCopyDoc(elem)
		}

		return out
	default:
		return v
	}
}
