package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	dsfs "github.com/calvinalkan/jsonstore/pkg/fs"
)

// postingMap is an equality index's on-disk shape: value-key -> sorted,
// deduplicated document ids.
type postingMap map[string][]string

// indexManager maintains per-(type, field) equality indexes as
// canonicalized sidecar files under root/<type>/_indexes/<field>.<ext>.
// Every read-modify-write sequence on one index holds that index's
// [asyncMutex] for the whole critical section (§4.5).
type indexManager struct {
	sbox    *sandbox
	fsys    dsfs.FS
	writer  *dsfs.AtomicWriter
	mutexes *indexMutexTable
	locker  *dsfs.Locker
	opts    Options
}

func newIndexManager(sbox *sandbox, fsys dsfs.FS, opts Options) *indexManager {
	return &indexManager{
		sbox:    sbox,
		fsys:    fsys,
		writer:  dsfs.NewAtomicWriter(fsys),
		mutexes: newIndexMutexTable(),
		locker:  dsfs.NewLocker(fsys),
		opts:    opts,
	}
}

// ensureIndex builds the full posting map for (type, field) from docs and
// writes it atomically, replacing any existing index for that field.
//
// A full rebuild rewrites the entire index file, which is the one index
// operation where a second process reading mid-rewrite could observe a torn
// read from outside this process's own [asyncMutex] discipline. Before
// writing, ensureIndex takes a best-effort, non-blocking advisory flock on a
// sibling lock file; failure to acquire it (including on platforms where
// flock isn't available) never blocks or fails the rebuild, since spec.md
// assumes a single-process writer and treats concurrent external mutation as
// only defensively handled.
func (m *indexManager) ensureIndex(ctx context.Context, typ, field string, docs []Doc) error {
	mu := m.mutexes.get(typ, field)

	if err := mu.lock(ctx); err != nil {
		return wrap(err, withKind(KindIndexCorrupt))
	}
	defer mu.unlock()

	posting, err := buildPostingMap(field, docs)
	if err != nil {
		return wrap(err, withKind(KindIndexCorrupt))
	}

	unlock := m.tryAdvisoryLock(typ, field)
	defer unlock()

	return m.writeLocked(typ, field, posting)
}

// tryAdvisoryLock best-effort locks the rebuild guard file for (typ, field),
// returning a no-op release function if the lock could not be acquired.
func (m *indexManager) tryAdvisoryLock(typ, field string) func() {
	path, err := m.sbox.indexPath(typ, field)
	if err != nil {
		return func() {}
	}

	lock, err := m.locker.TryLock(path + ".lock")
	if err != nil {
		return func() {}
	}

	return func() { _ = lock.Close() }
}

func buildPostingMap(field string, docs []Doc) (postingMap, error) {
	posting := postingMap{}

	for _, doc := range docs {
		id, _ := doc["id"].(string)

		val, present := dottedLookup(doc, field)
		if !present {
			continue
		}

		keys, err := indexKeysForValue(val)
		if err != nil {
			continue // unsupported values (e.g. NaN) are simply not indexed.
		}

		for _, k := range keys {
			posting[k] = append(posting[k], id)
		}
	}

	for k, ids := range posting {
		posting[k] = sortDedupStrings(ids)
	}

	return posting, nil
}

// updateIndex applies an incremental delta: remove id from every posting
// derived from oldValue, add id to every posting for newValue. If the index
// file is missing or corrupt, the update is skipped (creation is
// ensureIndex's job; the index awaits a rebuild).
func (m *indexManager) updateIndex(ctx context.Context, typ, field, id string, oldValue, newValue any, hadOld, hasNew bool) error {
	mu := m.mutexes.get(typ, field)

	if err := mu.lock(ctx); err != nil {
		return wrap(err, withKind(KindIndexCorrupt))
	}
	defer mu.unlock()

	posting, ok, err := m.readLocked(typ, field)
	if err != nil {
		return wrap(err, withKind(KindIndexCorrupt))
	}

	if !ok {
		// No index yet (or corrupt): nothing to maintain incrementally.
		return nil
	}

	if hadOld {
		keys, kerr := indexKeysForValue(oldValue)
		if kerr == nil {
			for _, k := range keys {
				posting[k] = removeString(posting[k], id)

				if len(posting[k]) == 0 {
					delete(posting, k)
				}
			}
		}
	}

	if hasNew {
		keys, kerr := indexKeysForValue(newValue)
		if kerr == nil {
			for _, k := range keys {
				posting[k] = sortDedupStrings(append(posting[k], id))
			}
		}
	}

	return m.writeLocked(typ, field, posting)
}

// queryWithIndex unions the postings for every key derived from value and
// returns a sorted, deduplicated id list. A missing or corrupt index
// degrades silently to an empty result; the caller falls back to a full
// scan.
func (m *indexManager) queryWithIndex(ctx context.Context, typ, field string, value any) ([]string, error) {
	mu := m.mutexes.get(typ, field)

	if err := mu.lock(ctx); err != nil {
		return nil, wrap(err, withKind(KindIndexCorrupt))
	}
	defer mu.unlock()

	posting, ok, err := m.readLocked(typ, field)
	if err != nil || !ok {
		return nil, nil //nolint:nilerr // index-corrupt degrades to full scan, per spec.
	}

	keys, err := indexKeysForValue(value)
	if err != nil {
		return nil, nil //nolint:nilerr
	}

	var ids []string

	for _, k := range keys {
		ids = append(ids, posting[k]...)
	}

	return sortDedupStrings(ids), nil
}

// ensureExists creates an empty index file for (type, field) if none exists
// yet. Used by scoped-index claims (slug/alias), which — unlike a regular
// field index — are built incrementally rather than from an initial full
// scan, so updateIndex must always find a file to read.
func (m *indexManager) ensureExists(ctx context.Context, typ, field string) error {
	mu := m.mutexes.get(typ, field)

	if err := mu.lock(ctx); err != nil {
		return wrap(err, withKind(KindIndexCorrupt))
	}
	defer mu.unlock()

	_, ok, err := m.readLocked(typ, field)
	if err != nil {
		return wrap(err, withKind(KindIndexCorrupt))
	}

	if ok {
		return nil
	}

	return m.writeLocked(typ, field, postingMap{})
}

// hasIndex reports whether an on-disk index file exists for (type, field).
func (m *indexManager) hasIndex(ctx context.Context, typ, field string) (bool, error) {
	mu := m.mutexes.get(typ, field)

	if err := mu.lock(ctx); err != nil {
		return false, err
	}
	defer mu.unlock()

	path, err := m.sbox.indexPath(typ, field)
	if err != nil {
		return false, err
	}

	return m.fsys.Exists(path)
}

// listIndexes returns the field names with an on-disk index under typ,
// excluding reserved ("_"-prefixed) index files.
func (m *indexManager) listIndexes(typ string) ([]string, error) {
	dir, err := m.sbox.indexDir(typ)
	if err != nil {
		return nil, err
	}

	entries, err := m.fsys.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, wrap(fmt.Errorf("list indexes: %w", err), withKind(KindList))
	}

	var fields []string

	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		// Advisory rebuild lock files (field.ext.lock) live alongside index
		// files in the same directory; only entries ending in the store's
		// configured extension are index files.
		ext := filepath.Ext(e.Name())
		if ext != m.sbox.ext {
			continue
		}

		name := strings.TrimSuffix(e.Name(), ext)
		if strings.HasPrefix(name, "_") {
			continue
		}

		fields = append(fields, name)
	}

	sort.Strings(fields)

	return fields, nil
}

// removeIndex deletes the on-disk index file for (type, field).
func (m *indexManager) removeIndex(ctx context.Context, typ, field string) error {
	mu := m.mutexes.get(typ, field)

	if err := mu.lock(ctx); err != nil {
		return err
	}
	defer mu.unlock()

	path, err := m.sbox.indexPath(typ, field)
	if err != nil {
		return err
	}

	err = m.fsys.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return wrap(fmt.Errorf("remove index: %w", err), withKind(KindRemove))
	}

	return nil
}

func (m *indexManager) readLocked(typ, field string) (postingMap, bool, error) {
	path, err := m.sbox.indexPath(typ, field)
	if err != nil {
		return nil, false, err
	}

	if err := m.sbox.AssertNoSymlink(path); err != nil {
		return nil, false, err
	}

	data, err := m.fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("read index: %w", err)
	}

	raw, err := safeParse(data)
	if err != nil {
		return nil, false, nil //nolint:nilerr // corrupt index: caller treats as absent.
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, false, nil
	}

	posting := postingMap{}

	for k, v := range obj {
		arr, ok := v.([]any)
		if !ok {
			return nil, false, nil
		}

		ids := make([]string, 0, len(arr))

		for _, elem := range arr {
			s, ok := elem.(string)
			if !ok {
				return nil, false, nil
			}

			ids = append(ids, s)
		}

		posting[k] = ids
	}

	return posting, true, nil
}

func (m *indexManager) writeLocked(typ, field string, posting postingMap) error {
	path, err := m.sbox.indexPath(typ, field)
	if err != nil {
		return err
	}

	if err := m.sbox.AssertNoSymlink(path); err != nil {
		return err
	}

	obj := make(map[string]any, len(posting))

	for k, ids := range posting {
		if len(ids) == 0 {
			continue
		}

		arr := make([]any, len(ids))
		for i, id := range ids {
			arr[i] = id
		}

		obj[k] = arr
	}

	text, err := Canonicalize(obj, m.opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return wrap(fmt.Errorf("create index dir: %w", err), withKind(KindDirectory))
	}

	err = m.writer.WriteWithDefaults(path, strings.NewReader(text))
	if err != nil {
		return wrap(fmt.Errorf("write index: %w", err), withKind(KindWrite))
	}

	return nil
}

func sortDedupStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(in))

	out := make([]string, 0, len(in))

	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	sort.Strings(out)

	return out
}

func removeString(in []string, s string) []string {
	out := in[:0]

	for _, v := range in {
		if v != s {
			out = append(out, v)
		}
	}

	return out
}
