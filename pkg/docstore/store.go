package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	dsfs "github.com/calvinalkan/jsonstore/pkg/fs"
)

// Store is a file-backed, human-readable document store. The zero value is
// not usable; construct one with [Open].
//
// A Store is safe for concurrent use by multiple goroutines, following
// spec.md §5's cooperative-scheduling ordering guarantees: writes to one
// document are linearizable with subsequent reads of the same key from the
// same Store, and index updates are serialized per (type, field).
type Store struct {
	cfg   Config
	sbox  *sandbox
	fsys  dsfs.FS
	write *dsfs.AtomicWriter
	dirtx *dsfs.DirTransaction
	cache *docCache
	idx   *indexManager

	mu       sync.RWMutex
	closed   bool
	indexSet map[string]map[string]bool // type -> field -> true
}

// Open creates (if necessary) and opens a store rooted at root.
func Open(root string, opts ...Option) (*Store, error) {
	cfg, err := newConfig(root, opts...)
	if err != nil {
		return nil, err
	}

	sbox, err := newSandbox(cfg.Root, cfg.Ext)
	if err != nil {
		return nil, err
	}

	fsys := dsfs.NewReal()

	s := &Store{
		cfg:      cfg,
		sbox:     sbox,
		fsys:     fsys,
		write:    dsfs.NewAtomicWriter(fsys),
		dirtx:    dsfs.NewDirTransaction(fsys),
		cache:    newDocCache(cfg.CacheEntries, cfg.CacheBytes),
		idx:      newIndexManager(sbox, fsys, cfg.serializerOptions()),
		indexSet: map[string]map[string]bool{},
	}

	for typ, fields := range cfg.Indexes {
		for _, field := range fields {
			s.markIndexed(typ, field)
		}
	}

	return s, nil
}

func (s *Store) markIndexed(typ, field string) {
	if s.indexSet[typ] == nil {
		s.indexSet[typ] = map[string]bool{}
	}

	s.indexSet[typ][field] = true
}

func (s *Store) indexedFields(typ string) []string {
	fields := make([]string, 0, len(s.indexSet[typ]))
	for f := range s.indexSet[typ] {
		fields = append(fields, f)
	}

	sort.Strings(fields)

	return fields
}

func (s *Store) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return wrap(ErrClosed)
	}

	return nil
}

// Close clears the in-memory document cache. No other teardown is
// required; a closed Store rejects further operations with [ErrClosed].
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.cache.clear(s.sbox.root, "")

	return nil
}

// primaryPath returns the absolute path of key's primary record, and — in
// sidecar mode — the document directory it lives under (empty otherwise).
func (s *Store) primaryPath(key Key) (recordPath, docDir string, err error) {
	if !s.cfg.EnableSidecar {
		p, err := s.sbox.recordPath(key)
		return p, "", err
	}

	dir, err := s.sbox.docDir(key)
	if err != nil {
		return "", "", err
	}

	return filepath.Join(dir, key.ID+s.cfg.Ext), dir, nil
}

func (s *Store) recordPathForKey(key Key) string {
	p, _, err := s.primaryPath(key)
	if err != nil {
		return ""
	}

	return p
}

// Put validates and writes doc under key. If the canonical bytes are
// identical to what's already on disk, the write is skipped (spec.md §8's
// "exactly one write" round-trip law). The document cache entry for key is
// invalidated unconditionally, and any configured indexes for key.Type are
// updated with the field deltas between the prior and new document.
func (s *Store) Put(key Key, doc Doc) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if err := validateKey(key); err != nil {
		return err
	}

	if err := validateDocMatchesKey(key, doc); err != nil {
		return err
	}

	if s.cfg.EnableSidecar {
		if _, err := parseReferences(doc); err != nil {
			return wrap(err, withKey(key))
		}
	}

	old, hadOld, err := s.readRaw(key)
	if err != nil {
		return err
	}

	canon, err := Canonicalize(doc, s.cfg.serializerOptions())
	if err != nil {
		return wrap(err, withKey(key))
	}

	recordPath, docDir, err := s.primaryPath(key)
	if err != nil {
		return err
	}

	if hadOld {
		onDisk, rerr := s.fsys.ReadFile(recordPath)
		if rerr == nil && string(onDisk) == canon {
			return nil // byte-identical; skip the write entirely.
		}
	}

	if s.cfg.EnableSidecar {
		err = s.writeSidecarPrimary(key, docDir, canon)
	} else {
		err = s.writeFlatPrimary(recordPath, canon)
	}

	if err != nil {
		return err
	}

	s.cache.delete(recordPath)

	s.applyIndexDeltas(key, old, hadOld, doc, true)

	return nil
}

func (s *Store) writeFlatPrimary(path, canon string) error {
	if err := s.sbox.AssertNoSymlink(path); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return wrap(fmt.Errorf("create type dir: %w", err), withKind(KindDirectory))
	}

	err := s.write.WriteWithDefaults(path, strings.NewReader(canon))
	if err != nil {
		return wrap(fmt.Errorf("write record: %w", err), withKind(KindWrite))
	}

	return nil
}

func (s *Store) writeSidecarPrimary(key Key, docDir, canon string) error {
	if err := os.MkdirAll(filepath.Dir(docDir), 0o750); err != nil {
		return wrap(fmt.Errorf("create type dir: %w", err), withKind(KindDirectory), withKey(key))
	}

	tx, err := s.dirtx.Begin(docDir, key.Type+"."+key.ID)
	if err != nil {
		return wrap(fmt.Errorf("begin directory transaction: %w", err), withKind(KindWrite), withKey(key))
	}

	err = s.fsys.WriteFile(filepath.Join(tx.Dir(), key.ID+s.cfg.Ext), []byte(canon), 0o644)
	if err != nil {
		_ = tx.Abort()
		return wrap(fmt.Errorf("stage record: %w", err), withKind(KindWrite), withKey(key))
	}

	tx.SetPreCommitCheck(func(dest string) error {
		return s.sbox.AssertNoSymlink(filepath.Join(dest, key.ID+s.cfg.Ext))
	})

	if err := tx.Commit(); err != nil {
		return wrap(fmt.Errorf("commit record write: %w", err), withKind(KindWrite), withKey(key))
	}

	return nil
}

// Get performs a TOCTOU-safe read: stat, probe the cache (validated against
// that stat), and on a cache miss read/parse/re-stat, retrying up to 3
// attempts total if the file changed mid-read. A missing document returns
// (nil, nil), matching spec.md §7 ("get returns null").
func (s *Store) Get(key Key) (Doc, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	if err := validateKey(key); err != nil {
		return nil, err
	}

	doc, _, err := s.readRaw(key)

	return doc, err
}

const getMaxAttempts = 3

// readRaw is Get's implementation, also used internally by Put/Remove to
// fetch the prior document for index-delta computation.
func (s *Store) readRaw(key Key) (Doc, bool, error) {
	path, _, err := s.primaryPath(key)
	if err != nil {
		return nil, false, err
	}

	if err := s.sbox.AssertNoSymlink(path); err != nil {
		return nil, false, err
	}

	var lastDoc Doc

	for attempt := 0; attempt < getMaxAttempts; attempt++ {
		info, err := s.fsys.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, false, nil
			}

			return nil, false, wrap(fmt.Errorf("stat record: %w", err), withKind(KindRead), withKey(key))
		}

		stat := statKey{mtimeNS: info.ModTime().UnixNano(), size: info.Size()}

		if cached, ok := s.cache.get(path, stat); ok {
			return cached, true, nil
		}

		data, err := s.fsys.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, false, nil
			}

			return nil, false, wrap(fmt.Errorf("read record: %w", err), withKind(KindRead), withKey(key))
		}

		var doc map[string]any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, false, wrap(fmt.Errorf("parse record: %w", err), withKind(KindParse), withKey(key))
		}

		if doc == nil {
			return nil, false, wrap(errors.New("record is not a JSON object"), withKind(KindParse), withKey(key))
		}

		lastDoc = doc

		after, err := s.fsys.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, false, nil
			}

			return nil, false, wrap(fmt.Errorf("re-stat record: %w", err), withKind(KindRead), withKey(key))
		}

		afterStat := statKey{mtimeNS: after.ModTime().UnixNano(), size: after.Size()}
		if afterStat == stat {
			s.cache.set(path, doc, stat, int64(len(data)))
			return doc, true, nil
		}
		// File changed mid-read; retry.
	}

	return lastDoc, lastDoc != nil, nil
}

// Remove deletes key's primary record (and, in sidecar mode, its whole
// document directory). Missing documents are not an error — remove is
// idempotent.
func (s *Store) Remove(key Key) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if err := validateKey(key); err != nil {
		return err
	}

	old, hadOld, err := s.readRaw(key)
	if err != nil {
		return err
	}

	path, docDir, err := s.primaryPath(key)
	if err != nil {
		return err
	}

	if s.cfg.EnableSidecar {
		err = s.fsys.RemoveAll(docDir)
	} else {
		err = s.fsys.Remove(path)
	}

	if err != nil && !os.IsNotExist(err) {
		return wrap(fmt.Errorf("remove record: %w", err), withKind(KindRemove), withKey(key))
	}

	s.cache.delete(path)

	if hadOld {
		s.applyIndexDeltas(key, old, true, nil, false)
	}

	return nil
}

// applyIndexDeltas issues one updateIndex call per configured field of
// key.Type. Failures are neither propagated nor reported: a failed index
// update does not fail the write that triggered it, and the index stays as
// it was until the next ensureIndex rebuild.
func (s *Store) applyIndexDeltas(key Key, old Doc, hadOld bool, newDoc Doc, hasNew bool) {
	fields := s.indexedFields(key.Type)
	if len(fields) == 0 {
		return
	}

	ctx := context.Background()

	for _, field := range fields {
		var oldVal, newVal any

		oldPresent, newPresent := false, false

		if hadOld {
			oldVal, oldPresent = dottedLookup(old, field)
		}

		if hasNew {
			newVal, newPresent = dottedLookup(newDoc, field)
		}

		_ = s.idx.updateIndex(ctx, key.Type, field, key.ID, oldVal, newVal, oldPresent, newPresent)
	}
}

// List returns the sorted ids of every document of typ.
func (s *Store) List(typ string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	dir, err := s.sbox.typeDir(typ)
	if err != nil {
		return nil, err
	}

	entries, err := s.fsys.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, wrap(fmt.Errorf("list %q: %w", typ, err), withKind(KindList))
	}

	var ids []string

	for _, e := range entries {
		name := e.Name()
		if name == "_indexes" || name == "_meta" {
			continue
		}

		if s.cfg.EnableSidecar {
			if e.IsDir() {
				ids = append(ids, name)
			}

			continue
		}

		if !e.IsDir() && strings.HasSuffix(name, s.cfg.Ext) {
			ids = append(ids, strings.TrimSuffix(name, s.cfg.Ext))
		}
	}

	sort.Strings(ids)

	return ids, nil
}

// EnsureIndex builds (or rebuilds) the equality index for (typ, field) from
// a full scan of typ's documents, then marks it as a field this Store
// maintains automatically on subsequent writes.
func (s *Store) EnsureIndex(typ, field string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if err := validateName("type", typ); err != nil {
		return err
	}

	docs, err := s.loadAll(typ)
	if err != nil {
		return err
	}

	if err := s.idx.ensureIndex(context.Background(), typ, field, docs); err != nil {
		return err
	}

	s.markIndexed(typ, field)

	return nil
}

// RebuildIndexes rebuilds every currently-tracked index for typ, or only
// fields if given.
func (s *Store) RebuildIndexes(typ string, fields ...string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if len(fields) == 0 {
		fields = s.indexedFields(typ)
	}

	docs, err := s.loadAll(typ)
	if err != nil {
		return err
	}

	for _, field := range fields {
		if err := s.idx.ensureIndex(context.Background(), typ, field, docs); err != nil {
			return err
		}

		s.markIndexed(typ, field)
	}

	return nil
}

// HasIndex reports whether an on-disk index exists for (typ, field).
func (s *Store) HasIndex(typ, field string) (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}

	return s.idx.hasIndex(context.Background(), typ, field)
}

// ListIndexes returns the fields indexed under typ.
func (s *Store) ListIndexes(typ string) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	return s.idx.listIndexes(typ)
}

// RemoveIndex deletes the on-disk index for (typ, field) and stops
// maintaining it on subsequent writes.
func (s *Store) RemoveIndex(typ, field string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if err := s.idx.removeIndex(context.Background(), typ, field); err != nil {
		return err
	}

	if s.indexSet[typ] != nil {
		delete(s.indexSet[typ], field)
	}

	return nil
}

func (s *Store) loadAll(typ string) ([]Doc, error) {
	ids, err := s.List(typ)
	if err != nil {
		return nil, err
	}

	docs := make([]Doc, 0, len(ids))

	for _, id := range ids {
		doc, ok, err := s.readRaw(Key{Type: typ, ID: id})
		if err != nil {
			return nil, err
		}

		if ok {
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

func validateDocMatchesKey(key Key, doc Doc) error {
	if doc == nil {
		return wrap(ErrValidation, withKey(key), withReason("document is nil"))
	}

	typ, _ := doc["type"].(string)
	id, _ := doc["id"].(string)

	if typ != key.Type || id != key.ID {
		return wrap(ErrValidation, withKey(key), withReason("document type/id does not match key"))
	}

	return nil
}
