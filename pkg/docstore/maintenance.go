package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FormatTarget selects the scope [Store.Format] rewrites.
type FormatTarget struct {
	// Type restricts formatting to one type; empty means every type.
	Type string
	// Key restricts formatting to a single document; Type must also be set.
	Key *Key
}

// FormatOptions configures [Store.Format].
type FormatOptions struct {
	// DryRun reports the files that would change without writing them.
	DryRun bool
	// FailFast aborts on the first error instead of collecting it and
	// continuing with the remaining files.
	FailFast bool
}

// FormatResult summarizes one [Store.Format] run.
type FormatResult struct {
	Changed int
	Errors  []error
}

// Format walks target and, for every primary record whose canonical form
// differs from its on-disk bytes, rewrites it (unless opts.DryRun). Writes
// use a lost-update guard: a file is only rewritten if its (mtime, size)
// have not changed since the snapshot that decided it needed reformatting.
// Up to Config.FormatConcurrency files are processed concurrently.
func (s *Store) Format(target FormatTarget, opts FormatOptions) (FormatResult, error) {
	if err := s.checkOpen(); err != nil {
		return FormatResult{}, err
	}

	paths, err := s.formatScope(target)
	if err != nil {
		return FormatResult{}, err
	}

	var (
		mu     sync.Mutex
		result FormatResult
		wg     sync.WaitGroup
		sem    = make(chan struct{}, s.cfg.FormatConcurrency)
		abort  = make(chan struct{})
		once   sync.Once
	)

submit:
	for _, p := range paths {
		select {
		case <-abort:
			break submit
		default:
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()

			select {
			case <-abort:
				return
			default:
			}

			changed, err := s.formatOne(path, opts.DryRun)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("%s: %w", path, err))

				if opts.FailFast {
					once.Do(func() { close(abort) })
				}

				return
			}

			if changed {
				result.Changed++
			}
		}(p)
	}

	wg.Wait()

	if opts.FailFast && len(result.Errors) > 0 {
		return result, wrap(result.Errors[0], withKind(KindFormat))
	}

	return result, nil
}

func (s *Store) formatScope(target FormatTarget) ([]string, error) {
	if target.Key != nil {
		if target.Type == "" {
			target.Type = target.Key.Type
		}

		p, _, err := s.primaryPath(*target.Key)
		if err != nil {
			return nil, err
		}

		return []string{p}, nil
	}

	types := []string{target.Type}
	if target.Type == "" {
		var err error

		types, err = s.discoverTypes()
		if err != nil {
			return nil, err
		}
	}

	var paths []string

	for _, typ := range types {
		ids, err := s.List(typ)
		if err != nil {
			return nil, err
		}

		for _, id := range ids {
			p, _, err := s.primaryPath(Key{Type: typ, ID: id})
			if err != nil {
				return nil, err
			}

			paths = append(paths, p)
		}
	}

	return paths, nil
}

func (s *Store) formatOne(path string, dryRun bool) (bool, error) {
	if err := s.sbox.AssertNoSymlink(path); err != nil {
		return false, err
	}

	before, err := s.fsys.Stat(path)
	if err != nil {
		return false, fmt.Errorf("stat: %w", err)
	}

	data, err := s.fsys.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read: %w", err)
	}

	parsed, err := safeParse(data)
	if err != nil {
		return false, fmt.Errorf("parse: %w", err)
	}

	canon, err := Canonicalize(parsed, s.cfg.serializerOptions())
	if err != nil {
		return false, fmt.Errorf("canonicalize: %w", err)
	}

	if canon == string(data) {
		return false, nil
	}

	if dryRun {
		return true, nil
	}

	after, err := s.fsys.Stat(path)
	if err != nil {
		return false, fmt.Errorf("re-stat: %w", err)
	}

	if before.ModTime() != after.ModTime() || before.Size() != after.Size() {
		return false, fmt.Errorf("file changed since snapshot, skipped")
	}

	if err := s.write.WriteWithDefaults(path, strings.NewReader(canon)); err != nil {
		return false, fmt.Errorf("write: %w", err)
	}

	s.cache.delete(path)

	return true, nil
}

// Stats summarizes document count and total on-disk size for a scope.
type Stats struct {
	Count      int
	TotalBytes int64
}

// DetailedStats additionally breaks size distribution down and reports
// per-type counts.
type DetailedStats struct {
	Stats
	MinBytes int64
	MaxBytes int64
	AvgBytes float64
	PerType  map[string]int
}

// Stats counts documents and sums file sizes under typ (or, if typ is
// empty, the whole store), streaming the directory walk to avoid loading
// every file into memory.
func (s *Store) Stats(typ string) (Stats, error) {
	if err := s.checkOpen(); err != nil {
		return Stats{}, err
	}

	var st Stats

	err := s.walkSizes(typ, func(_ string, size int64) {
		st.Count++
		st.TotalBytes += size
	})

	return st, err
}

// DetailedStats is [Store.Stats] plus min/max/average size and a per-type
// breakdown.
func (s *Store) DetailedStats(typ string) (DetailedStats, error) {
	if err := s.checkOpen(); err != nil {
		return DetailedStats{}, err
	}

	det := DetailedStats{PerType: map[string]int{}}

	err := s.walkSizesByType(typ, func(t string, size int64) {
		det.Count++
		det.TotalBytes += size
		det.PerType[t]++

		if det.Count == 1 || size < det.MinBytes {
			det.MinBytes = size
		}

		if size > det.MaxBytes {
			det.MaxBytes = size
		}
	})
	if err != nil {
		return DetailedStats{}, err
	}

	if det.Count > 0 {
		det.AvgBytes = float64(det.TotalBytes) / float64(det.Count)
	}

	return det, nil
}

func (s *Store) walkSizes(typ string, visit func(path string, size int64)) error {
	return s.walkSizesByType(typ, func(_ string, size int64) { visit("", size) })
}

func (s *Store) walkSizesByType(typ string, visit func(typ string, size int64)) error {
	types := []string{typ}
	if typ == "" {
		var err error

		types, err = s.discoverTypes()
		if err != nil {
			return err
		}
	} else if err := validateName("type", typ); err != nil {
		return err
	}

	for _, t := range types {
		dir, err := s.sbox.typeDir(t)
		if err != nil {
			return err
		}

		entries, err := s.fsys.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}

			return wrap(fmt.Errorf("stats %q: %w", t, err), withKind(KindList))
		}

		for _, e := range entries {
			if e.Name() == "_indexes" || e.Name() == "_meta" {
				continue
			}

			size, err := s.entrySize(dir, e)
			if err != nil {
				return err
			}

			visit(t, size)
		}
	}

	return nil
}

func (s *Store) entrySize(dir string, e os.DirEntry) (int64, error) {
	if s.cfg.EnableSidecar && e.IsDir() {
		info, err := s.fsys.Stat(filepath.Join(dir, e.Name(), e.Name()+s.cfg.Ext))
		if err != nil {
			if os.IsNotExist(err) {
				return 0, nil
			}

			return 0, fmt.Errorf("stat %q: %w", e.Name(), err)
		}

		return info.Size(), nil
	}

	if e.IsDir() {
		return 0, nil
	}

	info, err := e.Info()
	if err != nil {
		return 0, fmt.Errorf("stat %q: %w", e.Name(), err)
	}

	return info.Size(), nil
}
