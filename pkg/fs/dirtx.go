package fs

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
)

// ErrDirTxAborted indicates [DirTx.Abort] was called or the transaction was
// discarded without a commit.
var ErrDirTxAborted = errors.New("directory transaction aborted")

// DirTx stages a directory of files and makes them visible together.
//
// Use when a logical update spans several files within one document
// directory (a primary record plus sidecar attachments): callers write every
// file into the staging directory returned by [DirTransaction.Begin], then
// call [DirTx.Commit] to swap the staging directory in for the target in two
// renames. A concurrent reader of the target directory always sees either
// the entirely pre-transaction or entirely post-transaction contents, never
// a mix.
//
// Not safe for concurrent use; callers serialize transactions against the
// same target directory themselves.
type DirTx struct {
	fs       FS
	target   string
	staging  string
	backup   string
	done     bool
	preCheck func(dest string) error
}

// DirTransaction begins directory transactions against a filesystem.
type DirTransaction struct {
	fs FS
}

// NewDirTransaction returns a [DirTransaction] that uses the given filesystem.
// Panics if fs is nil.
func NewDirTransaction(fs FS) *DirTransaction {
	if fs == nil {
		panic("fs is nil")
	}

	return &DirTransaction{fs: fs}
}

const dirTxMaxAttempts = 10000

var dirTxCounter atomic.Uint64

// Begin opens a staging directory as a sibling of target, seeded with a copy
// of target's current contents (if target exists), so files the caller does
// not rewrite are preserved. label is used only to make the staging and
// backup directory names legible (e.g. "task.t-42").
func (d *DirTransaction) Begin(target, label string) (*DirTx, error) {
	if target == "" {
		return nil, errors.New("target is empty")
	}

	dir, base := filepath.Split(filepath.Clean(target))
	if base == "" {
		return nil, fmt.Errorf("target is invalid: %q", target)
	}

	stagingPath, err := d.uniqueSibling(dir, fmt.Sprintf(".%s.staging", label))
	if err != nil {
		return nil, err
	}

	err = d.seedStaging(target, stagingPath)
	if err != nil {
		_ = d.fs.RemoveAll(stagingPath)

		return nil, fmt.Errorf("seed staging dir: %w", err)
	}

	return &DirTx{
		fs:      d.fs,
		target:  filepath.Clean(target),
		staging: stagingPath,
	}, nil
}

// uniqueSibling returns a path "dir/prefix.<random>" that does not yet exist.
func (d *DirTransaction) uniqueSibling(dir, prefix string) (string, error) {
	for range dirTxMaxAttempts {
		seq := dirTxCounter.Add(1)
		suffix := fmt.Sprintf("%d-%d", seq, rand.Int63()) //nolint:gosec // uniqueness only, not security.

		candidate := filepath.Join(dir, prefix+"."+suffix)

		exists, err := d.fs.Exists(candidate)
		if err != nil {
			return "", fmt.Errorf("stat %q: %w", candidate, err)
		}

		if !exists {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("exhausted attempts choosing a unique path under %q", dir)
}

// seedStaging copies target's existing entries into staging, if target exists.
func (d *DirTransaction) seedStaging(target, staging string) error {
	err := d.fs.MkdirAll(staging, 0o750)
	if err != nil {
		return fmt.Errorf("mkdir staging: %w", err)
	}

	exists, err := d.fs.Exists(target)
	if err != nil {
		return fmt.Errorf("stat target: %w", err)
	}

	if !exists {
		return nil
	}

	entries, err := d.fs.ReadDir(target)
	if err != nil {
		return fmt.Errorf("read target dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			// Document directories are flat (primary record + sidecar files).
			continue
		}

		data, err := d.fs.ReadFile(filepath.Join(target, entry.Name()))
		if err != nil {
			return fmt.Errorf("read %q: %w", entry.Name(), err)
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat %q: %w", entry.Name(), err)
		}

		err = d.fs.WriteFile(filepath.Join(staging, entry.Name()), data, info.Mode().Perm())
		if err != nil {
			return fmt.Errorf("seed %q: %w", entry.Name(), err)
		}
	}

	return nil
}

// Dir returns the staging directory path. Callers write their files here.
func (tx *DirTx) Dir() string {
	return tx.staging
}

// SetPreCommitCheck registers a hook invoked once per destination path
// immediately before the commit renames, closing the TOCTOU window between
// the transaction's initial validation and the moment the files become live.
// fn should re-run symlink/escape checks against the destination path.
func (tx *DirTx) SetPreCommitCheck(fn func(dest string) error) {
	tx.preCheck = fn
}

// Commit installs the staging directory as target.
//
// If target exists, it is first renamed to a backup directory, then staging
// is renamed to target, then the backup is removed. Any failure during these
// renames triggers rollback: the backup (if created) is restored to target,
// and the staging directory (and any partially renamed backup) are removed.
// No ".staging." or ".bak." directory remains after a successful commit or
// a completed rollback.
func (tx *DirTx) Commit() error {
	if tx.done {
		return errors.New("transaction already finished")
	}

	tx.done = true

	if tx.preCheck != nil {
		err := tx.preCheck(tx.target)
		if err != nil {
			_ = tx.fs.RemoveAll(tx.staging)

			return fmt.Errorf("pre-commit check: %w", err)
		}
	}

	targetExists, err := tx.fs.Exists(tx.target)
	if err != nil {
		_ = tx.fs.RemoveAll(tx.staging)

		return fmt.Errorf("stat target: %w", err)
	}

	if !targetExists {
		err = tx.fs.Rename(tx.staging, tx.target)
		if err != nil {
			_ = tx.fs.RemoveAll(tx.staging)

			return fmt.Errorf("rename staging into place: %w", err)
		}

		return nil
	}

	dir, base := filepath.Split(tx.target)

	backup := filepath.Join(dir, "."+base+fmt.Sprintf(".bak.%d", dirTxCounter.Add(1)))
	tx.backup = backup

	err = tx.fs.Rename(tx.target, backup)
	if err != nil {
		_ = tx.fs.RemoveAll(tx.staging)

		return fmt.Errorf("rename target to backup: %w", err)
	}

	err = tx.fs.Rename(tx.staging, tx.target)
	if err != nil {
		// Rollback: restore backup, drop the half-written staging dir.
		restoreErr := tx.fs.Rename(backup, tx.target)
		removeErr := tx.fs.RemoveAll(tx.staging)

		return errors.Join(fmt.Errorf("rename staging into place: %w", err), restoreErr, removeErr)
	}

	removeErr := tx.fs.RemoveAll(backup)
	if removeErr != nil {
		return fmt.Errorf("remove backup dir %q: %w", backup, removeErr)
	}

	return nil
}

// Abort discards the staging directory without touching target.
func (tx *DirTx) Abort() error {
	if tx.done {
		return nil
	}

	tx.done = true

	return tx.fs.RemoveAll(tx.staging)
}
