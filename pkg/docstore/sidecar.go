package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// attachmentExt is the extension sidecar attachment files must carry; any
// other extension under a document directory is left alone by the store
// (it still gets copied forward by directory-transaction seeding).
const attachmentExt = ".md"

// ReadAttachment reads a sidecar attachment file for key, re-validating the
// resolved path against the sandbox immediately before the read (closing the
// TOCTOU window between path construction and use). Unlike [Store.Get], a
// missing attachment is a [ErrNotFound] failure, per spec.md §7: "not-found
// is surfaced by sidecar reads".
func (s *Store) ReadAttachment(key Key, name string) (string, error) {
	if err := s.checkOpen(); err != nil {
		return "", err
	}

	path, err := s.attachmentPath(key, name)
	if err != nil {
		return "", err
	}

	if err := s.sbox.AssertNoSymlink(path); err != nil {
		return "", err
	}

	data, err := s.fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", wrap(ErrNotFound, withKey(key), withReason("attachment "+name))
		}

		return "", wrap(fmt.Errorf("read attachment: %w", err), withKind(KindRead), withKey(key))
	}

	return string(data), nil
}

// WriteAttachment writes a sidecar attachment for key through a directory
// transaction: the document directory is staged, the attachment is written
// into the stage alongside every file already present, the pre-commit hook
// re-checks the destination for symlink escape, and the stage is swapped in
// atomically. Requires the store be opened with [WithSidecar].
func (s *Store) WriteAttachment(key Key, name, content string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if !s.cfg.EnableSidecar {
		return wrap(ErrBadOption, withKey(key), withReason("store was not opened with sidecar mode"))
	}

	if err := validateKey(key); err != nil {
		return err
	}

	if err := validateAttachmentName(name); err != nil {
		return err
	}

	dir, err := s.sbox.docDir(key)
	if err != nil {
		return err
	}

	tx, err := s.dirtx.Begin(dir, key.Type+"."+key.ID)
	if err != nil {
		return wrap(fmt.Errorf("begin directory transaction: %w", err), withKind(KindWrite), withKey(key))
	}

	err = s.fsys.WriteFile(filepath.Join(tx.Dir(), name), []byte(content), 0o644)
	if err != nil {
		_ = tx.Abort()
		return wrap(fmt.Errorf("stage attachment: %w", err), withKind(KindWrite), withKey(key))
	}

	tx.SetPreCommitCheck(func(dest string) error {
		return s.sbox.AssertNoSymlink(dest)
	})

	if err := tx.Commit(); err != nil {
		return wrap(fmt.Errorf("commit attachment write: %w", err), withKind(KindWrite), withKey(key))
	}

	s.cache.delete(s.recordPathForKey(key))

	return nil
}

func (s *Store) attachmentPath(key Key, name string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}

	if err := validateAttachmentName(name); err != nil {
		return "", err
	}

	dir, err := s.sbox.docDir(key)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, name), nil
}

func validateAttachmentName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return wrap(ErrValidation, withReason("invalid attachment name"))
	}

	if !strings.HasSuffix(name, attachmentExt) {
		return wrap(ErrValidation, withReason("attachment name must end in " + attachmentExt))
	}

	return nil
}
