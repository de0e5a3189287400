package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// sandbox resolves (type, id) pairs to filesystem paths under a canonicalized
// root and refuses to follow or create anything that would escape it via a
// symbolic link.
type sandbox struct {
	root string // canonicalized (symlink-resolved) absolute path.
	ext  string // file extension for primary records, e.g. ".json".
}

func newSandbox(root, ext string) (*sandbox, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, wrap(fmt.Errorf("resolve root: %w", err), withKind(KindValidation))
	}

	err = os.MkdirAll(abs, 0o750)
	if err != nil {
		return nil, wrap(fmt.Errorf("create root: %w", err), withKind(KindDirectory))
	}

	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, wrap(fmt.Errorf("resolve root symlinks: %w", err), withKind(KindDirectory))
	}

	return &sandbox{root: real, ext: ext}, nil
}

// recordPath returns the absolute path of k's primary record: root/type/id.ext.
func (s *sandbox) recordPath(k Key) (string, error) {
	if err := validateKey(k); err != nil {
		return "", err
	}

	p := filepath.Join(s.root, k.Type, k.ID+s.ext)

	if err := s.assertUnderRoot(p); err != nil {
		return "", wrap(err, withKind(KindPathEscape), withKey(k))
	}

	if err := s.assertNoSymlinkComponent(p); err != nil {
		return "", wrap(err, withKind(KindSymlink), withKey(k))
	}

	return p, nil
}

// docDir returns the absolute path of k's sidecar document directory:
// root/type/id/.
func (s *sandbox) docDir(k Key) (string, error) {
	if err := validateKey(k); err != nil {
		return "", err
	}

	p := filepath.Join(s.root, k.Type, k.ID)

	if err := s.assertUnderRoot(p); err != nil {
		return "", wrap(err, withKind(KindPathEscape), withKey(k))
	}

	if err := s.assertNoSymlinkComponent(p); err != nil {
		return "", wrap(err, withKind(KindSymlink), withKey(k))
	}

	return p, nil
}

// typeDir returns the absolute path of a type's directory, after asserting it
// (and every component leading to it) contains no symlink.
func (s *sandbox) typeDir(typ string) (string, error) {
	if err := validateName("type", typ); err != nil {
		return "", err
	}

	p := filepath.Join(s.root, typ)

	if err := s.assertUnderRoot(p); err != nil {
		return "", wrap(err, withKind(KindPathEscape))
	}

	if err := s.assertNoSymlinkComponent(p); err != nil {
		return "", wrap(err, withKind(KindSymlink))
	}

	return p, nil
}

// indexPath returns the absolute path of the equality index file for
// (type, field): root/type/_indexes/field.ext.
func (s *sandbox) indexPath(typ, field string) (string, error) {
	dir, err := s.indexDir(typ)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, field+s.ext), nil
}

func (s *sandbox) indexDir(typ string) (string, error) {
	if err := validateName("type", typ); err != nil {
		return "", err
	}

	p := filepath.Join(s.root, typ, "_indexes")

	if err := s.assertUnderRoot(p); err != nil {
		return "", wrap(err, withKind(KindPathEscape))
	}

	return p, nil
}

// assertUnderRoot rejects a path that, once cleaned, is not under s.root.
func (s *sandbox) assertUnderRoot(p string) error {
	clean := filepath.Clean(p)

	rel, err := filepath.Rel(s.root, clean)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPathEscape, p)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrPathEscape, p)
	}

	return nil
}

// assertNoSymlinkComponent walks every component from root to the leaf
// (exclusive of a non-existent tail) and fails if any existing component is
// a symbolic link. Non-existent tail components are fine: they will be
// created by the atomic writer.
func (s *sandbox) assertNoSymlinkComponent(p string) error {
	rel, err := filepath.Rel(s.root, filepath.Clean(p))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrPathEscape, p)
	}

	cur := s.root

	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == "" || part == "." {
			continue
		}

		cur = filepath.Join(cur, part)

		info, err := os.Lstat(cur)
		if err != nil {
			if os.IsNotExist(err) {
				// Remaining components (including this one) don't exist yet.
				return nil
			}

			return fmt.Errorf("lstat %q: %w", cur, err)
		}

		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s", ErrSymlink, cur)
		}
	}

	return nil
}

// AssertNoSymlink re-validates an absolute path immediately before an I/O
// operation, closing the TOCTOU window between an earlier check and use.
// Exported for sidecar-attachment reads/writes, which re-check right before
// touching the filesystem.
func (s *sandbox) AssertNoSymlink(absPath string) error {
	if err := s.assertUnderRoot(absPath); err != nil {
		return wrap(err, withKind(KindPathEscape))
	}

	return wrap(s.assertNoSymlinkComponent(absPath), withKind(KindSymlink))
}
