package docstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Sandbox_RecordPath_Rejects_Path_Escape(t *testing.T) {
	t.Parallel()

	sbox, err := newSandbox(t.TempDir(), ".json")
	require.NoError(t, err)

	_, err = sbox.recordPath(Key{Type: "task", ID: "a"})
	require.NoError(t, err)

	// validateKey already rejects ".." components before assertUnderRoot
	// ever runs; this confirms the failure surfaces as ErrValidation.
	_, err = sbox.recordPath(Key{Type: "task", ID: "../escape"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func Test_Sandbox_RecordPath_Rejects_Symlinked_Type_Directory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()

	sbox, err := newSandbox(root, ".json")
	require.NoError(t, err)

	require.NoError(t, os.Symlink(outside, filepath.Join(root, "task")))

	_, err = sbox.recordPath(Key{Type: "task", ID: "a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSymlink)
}

func Test_Sandbox_AssertNoSymlink_Revalidates_At_Call_Time(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()

	sbox, err := newSandbox(root, ".json")
	require.NoError(t, err)

	path, err := sbox.recordPath(Key{Type: "task", ID: "a"})
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "task"), 0o750))
	require.NoError(t, os.Remove(filepath.Join(root, "task")))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "task")))

	err = sbox.AssertNoSymlink(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSymlink)
}
