package fs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/jsonstore/pkg/fs"
)

func TestDirTx_CommitCreatesNewDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := filepath.Join(root, "task", "42")

	txr := fs.NewDirTransaction(fs.NewReal())

	tx, err := txr.Begin(target, "task.42")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	err = os.WriteFile(filepath.Join(tx.Dir(), "42.json"), []byte(`{"id":"42"}`), 0o644)
	if err != nil {
		t.Fatalf("write staged file: %v", err)
	}

	err = tx.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(target, "42.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != `{"id":"42"}` {
		t.Fatalf("content=%q", got)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	if len(entries) != 1 || entries[0].Name() != "task" {
		t.Fatalf("leftover staging/backup dirs in %q: %v", root, entries)
	}
}

func TestDirTx_CommitPreservesUnrewrittenFilesAndReplacesOthers(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := filepath.Join(root, "42")

	err := os.MkdirAll(target, 0o750)
	if err != nil {
		t.Fatalf("setup mkdir: %v", err)
	}

	err = os.WriteFile(filepath.Join(target, "42.json"), []byte("old primary"), 0o644)
	if err != nil {
		t.Fatalf("setup write: %v", err)
	}

	err = os.WriteFile(filepath.Join(target, "notes.md"), []byte("keep me"), 0o644)
	if err != nil {
		t.Fatalf("setup write: %v", err)
	}

	txr := fs.NewDirTransaction(fs.NewReal())

	tx, err := txr.Begin(target, "42")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	err = os.WriteFile(filepath.Join(tx.Dir(), "42.json"), []byte("new primary"), 0o644)
	if err != nil {
		t.Fatalf("write staged file: %v", err)
	}

	err = tx.Commit()
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}

	gotPrimary, err := os.ReadFile(filepath.Join(target, "42.json"))
	if err != nil {
		t.Fatalf("ReadFile primary: %v", err)
	}

	if string(gotPrimary) != "new primary" {
		t.Fatalf("primary=%q", gotPrimary)
	}

	gotNotes, err := os.ReadFile(filepath.Join(target, "notes.md"))
	if err != nil {
		t.Fatalf("ReadFile notes: %v", err)
	}

	if string(gotNotes) != "keep me" {
		t.Fatalf("notes=%q, want unchanged", gotNotes)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	if len(entries) != 1 || entries[0].Name() != "42" {
		t.Fatalf("leftover staging/backup dirs in %q: %v", root, entries)
	}
}

func TestDirTx_PreCommitCheckFailureLeavesTargetUntouched(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := filepath.Join(root, "42")

	err := os.MkdirAll(target, 0o750)
	if err != nil {
		t.Fatalf("setup mkdir: %v", err)
	}

	err = os.WriteFile(filepath.Join(target, "42.json"), []byte("original"), 0o644)
	if err != nil {
		t.Fatalf("setup write: %v", err)
	}

	txr := fs.NewDirTransaction(fs.NewReal())

	tx, err := txr.Begin(target, "42")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	err = os.WriteFile(filepath.Join(tx.Dir(), "42.json"), []byte("new"), 0o644)
	if err != nil {
		t.Fatalf("write staged file: %v", err)
	}

	tx.SetPreCommitCheck(func(dest string) error {
		return os.ErrPermission
	})

	err = tx.Commit()
	if err == nil {
		t.Fatal("expected Commit to fail")
	}

	got, err := os.ReadFile(filepath.Join(target, "42.json"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != "original" {
		t.Fatalf("target was mutated despite failed pre-commit check: %q", got)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	if len(entries) != 1 || entries[0].Name() != "42" {
		t.Fatalf("leftover staging/backup dirs in %q: %v", root, entries)
	}
}

func TestDirTx_Abort(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	target := filepath.Join(root, "42")

	txr := fs.NewDirTransaction(fs.NewReal())

	tx, err := txr.Begin(target, "42")
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	err = tx.Abort()
	if err != nil {
		t.Fatalf("Abort: %v", err)
	}

	exists, err := fs.NewReal().Exists(target)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}

	if exists {
		t.Fatal("target should not exist after abort")
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	if len(entries) != 0 {
		t.Fatalf("leftover entries after abort: %v", entries)
	}
}
