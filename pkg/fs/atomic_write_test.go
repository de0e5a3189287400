package fs_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calvinalkan/jsonstore/pkg/fs"
)

const testContentHello = "hello, world"

func TestAtomicWriteFile_VisibleAfterRename(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	real := fs.NewReal()
	writer := fs.NewAtomicWriter(real)

	target := filepath.Join(dir, "final.txt")

	err := writer.WriteWithDefaults(target, strings.NewReader(testContentHello))
	if err != nil {
		t.Fatalf("WriteWithDefaults: %v", err)
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != testContentHello {
		t.Fatalf("content=%q, want %q", string(got), testContentHello)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("leftover entries in dir: %v", entries)
	}
}

func TestAtomicWriteFile_NoStagingLeftOnSuccess(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writer := fs.NewAtomicWriter(fs.NewReal())
	target := filepath.Join(dir, "doc.json")

	for range 3 {
		err := writer.WriteWithDefaults(target, strings.NewReader(`{"a":1}`))
		if err != nil {
			t.Fatalf("WriteWithDefaults: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	if len(entries) != 1 || entries[0].Name() != "doc.json" {
		t.Fatalf("unexpected dir contents: %v", entries)
	}
}
