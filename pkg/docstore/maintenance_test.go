package docstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

func Test_Format_Rewrites_Noncanonical_Files_On_Disk(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s, err := docstore.Open(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Put(docstore.Key{Type: "task", ID: "1"}, docstore.Doc{"type": "task", "id": "1"}))

	path := filepath.Join(root, "task", "1.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"1","type":"task"}`), 0o644))

	result, err := s.Format(docstore.FormatTarget{}, docstore.FormatOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"id\": \"1\",\n  \"type\": \"task\"\n}\n", string(data))
}

func Test_Format_DryRun_Reports_Without_Writing(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s, err := docstore.Open(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Put(docstore.Key{Type: "task", ID: "1"}, docstore.Doc{"type": "task", "id": "1"}))

	path := filepath.Join(root, "task", "1.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id":"1","type":"task"}`), 0o644))

	result, err := s.Format(docstore.FormatTarget{}, docstore.FormatOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Changed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"id":"1","type":"task"}`, string(data))
}

func Test_Format_Is_Idempotent_On_Canonical_Corpus(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		require.NoError(t, s.Put(docstore.Key{Type: "task", ID: id}, docstore.Doc{"type": "task", "id": id}))
	}

	result, err := s.Format(docstore.FormatTarget{}, docstore.FormatOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Changed)
}

func Test_Stats_Counts_Documents_And_Bytes(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Put(docstore.Key{Type: "task", ID: "1"}, docstore.Doc{"type": "task", "id": "1"}))
	require.NoError(t, s.Put(docstore.Key{Type: "task", ID: "2"}, docstore.Doc{"type": "task", "id": "2"}))

	st, err := s.Stats("task")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Count)
	assert.Positive(t, st.TotalBytes)
}

func Test_DetailedStats_Reports_PerType_Counts(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Put(docstore.Key{Type: "task", ID: "1"}, docstore.Doc{"type": "task", "id": "1"}))
	require.NoError(t, s.Put(docstore.Key{Type: "note", ID: "1"}, docstore.Doc{"type": "note", "id": "1"}))

	det, err := s.DetailedStats("")
	require.NoError(t, err)
	assert.Equal(t, 2, det.Count)
	assert.Equal(t, 1, det.PerType["task"])
	assert.Equal(t, 1, det.PerType["note"])
}
