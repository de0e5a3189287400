package docstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

func Test_Sidecar_WriteAttachment_Then_ReadAttachment_Roundtrips(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir(), docstore.WithSidecar(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	key := docstore.Key{Type: "task", ID: "1"}
	require.NoError(t, s.Put(key, docstore.Doc{"type": "task", "id": "1", "title": "A"}))
	require.NoError(t, s.WriteAttachment(key, "summary.md", "# Summary"))

	content, err := s.ReadAttachment(key, "summary.md")
	require.NoError(t, err)
	assert.Equal(t, "# Summary", content)

	doc, err := s.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "A", doc["title"])
}

func Test_Sidecar_ReadAttachment_Missing_Is_NotFound(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir(), docstore.WithSidecar(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	key := docstore.Key{Type: "task", ID: "1"}
	require.NoError(t, s.Put(key, docstore.Doc{"type": "task", "id": "1"}))

	_, err = s.ReadAttachment(key, "missing.md")
	require.Error(t, err)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func Test_Sidecar_WriteAttachment_Requires_Sidecar_Mode(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	key := docstore.Key{Type: "task", ID: "1"}
	require.NoError(t, s.Put(key, docstore.Doc{"type": "task", "id": "1"}))

	err = s.WriteAttachment(key, "summary.md", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, docstore.ErrBadOption)
}

func Test_Sidecar_WriteAttachment_Rejects_Bad_Names(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir(), docstore.WithSidecar(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	key := docstore.Key{Type: "task", ID: "1"}
	require.NoError(t, s.Put(key, docstore.Doc{"type": "task", "id": "1"}))

	err = s.WriteAttachment(key, "../escape.md", "x")
	require.Error(t, err)

	err = s.WriteAttachment(key, "no-extension", "x")
	require.Error(t, err)
}

func Test_Sidecar_List_Returns_Document_Directory_Names(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir(), docstore.WithSidecar(true))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	for _, id := range []string{"b", "a"} {
		require.NoError(t, s.Put(docstore.Key{Type: "task", ID: id}, docstore.Doc{"type": "task", "id": id}))
	}

	ids, err := s.List("task")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}
