package docstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

func Test_Open_Rejects_Empty_Root(t *testing.T) {
	t.Parallel()

	_, err := docstore.Open("")
	require.Error(t, err)
	assert.ErrorIs(t, err, docstore.ErrValidation)
}

func Test_Open_Applies_Defaults(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s, err := docstore.Open(root)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Put(docstore.Key{Type: "task", ID: "1"}, docstore.Doc{"z": 1, "a": 2, "type": "task", "id": "1"}))

	doc, err := s.Get(docstore.Key{Type: "task", ID: "1"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), doc["z"])
}

func Test_Open_FormatConcurrency_Is_Clamped(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir(), docstore.WithFormatConcurrency(0))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	// Clamping is observable indirectly: Format must still run without
	// deadlocking on a zero-sized worker semaphore.
	result, err := s.Format(docstore.FormatTarget{}, docstore.FormatOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Changed)
}
