package docstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

func Test_ClaimSlug_Then_ResolveSlug_Roundtrips(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ClaimSlug("article", "de", "hello-world", "a1"))

	id, ok, err := s.ResolveSlug("article", "de", "hello-world")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a1", id)
}

func Test_ClaimSlug_Same_Label_Same_Id_Is_Idempotent(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ClaimSlug("article", "de", "hello-world", "a1"))
	require.NoError(t, s.ClaimSlug("article", "de", "hello-world", "a1"))
}

func Test_ClaimSlug_Conflicting_Id_Is_Rejected(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ClaimSlug("article", "de", "hello-world", "a1"))

	err = s.ClaimSlug("article", "de", "hello-world", "a2")
	require.Error(t, err)
	assert.ErrorIs(t, err, docstore.ErrSlugClaimConflict)
}

func Test_ClaimSlug_Scopes_Are_Independent(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ClaimSlug("article", "de", "hello", "a1"))
	require.NoError(t, s.ClaimSlug("article", "fr", "hello", "a2"))

	idDE, _, err := s.ResolveSlug("article", "de", "hello")
	require.NoError(t, err)
	idFR, _, err := s.ResolveSlug("article", "fr", "hello")
	require.NoError(t, err)

	assert.Equal(t, "a1", idDE)
	assert.Equal(t, "a2", idFR)
}

func Test_ResolveSlug_Unknown_Label_Returns_False(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	_, ok, err := s.ResolveSlug("article", "de", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
