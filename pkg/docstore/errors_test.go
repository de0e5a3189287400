package docstore_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

func Test_Error_As_Recovers_Kind(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(docstore.Key{Type: "task", ID: ""})
	require.Error(t, err)

	var dsErr *docstore.Error
	require.True(t, errors.As(err, &dsErr))
	assert.Equal(t, docstore.KindValidation, dsErr.Kind)
}

func Test_Error_Message_Includes_Type_And_Id_When_Known(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)

	err = s.Put(docstore.Key{Type: "t", ID: "1"}, docstore.Doc{"type": "other", "id": "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type=t")
	assert.Contains(t, err.Error(), "id=1")
}

func Test_Closed_Store_Rejects_Operations(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Get(docstore.Key{Type: "task", ID: "1"})
	require.ErrorIs(t, err, docstore.ErrClosed)

	err = s.Put(docstore.Key{Type: "task", ID: "1"}, docstore.Doc{"type": "task", "id": "1"})
	require.ErrorIs(t, err, docstore.ErrClosed)
}
