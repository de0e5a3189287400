package docstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

func Test_Key_String_Renders_Type_Slash_Id(t *testing.T) {
	t.Parallel()

	k := docstore.Key{Type: "task", ID: "42"}
	assert.Equal(t, "task/42", k.String())
}

func Test_Name_Grammar_Rejects_Invalid_Ids(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		id   string
	}{
		{"Empty", ""},
		{"Dot", "."},
		{"DotDot", ".."},
		{"LeadingDot", ".hidden"},
		{"EmbeddedSlash", "a/b"},
		{"EmbeddedBackslash", `a\b`},
		{"EmbeddedDotDot", "a..b"},
		{"LeadingDash", "-abc"},
		{"TrailingDash", "abc-"},
		{"InvalidRune", "a b"},
	}

	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key := docstore.Key{Type: "task", ID: tc.id}

			err := s.Put(key, docstore.Doc{"type": "task", "id": tc.id})
			require.Error(t, err)
			assert.ErrorIs(t, err, docstore.ErrValidation)
		})
	}
}

func Test_Store_Rejects_Invalid_Key_On_Put(t *testing.T) {
	t.Parallel()

	s, err := docstore.Open(t.TempDir())
	require.NoError(t, err)

	invalid := []docstore.Key{
		{Type: "..", ID: "x"},
		{Type: "task", ID: "../../etc/passwd"},
		{Type: "", ID: "x"},
		{Type: "task", ID: ""},
	}

	for _, key := range invalid {
		err := s.Put(key, docstore.Doc{"type": key.Type, "id": key.ID})
		require.Error(t, err)
		assert.ErrorIs(t, err, docstore.ErrValidation)
	}
}
