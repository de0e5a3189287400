package docstore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ScalarIndexKey_Type_Discriminates_Every_Kind(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		in   any
		want string
	}{
		{"Null", nil, prefixNull},
		{"True", true, prefixBool + "true"},
		{"False", false, prefixBool + "false"},
		{"PlainString", "open", "open"},
		{"ReservedLookingString", "__num__5", prefixStr + "__num__5"},
		{"IntNumber", 5, prefixNum + "5"},
		{"JSONNumberInt", json.Number("5"), prefixNum + "5"},
		{"JSONNumberFloat", json.Number("5.5"), prefixNum + "5.5"},
		{"Float", 2.5, prefixNum + "2.5"},
		{"WholeFloat", 3.0, prefixNum + "3"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := scalarIndexKey(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_ScalarIndexKey_Object_Uses_Canonical_Serialization(t *testing.T) {
	t.Parallel()

	got, err := scalarIndexKey(map[string]any{"b": 1, "a": 2})
	require.NoError(t, err)
	assert.Equal(t, prefixObj+`{"a":2,"b":1}`, got)
}

func Test_IndexKeysForValue_Array_Expands_To_Element_Keys(t *testing.T) {
	t.Parallel()

	keys, err := indexKeysForValue([]any{"a", "b", true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", prefixBool + "true"}, keys)
}

func Test_ScalarIndexKey_Rejects_Non_Finite_Numbers(t *testing.T) {
	t.Parallel()

	_, err := scalarIndexKey(json.Number("NaN"))
	assert.Error(t, err)
}
