package docstore_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/jsonstore/pkg/docstore"
)

func Test_Canonicalize_Orders_Keys_Alphabetically_By_Default(t *testing.T) {
	t.Parallel()

	doc := docstore.Doc{"z": 1, "a": 2, "m": 3}

	out, err := docstore.Canonicalize(doc, docstore.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"a\": 2,\n  \"m\": 3,\n  \"z\": 1\n}\n", out)
}

func Test_Canonicalize_Honors_Explicit_KeyOrder_Then_Falls_Back_To_Alpha(t *testing.T) {
	t.Parallel()

	doc := docstore.Doc{"z": 1, "id": "x", "type": "t", "a": 2}

	out, err := docstore.Canonicalize(doc, docstore.Options{
		Indent:   2,
		KeyOrder: docstore.KeyOrder{"type", "id"},
	})
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"type\": \"t\",\n  \"id\": \"x\",\n  \"a\": 2,\n  \"z\": 1\n}\n", out)
}

func Test_Canonicalize_Produces_Exactly_One_Trailing_Newline(t *testing.T) {
	t.Parallel()

	out, err := docstore.Canonicalize(docstore.Doc{"a": 1}, docstore.Options{Indent: 0})
	require.NoError(t, err)

	assert.Equal(t, `{"a":1}`+"\n", out)
}

func Test_Canonicalize_Rejects_Cycles(t *testing.T) {
	t.Parallel()

	cyclic := docstore.Doc{}
	cyclic["self"] = cyclic

	_, err := docstore.Canonicalize(cyclic, docstore.DefaultOptions())
	require.Error(t, err)
}

func Test_Canonicalize_Is_Idempotent_Across_Parse_Roundtrip(t *testing.T) {
	t.Parallel()

	doc := docstore.Doc{
		"type": "task",
		"id":   "1",
		"tags": []any{"b", "a"},
		"nested": docstore.Doc{
			"z": 1,
			"a": 2,
		},
	}

	first, err := docstore.Canonicalize(doc, docstore.DefaultOptions())
	require.NoError(t, err)

	dec := json.NewDecoder(bytes.NewReader([]byte(first)))
	dec.UseNumber()

	var parsed any
	require.NoError(t, dec.Decode(&parsed))

	second, err := docstore.Canonicalize(parsed, docstore.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func Test_Canonicalize_Compact_Form_Treats_Semantically_Equal_Values_As_Equal(t *testing.T) {
	t.Parallel()

	a := docstore.Doc{"x": 1, "y": 2}
	b := docstore.Doc{"y": 2, "x": 1}

	ca, err := docstore.Canonicalize(a, docstore.Options{Indent: 0})
	require.NoError(t, err)

	cb, err := docstore.Canonicalize(b, docstore.Options{Indent: 0})
	require.NoError(t, err)

	assert.Equal(t, ca, cb)
}
