package docstore

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_DottedLookup_Traverses_Nested_Objects_Only(t *testing.T) {
	t.Parallel()

	doc := Doc{"address": Doc{"city": "Berlin"}, "tags": []any{"a"}}

	v, ok := dottedLookup(doc, "address.city")
	require.True(t, ok)
	assert.Equal(t, "Berlin", v)

	_, ok = dottedLookup(doc, "address.zip")
	assert.False(t, ok)

	_, ok = dottedLookup(doc, "tags.0")
	assert.False(t, ok, "dotted path does not index into arrays")
}

func Test_MatchFilter_Literal_Is_Implicit_Eq(t *testing.T) {
	t.Parallel()

	doc := Doc{"status": "open"}

	ok, err := matchFilter(doc, Filter{"status": "open"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = matchFilter(doc, Filter{"status": "closed"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_MatchFilter_Eq_On_Array_Field_Matches_Any_Element(t *testing.T) {
	t.Parallel()

	doc := Doc{"tags": []any{"a", "b"}}

	ok, err := matchFilter(doc, Filter{"tags": Filter{"$eq": "b"}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func Test_MatchFilter_Exists_Distinguishes_Missing_From_Null(t *testing.T) {
	t.Parallel()

	doc := Doc{"a": nil}

	ok, err := matchFilter(doc, Filter{"a": Filter{"$exists": true}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = matchFilter(doc, Filter{"b": Filter{"$exists": false}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func Test_MatchFilter_Range_Operators_Use_Precedence_Ladder_Across_Types(t *testing.T) {
	t.Parallel()

	doc := Doc{"v": "a string"}

	ok, err := matchFilter(doc, Filter{"v": Filter{"$gt": 5}})
	require.NoError(t, err)
	assert.True(t, ok, "string ranks above number on the precedence ladder")
}

func Test_MatchFilter_And_Or_Not_Combinators(t *testing.T) {
	t.Parallel()

	doc := Doc{"status": "open", "priority": 3}

	ok, err := matchFilter(doc, Filter{"$and": []any{
		Filter{"status": "open"},
		Filter{"priority": Filter{"$gte": 3}},
	}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = matchFilter(doc, Filter{"$or": []any{
		Filter{"status": "closed"},
		Filter{"priority": 3},
	}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = matchFilter(doc, Filter{"$not": Filter{"status": "closed"}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func Test_MatchFilter_Unknown_Operator_Is_Rejected(t *testing.T) {
	t.Parallel()

	err := validateFilterOperators(Filter{"a": Filter{"$bogus": 1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func Test_SortDocs_Stable_MultiKey_With_Id_Tiebreak(t *testing.T) {
	t.Parallel()

	docs := []Doc{
		{"id": "b", "priority": 1},
		{"id": "a", "priority": 1},
		{"id": "c", "priority": 2},
	}

	sortDocs(docs, []SortField{{Field: "priority", Desc: true}})

	ids := []string{docs[0]["id"].(string), docs[1]["id"].(string), docs[2]["id"].(string)}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func Test_SortDocs_Missing_Field_Sorts_Before_Present(t *testing.T) {
	t.Parallel()

	docs := []Doc{
		{"id": "has", "v": 1},
		{"id": "missing"},
	}

	sortDocs(docs, []SortField{{Field: "v"}})

	assert.Equal(t, "missing", docs[0]["id"])
	assert.Equal(t, "has", docs[1]["id"])
}

func Test_Project_Inclusion_Flattens_Dotted_Paths(t *testing.T) {
	t.Parallel()

	doc := Doc{
		"id":   "1",
		"type": "task",
		"address": Doc{
			"city": "Berlin",
			"zip":  "10115",
		},
	}

	out := project(doc, []string{"address.city"}, false)

	want := Doc{
		"id":           "1",
		"type":         "task",
		"address.city": "Berlin",
	}

	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("projected document mismatch (-want +got):\n%s", diff)
	}
}

func Test_Project_Exclusion_Drops_Named_Paths(t *testing.T) {
	t.Parallel()

	doc := Doc{"id": "1", "type": "task", "secret": "shh", "title": "A"}

	out := project(doc, []string{"secret"}, true)

	assert.Equal(t, "A", out["title"])
	_, hasSecret := out["secret"]
	assert.False(t, hasSecret)
}

func Test_EqualityClause_Recognizes_Literal_And_Bare_Eq(t *testing.T) {
	t.Parallel()

	v, ok := equalityClause("status", Filter{"status": "open"})
	require.True(t, ok)
	assert.Equal(t, "open", v)

	v, ok = equalityClause("status", Filter{"status": Filter{"$eq": "open"}})
	require.True(t, ok)
	assert.Equal(t, "open", v)

	_, ok = equalityClause("status", Filter{"status": Filter{"$gt": "open"}})
	assert.False(t, ok)
}
