package docstore

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Filter is a MongoDB-style filter document: field paths (dotted for
// nested access, e.g. "address.city") map to either a literal value
// (implicit $eq) or an operator document. The special keys "$and", "$or"
// combine subfilters; "$not" negates one.
type Filter map[string]any

// SortField names one field in a multi-key sort. Desc reverses its
// ordering; ties fall through to the next SortField in the slice, then to
// id ascending.
type SortField struct {
	Field string
	Desc  bool
}

// QueryOptions configures [Store.Query]. A nil or empty Filter matches
// every document of the type. Limit == 0 means unbounded (the zero value
// for an unset, optional field); a negative Limit is rejected, as is a
// negative Skip.
type QueryOptions struct {
	Filter   Filter
	Sort     []SortField
	Skip     int
	Limit    int
	Select   []string // projected field names, dotted paths allowed.
	Exclude  bool     // if true, Select names fields to drop instead of keep.
}

var filterOperators = map[string]bool{
	"$eq": true, "$ne": true, "$in": true, "$nin": true,
	"$gt": true, "$gte": true, "$lt": true, "$lte": true,
	"$exists": true, "$type": true,
}

// dottedLookup resolves a dotted field path ("a.b.c") against doc, stepping
// through nested objects only (not arrays). It reports whether every
// segment was present.
func dottedLookup(doc Doc, path string) (any, bool) {
	segments := strings.Split(path, ".")

	var cur any = doc

	for _, seg := range segments {
		obj, ok := cur.(Doc)
		if !ok {
			return nil, false
		}

		v, present := obj[seg]
		if !present {
			return nil, false
		}

		cur = v
	}

	return cur, true
}

// matchFilter reports whether doc satisfies filter.
func matchFilter(doc Doc, filter Filter) (bool, error) {
	for key, clause := range filter {
		switch key {
		case "$and":
			subs, err := asFilterSlice(clause)
			if err != nil {
				return false, err
			}

			for _, sub := range subs {
				ok, err := matchFilter(doc, sub)
				if err != nil {
					return false, err
				}

				if !ok {
					return false, nil
				}
			}

			continue

		case "$or":
			subs, err := asFilterSlice(clause)
			if err != nil {
				return false, err
			}

			matched := false

			for _, sub := range subs {
				ok, err := matchFilter(doc, sub)
				if err != nil {
					return false, err
				}

				if ok {
					matched = true
					break
				}
			}

			if !matched {
				return false, nil
			}

			continue

		case "$not":
			sub, ok := clause.(Filter)
			if !ok {
				m, ok2 := clause.(map[string]any)
				if !ok2 {
					return false, wrap(ErrValidation, withReason("$not requires a filter document"))
				}

				sub = Filter(m)
			}

			ok, err := matchFilter(doc, sub)
			if err != nil {
				return false, err
			}

			if ok {
				return false, nil
			}

			continue
		}

		val, present := dottedLookup(doc, key)

		ok, err := matchFieldClause(val, present, clause)
		if err != nil {
			return false, fmt.Errorf("field %q: %w", key, err)
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

func asFilterSlice(clause any) ([]Filter, error) {
	arr, ok := clause.([]any)
	if !ok {
		return nil, wrap(ErrValidation, withReason("$and/$or requires an array of filters"))
	}

	subs := make([]Filter, 0, len(arr))

	for _, elem := range arr {
		switch v := elem.(type) {
		case Filter:
			subs = append(subs, v)
		case map[string]any:
			subs = append(subs, Filter(v))
		default:
			return nil, wrap(ErrValidation, withReason("$and/$or element must be a filter document"))
		}
	}

	return subs, nil
}

// matchFieldClause evaluates one field's clause: either a literal (implicit
// $eq) or an operator document.
func matchFieldClause(val any, present bool, clause any) (bool, error) {
	ops, isOpDoc := operatorDocument(clause)
	if !isOpDoc {
		eq, err := equalsValue(val, clause)
		if err != nil {
			return false, err
		}

		return present && eq, nil
	}

	for op, arg := range ops {
		ok, err := evalOperator(op, val, present, arg)
		if err != nil {
			return false, err
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}

// operatorDocument reports whether clause is a map whose keys are all
// recognized operators (an operator document), as opposed to a literal
// object value to compare with $eq.
func operatorDocument(clause any) (map[string]any, bool) {
	var m map[string]any

	switch v := clause.(type) {
	case Filter:
		m = v
	case map[string]any:
		m = v
	default:
		return nil, false
	}

	if len(m) == 0 {
		return nil, false
	}

	for k := range m {
		if !filterOperators[k] {
			return nil, false
		}
	}

	return m, true
}

func evalOperator(op string, val any, present bool, arg any) (bool, error) {
	switch op {
	case "$exists":
		want, ok := arg.(bool)
		if !ok {
			return false, wrap(ErrValidation, withReason("$exists requires a bool"))
		}

		return present == want, nil

	case "$type":
		want, ok := arg.(string)
		if !ok {
			return false, wrap(ErrValidation, withReason("$type requires a string"))
		}

		return present && jsonTypeName(val) == want, nil

	case "$eq":
		if !present {
			return false, nil
		}

		return equalsValue(val, arg)

	case "$ne":
		if !present {
			return true, nil
		}

		eq, err := equalsValue(val, arg)
		return !eq, err

	case "$in":
		if !present {
			return false, nil
		}

		arr, ok := arg.([]any)
		if !ok {
			return false, wrap(ErrValidation, withReason("$in requires an array"))
		}

		for _, want := range arr {
			eq, err := jsonEqual(normalizeForCompare(val), normalizeForCompare(want))
			if err != nil {
				return false, err
			}

			if eq {
				return true, nil
			}
		}

		return false, nil

	case "$nin":
		ok, err := evalOperator("$in", val, present, arg)
		return !ok, err

	case "$gt", "$gte", "$lt", "$lte":
		if !present {
			return false, nil
		}

		cmp, comparable := compareValues(val, arg)
		if !comparable {
			return false, nil
		}

		switch op {
		case "$gt":
			return cmp > 0, nil
		case "$gte":
			return cmp >= 0, nil
		case "$lt":
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}

	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownOperator, op)
	}
}

// typeRank gives every JSON kind a position in the cross-type ordering
// ladder used by both comparisons and sort: null < bool < number < string <
// array < object.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case int, int64, float64:
		return 2
	case string:
		return 3
	case []any:
		return 4
	case map[string]any:
		return 5
	default:
		return 6
	}
}

func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int, int64, float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

// compareValues orders a against b. Values of different JSON kinds compare
// by [typeRank]; same-kind values compare natively. Arrays and objects are
// not ordered against each other (only equal/unequal, via canonical form).
func compareValues(a, b any) (int, bool) {
	a = normalizeForCompare(a)
	b = normalizeForCompare(b)

	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb, true
	}

	switch av := a.(type) {
	case nil:
		return 0, true
	case bool:
		bv := b.(bool) //nolint:forcetypeassert // same typeRank guarantees same kind.
		if av == bv {
			return 0, true
		}

		if !av {
			return -1, true
		}

		return 1, true
	case float64:
		bv := toFloat(b)
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case string:
		bv := b.(string) //nolint:forcetypeassert
		return strings.Compare(av, bv), true
	default:
		eq, err := jsonEqual(a, b)
		if err != nil || !eq {
			return 0, false
		}

		return 0, true
	}
}

// equalsValue reports whether val equals arg or, when val is an array,
// whether any of its elements does.
func equalsValue(val, arg any) (bool, error) {
	if arr, ok := val.([]any); ok {
		for _, elem := range arr {
			if eq, err := jsonEqual(normalizeForCompare(elem), normalizeForCompare(arg)); err != nil || eq {
				return eq, err
			}
		}
	}

	return jsonEqual(normalizeForCompare(val), normalizeForCompare(arg))
}

// normalizeForCompare reduces every numeric representation docstore may
// encounter (int, int64, json.Number) to float64 so comparisons are
// type-kind-agnostic within "number".
func normalizeForCompare(v any) any {
	switch val := v.(type) {
	case int:
		return float64(val)
	case int64:
		return float64(val)
	default:
		if f, ok := asNumber(val); ok {
			return f
		}

		return v
	}
}

func asNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toFloat(v any) float64 {
	f, _ := asNumber(v)
	return f
}

// sortDocs sorts docs in place per specs, falling back to id ascending as
// the final tiebreaker so the result order is always fully deterministic.
func sortDocs(docs []Doc, specs []SortField) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, spec := range specs {
			vi, pi := dottedLookup(docs[i], spec.Field)
			vj, pj := dottedLookup(docs[j], spec.Field)

			cmp, ok := compareMissing(vi, pi, vj, pj)
			if !ok {
				continue
			}

			if spec.Desc {
				cmp = -cmp
			}

			if cmp != 0 {
				return cmp < 0
			}
		}

		idI, _ := docs[i]["id"].(string)
		idJ, _ := docs[j]["id"].(string)

		return idI < idJ
	})
}

// compareMissing treats a missing field as sorting before any present
// value (rank -1), matching the null/undefined-first convention.
func compareMissing(a any, pa bool, b any, pb bool) (int, bool) {
	switch {
	case !pa && !pb:
		return 0, false
	case !pa:
		return -1, true
	case !pb:
		return 1, true
	}

	cmp, ok := compareValues(a, b)
	if !ok {
		return 0, false
	}

	return cmp, true
}

// project returns a shallow-filtered copy of doc's top-level-plus-dotted
// field set. With exclude=false, fields names exactly the dotted paths to
// keep (id and type are always kept); each present path is copied under its
// full dotted name as a single top-level key (e.g. "address.city"), not
// rebuilt as a nested object. With exclude=true, fields names dotted paths
// to drop from an otherwise full copy.
func project(doc Doc, fields []string, exclude bool) Doc {
	if len(fields) == 0 {
		return deepCopyDoc(doc).(Doc)
	}

	if exclude {
		out := deepCopyDoc(doc).(Doc)
		for _, f := range fields {
			removeDotted(out, f)
		}

		return out
	}

	out := Doc{}

	always := []string{"id", "type"}
	for _, f := range always {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}

	for _, f := range fields {
		v, ok := dottedLookup(doc, f)
		if !ok {
			continue
		}

		out[f] = deepCopyDoc(v)
	}

	return out
}

func setDotted(doc Doc, path string, value any) {
	segments := strings.Split(path, ".")

	cur := doc

	for i, seg := range segments {
		if i == len(segments)-1 {
			cur[seg] = value
			return
		}

		next, ok := cur[seg].(Doc)
		if !ok {
			next = Doc{}
			cur[seg] = next
		}

		cur = next
	}
}

func removeDotted(doc Doc, path string) {
	segments := strings.Split(path, ".")

	cur := doc

	for i, seg := range segments {
		if i == len(segments)-1 {
			delete(cur, seg)
			return
		}

		next, ok := cur[seg].(Doc)
		if !ok {
			return
		}

		cur = next
	}
}

// validateQueryOptions checks structural constraints Canonicalize/matchFilter
// can't express: a non-negative Skip, and every operator in Filter known.
func validateQueryOptions(opts QueryOptions) error {
	if opts.Skip < 0 {
		return wrap(ErrSkipNegative)
	}

	if opts.Limit < 0 {
		return wrap(ErrLimitNotPositive)
	}

	return validateFilterOperators(Filter(opts.Filter))
}

func validateFilterOperators(filter Filter) error {
	for key, clause := range filter {
		switch key {
		case "$and", "$or":
			subs, err := asFilterSlice(clause)
			if err != nil {
				return err
			}

			for _, sub := range subs {
				if err := validateFilterOperators(sub); err != nil {
					return err
				}
			}

		case "$not":
			m, ok := clause.(map[string]any)
			if !ok {
				if f, ok2 := clause.(Filter); ok2 {
					m = f
				} else {
					return wrap(ErrValidation, withReason("$not requires a filter document"))
				}
			}

			if err := validateFilterOperators(Filter(m)); err != nil {
				return err
			}

		default:
			var ops map[string]any

			switch v := clause.(type) {
			case Filter:
				ops = v
			case map[string]any:
				ops = v
			}

			for op := range ops {
				if strings.HasPrefix(op, "$") && !filterOperators[op] {
					return fmt.Errorf("%w: %s", ErrUnknownOperator, op)
				}
			}
		}
	}

	return nil
}

// equalityClause extracts a single-field equality value suitable for an
// index fast path: key == field, clause is a literal or a bare {"$eq": v}.
// Returns ok=false for anything else (ranges, $in, compound docs, etc.).
func equalityClause(field string, filter Filter) (value any, ok bool) {
	clause, present := filter[field]
	if !present {
		return nil, false
	}

	ops, isOpDoc := operatorDocument(clause)
	if !isOpDoc {
		return clause, true
	}

	if len(ops) == 1 {
		if v, has := ops["$eq"]; has {
			return v, true
		}
	}

	return nil, false
}
