package docstore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Reserved index-key prefixes (§4.5). A literal string value that happens
// to start with one of these gets re-escaped under __str__: so it can never
// collide with a typed posting for a different kind of value.
const (
	prefixStr  = "__str__:"
	prefixNum  = "__num__"
	prefixBool = "__bool__"
	prefixNull = "__null__"
	prefixObj  = "__obj__:"
)

var reservedPrefixes = []string{prefixStr, prefixNum, prefixBool, prefixNull, prefixObj}

func hasReservedPrefix(s string) bool {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}

	return false
}

// indexKeysForValue returns the set of index postings v should appear under.
// Arrays expand to the multiset of their element keys (one posting per
// element); every other value produces exactly one key.
func indexKeysForValue(v any) ([]string, error) {
	arr, ok := v.([]any)
	if !ok {
		k, err := scalarIndexKey(v)
		if err != nil {
			return nil, err
		}

		return []string{k}, nil
	}

	keys := make([]string, 0, len(arr))

	for _, elem := range arr {
		ks, err := indexKeysForValue(elem)
		if err != nil {
			return nil, err
		}

		keys = append(keys, ks...)
	}

	return keys, nil
}

// scalarIndexKey encodes a single scalar (non-array) value per §4.5's
// type-discriminated scheme.
func scalarIndexKey(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return prefixNull, nil
	case bool:
		return prefixBool + strconv.FormatBool(val), nil
	case string:
		if hasReservedPrefix(val) {
			return prefixStr + val, nil
		}

		return val, nil
	case json.Number:
		return encodeNumberKey(val)
	case int:
		return prefixNum + strconv.Itoa(val), nil
	case int64:
		return prefixNum + strconv.FormatInt(val, 10), nil
	case float64:
		return encodeFloatKey(val)
	case map[string]any:
		s, err := Canonicalize(val, Options{Indent: 0})
		if err != nil {
			return "", err
		}

		return prefixObj + strings.TrimSuffix(s, "\n"), nil
	default:
		return "", fmt.Errorf("unsupported index value type %T", v)
	}
}

func encodeNumberKey(n json.Number) (string, error) {
	if i, err := n.Int64(); err == nil {
		return prefixNum + strconv.FormatInt(i, 10), nil
	}

	f, err := n.Float64()
	if err != nil {
		return "", fmt.Errorf("index key for number %q: %w", string(n), err)
	}

	return encodeFloatKey(f)
}

func encodeFloatKey(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("index key: non-finite number %v", f)
	}

	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return prefixNum + strconv.FormatInt(int64(f), 10), nil
	}

	return prefixNum + strconv.FormatFloat(f, 'g', -1, 64), nil
}
