package docstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Doc is a document: a tree of JSON values (nil, bool, numbers, string,
// []any, map[string]any). Every stored document carries mandatory "type"
// and "id" string fields matching its [Key].
type Doc = map[string]any

// KeyOrder controls how object keys are ordered by the canonical serializer.
// A nil or empty KeyOrder sorts keys by Unicode code point ("alpha" mode,
// §4.2). A non-empty KeyOrder lists keys that come first, in that order;
// any remaining keys follow, sorted alphabetically.
type KeyOrder []string

// Options configures the canonical serializer.
type Options struct {
	// Indent is the number of spaces per nesting level. Zero produces
	// compact, single-line output (used internally by [jsonEqual]).
	Indent int

	// KeyOrder controls key ordering; see [KeyOrder].
	KeyOrder KeyOrder
}

// DefaultOptions returns the store's default serializer options: two-space
// indent, alphabetical key order.
func DefaultOptions() Options {
	return Options{Indent: 2, KeyOrder: nil}
}

// Canonicalize produces byte-stable text for v: fixed indent, stable key
// order, LF line endings, and exactly one trailing newline. Semantically
// equal values produce byte-identical output across runs and platforms.
// Fails with [ErrCycle] if a container is re-entered while still on the
// descent path.
func Canonicalize(v any, opts Options) (string, error) {
	if opts.Indent < 0 {
		return "", wrap(fmt.Errorf("%w: negative indent", ErrBadOption), withKind(KindCanonicalization))
	}

	var buf bytes.Buffer

	enc := &canonEncoder{opts: opts, visited: map[uintptr]bool{}}

	err := enc.encode(&buf, v, 0)
	if err != nil {
		return "", wrap(err, withKind(KindCanonicalization))
	}

	out := buf.String()
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}

	return out, nil
}

// jsonEqual reports whether a and b canonicalize to the same compact form.
func jsonEqual(a, b any) (bool, error) {
	ca, err := Canonicalize(a, Options{Indent: 0})
	if err != nil {
		return false, err
	}

	cb, err := Canonicalize(b, Options{Indent: 0})
	if err != nil {
		return false, err
	}

	return ca == cb, nil
}

// safeParse parses JSON text into a [Doc]-shaped value without throwing
// through hot loops: callers inspect the returned error themselves (e.g.
// during bulk format operations) instead of aborting the whole batch on one
// bad file.
func safeParse(text []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()

	var v any

	err := dec.Decode(&v)
	if err != nil {
		return nil, wrap(fmt.Errorf("parse json: %w", err), withKind(KindParse))
	}

	if dec.More() {
		return nil, wrap(errors.New("parse json: trailing content after value"), withKind(KindParse))
	}

	return v, nil
}

type canonEncoder struct {
	opts    Options
	visited map[uintptr]bool
}

func (e *canonEncoder) encode(buf *bytes.Buffer, v any, depth int) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		buf.WriteString(strconv.FormatBool(val))
		return nil
	case string:
		return e.encodeString(buf, val)
	case json.Number:
		return e.encodeJSONNumber(buf, val)
	case int:
		buf.WriteString(strconv.Itoa(val))
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
		return nil
	case float64:
		return e.encodeFloat(buf, val)
	case []any:
		return e.encodeArray(buf, val, depth)
	case map[string]any:
		return e.encodeObject(buf, val, depth)
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
}

func (e *canonEncoder) encodeString(buf *bytes.Buffer, s string) error {
	out, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode string: %w", err)
	}

	buf.Write(out)

	return nil
}

func (e *canonEncoder) encodeJSONNumber(buf *bytes.Buffer, n json.Number) error {
	if i, err := n.Int64(); err == nil {
		buf.WriteString(strconv.FormatInt(i, 10))
		return nil
	}

	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("encode number %q: %w", string(n), err)
	}

	return e.encodeFloat(buf, f)
}

func (e *canonEncoder) encodeFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("non-finite number %v", f)
	}

	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		buf.WriteString(strconv.FormatInt(int64(f), 10))
		return nil
	}

	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))

	return nil
}

func (e *canonEncoder) encodeArray(buf *bytes.Buffer, arr []any, depth int) error {
	if len(arr) == 0 {
		buf.WriteString("[]")
		return nil
	}

	if err := e.enterContainer(arr); err != nil {
		return err
	}
	defer e.leaveContainer(arr)

	buf.WriteByte('[')

	for i, item := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}

		e.newlineIndent(buf, depth+1)

		err := e.encode(buf, item, depth+1)
		if err != nil {
			return err
		}
	}

	e.newlineIndent(buf, depth)
	buf.WriteByte(']')

	return nil
}

func (e *canonEncoder) encodeObject(buf *bytes.Buffer, obj map[string]any, depth int) error {
	if len(obj) == 0 {
		buf.WriteString("{}")
		return nil
	}

	if err := e.enterContainer(obj); err != nil {
		return err
	}
	defer e.leaveContainer(obj)

	keys := orderKeys(obj, e.opts.KeyOrder)

	buf.WriteByte('{')

	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		e.newlineIndent(buf, depth+1)

		err := e.encodeString(buf, k)
		if err != nil {
			return err
		}

		buf.WriteByte(':')

		if e.opts.Indent > 0 {
			buf.WriteByte(' ')
		}

		err = e.encode(buf, obj[k], depth+1)
		if err != nil {
			return err
		}
	}

	e.newlineIndent(buf, depth)
	buf.WriteByte('}')

	return nil
}

func (e *canonEncoder) newlineIndent(buf *bytes.Buffer, depth int) {
	if e.opts.Indent <= 0 {
		return
	}

	buf.WriteByte('\n')
	buf.WriteString(strings.Repeat(" ", depth*e.opts.Indent))
}

// enterContainer records that a map/slice is on the current descent path,
// failing with [ErrCycle] if it's already there.
func (e *canonEncoder) enterContainer(v any) error {
	ptr := containerPointer(v)
	if ptr == 0 {
		return nil
	}

	if e.visited[ptr] {
		return ErrCycle
	}

	e.visited[ptr] = true

	return nil
}

func (e *canonEncoder) leaveContainer(v any) {
	ptr := containerPointer(v)
	if ptr != 0 {
		delete(e.visited, ptr)
	}
}

func containerPointer(v any) uintptr {
	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Map, reflect.Slice:
		return rv.Pointer()
	default:
		return 0
	}
}

// orderKeys sorts obj's keys per order: explicit keys first (in listed
// order, only if present), remaining keys alphabetical by Unicode code
// point. A nil/empty order sorts all keys alphabetically.
func orderKeys(obj map[string]any, order KeyOrder) []string {
	remaining := make(map[string]bool, len(obj))
	for k := range obj {
		remaining[k] = true
	}

	keys := make([]string, 0, len(obj))

	for _, k := range order {
		if remaining[k] {
			keys = append(keys, k)
			delete(remaining, k)
		}
	}

	rest := make([]string, 0, len(remaining))
	for k := range remaining {
		rest = append(rest, k)
	}

	sort.Strings(rest)

	return append(keys, rest...)
}
