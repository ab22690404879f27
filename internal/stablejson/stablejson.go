// Package stablejson renders arbitrary values as deterministic JSON-like
// strings for pattern matching. Object keys are sorted at every nesting
// level, non-serializable values are dropped the way encoding/json drops
// them in JavaScript-compatible mode, and cycles terminate with a
// "[Circular]" marker instead of recursing forever.
package stablejson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

const circularMarker = `"[Circular]"`

// Serialize converts v into a deterministic JSON-like string. It never
// panics and never fails: values that cannot be represented (functions,
// channels) are omitted from objects and rendered as null inside arrays,
// and any back-reference to an ancestor container is replaced with
// "[Circular]".
func Serialize(v any) string {
	var sb strings.Builder
	writeValue(&sb, reflect.ValueOf(v), nil)
	return sb.String()
}

// writeValue appends the serialized form of val. ancestors holds the
// container identities currently on the traversal stack.
func writeValue(sb *strings.Builder, val reflect.Value, ancestors []uintptr) {
	if !val.IsValid() {
		sb.WriteString("null")
		return
	}

	if handled := writeMarshaler(sb, val, ancestors); handled {
		return
	}

	switch val.Kind() {
	case reflect.Interface:
		if val.IsNil() {
			sb.WriteString("null")
			return
		}
		writeValue(sb, val.Elem(), ancestors)

	case reflect.Pointer:
		if val.IsNil() {
			sb.WriteString("null")
			return
		}
		id := val.Pointer()
		if isAncestor(ancestors, id) {
			sb.WriteString(circularMarker)
			return
		}
		writeValue(sb, val.Elem(), append(ancestors, id))

	case reflect.Map:
		if val.IsNil() {
			sb.WriteString("null")
			return
		}
		id := val.Pointer()
		if isAncestor(ancestors, id) {
			sb.WriteString(circularMarker)
			return
		}
		writeMap(sb, val, append(ancestors, id))

	case reflect.Slice:
		if val.IsNil() {
			sb.WriteString("null")
			return
		}
		id := val.Pointer()
		if isAncestor(ancestors, id) {
			sb.WriteString(circularMarker)
			return
		}
		writeArray(sb, val, append(ancestors, id))

	case reflect.Array:
		writeArray(sb, val, ancestors)

	case reflect.Struct:
		writeStruct(sb, val, ancestors)

	case reflect.String:
		writeString(sb, val.String())

	case reflect.Bool:
		sb.WriteString(strconv.FormatBool(val.Bool()))

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sb.WriteString(strconv.FormatInt(val.Int(), 10))

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		sb.WriteString(strconv.FormatUint(val.Uint(), 10))

	case reflect.Float32, reflect.Float64:
		writeFloat(sb, val.Float())

	default:
		// Func, Chan, Complex, UnsafePointer have no JSON form.
		sb.WriteString("null")
	}
}

// writeMarshaler honors a custom json.Marshaler hook when the value carries
// one. A hook that fails or returns invalid JSON is ignored so the caller
// falls back to structural serialization.
func writeMarshaler(sb *strings.Builder, val reflect.Value, ancestors []uintptr) bool {
	if val.Kind() == reflect.Interface || val.Kind() == reflect.Pointer {
		return false
	}
	if !val.CanInterface() {
		return false
	}

	m, ok := val.Interface().(json.Marshaler)
	if !ok {
		if val.CanAddr() {
			m, ok = val.Addr().Interface().(json.Marshaler)
		}
		if !ok {
			return false
		}
	}

	raw, err := callMarshaler(m)
	if err != nil || !json.Valid(raw) {
		return false
	}

	// Re-marshal through the structural path so nested keys stay sorted.
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return false
	}
	writeValue(sb, reflect.ValueOf(decoded), ancestors)
	return true
}

func callMarshaler(m json.Marshaler) (raw []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("marshaler panicked: %v", r)
		}
	}()
	return m.MarshalJSON()
}

func writeMap(sb *strings.Builder, val reflect.Value, ancestors []uintptr) {
	type entry struct {
		key   string
		value reflect.Value
	}

	entries := make([]entry, 0, val.Len())
	iter := val.MapRange()
	for iter.Next() {
		entries = append(entries, entry{key: mapKeyString(iter.Key()), value: iter.Value()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	sb.WriteByte('{')
	first := true
	for _, e := range entries {
		if !serializable(e.value) {
			continue
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false
		writeString(sb, e.key)
		sb.WriteByte(':')
		writeValue(sb, e.value, ancestors)
	}
	sb.WriteByte('}')
}

func writeStruct(sb *strings.Builder, val reflect.Value, ancestors []uintptr) {
	t := val.Type()

	type entry struct {
		key   string
		value reflect.Value
	}
	entries := make([]entry, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		entries = append(entries, entry{key: name, value: val.Field(i)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	sb.WriteByte('{')
	first := true
	for _, e := range entries {
		if !serializable(e.value) {
			continue
		}
		if !first {
			sb.WriteByte(',')
		}
		first = false
		writeString(sb, e.key)
		sb.WriteByte(':')
		writeValue(sb, e.value, ancestors)
	}
	sb.WriteByte('}')
}

func writeArray(sb *strings.Builder, val reflect.Value, ancestors []uintptr) {
	sb.WriteByte('[')
	for i := 0; i < val.Len(); i++ {
		if i > 0 {
			sb.WriteByte(',')
		}
		elem := val.Index(i)
		if !serializable(elem) {
			sb.WriteString("null")
			continue
		}
		writeValue(sb, elem, ancestors)
	}
	sb.WriteByte(']')
}

// serializable reports whether a value has a JSON representation. Functions
// and channels do not; they are omitted from objects and null in arrays.
func serializable(val reflect.Value) bool {
	for val.IsValid() && (val.Kind() == reflect.Interface || val.Kind() == reflect.Pointer) {
		if val.IsNil() {
			return true
		}
		val = val.Elem()
	}
	if !val.IsValid() {
		return true
	}
	switch val.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return false
	}
	return true
}

func isAncestor(ancestors []uintptr, id uintptr) bool {
	for _, a := range ancestors {
		if a == id {
			return true
		}
	}
	return false
}

func mapKeyString(key reflect.Value) string {
	switch key.Kind() {
	case reflect.String:
		return key.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(key.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(key.Uint(), 10)
	default:
		return fmt.Sprintf("%v", key.Interface())
	}
}

func writeString(sb *strings.Builder, s string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		sb.WriteString(`""`)
		return
	}
	sb.WriteString(strings.TrimSuffix(buf.String(), "\n"))
}

func writeFloat(sb *strings.Builder, f float64) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		sb.WriteString("null")
		return
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		sb.WriteString(strconv.FormatInt(int64(f), 10))
		return
	}
	sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}
