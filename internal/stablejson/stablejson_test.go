package stablejson

import (
	"errors"
	"testing"
)

func TestSerialize_SortsMapKeysAtEveryLevel(t *testing.T) {
	v := map[string]any{
		"zebra": 1,
		"alpha": map[string]any{"z": true, "a": false},
	}

	got := Serialize(v)
	want := `{"alpha":{"a":false,"z":true},"zebra":1}`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSerialize_SameContentDifferentInsertionOrderIsEqual(t *testing.T) {
	a := map[string]any{"x": 1, "y": 2, "z": 3}
	b := map[string]any{"z": 3, "x": 1, "y": 2}

	if Serialize(a) != Serialize(b) {
		t.Fatalf("expected identical output, got %q vs %q", Serialize(a), Serialize(b))
	}
}

func TestSerialize_CyclicMapTerminatesWithMarker(t *testing.T) {
	v := map[string]any{"name": "root"}
	v["self"] = v

	got := Serialize(v)
	want := `{"name":"root","self":"[Circular]"}`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSerialize_CyclicSliceTerminates(t *testing.T) {
	v := make([]any, 2)
	v[0] = "first"
	v[1] = v

	got := Serialize(v)
	want := `["first","[Circular]"]`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSerialize_SharedNonCyclicValueIsNotMarkedCircular(t *testing.T) {
	shared := map[string]any{"k": 1}
	v := map[string]any{"a": shared, "b": shared}

	got := Serialize(v)
	want := `{"a":{"k":1},"b":{"k":1}}`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSerialize_FunctionsOmittedFromObjectsNullInArrays(t *testing.T) {
	fn := func() {}
	obj := map[string]any{"cmd": "ls", "hook": fn}
	arr := []any{"ls", fn}

	if got, want := Serialize(obj), `{"cmd":"ls"}`; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
	if got, want := Serialize(arr), `["ls",null]`; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSerialize_StructFieldsUseJSONTagsAndSort(t *testing.T) {
	type input struct {
		Command string `json:"command"`
		WorkDir string `json:"working_dir"`
		hidden  int
	}

	got := Serialize(input{Command: "git status", WorkDir: "/tmp", hidden: 7})
	want := `{"command":"git status","working_dir":"/tmp"}`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

type goodMarshaler struct{}

func (goodMarshaler) MarshalJSON() ([]byte, error) {
	return []byte(`{"z":1,"a":2}`), nil
}

type badMarshaler struct {
	Fallback string `json:"fallback"`
}

func (badMarshaler) MarshalJSON() ([]byte, error) {
	return nil, errors.New("boom")
}

type panicMarshaler struct {
	Value int `json:"value"`
}

func (panicMarshaler) MarshalJSON() ([]byte, error) {
	panic("no")
}

func TestSerialize_CustomMarshalerHonoredWithSortedKeys(t *testing.T) {
	got := Serialize(goodMarshaler{})
	want := `{"a":2,"z":1}`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSerialize_FailingMarshalerFallsBackToStructural(t *testing.T) {
	got := Serialize(badMarshaler{Fallback: "yes"})
	want := `{"fallback":"yes"}`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSerialize_PanickingMarshalerDoesNotPropagate(t *testing.T) {
	got := Serialize(panicMarshaler{Value: 3})
	want := `{"value":3}`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSerialize_Scalars(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, "null"},
		{true, "true"},
		{42, "42"},
		{3.5, "3.5"},
		{float64(7), "7"},
		{"quote\"me", `"quote\"me"`},
	}
	for _, tc := range cases {
		if got := Serialize(tc.in); got != tc.want {
			t.Fatalf("Serialize(%v): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestSerialize_ShellMetacharactersAreNotEscaped(t *testing.T) {
	got := Serialize(map[string]any{"command": "echo hi > f && cat < in"})
	want := `{"command":"echo hi > f && cat < in"}`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSerialize_NilPointerAndNilMap(t *testing.T) {
	var m map[string]int
	var p *int

	if got := Serialize(m); got != "null" {
		t.Fatalf("expected null for nil map, got %q", got)
	}
	if got := Serialize(p); got != "null" {
		t.Fatalf("expected null for nil pointer, got %q", got)
	}
}
