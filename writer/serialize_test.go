package writer

import (
	"bytes"
	"testing"

	"github.com/Marisada/krilla/ir/raw"
)

func render(t *testing.T, obj raw.Object) string {
	t.Helper()
	var buf bytes.Buffer
	if err := serializeObject(&buf, obj); err != nil {
		t.Fatalf("serializeObject failed: %v", err)
	}
	return buf.String()
}

func TestSerializePrimitives(t *testing.T) {
	cases := []struct {
		obj  raw.Object
		want string
	}{
		{raw.NullObj{}, "null"},
		{raw.Bool(true), "true"},
		{raw.Bool(false), "false"},
		{raw.NumberInt(-42), "-42"},
		{raw.NumberFloat(1.5), "1.5"},
		{raw.NumberFloat(2.0), "2"},
		{raw.NameLiteral("Type"), "/Type"},
		{raw.NameLiteral("With Space"), "/With#20Space"},
		{raw.Str([]byte("a(b)c")), `(a\(b\)c)`},
		{raw.Str([]byte("line\nnext")), `(line\nnext)`},
		{raw.HexStr([]byte{0xDE, 0xAD}), "<DEAD>"},
		{raw.RefObj{R: raw.ObjectRef{Num: 12}}, "12 0 R"},
		{raw.NewArray(raw.NumberInt(1), raw.NameLiteral("Two")), "[1 /Two]"},
	}
	for _, tc := range cases {
		if got := render(t, tc.obj); got != tc.want {
			t.Errorf("serialize %#v = %q, want %q", tc.obj, got, tc.want)
		}
	}
}

func TestSerializeDictSortedKeys(t *testing.T) {
	d := raw.Dict()
	d.Set("Zebra", raw.NumberInt(1))
	d.Set("Alpha", raw.NumberInt(2))
	d.Set("Mid", raw.NumberInt(3))
	want := "<< /Alpha 2 /Mid 3 /Zebra 1 >>"
	if got := render(t, d); got != want {
		t.Errorf("dict = %q, want %q", got, want)
	}
}

func TestSerializeStream(t *testing.T) {
	dict := raw.Dict()
	dict.Set("K", raw.NumberInt(7))
	s := raw.NewStream(dict, []byte("hello"))
	got := render(t, s)
	want := "<< /K 7 /Length 5 >>\nstream\nhello\nendstream"
	if got != want {
		t.Errorf("stream = %q, want %q", got, want)
	}
	if _, ok := dict.Get("Length"); ok {
		t.Error("serialization mutated the caller's dictionary")
	}
}

func TestSerializeStreamFilterName(t *testing.T) {
	s := raw.NewStream(raw.Dict(), []byte{1, 2, 3})
	s.Filter = "FlateDecode"
	got := render(t, s)
	if want := "/Filter /FlateDecode"; !bytes.Contains([]byte(got), []byte(want)) {
		t.Errorf("stream missing %q: %q", want, got)
	}
}

func TestRenumberDeterministicOrder(t *testing.T) {
	// Objects allocated in one order, referenced in another: final numbers
	// follow the traversal from the root, not allocation order.
	leafA := raw.ObjectRef{Num: 50}
	leafB := raw.ObjectRef{Num: 3}
	rootRef := raw.ObjectRef{Num: 20}

	root := raw.Dict()
	root.Set("First", raw.RefObj{R: leafB})
	root.Set("Second", raw.RefObj{R: leafA})

	indirects := []raw.Indirect{
		{Ref: leafA, Obj: raw.NumberInt(1)},
		{Ref: leafB, Obj: raw.NumberInt(2)},
		{Ref: rootRef, Obj: root},
	}
	out, mapping := renumber(indirects, rootRef)

	if got := mapping[rootRef].Num; got != 1 {
		t.Errorf("root renumbered to %d, want 1", got)
	}
	if got := mapping[leafB].Num; got != 2 {
		t.Errorf("leafB renumbered to %d, want 2 (visited via sorted key First)", got)
	}
	if got := mapping[leafA].Num; got != 3 {
		t.Errorf("leafA renumbered to %d, want 3", got)
	}
	rewritten := out[0].Obj.(*raw.DictObj)
	first, _ := rewritten.Get("First")
	if ref := first.(raw.RefObj); ref.R.Num != 2 {
		t.Errorf("rewritten First = %d, want 2", ref.R.Num)
	}
}
