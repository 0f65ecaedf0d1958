package raw

import "bytes"

// Equal reports structural equality of two objects. Integer and float
// numbers compare equal only if both representation and value match, so a
// rewritten object with a different numeric form counts as a conflict.
func Equal(a, b Object) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Type() != b.Type() {
		return false
	}
	switch x := a.(type) {
	case NameObj:
		return x.Val == b.(NameObj).Val
	case NumberObj:
		y := b.(NumberObj)
		if x.IsInt != y.IsInt {
			return false
		}
		if x.IsInt {
			return x.I == y.I
		}
		return x.F == y.F
	case BoolObj:
		return x.V == b.(BoolObj).V
	case NullObj:
		return true
	case StringObj:
		y := b.(StringObj)
		return x.Hex == y.Hex && bytes.Equal(x.Bytes, y.Bytes)
	case RefObj:
		return x.R == b.(RefObj).R
	case *ArrayObj:
		y := b.(*ArrayObj)
		if len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	case *DictObj:
		y := b.(*DictObj)
		if len(x.KV) != len(y.KV) {
			return false
		}
		for k, v := range x.KV {
			w, ok := y.KV[k]
			if !ok || !Equal(v, w) {
				return false
			}
		}
		return true
	case *StreamObj:
		y := b.(*StreamObj)
		if x.Filter != y.Filter || !bytes.Equal(x.Data, y.Data) {
			return false
		}
		if x.Dict == nil || y.Dict == nil {
			return x.Dict == nil && y.Dict == nil
		}
		return Equal(x.Dict, y.Dict)
	}
	return false
}
