package writer

import (
	"sort"

	"github.com/Marisada/krilla/ir/raw"
)

// renumber assigns final object numbers by a deterministic depth-first
// walk from the given roots and rewrites every reference accordingly.
// Allocation order during the build then has no effect on the output, so
// parallel and sequential builds produce identical bytes.
func renumber(indirects []raw.Indirect, roots ...raw.ObjectRef) ([]raw.Indirect, map[raw.ObjectRef]raw.ObjectRef) {
	byRef := make(map[raw.ObjectRef]raw.Object, len(indirects))
	for _, ind := range indirects {
		byRef[ind.Ref] = ind.Obj
	}

	mapping := make(map[raw.ObjectRef]raw.ObjectRef, len(indirects))
	next := 1

	var visit func(ref raw.ObjectRef)
	visit = func(ref raw.ObjectRef) {
		if _, done := mapping[ref]; done {
			return
		}
		obj, ok := byRef[ref]
		if !ok {
			return
		}
		mapping[ref] = raw.ObjectRef{Num: next}
		next++
		walkRefs(obj, visit)
	}
	for _, root := range roots {
		visit(root)
	}
	// Anything unreachable from the roots keeps relative order at the end.
	for _, ind := range indirects {
		if _, done := mapping[ind.Ref]; !done {
			mapping[ind.Ref] = raw.ObjectRef{Num: next}
			next++
		}
	}

	out := make([]raw.Indirect, 0, len(indirects))
	for _, ind := range indirects {
		out = append(out, raw.Indirect{
			Ref: mapping[ind.Ref],
			Obj: rewriteRefs(ind.Obj, mapping),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ref.Num < out[j].Ref.Num })
	return out, mapping
}

// walkRefs calls visit for every reference inside obj, dictionaries in
// sorted key order, arrays in element order.
func walkRefs(obj raw.Object, visit func(raw.ObjectRef)) {
	switch o := obj.(type) {
	case raw.RefObj:
		visit(o.R)
	case *raw.ArrayObj:
		for _, item := range o.Items {
			walkRefs(item, visit)
		}
	case *raw.DictObj:
		keys := make([]string, 0, len(o.KV))
		for k := range o.KV {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walkRefs(o.KV[k], visit)
		}
	case *raw.StreamObj:
		if o.Dict != nil {
			walkRefs(o.Dict, visit)
		}
	}
}

func rewriteRefs(obj raw.Object, mapping map[raw.ObjectRef]raw.ObjectRef) raw.Object {
	switch o := obj.(type) {
	case raw.RefObj:
		if mapped, ok := mapping[o.R]; ok {
			return raw.RefObj{R: mapped}
		}
		return o
	case *raw.ArrayObj:
		items := make([]raw.Object, len(o.Items))
		for i, item := range o.Items {
			items[i] = rewriteRefs(item, mapping)
		}
		return &raw.ArrayObj{Items: items}
	case *raw.DictObj:
		dict := raw.Dict()
		for k, v := range o.KV {
			dict.Set(k, rewriteRefs(v, mapping))
		}
		return dict
	case *raw.StreamObj:
		clone := &raw.StreamObj{Data: o.Data, Filter: o.Filter}
		if o.Dict != nil {
			clone.Dict = rewriteRefs(o.Dict, mapping).(*raw.DictObj)
		}
		return clone
	default:
		return obj
	}
}
