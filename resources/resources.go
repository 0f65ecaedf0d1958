// Package resources assigns local names to the indirect objects a content
// stream references and renders them as a page resource dictionary.
package resources

import (
	"sort"
	"strconv"

	"github.com/Marisada/krilla/ir/raw"
)

// Kind selects the resource dictionary a name is registered under.
type Kind int

const (
	Font Kind = iota
	XObject
	ExtGState
	numKinds
)

func (k Kind) prefix() string {
	switch k {
	case Font:
		return "F"
	case XObject:
		return "X"
	case ExtGState:
		return "G"
	}
	return "R"
}

func (k Kind) dictKey() string {
	switch k {
	case Font:
		return "Font"
	case XObject:
		return "XObject"
	case ExtGState:
		return "ExtGState"
	}
	return "Other"
}

// Mapper hands out stable local names (F0, X0, G0, ...) for indirect
// objects. Registering the same reference twice returns the same name, so a
// page that paints one image many times declares it once.
type Mapper struct {
	names  [numKinds]map[raw.ObjectRef]string
	counts [numKinds]int
}

func NewMapper() *Mapper {
	m := &Mapper{}
	for k := range m.names {
		m.names[k] = make(map[raw.ObjectRef]string)
	}
	return m
}

// Register returns the local name for ref, assigning the next free one on
// first use.
func (m *Mapper) Register(kind Kind, ref raw.ObjectRef) string {
	if name, ok := m.names[kind][ref]; ok {
		return name
	}
	name := kind.prefix() + strconv.Itoa(m.counts[kind])
	m.counts[kind]++
	m.names[kind][ref] = name
	return name
}

// Len reports the number of registered resources across all kinds.
func (m *Mapper) Len() int {
	n := 0
	for _, names := range m.names {
		n += len(names)
	}
	return n
}

// Dict renders the accumulated names as a page /Resources dictionary.
// Sub-dictionaries appear only for kinds that were used; entries are emitted
// in name order so output is deterministic.
func (m *Mapper) Dict() *raw.DictObj {
	res := raw.Dict()
	for kind := Kind(0); kind < numKinds; kind++ {
		if len(m.names[kind]) == 0 {
			continue
		}
		type entry struct {
			name string
			ref  raw.ObjectRef
		}
		entries := make([]entry, 0, len(m.names[kind]))
		for ref, name := range m.names[kind] {
			entries = append(entries, entry{name, ref})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })

		sub := raw.Dict()
		for _, e := range entries {
			sub.Set(e.name, raw.RefObj{R: e.ref})
		}
		res.Set(kind.dictKey(), sub)
	}
	return res
}
