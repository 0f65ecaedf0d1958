package raw

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDuplicateDefinition reports a second Define for the same reference
	// with conflicting content.
	ErrDuplicateDefinition = errors.New("raw: duplicate object definition")

	// ErrDanglingReference reports a reference to an object that was never
	// defined, detected at finalization.
	ErrDanglingReference = errors.New("raw: dangling object reference")

	// ErrStoreFinalized reports use of a store after Finalize.
	ErrStoreFinalized = errors.New("raw: store already finalized")
)

// Indirect pairs a reference with its defined object.
type Indirect struct {
	Ref ObjectRef
	Obj Object
}

// Store allocates indirect object references and owns every object defined
// against them. Allocate and Define are safe for concurrent use; all work
// under the lock is cheap, heavy payloads are built before Define is called.
type Store struct {
	mu        sync.Mutex
	next      int
	objects   map[ObjectRef]Object
	finalized bool
}

func NewStore() *Store {
	return &Store{next: 1, objects: make(map[ObjectRef]Object)}
}

// Allocate returns a fresh reference. References are monotonic and never
// reused for the lifetime of the store.
func (s *Store) Allocate() ObjectRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := ObjectRef{Num: s.next, Gen: 0}
	s.next++
	return ref
}

// Define binds an object to a previously allocated reference. Defining the
// same reference twice is tolerated only if the content is identical.
func (s *Store) Define(ref ObjectRef, obj Object) error {
	if obj == nil {
		return fmt.Errorf("raw: define %s: nil object", ref)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return ErrStoreFinalized
	}
	if ref.Num <= 0 || ref.Num >= s.next {
		return fmt.Errorf("raw: define %s: reference was never allocated", ref)
	}
	if prev, ok := s.objects[ref]; ok {
		if !Equal(prev, obj) {
			return fmt.Errorf("%w: %s", ErrDuplicateDefinition, ref)
		}
		return nil
	}
	s.objects[ref] = obj
	return nil
}

// Len returns the number of defined objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

// Finalize verifies that every allocated reference and every reference
// reachable from any defined object resolves to a defined object, then
// returns all objects ordered by object number. The store cannot be used
// afterwards.
func (s *Store) Finalize() ([]Indirect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finalized {
		return nil, ErrStoreFinalized
	}

	for num := 1; num < s.next; num++ {
		ref := ObjectRef{Num: num, Gen: 0}
		if _, ok := s.objects[ref]; !ok {
			return nil, fmt.Errorf("%w: %s allocated but never defined", ErrDanglingReference, ref)
		}
	}
	for ref, obj := range s.objects {
		if bad, ok := firstUnresolved(obj, s.objects); ok {
			return nil, fmt.Errorf("%w: %s referenced from %s", ErrDanglingReference, bad, ref)
		}
	}

	out := make([]Indirect, 0, len(s.objects))
	for num := 1; num < s.next; num++ {
		ref := ObjectRef{Num: num, Gen: 0}
		out = append(out, Indirect{Ref: ref, Obj: s.objects[ref]})
	}
	s.finalized = true
	s.objects = nil
	return out, nil
}

func firstUnresolved(obj Object, defined map[ObjectRef]Object) (ObjectRef, bool) {
	switch t := obj.(type) {
	case RefObj:
		if _, ok := defined[t.R]; !ok {
			return t.R, true
		}
	case *ArrayObj:
		for _, item := range t.Items {
			if bad, ok := firstUnresolved(item, defined); ok {
				return bad, true
			}
		}
	case *DictObj:
		for _, v := range t.KV {
			if bad, ok := firstUnresolved(v, defined); ok {
				return bad, true
			}
		}
	case *StreamObj:
		if t.Dict != nil {
			return firstUnresolved(t.Dict, defined)
		}
	}
	return ObjectRef{}, false
}
