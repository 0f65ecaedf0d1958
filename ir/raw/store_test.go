package raw

import (
	"errors"
	"sync"
	"testing"
)

func TestStoreAllocateMonotonic(t *testing.T) {
	s := NewStore()
	prev := 0
	for i := 0; i < 100; i++ {
		ref := s.Allocate()
		if ref.Num <= prev {
			t.Fatalf("allocation not monotonic: got %d after %d", ref.Num, prev)
		}
		prev = ref.Num
	}
}

func TestStoreAllocateConcurrent(t *testing.T) {
	s := NewStore()
	const n = 64
	refs := make([]ObjectRef, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			refs[i] = s.Allocate()
		}(i)
	}
	wg.Wait()
	seen := make(map[int]bool)
	for _, ref := range refs {
		if seen[ref.Num] {
			t.Fatalf("reference %d allocated twice", ref.Num)
		}
		seen[ref.Num] = true
	}
}

func TestStoreDuplicateDefine(t *testing.T) {
	s := NewStore()
	ref := s.Allocate()
	d := Dict()
	d.Set("Type", NameLiteral("Page"))
	if err := s.Define(ref, d); err != nil {
		t.Fatalf("first define: %v", err)
	}

	same := Dict()
	same.Set("Type", NameLiteral("Page"))
	if err := s.Define(ref, same); err != nil {
		t.Fatalf("redefining identical content should be tolerated: %v", err)
	}

	other := Dict()
	other.Set("Type", NameLiteral("Catalog"))
	if err := s.Define(ref, other); !errors.Is(err, ErrDuplicateDefinition) {
		t.Fatalf("expected ErrDuplicateDefinition, got %v", err)
	}
}

func TestStoreDefineUnallocated(t *testing.T) {
	s := NewStore()
	if err := s.Define(ObjectRef{Num: 7}, Dict()); err == nil {
		t.Fatal("expected error for unallocated reference")
	}
}

func TestStoreFinalizeDanglingAllocation(t *testing.T) {
	s := NewStore()
	ref := s.Allocate()
	_ = s.Allocate() // never defined
	if err := s.Define(ref, Dict()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Finalize(); !errors.Is(err, ErrDanglingReference) {
		t.Fatalf("expected ErrDanglingReference, got %v", err)
	}
}

func TestStoreFinalizeDanglingReference(t *testing.T) {
	s := NewStore()
	ref := s.Allocate()
	d := Dict()
	d.Set("Kids", NewArray(Ref(99, 0)))
	if err := s.Define(ref, d); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Finalize(); !errors.Is(err, ErrDanglingReference) {
		t.Fatalf("expected ErrDanglingReference, got %v", err)
	}
}

func TestStoreFinalizeOrderAndReuse(t *testing.T) {
	s := NewStore()
	a := s.Allocate()
	b := s.Allocate()
	if err := s.Define(b, NameLiteral("Second")); err != nil {
		t.Fatal(err)
	}
	if err := s.Define(a, NameLiteral("First")); err != nil {
		t.Fatal(err)
	}
	objs, err := s.Finalize()
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 2 || objs[0].Ref != a || objs[1].Ref != b {
		t.Fatalf("unexpected finalize order: %+v", objs)
	}
	if _, err := s.Finalize(); !errors.Is(err, ErrStoreFinalized) {
		t.Fatalf("expected ErrStoreFinalized, got %v", err)
	}
	if err := s.Define(a, Dict()); !errors.Is(err, ErrStoreFinalized) {
		t.Fatalf("expected ErrStoreFinalized on define, got %v", err)
	}
}

func TestEqualStreams(t *testing.T) {
	d1 := Dict()
	d1.Set("Length", NumberInt(3))
	d2 := Dict()
	d2.Set("Length", NumberInt(3))
	if !Equal(NewStream(d1, []byte("abc")), NewStream(d2, []byte("abc"))) {
		t.Fatal("identical streams should compare equal")
	}
	if Equal(NewStream(d1, []byte("abc")), NewStream(d2, []byte("abd"))) {
		t.Fatal("different payloads should not compare equal")
	}
}
