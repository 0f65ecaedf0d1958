package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Marisada/krilla/ir/raw"
)

func TestKeyDiscriminatesFields(t *testing.T) {
	a := NewKey("image", []byte("ab"), []byte("c"))
	b := NewKey("image", []byte("a"), []byte("bc"))
	if a == b {
		t.Fatal("field boundaries must be part of the key")
	}
	if NewKey("image", []byte("ab")) == NewKey("font", []byte("ab")) {
		t.Fatal("resource kind must be part of the key")
	}
	if NewKey("image", []byte("ab")) != NewKey("image", []byte("ab")) {
		t.Fatal("identical inputs must produce identical keys")
	}
}

func TestKeyWriterMatchesNewKey(t *testing.T) {
	a := NewKey("font", []byte("data"), []byte("params"))
	b := NewKeyWriter("font").Bytes([]byte("data")).Bytes([]byte("params")).Key()
	if a != b {
		t.Fatal("KeyWriter and NewKey must agree")
	}
}

func TestGetOrBuildCachesResult(t *testing.T) {
	c := New()
	key := NewKey("font", []byte("x"))
	calls := 0
	build := func() (raw.ObjectRef, error) {
		calls++
		return raw.ObjectRef{Num: 5}, nil
	}
	ref1, err := c.GetOrBuild(key, build)
	if err != nil {
		t.Fatal(err)
	}
	ref2, err := c.GetOrBuild(key, build)
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("builder invoked %d times, want 1", calls)
	}
	if ref1 != ref2 {
		t.Fatalf("refs differ: %v vs %v", ref1, ref2)
	}
	st := c.Stats()
	if st.Builds != 1 || st.Hits != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestGetOrBuildErrorNotRetained(t *testing.T) {
	c := New()
	key := NewKey("image", []byte("bad"))
	boom := errors.New("decode failed")
	if _, err := c.GetOrBuild(key, func() (raw.ObjectRef, error) {
		return raw.ObjectRef{}, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected build error, got %v", err)
	}
	ref, err := c.GetOrBuild(key, func() (raw.ObjectRef, error) {
		return raw.ObjectRef{Num: 9}, nil
	})
	if err != nil || ref.Num != 9 {
		t.Fatalf("failed build must not poison the key: ref=%v err=%v", ref, err)
	}
}

func TestGetOrBuildSingleFlight(t *testing.T) {
	c := New()
	key := NewKey("font-subset", []byte("shared"))
	var invocations atomic.Int64
	start := make(chan struct{})

	const workers = 32
	refs := make([]raw.ObjectRef, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			refs[i], errs[i] = c.GetOrBuild(key, func() (raw.ObjectRef, error) {
				invocations.Add(1)
				return raw.ObjectRef{Num: 42}, nil
			})
		}(i)
	}
	close(start)
	wg.Wait()

	if got := invocations.Load(); got != 1 {
		t.Fatalf("builder invoked %d times under concurrency, want 1", got)
	}
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if refs[i].Num != 42 {
			t.Fatalf("worker %d observed %v, want object 42", i, refs[i])
		}
	}
}

func TestGetOrBuildRecursiveSubResource(t *testing.T) {
	c := New()
	outer := NewKey("font", []byte("outer"))
	inner := NewKey("font-file", []byte("inner"))
	ref, err := c.GetOrBuild(outer, func() (raw.ObjectRef, error) {
		if _, err := c.GetOrBuild(inner, func() (raw.ObjectRef, error) {
			return raw.ObjectRef{Num: 2}, nil
		}); err != nil {
			return raw.ObjectRef{}, err
		}
		return raw.ObjectRef{Num: 1}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if ref.Num != 1 {
		t.Fatalf("got %v", ref)
	}
	if got, ok := c.Lookup(inner); !ok || got.Num != 2 {
		t.Fatalf("inner resource not cached: %v %v", got, ok)
	}
	if c.Len() != 2 {
		t.Fatalf("want 2 entries, got %d", c.Len())
	}
}
