// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sbtree

import (
	"math/rand"
	"testing"

	"github.com/cznic/sm/codec"
	"github.com/cznic/sm/region"
	"github.com/cznic/sm/smalloc"
)

func newTestTree(t *testing.T) *Map[uint64, uint64] {
	t.Helper()
	r := region.NewMemRegion()
	if _, err := r.Grow(1); err != nil {
		t.Fatal(err)
	}
	a, err := smalloc.Init(r, 0, 0, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	return New[uint64, uint64](a, codec.Uint64Codec{}, codec.Uint64Codec{})
}

func shuffled(n int, seed int64) []uint64 {
	rng := rand.New(rand.NewSource(seed))
	keys := make([]uint64, n)
	for i := range keys {
		keys[i] = uint64(i)
	}
	rng.Shuffle(n, func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })
	return keys
}

// Scenario 3: tree random insert/remove stress.
func TestRandomInsertRemove(t *testing.T) {
	const n = 300
	m := newTestTree(t)

	insertOrder := shuffled(n, 1)
	inserted := map[uint64]bool{}

	for _, k := range insertOrder {
		if _, had, err := m.Insert(k, k); err != nil {
			t.Fatalf("insert %d: %v", k, err)
		} else if had {
			t.Fatalf("insert %d: unexpectedly had previous value", k)
		}
		inserted[k] = true

		for prev := range inserted {
			v, ok, err := m.Get(prev)
			if err != nil {
				t.Fatalf("get %d after inserting %d: %v", prev, k, err)
			}
			if !ok || v != prev {
				t.Fatalf("get %d after inserting %d = (%d, %v), want (%d, true)", prev, k, v, ok, prev)
			}
		}
	}
	if m.Len() != n {
		t.Fatalf("len = %d, want %d", m.Len(), n)
	}

	removeOrder := shuffled(n, 2)
	removed := map[uint64]bool{}

	for _, k := range removeOrder {
		if _, had, err := m.Remove(k); err != nil {
			t.Fatalf("remove %d: %v", k, err)
		} else if !had {
			t.Fatalf("remove %d: expected present", k)
		}
		removed[k] = true

		for other := uint64(0); other < n; other++ {
			ok, err := m.Contains(other)
			if err != nil {
				t.Fatalf("contains %d after removing %d: %v", other, k, err)
			}
			want := !removed[other]
			if ok != want {
				t.Fatalf("contains(%d) after removing %d = %v, want %v", other, k, ok, want)
			}
		}
	}
	if !m.IsEmpty() {
		t.Fatalf("len after removing everything = %d, want 0", m.Len())
	}
	if m.Root() != smalloc.EmptyPtr {
		t.Fatalf("root after removing everything = %d, want smalloc.EmptyPtr (leaked empty root block)", m.Root())
	}
}

// Scenario 4: tree ordered forward/reverse iteration.
func TestOrderedIteration(t *testing.T) {
	const n = 200
	m := newTestTree(t)

	for _, k := range shuffled(n, 3) {
		if _, _, err := m.Insert(k, k); err != nil {
			t.Fatal(err)
		}
	}

	it := m.Iter()
	for want := uint64(0); want < n; want++ {
		k, v, ok, err := it.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("forward iter ended early at %d", want)
		}
		if k != want || v != want {
			t.Fatalf("forward iter = (%d, %d), want (%d, %d)", k, v, want, want)
		}
	}
	if _, _, ok, err := it.Next(); err != nil || ok {
		t.Fatalf("forward iter did not end: ok=%v err=%v", ok, err)
	}

	rit := m.Rev()
	for want := int64(n - 1); want >= 0; want-- {
		k, v, ok, err := rit.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Fatalf("reverse iter ended early at %d", want)
		}
		if k != uint64(want) || v != uint64(want) {
			t.Fatalf("reverse iter = (%d, %d), want (%d, %d)", k, v, want, want)
		}
	}
	if _, _, ok, err := rit.Next(); err != nil || ok {
		t.Fatalf("reverse iter did not end: ok=%v err=%v", ok, err)
	}
}

func TestOverwriteReturnsPrevious(t *testing.T) {
	m := newTestTree(t)

	if _, had, err := m.Insert(1, 100); err != nil || had {
		t.Fatalf("first insert: had=%v err=%v", had, err)
	}
	prev, had, err := m.Insert(1, 200)
	if err != nil {
		t.Fatal(err)
	}
	if !had || prev != 100 {
		t.Fatalf("overwrite insert = (%d, %v), want (100, true)", prev, had)
	}
	if m.Len() != 1 {
		t.Fatalf("len = %d, want 1", m.Len())
	}
}

func TestRemoveMissing(t *testing.T) {
	m := newTestTree(t)
	if _, had, err := m.Remove(42); err != nil || had {
		t.Fatalf("remove from empty tree: had=%v err=%v", had, err)
	}
}
