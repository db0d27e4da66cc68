// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package smalloc

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/cznic/sm/region"
)

func newTestAllocator(t *testing.T, maxGrowPages uint64) (*Allocator, region.Region) {
	t.Helper()
	r := region.NewMemRegion()
	if _, err := r.Grow(1); err != nil {
		t.Fatal(err)
	}

	a, err := Init(r, 0, 0, maxGrowPages, nil)
	if err != nil {
		t.Fatal(err)
	}
	return a, r
}

// Scenario 1: alloc/free stress.
func TestAllocFreeStress(t *testing.T) {
	a, _ := newTestAllocator(t, 0)

	var blocks []Block
	for i := 0; i < 1024; i++ {
		b, err := a.Allocate(1024)
		if err != nil {
			t.Fatalf("allocate %d: %v", i, err)
		}
		blocks = append(blocks, b)
	}
	if a.AllocatedSize() < 1_048_576 {
		t.Fatalf("allocatedSize = %d, want >= 1048576", a.AllocatedSize())
	}

	for i, b := range blocks {
		nb, err := a.Reallocate(b, 2048)
		if err != nil {
			t.Fatalf("reallocate %d: %v", i, err)
		}
		blocks[i] = nb
	}
	if a.AllocatedSize() < 2_097_152 {
		t.Fatalf("allocatedSize after grow = %d, want >= 2097152", a.AllocatedSize())
	}

	for _, b := range blocks {
		if err := a.Deallocate(b); err != nil {
			t.Fatal(err)
		}
	}
	if a.AllocatedSize() != 0 {
		t.Fatalf("allocatedSize after freeing all = %d, want 0", a.AllocatedSize())
	}

	n, err := a.FreeBlockCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("free block count = %d, want 1 (fully coalesced)", n)
	}

	if err := a.Verify(); err != nil {
		t.Fatal(err)
	}
}

// Scenario 2: allocator persistence round-trip.
func TestAllocatorPersistenceRoundTrip(t *testing.T) {
	r := region.NewMemRegion()
	if _, err := r.Grow(1); err != nil {
		t.Fatal(err)
	}

	a, err := Init(r, 0, 0, 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	b1, err := a.Allocate(100)
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Store(); err != nil {
		t.Fatal(err)
	}

	a2, err := Reinit(r, 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	b2, err := a2.Allocate(100)
	if err != nil {
		t.Fatal(err)
	}
	b3, err := a2.Allocate(100)
	if err != nil {
		t.Fatal(err)
	}
	if err := a2.Deallocate(b3); err != nil {
		t.Fatal(err)
	}

	want := totalSize(b1.Size) + totalSize(b2.Size)
	if got := a2.AllocatedSize(); got != want {
		t.Fatalf("allocatedSize = %d, want %d", got, want)
	}

	// b1's offset must be unchanged across the reinit: re-reading its
	// header through a2 must see the same size at the same offset.
	payload, free, err := a2.readHeader(b1.Off)
	if err != nil {
		t.Fatal(err)
	}
	if free || payload != b1.Size {
		t.Fatalf("b1 at offset %d no longer intact after reinit", b1.Off)
	}
}

// Scenario 5: coalescing A, then C, then B restores a single block.
func TestCoalescingThreeAdjacentBlocks(t *testing.T) {
	a, _ := newTestAllocator(t, 0)

	blkA, err := a.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}
	blkB, err := a.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}
	blkC, err := a.Allocate(64)
	if err != nil {
		t.Fatal(err)
	}

	if err := a.Deallocate(blkA); err != nil {
		t.Fatal(err)
	}
	if err := a.Deallocate(blkC); err != nil {
		t.Fatal(err)
	}
	if err := a.Deallocate(blkB); err != nil {
		t.Fatal(err)
	}

	n, err := a.FreeBlockCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("free block count = %d, want 1", n)
	}

	if err := a.Verify(); err != nil {
		t.Fatal(err)
	}
}

// Scenario 6: in-place reallocation absorbs a free forward neighbor.
func TestReallocateInPlace(t *testing.T) {
	a, _ := newTestAllocator(t, 0)

	blkA, err := a.Allocate(256)
	if err != nil {
		t.Fatal(err)
	}
	blkB, err := a.Allocate(1024)
	if err != nil {
		t.Fatal(err)
	}

	if err := a.Deallocate(blkB); err != nil {
		t.Fatal(err)
	}

	grown, err := a.Reallocate(blkA, 512)
	if err != nil {
		t.Fatal(err)
	}
	if grown.Off != blkA.Off {
		t.Fatalf("reallocate relocated block: got offset %d, want %d", grown.Off, blkA.Off)
	}
	if grown.Size < 512 {
		t.Fatalf("grown payload = %d, want >= 512", grown.Size)
	}
}

func TestReallocatePreservesContent(t *testing.T) {
	a, _ := newTestAllocator(t, 0)

	b, err := a.Allocate(32)
	if err != nil {
		t.Fatal(err)
	}

	payload := bytes.Repeat([]byte{0xAB}, 32)
	if err := a.WritePayload(b, 0, payload); err != nil {
		t.Fatal(err)
	}

	grown, err := a.Reallocate(b, 4096)
	if err != nil {
		t.Fatal(err)
	}

	got := make([]byte, 32)
	if err := a.ReadPayload(grown, 0, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload not preserved across reallocate: got %x", got)
	}
}

func TestOutOfMemoryWhenGrowCapped(t *testing.T) {
	a, _ := newTestAllocator(t, 1)

	if _, err := a.Allocate(region.PageSize * 4); err == nil {
		t.Fatal("expected OutOfMemory when MaxGrowPages is exceeded")
	}
}

func TestRandomAllocDeallocInvariantsHold(t *testing.T) {
	a, _ := newTestAllocator(t, 0)
	rng := rand.New(rand.NewSource(42))

	var live []Block
	for i := 0; i < 2000; i++ {
		if len(live) > 0 && rng.Intn(3) == 0 {
			idx := rng.Intn(len(live))
			if err := a.Deallocate(live[idx]); err != nil {
				t.Fatal(err)
			}
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
			continue
		}

		sz := uint64(8 + rng.Intn(4096))
		b, err := a.Allocate(sz)
		if err != nil {
			t.Fatal(err)
		}
		live = append(live, b)

		if i%97 == 0 {
			if err := a.Verify(); err != nil {
				t.Fatalf("verify failed at step %d: %v", i, err)
			}
		}
	}

	if err := a.Verify(); err != nil {
		t.Fatal(err)
	}
}
