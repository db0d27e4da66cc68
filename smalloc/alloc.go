// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package smalloc

import (
	"github.com/cznic/mathutil"
	"github.com/cznic/sm/region"
	"github.com/cznic/sm/smerr"
)

// Allocate returns a new Block whose payload is at least requested bytes,
// growing the Region if no free block large enough exists. It never
// mutates allocator state on failure.
func (a *Allocator) Allocate(requested uint64) (Block, error) {
	size := maxU64(requested, minFreePayload)

	blk, err := a.popFreeBlock(size)
	if err != nil {
		return Block{}, err
	}

	a.maybeHandleLowMemory()
	return blk, nil
}

// Deallocate marks the block at b.Off free, coalesces it with any free
// neighbors, and registers the result in the appropriate size class. The
// block MUST currently be allocated; InvariantViolation is returned
// otherwise. b.Size is not trusted: takeFromBlock MAY return a block
// whose actual payload exceeds the size a caller requested (internal
// slack, tolerated per spec.md §4.1), so the on-disk header, not b.Size,
// is the authoritative size for the block being freed.
func (a *Allocator) Deallocate(b Block) error {
	payload, free, err := a.readHeader(b.Off)
	if err != nil {
		return err
	}
	if free {
		return &smerr.InvariantViolation{Msg: "deallocate: block is already free"}
	}

	blk := Block{Off: b.Off, Size: payload}
	a.allocatedSize -= totalSize(blk.Size)
	if err := a.pushFreeBlock(blk, true); err != nil {
		return err
	}

	// pushFreeBlock may have grown blk further by absorbing free
	// neighbors; the freeSize credit is always exactly the size being
	// handed in here, since any absorbed neighbor was already counted as
	// free.
	a.freeSize += totalSize(blk.Size)
	return nil
}

// Reallocate resizes b to hold newSize bytes of payload, preferring an
// in-place grow via the forward free neighbor, then an in-place shrink,
// and falling back to allocate-new + copy + deallocate-old. The returned
// Block's first min(b.Size, newSize) payload bytes equal b's.
func (a *Allocator) Reallocate(b Block, newSize uint64) (Block, error) {
	newSize = maxU64(newSize, minFreePayload)

	if newSize <= b.Size {
		return a.shrinkInPlace(b, newSize)
	}

	if grown, ok, err := a.tryReallocateInPlace(b, newSize); err != nil {
		return Block{}, err
	} else if ok {
		return grown, nil
	}

	newBlk, err := a.Allocate(newSize)
	if err != nil {
		return Block{}, err
	}

	buf := make([]byte, mathutil.MinUint64(b.Size, newSize))
	if err := a.ReadPayload(b, 0, buf); err != nil {
		return Block{}, err
	}
	if err := a.WritePayload(newBlk, 0, buf); err != nil {
		return Block{}, err
	}
	if err := a.Deallocate(b); err != nil {
		return Block{}, err
	}
	return newBlk, nil
}

// shrinkInPlace handles Reallocate when newSize <= b.Size: either leaves
// b untouched (remainder too small to split off) or splits off the tail
// as a new free block.
func (a *Allocator) shrinkInPlace(b Block, newSize uint64) (Block, error) {
	if b.Size-newSize < BlockMinTotalSize {
		return b, nil
	}

	remOff := b.Off + totalSize(newSize)
	remPayload := b.Size - newSize - 2*MetaSize

	if err := a.markBlock(b.Off, newSize, false); err != nil {
		return Block{}, err
	}
	a.allocatedSize = a.allocatedSize - totalSize(b.Size) + totalSize(newSize)

	if err := a.pushFreeBlock(Block{Off: remOff, Size: remPayload}, true); err != nil {
		return Block{}, err
	}
	a.freeSize += totalSize(remPayload)

	return Block{Off: b.Off, Size: newSize}, nil
}

// tryReallocateInPlace implements the forward-neighbor-absorption growth
// path described in spec.md §4.1. ok is false, with b untouched, when the
// forward neighbor does not exist, is not free, or is too small.
func (a *Allocator) tryReallocateInPlace(b Block, newSize uint64) (grown Block, ok bool, err error) {
	nextOff := b.Off + totalSize(b.Size)
	if nextOff >= a.maxPtr {
		return Block{}, false, nil
	}

	payload, free, err := a.readHeader(nextOff)
	if err != nil {
		return Block{}, false, err
	}
	if !free || b.Size+payload+2*MetaSize < newSize {
		return Block{}, false, nil
	}

	if err := a.ejectFromFreeList(classOf(payload), nextOff); err != nil {
		return Block{}, false, err
	}
	a.freeSize -= totalSize(payload)

	combined := b.Size + payload + 2*MetaSize
	if combined > newSize+BlockMinTotalSize {
		remOff := b.Off + totalSize(newSize)
		remPayload := combined - newSize - 2*MetaSize

		if err := a.markBlock(b.Off, newSize, false); err != nil {
			return Block{}, false, err
		}
		a.allocatedSize = a.allocatedSize - totalSize(b.Size) + totalSize(newSize)

		if err := a.pushFreeBlock(Block{Off: remOff, Size: remPayload}, false); err != nil {
			return Block{}, false, err
		}
		a.freeSize += totalSize(remPayload)

		return Block{Off: b.Off, Size: newSize}, true, nil
	}

	if err := a.markBlock(b.Off, combined, false); err != nil {
		return Block{}, false, err
	}
	a.allocatedSize = a.allocatedSize - totalSize(b.Size) + totalSize(combined)

	return Block{Off: b.Off, Size: combined}, true, nil
}

// maybeHandleLowMemory implements the spec's policy hook: when free space
// drops below MaxAllocationPages worth of bytes, attempt a pre-emptive
// grow; if that grow is capped or refused, fire the low-memory callback
// at most once (persisted via lowMemoryFired).
func (a *Allocator) maybeHandleLowMemory() {
	if a.maxAllocationPages == 0 || a.lowMemoryFired {
		return
	}

	threshold := a.maxAllocationPages * region.PageSize
	if a.freeSize >= threshold {
		return
	}

	deficitPages := ceilDivPages(int64(threshold - a.freeSize))
	if deficitPages == 0 {
		return
	}

	if a.maxGrowPages != 0 && a.grownPages+uint64(deficitPages) > a.maxGrowPages {
		a.fireLowMemory()
		return
	}

	prevPages, err := a.r.Grow(deficitPages)
	if err != nil {
		a.fireLowMemory()
		return
	}
	a.grownPages += uint64(deficitPages)

	newOff := uint64(prevPages) * uint64(region.PageSize)
	a.maxPtr = uint64(prevPages+deficitPages) * uint64(region.PageSize)

	grownPayload := uint64(deficitPages)*uint64(region.PageSize) - 2*MetaSize
	if err := a.pushFreeBlock(Block{Off: newOff, Size: grownPayload}, true); err == nil {
		a.freeSize += totalSize(grownPayload)
	}
}

func (a *Allocator) fireLowMemory() {
	a.lowMemoryFired = true
	if a.onLowMemory != nil {
		a.onLowMemory()
	}
}
