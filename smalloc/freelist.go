// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package smalloc

import (
	"github.com/cznic/sm/region"
	"github.com/cznic/sm/smerr"
)

// ejectFromFreeList splices the block at blockOff, known to belong to
// class, out of that class's doubly linked list. It handles the three
// positional cases (head, tail, middle) explicitly, rewiring whichever
// neighbor pointers are affected.
func (a *Allocator) ejectFromFreeList(class int, blockOff uint64) error {
	prev, next, err := a.readFreeLinks(blockOff)
	if err != nil {
		return err
	}

	if prev == EmptyPtr {
		a.heads[class] = next
	} else if err := a.writeFreeNext(prev, next); err != nil {
		return err
	}

	if next == EmptyPtr {
		a.tails[class] = prev
	} else if err := a.writeFreePrev(next, prev); err != nil {
		return err
	}

	return nil
}

// appendFreeBlock pushes blk, already sized and positioned, onto the
// tail of its size class's list, without attempting any coalescing.
func (a *Allocator) appendFreeBlock(blk Block) error {
	if err := a.markBlock(blk.Off, blk.Size, true); err != nil {
		return err
	}

	class := classOf(blk.Size)
	tail := a.tails[class]
	if tail == EmptyPtr {
		a.heads[class] = blk.Off
		a.tails[class] = blk.Off
		return a.writeFreeLinks(blk.Off, EmptyPtr, EmptyPtr)
	}

	if err := a.writeFreeNext(tail, blk.Off); err != nil {
		return err
	}
	if err := a.writeFreeLinks(blk.Off, tail, EmptyPtr); err != nil {
		return err
	}
	a.tails[class] = blk.Off
	return nil
}

// pushFreeBlock registers blk as free. When tryMerge is set, it first
// examines the immediate previous and next neighbors (located via the
// previous block's trailer and this block's would-be-next header) and,
// for each that lies in range and is free, ejects it from its class and
// folds it into blk before blk is itself appended to its (possibly now
// larger) class.
func (a *Allocator) pushFreeBlock(blk Block, tryMerge bool) error {
	if tryMerge {
		if blk.Off >= a.minPtr+MetaSize {
			prevTrailerOff := blk.Off - MetaSize
			payload, free, err := a.readSizeField(prevTrailerOff)
			if err != nil {
				return err
			}
			if free {
				prevOff := blk.Off - totalSize(payload)
				if prevOff >= a.minPtr {
					if err := a.ejectFromFreeList(classOf(payload), prevOff); err != nil {
						return err
					}
					blk.Off = prevOff
					blk.Size += payload + 2*MetaSize
				}
			}
		}

		nextOff := blk.Off + totalSize(blk.Size)
		if nextOff < a.maxPtr {
			payload, free, err := a.readHeader(nextOff)
			if err != nil {
				return err
			}
			if free {
				if err := a.ejectFromFreeList(classOf(payload), nextOff); err != nil {
					return err
				}
				blk.Size += payload + 2*MetaSize
			}
		}
	}

	return a.appendFreeBlock(blk)
}

// takeFromBlock carves an allocated block of exactly size bytes out of
// blk, which MUST be free and big enough. If the remainder would be too
// small to stand as a block on its own, the whole of blk is returned
// allocated (internal slack is tolerated); otherwise the remainder is
// split off and pushed back as a new free block.
func (a *Allocator) takeFromBlock(blk Block, size uint64) (Block, error) {
	if blk.Size < size+BlockMinTotalSize {
		if err := a.markBlock(blk.Off, blk.Size, false); err != nil {
			return Block{}, err
		}
		a.allocatedSize += totalSize(blk.Size)
		return blk, nil
	}

	allocBlk := Block{Off: blk.Off, Size: size}
	remBlk := Block{Off: blk.Off + totalSize(size), Size: blk.Size - size - 2*MetaSize}

	if err := a.markBlock(allocBlk.Off, allocBlk.Size, false); err != nil {
		return Block{}, err
	}
	a.allocatedSize += totalSize(size)

	if err := a.pushFreeBlock(remBlk, false); err != nil {
		return Block{}, err
	}
	a.freeSize += totalSize(remBlk.Size)

	return allocBlk, nil
}

// popFreeBlock finds and removes a free block of at least size bytes
// payload, first-fit across classes >= classOf(size), growing the Region
// if no class yields a fit.
func (a *Allocator) popFreeBlock(size uint64) (Block, error) {
	for c := classOf(size); c < SegClassCount; c++ {
		cur := a.heads[c]
		for cur != EmptyPtr {
			payload, free, err := a.readHeader(cur)
			if err != nil {
				return Block{}, err
			}
			if !free {
				return Block{}, &smerr.CorruptMetadata{Off: int64(cur), Msg: "free list entry is not marked free"}
			}

			if payload >= size {
				if err := a.ejectFromFreeList(c, cur); err != nil {
					return Block{}, err
				}
				a.freeSize -= totalSize(payload)
				return a.takeFromBlock(Block{Off: cur, Size: payload}, size)
			}

			_, next, err := a.readFreeLinks(cur)
			if err != nil {
				return Block{}, err
			}
			cur = next
		}
	}

	return a.growAndTake(size)
}

// growAndTake grows the Region by enough pages to cover size bytes of
// payload, materializes a free block over the newly mapped range, and
// applies the same split-or-whole rule as popFreeBlock.
func (a *Allocator) growAndTake(size uint64) (Block, error) {
	pages := ceilDivPages(int64(size + 2*MetaSize))
	if a.maxGrowPages != 0 && a.grownPages+uint64(pages) > a.maxGrowPages {
		return Block{}, &smerr.OutOfMemory{Requested: size}
	}

	prevPages, err := a.r.Grow(pages)
	if err != nil {
		return Block{}, &smerr.OutOfMemory{Requested: size}
	}
	a.grownPages += uint64(pages)

	newOff := uint64(prevPages) * uint64(region.PageSize)
	a.maxPtr = uint64(prevPages+pages) * uint64(region.PageSize)

	grownPayload := uint64(pages)*uint64(region.PageSize) - 2*MetaSize
	return a.takeFromBlock(Block{Off: newOff, Size: grownPayload}, size)
}
