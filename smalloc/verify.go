// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package smalloc

import "github.com/cznic/sm/smerr"

// Verify walks the Region once from minPtr to maxPtr checking that every
// block's header equals its trailer, that the declared free/allocated
// totals match, and that no two adjacent blocks are both free (coalescing
// would have merged them). It is adapted from lldb.Allocator.Verify, in a
// single-pass form appropriate to the simpler header/trailer block model.
func (a *Allocator) Verify() error {
	var freeTotal, allocTotal uint64
	prevFree := false

	off := a.minPtr
	for off < a.maxPtr {
		payload, free, err := a.readHeader(off)
		if err != nil {
			return err
		}

		trailerPayload, trailerFree, err := a.readSizeField(off + MetaSize + payload)
		if err != nil {
			return err
		}
		if trailerPayload != payload || trailerFree != free {
			return &smerr.CorruptMetadata{Off: int64(off), Msg: "block header does not match trailer"}
		}

		if free && prevFree {
			return &smerr.CorruptMetadata{Off: int64(off), Msg: "two adjacent free blocks were not coalesced"}
		}
		prevFree = free

		if free {
			freeTotal += totalSize(payload)
		} else {
			allocTotal += totalSize(payload)
		}

		off += totalSize(payload)
	}

	if off != a.maxPtr {
		return &smerr.CorruptMetadata{Off: int64(off), Msg: "last block overruns region size"}
	}
	if freeTotal != a.freeSize {
		return &smerr.CorruptMetadata{Off: int64(a.minPtr), Msg: "freeSize does not match sum of free blocks"}
	}
	if allocTotal != a.allocatedSize {
		return &smerr.CorruptMetadata{Off: int64(a.minPtr), Msg: "allocatedSize does not match sum of allocated blocks"}
	}

	return nil
}

// FreeBlockCount returns the number of blocks across every size class's
// free list, for use by tests asserting on coalescing.
func (a *Allocator) FreeBlockCount() (int, error) {
	n := 0
	for c := 0; c < SegClassCount; c++ {
		cur := a.heads[c]
		for cur != EmptyPtr {
			n++
			_, next, err := a.readFreeLinks(cur)
			if err != nil {
				return 0, err
			}
			cur = next
		}
	}
	return n, nil
}
