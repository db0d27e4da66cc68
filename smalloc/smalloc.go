// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*

Package smalloc implements "raw" storage space management (allocation,
deallocation, reallocation) on top of a region.Region.

The terms MUST or MUST NOT, where used in the documentation of Allocator,
written in all caps as seen here, are a requirement for any possible
alternative implementation aiming for compatibility with this one.

Region bytes

A Region is a linear, contiguous sequence of blocks. Blocks may be either
free (currently unused) or allocated (currently used).

Blocks

A block is a contiguous run of bytes: a 4-byte header, a payload, and a
4-byte trailer that is always a copy of the header. The header/trailer
encode the payload size in the low 31 bits and the free flag in the high
bit. Header/trailer symmetry lets the allocator walk backward from any
block start to a previous neighbor's trailer and so discover that
neighbor's size and free/used state without a separate index.

Free blocks

Free blocks are organized into SegClassCount doubly linked lists, a
"segregated fit" scheme: a size in bytes maps to a class via classOf, and
each class's list holds only (but not exclusively) blocks near that size.
Free blocks MUST be reachable from exactly one class's head/tail pair.
When a block is freed it MUST be joined with any adjacently free neighbor
before being registered in a class.

Stable pointers

Blocks, and the free lists' head/tail/prev/next fields, are addressed by
EmptyPtr-sentineled 64-bit byte offsets into the Region, never by Go
pointers: a stable pointer remains meaningful across a process restart,
which is the entire point of this package.

*/
package smalloc

import (
	"encoding/binary"
	"math/bits"

	"github.com/cznic/mathutil"
	"github.com/cznic/sm/region"
	"github.com/cznic/sm/smerr"
)

const (
	// MetaSize is the size, in bytes, of a block header and of a block
	// trailer.
	MetaSize = 4

	// SegClassCount is the number of segregated free-list size
	// classes: WORD_BITS(64) - 4.
	SegClassCount = 60

	// CustomDataSlots is the number of caller-visible 64-bit pointers
	// persisted in the prologue, opaque to the allocator itself.
	CustomDataSlots = 16

	// minFreePayload is the smallest payload that can hold a free
	// block's prev/next stable pointers (8 bytes each).
	minFreePayload = 16

	// BlockMinTotalSize is the smallest total on-region footprint of
	// any block (free or allocated).
	BlockMinTotalSize = minFreePayload + 2*MetaSize

	freeFlag = uint32(1) << 31
	sizeMask = freeFlag - 1

	// EmptyPtr is the stable-pointer sentinel meaning "none".
	EmptyPtr = ^uint64(0)
)

var magic = [4]byte{'S', 'M', 'A', 'M'}

const (
	offMagic          = 0
	offHeads          = offMagic + 4
	offTails          = offHeads + SegClassCount*8
	offFreeSize       = offTails + SegClassCount*8
	offAllocatedSize  = offFreeSize + 8
	offMaxAllocPages  = offAllocatedSize + 8
	offMaxGrowPages   = offMaxAllocPages + 8
	offLowMemoryFlag  = offMaxGrowPages + 8
	offCustomData     = offLowMemoryFlag + 1
	PrologueSize      = offCustomData + CustomDataSlots*8
)

// Block is a handle to a block previously returned by Allocate,
// Reallocate, or read back from persisted state. Off is the block's
// header offset; Size is its current payload size.
type Block struct {
	Off  uint64
	Size uint64
}

// PayloadOff returns the offset of the first payload byte.
func (b Block) PayloadOff() uint64 { return b.Off + MetaSize }

func totalSize(payload uint64) uint64 { return payload + 2*MetaSize }

// classOf maps a payload size to its segregated free-list class:
// max(0, ceil(log2(size)) - 4), clamped to [0, SegClassCount-1].
func classOf(size uint64) int {
	var ceilLog2 int
	if size > 1 {
		ceilLog2 = bits.Len64(size - 1)
	}

	c := ceilLog2 - 4
	if c < 0 {
		c = 0
	}
	if c > SegClassCount-1 {
		c = SegClassCount - 1
	}
	return c
}

func ceilDivPages(bytes int64) int64 {
	if bytes <= 0 {
		return 0
	}
	return (bytes + region.PageSize - 1) / region.PageSize
}

// Allocator owns a prologue header at a fixed offset in a region.Region
// and manages everything after it as a heap of Blocks, segregated by
// free-list size class.
type Allocator struct {
	r           region.Region
	prologueOff int64

	heads [SegClassCount]uint64
	tails [SegClassCount]uint64

	freeSize           uint64
	allocatedSize      uint64
	maxAllocationPages uint64
	maxGrowPages       uint64
	lowMemoryFired     bool
	customData         [CustomDataSlots]uint64

	// minPtr/maxPtr are derived, not persisted: minPtr is the header
	// offset of the first block (just past the prologue), maxPtr tracks
	// the Region's current byte size.
	minPtr uint64
	maxPtr uint64

	// grownPages is this process's running total of pages grown via
	// Grow, used to enforce MaxGrowPages. It is not persisted: a
	// Reinit starts a fresh budget for the new process, matching the
	// spec's silence on cross-restart accounting of the grow cap.
	grownPages uint64

	onLowMemory func()
}

// Init formats a fresh Allocator at prologueOff in r, growing r as needed
// to fit the prologue, and creates a single free block spanning whatever
// of r remains. maxAllocationPages is the low-memory soft cap (0 disables
// the hook); maxGrowPages is the hard cap on pages grown via this
// Allocator (0 means unlimited). onLowMemory, if non-nil, is invoked at
// most once, the first time a pre-emptive grow is capped or refused.
func Init(r region.Region, prologueOff int64, maxAllocationPages, maxGrowPages uint64, onLowMemory func()) (*Allocator, error) {
	a := &Allocator{
		r:                  r,
		prologueOff:        prologueOff,
		maxAllocationPages: maxAllocationPages,
		maxGrowPages:       maxGrowPages,
		onLowMemory:        onLowMemory,
	}
	for i := range a.heads {
		a.heads[i] = EmptyPtr
		a.tails[i] = EmptyPtr
	}

	needed := prologueOff + int64(PrologueSize)
	neededPages := ceilDivPages(needed)
	if have := r.SizePages(); have < neededPages {
		if _, err := r.Grow(neededPages - have); err != nil {
			return nil, &smerr.OutOfMemory{Requested: uint64(needed)}
		}
	}

	a.minPtr = uint64(prologueOff) + uint64(PrologueSize)
	a.maxPtr = uint64(r.SizePages()) * region.PageSize

	zeros := make([]byte, PrologueSize)
	if _, err := r.WriteAt(zeros, prologueOff); err != nil {
		return nil, err
	}

	if avail := a.maxPtr - a.minPtr; avail >= BlockMinTotalSize {
		blk := Block{Off: a.minPtr, Size: avail - 2*MetaSize}
		if err := a.pushFreeBlock(blk, false); err != nil {
			return nil, err
		}
		a.freeSize = totalSize(blk.Size)
	}

	if err := a.Store(); err != nil {
		return nil, err
	}
	return a, nil
}

// Reinit reads back an Allocator previously Stored at prologueOff in r,
// validating the magic and rebinding maxPtr to r's current size.
// CorruptMetadata is returned if the magic does not match.
func Reinit(r region.Region, prologueOff int64, onLowMemory func()) (*Allocator, error) {
	a := &Allocator{r: r, prologueOff: prologueOff, onLowMemory: onLowMemory}

	buf := make([]byte, PrologueSize)
	if _, err := r.ReadAt(buf, prologueOff); err != nil {
		return nil, err
	}

	if string(buf[0:4]) != string(magic[:]) {
		return nil, &smerr.CorruptMetadata{Off: prologueOff, Msg: "bad allocator prologue magic"}
	}

	off := offHeads
	for i := range a.heads {
		a.heads[i] = binary.LittleEndian.Uint64(buf[off:])
		off += 8
	}
	for i := range a.tails {
		a.tails[i] = binary.LittleEndian.Uint64(buf[off:])
		off += 8
	}
	a.freeSize = binary.LittleEndian.Uint64(buf[offFreeSize:])
	a.allocatedSize = binary.LittleEndian.Uint64(buf[offAllocatedSize:])
	a.maxAllocationPages = binary.LittleEndian.Uint64(buf[offMaxAllocPages:])
	a.maxGrowPages = binary.LittleEndian.Uint64(buf[offMaxGrowPages:])
	a.lowMemoryFired = buf[offLowMemoryFlag] != 0
	for i := range a.customData {
		a.customData[i] = binary.LittleEndian.Uint64(buf[offCustomData+8*i:])
	}

	a.minPtr = uint64(prologueOff) + uint64(PrologueSize)
	a.maxPtr = uint64(r.SizePages()) * region.PageSize
	return a, nil
}

// Store writes every field back to the prologue. The byte layout is
// bit-exact: magic, SegClassCount head offsets, SegClassCount tail
// offsets, free_size, allocated_size, max_allocation_pages,
// max_grow_pages, the low-memory-fired flag, then CustomDataSlots custom
// pointers.
func (a *Allocator) Store() error {
	buf := make([]byte, PrologueSize)
	copy(buf[0:4], magic[:])

	off := offHeads
	for _, h := range a.heads {
		binary.LittleEndian.PutUint64(buf[off:], h)
		off += 8
	}
	for _, t := range a.tails {
		binary.LittleEndian.PutUint64(buf[off:], t)
		off += 8
	}
	binary.LittleEndian.PutUint64(buf[offFreeSize:], a.freeSize)
	binary.LittleEndian.PutUint64(buf[offAllocatedSize:], a.allocatedSize)
	binary.LittleEndian.PutUint64(buf[offMaxAllocPages:], a.maxAllocationPages)
	binary.LittleEndian.PutUint64(buf[offMaxGrowPages:], a.maxGrowPages)
	if a.lowMemoryFired {
		buf[offLowMemoryFlag] = 1
	}
	for i, v := range a.customData {
		binary.LittleEndian.PutUint64(buf[offCustomData+8*i:], v)
	}

	_, err := a.r.WriteAt(buf, a.prologueOff)
	return err
}

// FreeSize returns the total bytes (including header/trailer overhead)
// held by free blocks.
func (a *Allocator) FreeSize() uint64 { return a.freeSize }

// AllocatedSize returns the total bytes (including header/trailer
// overhead) held by allocated blocks.
func (a *Allocator) AllocatedSize() uint64 { return a.allocatedSize }

// CustomData returns the i'th custom data slot.
func (a *Allocator) CustomData(i int) uint64 { return a.customData[i] }

// SetCustomData sets the i'th custom data slot and immediately persists
// just that slot, the same eager-write idiom lldb's FLT slots use for
// their head pointers.
func (a *Allocator) SetCustomData(i int, v uint64) error {
	a.customData[i] = v
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := a.r.WriteAt(buf[:], a.prologueOff+int64(offCustomData+8*i))
	return err
}

func maxU64(a, b uint64) uint64 { return uint64(mathutil.MaxInt64(int64(a), int64(b))) }
