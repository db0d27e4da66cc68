// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*

Package sbox implements a single dynamically sized value stored at a
stable Block offset, grounded on the original source's SBox.

A Box allocates a Block at least as large as its value's current
encoding and remembers the Block's offset as its handle. Update
re-encodes the value and reallocates only when the new encoding no
longer fits the current Block; Get decodes a fresh copy on every call.

*/
package sbox

import (
	"github.com/cznic/sm/codec"
	"github.com/cznic/sm/smalloc"
)

// Box holds a single dynamically sized value of type T at a stable
// offset in a smalloc.Allocator.
type Box[T any] struct {
	a *smalloc.Allocator
	c codec.DynCodec[T]

	ptr    uint64
	blkLen uint64 // current Block's payload capacity
	valLen uint64 // length of the encoding actually stored, <= blkLen
}

// New encodes v and allocates a Block to hold it, returning the new Box.
func New[T any](a *smalloc.Allocator, c codec.DynCodec[T], v T) (*Box[T], error) {
	buf := c.Encode(v)

	b, err := a.Allocate(uint64(len(buf)))
	if err != nil {
		return nil, err
	}
	if err := a.WritePayload(b, 0, buf); err != nil {
		return nil, err
	}

	return &Box[T]{a: a, c: c, ptr: b.Off, blkLen: b.Size, valLen: uint64(len(buf))}, nil
}

// Load reconstructs a Box from a previously persisted handle (ptr,
// blkLen, valLen).
func Load[T any](a *smalloc.Allocator, c codec.DynCodec[T], ptr, blkLen, valLen uint64) *Box[T] {
	return &Box[T]{a: a, c: c, ptr: ptr, blkLen: blkLen, valLen: valLen}
}

// Ptr returns the Box's stable Block offset, part of the handle a
// caller persists to reconstruct this Box with Load.
func (bx *Box[T]) Ptr() uint64 { return bx.ptr }

// BlockLen returns the current Block's payload capacity, part of the
// handle a caller must persist alongside Ptr and ValLen.
func (bx *Box[T]) BlockLen() uint64 { return bx.blkLen }

// ValLen returns the length of the encoding currently stored, part of
// the handle a caller must persist alongside Ptr and BlockLen.
func (bx *Box[T]) ValLen() uint64 { return bx.valLen }

// Get decodes and returns a fresh copy of the boxed value. Nothing is
// cached: every call reads the Block's current bytes.
func (bx *Box[T]) Get() (T, error) {
	var zero T
	buf := make([]byte, bx.valLen)
	if err := bx.a.ReadPayload(smalloc.Block{Off: bx.ptr, Size: bx.blkLen}, 0, buf); err != nil {
		return zero, err
	}
	return bx.c.Decode(buf), nil
}

// Update re-encodes v and overwrites the boxed value, reallocating the
// backing Block (and so changing Ptr) only if v's new encoding no
// longer fits the current Block's capacity.
func (bx *Box[T]) Update(v T) error {
	buf := bx.c.Encode(v)

	if uint64(len(buf)) > bx.blkLen {
		newBlk, err := bx.a.Reallocate(smalloc.Block{Off: bx.ptr, Size: bx.blkLen}, uint64(len(buf)))
		if err != nil {
			return err
		}
		bx.ptr, bx.blkLen = newBlk.Off, newBlk.Size
	}

	bx.valLen = uint64(len(buf))
	return bx.a.WritePayload(smalloc.Block{Off: bx.ptr, Size: bx.blkLen}, 0, buf)
}

// Drop deallocates the Box's Block. The Box must not be used afterward.
func (bx *Box[T]) Drop() error {
	return bx.a.Deallocate(smalloc.Block{Off: bx.ptr, Size: bx.blkLen})
}
