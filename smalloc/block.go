// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package smalloc

import "encoding/binary"

// readSizeField reads a 4-byte header or trailer at off: the low 31 bits
// are the payload size, the high bit is the free flag.
func (a *Allocator) readSizeField(off uint64) (payload uint64, free bool, err error) {
	var buf [MetaSize]byte
	if _, err = a.r.ReadAt(buf[:], int64(off)); err != nil {
		return 0, false, err
	}

	v := binary.LittleEndian.Uint32(buf[:])
	return uint64(v & sizeMask), v&freeFlag != 0, nil
}

func (a *Allocator) writeSizeField(off uint64, payload uint64, free bool) error {
	v := uint32(payload) & sizeMask
	if free {
		v |= freeFlag
	}

	var buf [MetaSize]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := a.r.WriteAt(buf[:], int64(off))
	return err
}

// readHeader reads the header of the block starting at blockOff.
func (a *Allocator) readHeader(blockOff uint64) (payload uint64, free bool, err error) {
	return a.readSizeField(blockOff)
}

func (a *Allocator) writeHeader(blockOff, payload uint64, free bool) error {
	return a.writeSizeField(blockOff, payload, free)
}

func (a *Allocator) writeTrailer(blockOff, payload uint64, free bool) error {
	return a.writeSizeField(blockOff+MetaSize+payload, payload, free)
}

// markBlock writes both header and trailer for a block of the given
// payload size and free flag.
func (a *Allocator) markBlock(blockOff, payload uint64, free bool) error {
	if err := a.writeHeader(blockOff, payload, free); err != nil {
		return err
	}
	return a.writeTrailer(blockOff, payload, free)
}

// readFreeLinks reads a free block's doubly-linked list pointers, stored
// in the first 16 bytes of its payload.
func (a *Allocator) readFreeLinks(blockOff uint64) (prev, next uint64, err error) {
	var buf [16]byte
	if _, err = a.r.ReadAt(buf[:], int64(blockOff+MetaSize)); err != nil {
		return 0, 0, err
	}

	return binary.LittleEndian.Uint64(buf[0:8]), binary.LittleEndian.Uint64(buf[8:16]), nil
}

func (a *Allocator) writeFreeLinks(blockOff, prev, next uint64) error {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], prev)
	binary.LittleEndian.PutUint64(buf[8:16], next)
	_, err := a.r.WriteAt(buf[:], int64(blockOff+MetaSize))
	return err
}

func (a *Allocator) writeFreePrev(blockOff, prev uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], prev)
	_, err := a.r.WriteAt(buf[:], int64(blockOff+MetaSize))
	return err
}

func (a *Allocator) writeFreeNext(blockOff, next uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], next)
	_, err := a.r.WriteAt(buf[:], int64(blockOff+MetaSize+8))
	return err
}

// ReadPayload reads n bytes from b's payload starting at byte offset off.
func (a *Allocator) ReadPayload(b Block, off uint64, p []byte) error {
	_, err := a.r.ReadAt(p, int64(b.PayloadOff()+off))
	return err
}

// WritePayload writes p into b's payload starting at byte offset off.
func (a *Allocator) WritePayload(b Block, off uint64, p []byte) error {
	_, err := a.r.WriteAt(p, int64(b.PayloadOff()+off))
	return err
}
