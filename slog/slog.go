// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*

Package slog implements a growable, append/pop sequence backed by a
singly-forward, doubly-linked (via prev/next stable pointers) chain of
exponentially sized sectors, grounded on the original source's SLog.

Sector 0 is allocated at capacity 4 (DefaultCapacity doubled once on first
use); each subsequent sector doubles the prior one's capacity, up to a
cap of 2^31 / elemSize. Push appends to the current sector, allocating
and linking a next sector when the current one fills. Pop removes from
the tail of the
current sector, freeing and unlinking it when it empties back into a
previous sector.

*/
package slog

import (
	"encoding/binary"

	"github.com/cznic/sm/codec"
	"github.com/cznic/sm/smalloc"
)

// DefaultCapacity is the element capacity a freshly started Log's first
// sector reaches after doubling on first use.
const DefaultCapacity = 2

const sectorHdrSize = 16 // 8-byte prev pointer, 8-byte next pointer

// Log is a growable append/pop sequence backed by a smalloc.Allocator.
type Log[T any] struct {
	a *smalloc.Allocator
	c codec.Codec[T]

	elemSize int

	length              uint64
	firstSector         uint64
	curSector           uint64
	curSectorCapacity   int
	curSectorLen        int
}

// New returns an empty Log.
func New[T any](a *smalloc.Allocator, c codec.Codec[T]) *Log[T] {
	return &Log[T]{
		a: a, c: c, elemSize: c.Size(),
		firstSector: smalloc.EmptyPtr, curSector: smalloc.EmptyPtr,
		curSectorCapacity: DefaultCapacity,
	}
}

// Load reconstructs a Log previously built with New, given its
// previously persisted length, first/current sector offsets and the
// current sector's capacity and element count.
func Load[T any](a *smalloc.Allocator, c codec.Codec[T], length, firstSector, curSector uint64, curSectorCapacity, curSectorLen int) *Log[T] {
	l := New(a, c)
	l.length = length
	l.firstSector = firstSector
	l.curSector = curSector
	l.curSectorCapacity = curSectorCapacity
	l.curSectorLen = curSectorLen
	return l
}

// Len returns the number of elements in the log.
func (l *Log[T]) Len() uint64 { return l.length }

// IsEmpty reports whether the log holds no elements.
func (l *Log[T]) IsEmpty() bool { return l.length == 0 }

// FirstSector, CurSector, CurSectorCapacity and CurSectorLen expose the
// fields a caller must persist (alongside Len) to reconstruct this Log
// with Load after a restart.
func (l *Log[T]) FirstSector() uint64      { return l.firstSector }
func (l *Log[T]) CurSector() uint64        { return l.curSector }
func (l *Log[T]) CurSectorCapacity() int   { return l.curSectorCapacity }
func (l *Log[T]) CurSectorLen() int        { return l.curSectorLen }

func (l *Log[T]) maxCapacity() int { return (1 << 31) / l.elemSize }

func (l *Log[T]) elemOff(i int) uint64 { return uint64(sectorHdrSize + i*l.elemSize) }

func (l *Log[T]) readPrev(sector uint64) (uint64, error) {
	var buf [8]byte
	if err := l.a.ReadPayload(smalloc.Block{Off: sector}, 0, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (l *Log[T]) writePrev(sector, prev uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], prev)
	return l.a.WritePayload(smalloc.Block{Off: sector}, 0, buf[:])
}

func (l *Log[T]) readNext(sector uint64) (uint64, error) {
	var buf [8]byte
	if err := l.a.ReadPayload(smalloc.Block{Off: sector}, 8, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (l *Log[T]) writeNext(sector, next uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], next)
	return l.a.WritePayload(smalloc.Block{Off: sector}, 8, buf[:])
}

func (l *Log[T]) readElemAt(sector uint64, i int) (T, error) {
	var zero T
	buf := make([]byte, l.elemSize)
	if err := l.a.ReadPayload(smalloc.Block{Off: sector}, l.elemOff(i), buf); err != nil {
		return zero, err
	}
	return l.c.Decode(buf), nil
}

func (l *Log[T]) writeElemAt(sector uint64, i int, v T) error {
	buf := make([]byte, l.elemSize)
	l.c.Encode(v, buf)
	return l.a.WritePayload(smalloc.Block{Off: sector}, l.elemOff(i), buf)
}

func (l *Log[T]) allocSector(capacity int, prev uint64) (uint64, error) {
	size := uint64(sectorHdrSize + capacity*l.elemSize)
	b, err := l.a.Allocate(size)
	if err != nil {
		return 0, err
	}
	if err := l.writePrev(b.Off, prev); err != nil {
		return 0, err
	}
	if err := l.writeNext(b.Off, smalloc.EmptyPtr); err != nil {
		return 0, err
	}
	return b.Off, nil
}

func (l *Log[T]) deallocSector(sector uint64, capacity int) error {
	return l.a.Deallocate(smalloc.Block{Off: sector, Size: uint64(sectorHdrSize + capacity*l.elemSize)})
}

// Push appends v to the tail of the log.
func (l *Log[T]) Push(v T) error {
	switch {
	case l.curSector == smalloc.EmptyPtr:
		l.curSectorCapacity *= 2
		newSector, err := l.allocSector(l.curSectorCapacity, smalloc.EmptyPtr)
		if err != nil {
			return err
		}
		l.firstSector = newSector
		l.curSector = newSector

	case l.curSectorLen == l.curSectorCapacity:
		nextPtr, err := l.readNext(l.curSector)
		if err != nil {
			return err
		}
		if l.curSectorCapacity < l.maxCapacity() {
			l.curSectorCapacity *= 2
		}
		if nextPtr == smalloc.EmptyPtr {
			newSector, err := l.allocSector(l.curSectorCapacity, l.curSector)
			if err != nil {
				return err
			}
			if err := l.writeNext(l.curSector, newSector); err != nil {
				return err
			}
			nextPtr = newSector
		}
		l.curSector = nextPtr
		l.curSectorLen = 0
	}

	if err := l.writeElemAt(l.curSector, l.curSectorLen, v); err != nil {
		return err
	}
	l.curSectorLen++
	l.length++
	return nil
}

// Pop removes and returns the element at the tail of the log.
func (l *Log[T]) Pop() (T, bool, error) {
	var zero T
	if l.length == 0 {
		return zero, false, nil
	}

	sector := l.curSector
	l.curSectorLen--
	l.length--

	v, err := l.readElemAt(sector, l.curSectorLen)
	if err != nil {
		return zero, false, err
	}

	if err := l.moveToPrevSectorIfNeeded(sector); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (l *Log[T]) moveToPrevSectorIfNeeded(sector uint64) error {
	if l.curSectorLen > 0 {
		return nil
	}

	prevPtr, err := l.readPrev(sector)
	if err != nil {
		return err
	}
	if prevPtr == smalloc.EmptyPtr {
		return nil
	}

	if err := l.deallocSector(sector, l.curSectorCapacity); err != nil {
		return err
	}
	if err := l.writeNext(prevPtr, smalloc.EmptyPtr); err != nil {
		return err
	}

	l.curSectorCapacity /= 2
	l.curSectorLen = l.curSectorCapacity
	l.curSector = prevPtr
	return nil
}

// findSectorForIdx walks backward from the current sector, halving the
// assumed sector capacity at each step (mirroring the forward doubling
// growth, since every sector but the current one is always full), until
// it reaches the sector holding logical index idx. base is the logical
// index of that sector's first element.
func (l *Log[T]) findSectorForIdx(idx uint64) (sector uint64, base uint64, found bool, err error) {
	if l.length == 0 || idx >= l.length {
		return 0, 0, false, nil
	}

	sector = l.curSector
	sectorLen := uint64(l.curSectorLen)
	sectorCap := l.curSectorCapacity
	upper := l.length

	for {
		base = upper - sectorLen
		if idx >= base {
			return sector, base, true, nil
		}

		upper = base
		sectorCap /= 2
		sectorLen = uint64(sectorCap)

		sector, err = l.readPrev(sector)
		if err != nil {
			return 0, 0, false, err
		}
	}
}

// Get returns the element at logical index idx.
func (l *Log[T]) Get(idx uint64) (T, bool, error) {
	var zero T
	sector, base, found, err := l.findSectorForIdx(idx)
	if err != nil || !found {
		return zero, false, err
	}
	v, err := l.readElemAt(sector, int(idx-base))
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Set overwrites the element at logical index idx, returning false if
// idx is out of range.
func (l *Log[T]) Set(idx uint64, v T) (bool, error) {
	sector, base, found, err := l.findSectorForIdx(idx)
	if err != nil || !found {
		return false, err
	}
	return true, l.writeElemAt(sector, int(idx-base), v)
}
