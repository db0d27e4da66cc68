// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*

Package shmap implements a fixed-size, open-addressing hash map stored as
a single smalloc.Block: linear probing, a 75% load factor, and non-lazy
(back-shift) removal, grounded on the original source's SHashMap.

Every slot is a 1-byte state tag ("empty" or "occupied") followed by a
fixed-size key and a fixed-size value, both encoded via codec.Codec.
Growth doubles the slot count (minus one) and rehashes every occupied
slot into a freshly allocated table, then frees the old one.

*/
package shmap

import (
	"hash/fnv"

	"github.com/cznic/sm/codec"
	"github.com/cznic/sm/smalloc"
)

const (
	// DefaultCapacity is the slot count a freshly created Map starts
	// with.
	DefaultCapacity = 7

	stateEmpty    = byte(0)
	stateOccupied = byte(255)
)

// Map is a fixed-size open-addressing map backed by a smalloc.Allocator.
type Map[K any, V any] struct {
	a  *smalloc.Allocator
	kc codec.Codec[K]
	vc codec.Codec[V]

	keySize int
	valSize int

	table    uint64
	length   int
	capacity int
}

// New returns an empty Map with DefaultCapacity slots, not yet allocated
// (the table Block is materialized lazily on the first Insert).
func New[K any, V any](a *smalloc.Allocator, kc codec.Codec[K], vc codec.Codec[V]) *Map[K, V] {
	return &Map[K, V]{
		a: a, kc: kc, vc: vc,
		keySize: kc.Size(), valSize: vc.Size(),
		table: smalloc.EmptyPtr, capacity: DefaultCapacity,
	}
}

// Load reconstructs a Map previously built with New, given its
// previously persisted table offset, element count and slot capacity.
func Load[K any, V any](a *smalloc.Allocator, table uint64, length, capacity int, kc codec.Codec[K], vc codec.Codec[V]) *Map[K, V] {
	m := New(a, kc, vc)
	m.table = table
	m.length = length
	m.capacity = capacity
	return m
}

// Table returns the map's current table Block offset, or
// smalloc.EmptyPtr if no table has been allocated yet.
func (m *Map[K, V]) Table() uint64 { return m.table }

// Len returns the number of entries stored.
func (m *Map[K, V]) Len() int { return m.length }

// Capacity returns the current slot count.
func (m *Map[K, V]) Capacity() int { return m.capacity }

// IsEmpty reports whether the map holds no entries.
func (m *Map[K, V]) IsEmpty() bool { return m.length == 0 }

// IsFull reports whether the map is at its 75% load factor ceiling and
// the next Insert of a new key would trigger growth.
func (m *Map[K, V]) IsFull() bool { return m.length == (m.capacity>>2)*3 }

func (m *Map[K, V]) slotSize() uint64 { return uint64(1 + m.keySize + m.valSize) }
func (m *Map[K, V]) slotOff(i int) uint64 { return uint64(i) * m.slotSize() }
func (m *Map[K, V]) keyOff(i int) uint64  { return m.slotOff(i) + 1 }
func (m *Map[K, V]) valOff(i int) uint64  { return m.slotOff(i) + 1 + uint64(m.keySize) }

func (m *Map[K, V]) hashKey(key K) int {
	buf := make([]byte, m.keySize)
	m.kc.Encode(key, buf)
	h := fnv.New64a()
	h.Write(buf)
	return int(h.Sum64() % uint64(m.capacity))
}

func (m *Map[K, V]) readState(table uint64, i int) (byte, error) {
	var b [1]byte
	if err := m.a.ReadPayload(smalloc.Block{Off: table}, m.slotOff(i), b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (m *Map[K, V]) writeState(table uint64, i int, state byte) error {
	return m.a.WritePayload(smalloc.Block{Off: table}, m.slotOff(i), []byte{state})
}

func (m *Map[K, V]) readKeyAt(table uint64, i int) (K, error) {
	var zero K
	buf := make([]byte, m.keySize)
	if err := m.a.ReadPayload(smalloc.Block{Off: table}, m.keyOff(i), buf); err != nil {
		return zero, err
	}
	return m.kc.Decode(buf), nil
}

func (m *Map[K, V]) writeKeyAt(table uint64, i int, key K) error {
	buf := make([]byte, m.keySize)
	m.kc.Encode(key, buf)
	return m.a.WritePayload(smalloc.Block{Off: table}, m.keyOff(i), buf)
}

func (m *Map[K, V]) readValAt(table uint64, i int) (V, error) {
	var zero V
	buf := make([]byte, m.valSize)
	if err := m.a.ReadPayload(smalloc.Block{Off: table}, m.valOff(i), buf); err != nil {
		return zero, err
	}
	return m.vc.Decode(buf), nil
}

func (m *Map[K, V]) writeValAt(table uint64, i int, val V) error {
	buf := make([]byte, m.valSize)
	m.vc.Encode(val, buf)
	return m.a.WritePayload(smalloc.Block{Off: table}, m.valOff(i), buf)
}

func (m *Map[K, V]) allocTable(capacity int) (uint64, error) {
	size := uint64(capacity) * m.slotSize()
	b, err := m.a.Allocate(size)
	if err != nil {
		return 0, err
	}
	zeros := make([]byte, size)
	if err := m.a.WritePayload(b, 0, zeros); err != nil {
		return 0, err
	}
	return b.Off, nil
}

func (m *Map[K, V]) deallocTable(table uint64, capacity int) error {
	return m.a.Deallocate(smalloc.Block{Off: table, Size: uint64(capacity) * m.slotSize()})
}

// findSlot probes the table starting at hashKey(key), returning the slot
// index holding key (found=true) or the first empty slot the probe
// reaches (found=false).
func (m *Map[K, V]) findSlot(key K) (idx int, found bool, err error) {
	if m.table == smalloc.EmptyPtr {
		return 0, false, nil
	}

	i := m.hashKey(key)
	for {
		state, err := m.readState(m.table, i)
		if err != nil {
			return 0, false, err
		}
		if state == stateEmpty {
			return i, false, nil
		}
		k, err := m.readKeyAt(m.table, i)
		if err != nil {
			return 0, false, err
		}
		if m.kc.Compare(k, key) == 0 {
			return i, true, nil
		}
		i = (i + 1) % m.capacity
	}
}

// Get returns the value stored for key, if any.
func (m *Map[K, V]) Get(key K) (V, bool, error) {
	var zero V
	idx, found, err := m.findSlot(key)
	if err != nil || !found {
		return zero, false, err
	}
	v, err := m.readValAt(m.table, idx)
	return v, err == nil, err
}

// Contains reports whether key is present.
func (m *Map[K, V]) Contains(key K) (bool, error) {
	_, found, err := m.findSlot(key)
	return found, err
}
