// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*

Package sbtree implements an order-6 B⁺-tree map whose nodes are
smalloc.Blocks addressed by stable Region offsets rather than Go pointers.

Leaves hold sorted key/value pairs; internal nodes hold sorted keys plus
child block offsets. Both keys and values are encoded via codec.Codec into
fixed-size byte sequences chosen once per Map at construction, so every
leaf of a given Map has the same payload size, as does every internal
node, and each node keeps its size for its whole life.

The terms MUST or MUST NOT, where used in the documentation below, are a
requirement for any alternative implementation aiming for compatibility
with this one.

*/
package sbtree

import (
	"encoding/binary"

	"github.com/cznic/sm/codec"
	"github.com/cznic/sm/smalloc"
)

const (
	// B is the tree's order: B = 6.
	B = 6

	// Capacity is the maximum number of keys a node MAY hold: 2*B-1.
	Capacity = 2*B - 1

	// MinAfterSplit is the minimum number of keys a non-root node MUST
	// hold outside an in-progress mutation: B-1.
	MinAfterSplit = B - 1

	// ChildCapacity is the maximum number of children an internal node
	// MAY hold: 2*B.
	ChildCapacity = 2 * B

	tagInternal = byte(127)
	tagLeaf     = byte(255)

	// hdrSize is the 1-byte type tag plus the 4-byte length.
	hdrSize = 5
)

// Map is an ordered key -> value map backed by a smalloc.Allocator. The
// zero value is not usable; construct one with New or Load.
type Map[K any, V any] struct {
	a  *smalloc.Allocator
	kc codec.Codec[K]
	vc codec.Codec[V]

	keySize int
	valSize int

	leafPayloadSize     uint64
	internalPayloadSize uint64

	root   uint64
	length uint64
}

// New returns an empty Map allocated against a. The returned Map's Root
// is smalloc.EmptyPtr until the first Insert; callers persisting a Map
// across a restart MUST record Root() and Len() themselves (the
// conventional home is a pair of smalloc custom data slots, or an
// sm.Store directory entry) and reconstruct the Map with Load.
func New[K any, V any](a *smalloc.Allocator, kc codec.Codec[K], vc codec.Codec[V]) *Map[K, V] {
	m := &Map[K, V]{a: a, kc: kc, vc: vc, root: smalloc.EmptyPtr}
	m.keySize = kc.Size()
	m.valSize = vc.Size()
	keysEnd := uint64(hdrSize) + Capacity*uint64(m.keySize)
	m.leafPayloadSize = keysEnd + Capacity*uint64(m.valSize)
	m.internalPayloadSize = keysEnd + ChildCapacity*8
	return m
}

// Load reconstructs a Map previously built with New, given its
// previously persisted root offset and element count.
func Load[K any, V any](a *smalloc.Allocator, root, length uint64, kc codec.Codec[K], vc codec.Codec[V]) *Map[K, V] {
	m := New(a, kc, vc)
	m.root = root
	m.length = length
	return m
}

// Root returns the tree's current root block offset, or smalloc.EmptyPtr
// if the map is empty. Callers persist this themselves.
func (m *Map[K, V]) Root() uint64 { return m.root }

// Len returns the number of elements in the map.
func (m *Map[K, V]) Len() uint64 { return m.length }

// IsEmpty reports whether the map holds no elements.
func (m *Map[K, V]) IsEmpty() bool { return m.length == 0 }

func (m *Map[K, V]) keysEnd() uint64 { return uint64(hdrSize) + Capacity*uint64(m.keySize) }
func (m *Map[K, V]) keyOff(i int) uint64 {
	return uint64(hdrSize) + uint64(i)*uint64(m.keySize)
}
func (m *Map[K, V]) valOff(i int) uint64 { return m.keysEnd() + uint64(i)*uint64(m.valSize) }
func (m *Map[K, V]) childOff(i int) uint64 { return m.keysEnd() + uint64(i)*8 }

func blk(off uint64) smalloc.Block { return smalloc.Block{Off: off} }

func (m *Map[K, V]) readHeader(off uint64) (tag byte, length int, err error) {
	var buf [hdrSize]byte
	if err = m.a.ReadPayload(blk(off), 0, buf[:]); err != nil {
		return 0, 0, err
	}
	return buf[0], int(binary.LittleEndian.Uint32(buf[1:5])), nil
}

func (m *Map[K, V]) setLen(off uint64, n int) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(n))
	return m.a.WritePayload(blk(off), 1, buf[:])
}

func (m *Map[K, V]) readKeyAt(off uint64, i int) (K, error) {
	var zero K
	buf := make([]byte, m.keySize)
	if err := m.a.ReadPayload(blk(off), m.keyOff(i), buf); err != nil {
		return zero, err
	}
	return m.kc.Decode(buf), nil
}

func (m *Map[K, V]) writeKeyAt(off uint64, i int, k K) error {
	buf := make([]byte, m.keySize)
	m.kc.Encode(k, buf)
	return m.a.WritePayload(blk(off), m.keyOff(i), buf)
}

func (m *Map[K, V]) readValueAt(off uint64, i int) (V, error) {
	var zero V
	buf := make([]byte, m.valSize)
	if err := m.a.ReadPayload(blk(off), m.valOff(i), buf); err != nil {
		return zero, err
	}
	return m.vc.Decode(buf), nil
}

func (m *Map[K, V]) writeValueAt(off uint64, i int, v V) error {
	buf := make([]byte, m.valSize)
	m.vc.Encode(v, buf)
	return m.a.WritePayload(blk(off), m.valOff(i), buf)
}

func (m *Map[K, V]) readChildAt(off uint64, i int) (uint64, error) {
	var buf [8]byte
	if err := m.a.ReadPayload(blk(off), m.childOff(i), buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (m *Map[K, V]) writeChildAt(off uint64, i int, child uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], child)
	return m.a.WritePayload(blk(off), m.childOff(i), buf[:])
}

func (m *Map[K, V]) readKeys(off uint64, n int) ([]K, error) {
	out := make([]K, n)
	for i := range out {
		k, err := m.readKeyAt(off, i)
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}

func (m *Map[K, V]) writeKeys(off uint64, keys []K) error {
	for i, k := range keys {
		if err := m.writeKeyAt(off, i, k); err != nil {
			return err
		}
	}
	return nil
}

func (m *Map[K, V]) readValues(off uint64, n int) ([]V, error) {
	out := make([]V, n)
	for i := range out {
		v, err := m.readValueAt(off, i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *Map[K, V]) writeValues(off uint64, vals []V) error {
	for i, v := range vals {
		if err := m.writeValueAt(off, i, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *Map[K, V]) readChildren(off uint64, n int) ([]uint64, error) {
	out := make([]uint64, n)
	for i := range out {
		c, err := m.readChildAt(off, i)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func (m *Map[K, V]) writeChildren(off uint64, children []uint64) error {
	for i, c := range children {
		if err := m.writeChildAt(off, i, c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Map[K, V]) allocLeaf() (uint64, error) {
	b, err := m.a.Allocate(m.leafPayloadSize)
	if err != nil {
		return 0, err
	}
	if err := m.a.WritePayload(b, 0, []byte{tagLeaf}); err != nil {
		return 0, err
	}
	if err := m.setLen(b.Off, 0); err != nil {
		return 0, err
	}
	return b.Off, nil
}

func (m *Map[K, V]) allocInternal() (uint64, error) {
	b, err := m.a.Allocate(m.internalPayloadSize)
	if err != nil {
		return 0, err
	}
	if err := m.a.WritePayload(b, 0, []byte{tagInternal}); err != nil {
		return 0, err
	}
	if err := m.setLen(b.Off, 0); err != nil {
		return 0, err
	}
	return b.Off, nil
}

func (m *Map[K, V]) deallocLeaf(off uint64) error {
	return m.a.Deallocate(smalloc.Block{Off: off, Size: m.leafPayloadSize})
}

func (m *Map[K, V]) deallocInternal(off uint64) error {
	return m.a.Deallocate(smalloc.Block{Off: off, Size: m.internalPayloadSize})
}

// binarySearch returns the index of key among the n sorted keys stored at
// off (found=true), or the insertion index key would occupy (found=false).
func (m *Map[K, V]) binarySearch(off uint64, n int, key K) (idx int, found bool, err error) {
	lo, hi := 0, n
	for lo < hi {
		mid := (lo + hi) / 2
		kk, err := m.readKeyAt(off, mid)
		if err != nil {
			return 0, false, err
		}
		switch c := m.kc.Compare(kk, key); {
		case c == 0:
			return mid, true, nil
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false, nil
}

func insertAt[T any](s []T, idx int, v T) []T {
	var zero T
	s = append(s, zero)
	copy(s[idx+1:], s[idx:len(s)-1])
	s[idx] = v
	return s
}

func removeAt[T any](s []T, idx int) []T {
	copy(s[idx:], s[idx+1:])
	return s[:len(s)-1]
}

// search descends from the root to the leaf that would hold key, binary
// searching each internal node along the way.
func (m *Map[K, V]) search(key K) (leafOff uint64, idx int, found bool, err error) {
	if m.root == smalloc.EmptyPtr {
		return 0, 0, false, nil
	}

	cur := m.root
	for {
		tag, length, err := m.readHeader(cur)
		if err != nil {
			return 0, 0, false, err
		}
		i, f, err := m.binarySearch(cur, length, key)
		if err != nil {
			return 0, 0, false, err
		}
		if tag == tagLeaf {
			return cur, i, f, nil
		}
		childIdx := i
		if f {
			childIdx = i + 1
		}
		child, err := m.readChildAt(cur, childIdx)
		if err != nil {
			return 0, 0, false, err
		}
		cur = child
	}
}

// Get returns the value stored for key, if any.
func (m *Map[K, V]) Get(key K) (V, bool, error) {
	var zero V
	leafOff, idx, found, err := m.search(key)
	if err != nil || !found {
		return zero, false, err
	}
	v, err := m.readValueAt(leafOff, idx)
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

// Contains reports whether key is present.
func (m *Map[K, V]) Contains(key K) (bool, error) {
	_, _, found, err := m.search(key)
	return found, err
}
