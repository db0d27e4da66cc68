// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sbtree

import "github.com/cznic/sm/smalloc"

// iterFrame is one level of a path stack mirroring the descent a search
// would take. For a leaf frame, idx is the next key/value index to
// emit (counting up when iterating forward, down when in reverse). For
// an internal frame, idx is the next child index to descend into.
type iterFrame struct {
	off    uint64
	tag    byte
	length int
	idx    int
}

// Iterator yields a Map's entries in ascending key order.
type Iterator[K any, V any] struct {
	m       *Map[K, V]
	stack   []iterFrame
	started bool
	err     error
}

// Iter returns a forward iterator positioned before the first entry.
func (m *Map[K, V]) Iter() *Iterator[K, V] { return &Iterator[K, V]{m: m} }

func (m *Map[K, V]) pushLeftmost(stack []iterFrame, off uint64) ([]iterFrame, error) {
	for {
		tag, length, err := m.readHeader(off)
		if err != nil {
			return nil, err
		}
		if tag == tagLeaf {
			return append(stack, iterFrame{off: off, tag: tag, length: length, idx: 0}), nil
		}
		stack = append(stack, iterFrame{off: off, tag: tag, length: length, idx: 1})
		off, err = m.readChildAt(off, 0)
		if err != nil {
			return nil, err
		}
	}
}

// Next advances the iterator and returns the next (key, value) pair, or
// ok=false once the iterator is exhausted.
func (it *Iterator[K, V]) Next() (key K, val V, ok bool, err error) {
	if it.err != nil {
		return key, val, false, it.err
	}
	if !it.started {
		it.started = true
		if it.m.root == smalloc.EmptyPtr {
			return key, val, false, nil
		}
		it.stack, it.err = it.m.pushLeftmost(nil, it.m.root)
		if it.err != nil {
			return key, val, false, it.err
		}
	}

	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]

		if top.tag == tagLeaf {
			if top.idx < top.length {
				key, it.err = it.m.readKeyAt(top.off, top.idx)
				if it.err == nil {
					val, it.err = it.m.readValueAt(top.off, top.idx)
				}
				top.idx++
				return key, val, it.err == nil, it.err
			}
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}

		if top.idx > top.length {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}

		childIdx := top.idx
		top.idx++
		child, err := it.m.readChildAt(top.off, childIdx)
		if err != nil {
			it.err = err
			return key, val, false, err
		}
		it.stack, it.err = it.m.pushLeftmost(it.stack, child)
		if it.err != nil {
			return key, val, false, it.err
		}
	}

	return key, val, false, nil
}

// RevIterator yields a Map's entries in descending key order.
type RevIterator[K any, V any] struct {
	m       *Map[K, V]
	stack   []iterFrame
	started bool
	err     error
}

// Rev returns a reverse iterator positioned after the last entry.
func (m *Map[K, V]) Rev() *RevIterator[K, V] { return &RevIterator[K, V]{m: m} }

func (m *Map[K, V]) pushRightmost(stack []iterFrame, off uint64) ([]iterFrame, error) {
	for {
		tag, length, err := m.readHeader(off)
		if err != nil {
			return nil, err
		}
		if tag == tagLeaf {
			return append(stack, iterFrame{off: off, tag: tag, length: length, idx: length - 1}), nil
		}
		stack = append(stack, iterFrame{off: off, tag: tag, length: length, idx: length - 1})
		off, err = m.readChildAt(off, length)
		if err != nil {
			return nil, err
		}
	}
}

// Next advances the reverse iterator and returns the next (key, value)
// pair in descending order, or ok=false once exhausted.
func (it *RevIterator[K, V]) Next() (key K, val V, ok bool, err error) {
	if it.err != nil {
		return key, val, false, it.err
	}
	if !it.started {
		it.started = true
		if it.m.root == smalloc.EmptyPtr {
			return key, val, false, nil
		}
		it.stack, it.err = it.m.pushRightmost(nil, it.m.root)
		if it.err != nil {
			return key, val, false, it.err
		}
	}

	for len(it.stack) > 0 {
		top := &it.stack[len(it.stack)-1]

		if top.tag == tagLeaf {
			if top.idx >= 0 {
				key, it.err = it.m.readKeyAt(top.off, top.idx)
				if it.err == nil {
					val, it.err = it.m.readValueAt(top.off, top.idx)
				}
				top.idx--
				return key, val, it.err == nil, it.err
			}
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}

		if top.idx < 0 {
			it.stack = it.stack[:len(it.stack)-1]
			continue
		}

		childIdx := top.idx
		top.idx--
		child, err := it.m.readChildAt(top.off, childIdx)
		if err != nil {
			it.err = err
			return key, val, false, err
		}
		it.stack, it.err = it.m.pushRightmost(it.stack, child)
		if it.err != nil {
			return key, val, false, it.err
		}
	}

	return key, val, false, nil
}
