// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sbtree

import "github.com/cznic/sm/smalloc"

// insFrame records, for one internal node visited during an Insert
// descent, the node's offset and the child index taken to continue the
// descent — the position at which a propagated split result must be
// spliced back in.
type insFrame struct {
	off      uint64
	childIdx int
}

// Insert inserts key -> val, or overwrites the value if key is already
// present, returning the previous value and true in that case.
func (m *Map[K, V]) Insert(key K, val V) (V, bool, error) {
	var zero V

	if m.root == smalloc.EmptyPtr {
		leafOff, err := m.allocLeaf()
		if err != nil {
			return zero, false, err
		}
		if err := m.writeKeyAt(leafOff, 0, key); err != nil {
			return zero, false, err
		}
		if err := m.writeValueAt(leafOff, 0, val); err != nil {
			return zero, false, err
		}
		if err := m.setLen(leafOff, 1); err != nil {
			return zero, false, err
		}
		m.root = leafOff
		m.length = 1
		return zero, false, nil
	}

	var stack []insFrame
	cur := m.root
	for {
		tag, length, err := m.readHeader(cur)
		if err != nil {
			return zero, false, err
		}

		idx, found, err := m.binarySearch(cur, length, key)
		if err != nil {
			return zero, false, err
		}

		if tag == tagLeaf {
			if found {
				prev, err := m.readValueAt(cur, idx)
				if err != nil {
					return zero, false, err
				}
				return prev, true, m.writeValueAt(cur, idx, val)
			}
			return zero, false, m.insertIntoLeaf(stack, cur, length, idx, key, val)
		}

		childIdx := idx
		if found {
			childIdx = idx + 1
		}
		stack = append(stack, insFrame{off: cur, childIdx: childIdx})
		cur, err = m.readChildAt(cur, childIdx)
		if err != nil {
			return zero, false, err
		}
	}
}

// insertIntoLeaf inserts (key, val) at idx in the leaf at leafOff, which
// has length entries and does not yet contain key. If this overflows the
// leaf it splits, then walks stack bottom-up splicing the propagated
// separator into each ancestor, splitting further as needed, and finally
// grows the tree's height by one if the split still hasn't been absorbed
// once the stack is exhausted.
func (m *Map[K, V]) insertIntoLeaf(stack []insFrame, leafOff uint64, length, idx int, key K, val V) error {
	if length < Capacity {
		keys, err := m.readKeys(leafOff, length)
		if err != nil {
			return err
		}
		vals, err := m.readValues(leafOff, length)
		if err != nil {
			return err
		}
		keys = insertAt(keys, idx, key)
		vals = insertAt(vals, idx, val)
		if err := m.writeKeys(leafOff, keys); err != nil {
			return err
		}
		if err := m.writeValues(leafOff, vals); err != nil {
			return err
		}
		m.length++
		return m.setLen(leafOff, len(keys))
	}

	sepKey, newOff, err := m.splitLeafInsert(leafOff, idx, key, val)
	if err != nil {
		return err
	}
	m.length++

	propagated := true
	for i := len(stack) - 1; i >= 0 && propagated; i-- {
		f := stack[i]
		propagated, sepKey, newOff, err = m.insertIntoInternal(f.off, f.childIdx, sepKey, newOff)
		if err != nil {
			return err
		}
	}

	if !propagated {
		return nil
	}

	newRoot, err := m.allocInternal()
	if err != nil {
		return err
	}
	if err := m.writeKeys(newRoot, []K{sepKey}); err != nil {
		return err
	}
	if err := m.writeChildren(newRoot, []uint64{m.root, newOff}); err != nil {
		return err
	}
	if err := m.setLen(newRoot, 1); err != nil {
		return err
	}
	m.root = newRoot
	return nil
}

// splitLeafInsert splits a full leaf after conceptually inserting (key,
// val) at idx: the resulting 2*B entries are divided so the left half (B
// entries) stays at leafOff and the right half (B entries) moves to a new
// leaf, whose minimum key is the separator propagated to the parent.
func (m *Map[K, V]) splitLeafInsert(leafOff uint64, idx int, key K, val V) (K, uint64, error) {
	var zero K

	keys, err := m.readKeys(leafOff, Capacity)
	if err != nil {
		return zero, 0, err
	}
	vals, err := m.readValues(leafOff, Capacity)
	if err != nil {
		return zero, 0, err
	}
	keys = insertAt(keys, idx, key)
	vals = insertAt(vals, idx, val)

	leftKeys, rightKeys := keys[:B], append([]K(nil), keys[B:]...)
	leftVals, rightVals := vals[:B], append([]V(nil), vals[B:]...)

	if err := m.writeKeys(leafOff, leftKeys); err != nil {
		return zero, 0, err
	}
	if err := m.writeValues(leafOff, leftVals); err != nil {
		return zero, 0, err
	}
	if err := m.setLen(leafOff, len(leftKeys)); err != nil {
		return zero, 0, err
	}

	rightOff, err := m.allocLeaf()
	if err != nil {
		return zero, 0, err
	}
	if err := m.writeKeys(rightOff, rightKeys); err != nil {
		return zero, 0, err
	}
	if err := m.writeValues(rightOff, rightVals); err != nil {
		return zero, 0, err
	}
	if err := m.setLen(rightOff, len(rightKeys)); err != nil {
		return zero, 0, err
	}

	return rightKeys[0], rightOff, nil
}

// insertIntoInternal inserts (sepKey, newChildOff) at childIdx (as the
// key/right-child pair) into the internal node at off. If this overflows
// the node it splits, returning propagated=true with the median key and
// the new right sibling's offset for the caller to splice into the next
// ancestor up (or promote to a new root).
func (m *Map[K, V]) insertIntoInternal(off uint64, childIdx int, sepKey K, newChildOff uint64) (propagated bool, outSep K, outOff uint64, err error) {
	var zero K

	_, length, err := m.readHeader(off)
	if err != nil {
		return false, zero, 0, err
	}
	keys, err := m.readKeys(off, length)
	if err != nil {
		return false, zero, 0, err
	}
	children, err := m.readChildren(off, length+1)
	if err != nil {
		return false, zero, 0, err
	}

	keys = insertAt(keys, childIdx, sepKey)
	children = insertAt(children, childIdx+1, newChildOff)

	if len(keys) <= Capacity {
		if err := m.writeKeys(off, keys); err != nil {
			return false, zero, 0, err
		}
		if err := m.writeChildren(off, children); err != nil {
			return false, zero, 0, err
		}
		return false, zero, 0, m.setLen(off, len(keys))
	}

	median := keys[B]
	leftKeys, rightKeys := keys[:B], append([]K(nil), keys[B+1:]...)
	leftChildren, rightChildren := children[:B+1], append([]uint64(nil), children[B+1:]...)

	if err := m.writeKeys(off, leftKeys); err != nil {
		return false, zero, 0, err
	}
	if err := m.writeChildren(off, leftChildren); err != nil {
		return false, zero, 0, err
	}
	if err := m.setLen(off, len(leftKeys)); err != nil {
		return false, zero, 0, err
	}

	newOff, err := m.allocInternal()
	if err != nil {
		return false, zero, 0, err
	}
	if err := m.writeKeys(newOff, rightKeys); err != nil {
		return false, zero, 0, err
	}
	if err := m.writeChildren(newOff, rightChildren); err != nil {
		return false, zero, 0, err
	}
	if err := m.setLen(newOff, len(rightKeys)); err != nil {
		return false, zero, 0, err
	}

	return true, median, newOff, nil
}
