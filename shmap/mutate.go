// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package shmap

import "github.com/cznic/sm/smalloc"

// Insert inserts key -> val, or overwrites the value if key is already
// present, returning the previous value and true in that case. A full
// table (75% load factor) grows before the insert proceeds.
func (m *Map[K, V]) Insert(key K, val V) (V, bool, error) {
	var zero V

	if m.table == smalloc.EmptyPtr {
		table, err := m.allocTable(m.capacity)
		if err != nil {
			return zero, false, err
		}
		m.table = table
	} else if m.IsFull() {
		if err := m.grow(); err != nil {
			return zero, false, err
		}
	}

	idx, found, err := m.findSlot(key)
	if err != nil {
		return zero, false, err
	}
	if found {
		prev, err := m.readValAt(m.table, idx)
		if err != nil {
			return zero, false, err
		}
		return prev, true, m.writeValAt(m.table, idx, val)
	}

	if err := m.writeKeyAt(m.table, idx, key); err != nil {
		return zero, false, err
	}
	if err := m.writeValAt(m.table, idx, val); err != nil {
		return zero, false, err
	}
	if err := m.writeState(m.table, idx, stateOccupied); err != nil {
		return zero, false, err
	}
	m.length++
	return zero, false, nil
}

// grow doubles (minus one) the table's slot count, rehashing every
// occupied slot into the new table before freeing the old one.
func (m *Map[K, V]) grow() error {
	oldTable, oldCap := m.table, m.capacity
	newCap := 2*oldCap - 1

	newTable, err := m.allocTable(newCap)
	if err != nil {
		return err
	}

	oldM := &Map[K, V]{a: m.a, kc: m.kc, vc: m.vc, keySize: m.keySize, valSize: m.valSize, table: oldTable, capacity: oldCap}
	newM := &Map[K, V]{a: m.a, kc: m.kc, vc: m.vc, keySize: m.keySize, valSize: m.valSize, table: newTable, capacity: newCap}

	for i := 0; i < oldCap; i++ {
		state, err := oldM.readState(oldTable, i)
		if err != nil {
			return err
		}
		if state != stateOccupied {
			continue
		}
		k, err := oldM.readKeyAt(oldTable, i)
		if err != nil {
			return err
		}
		v, err := oldM.readValAt(oldTable, i)
		if err != nil {
			return err
		}
		idx, _, err := newM.findSlot(k)
		if err != nil {
			return err
		}
		if err := newM.writeKeyAt(newTable, idx, k); err != nil {
			return err
		}
		if err := newM.writeValAt(newTable, idx, v); err != nil {
			return err
		}
		if err := newM.writeState(newTable, idx, stateOccupied); err != nil {
			return err
		}
	}

	if err := m.deallocTable(oldTable, oldCap); err != nil {
		return err
	}

	m.table, m.capacity = newTable, newCap
	return nil
}

// Remove deletes key, returning its value and true if it was present. A
// removed slot's probe-chain successors are back-shifted in place
// (Robin-Hood style) rather than left as tombstones, exactly as the
// original source's remove_by_idx does.
func (m *Map[K, V]) Remove(key K) (V, bool, error) {
	var zero V

	idx, found, err := m.findSlot(key)
	if err != nil || !found {
		return zero, false, err
	}

	val, err := m.readValAt(m.table, idx)
	if err != nil {
		return zero, false, err
	}

	if err := m.backShiftFrom(idx); err != nil {
		return zero, false, err
	}
	m.length--
	return val, true, nil
}

// backShiftFrom empties slot i and walks the probe chain that follows
// it, pulling back into the hole any entry whose ideal slot no longer
// requires it to sit between the hole and its current position, and
// repeating with the hole at that entry's old slot. j always advances;
// i (the hole) only moves when an entry is pulled back, exactly as the
// original source's remove_by_idx does.
func (m *Map[K, V]) backShiftFrom(i int) error {
	j := i
	for {
		j = (j + 1) % m.capacity
		if j == i {
			break
		}

		state, err := m.readState(m.table, j)
		if err != nil {
			return err
		}
		if state == stateEmpty {
			break
		}

		k, err := m.readKeyAt(m.table, j)
		if err != nil {
			return err
		}
		ideal := m.hashKey(k)

		if (j < i) != (ideal <= i) != (ideal > j) {
			v, err := m.readValAt(m.table, j)
			if err != nil {
				return err
			}
			if err := m.writeKeyAt(m.table, i, k); err != nil {
				return err
			}
			if err := m.writeValAt(m.table, i, v); err != nil {
				return err
			}
			i = j
		}
	}

	return m.writeState(m.table, i, stateEmpty)
}
