// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sm

import (
	"fmt"

	"github.com/cznic/sm/codec"
	"github.com/cznic/sm/shmap"
)

// CreateHashMap creates a new, empty named hash map under the Store. It
// is an error for name to already be in use.
func CreateHashMap[K any, V any](s *Store, name string, kc codec.Codec[K], vc codec.Codec[V]) (*shmap.Map[K, V], error) {
	if _, found, err := s.lookup(name); err != nil {
		return nil, err
	} else if found {
		return nil, fmt.Errorf("sm: %q already exists", name)
	}

	m := shmap.New[K, V](s.a, kc, vc)
	s.register(name, func() dirEntry {
		return dirEntry{kind: kindHashMap, f: [5]uint64{m.Table(), uint64(m.Len()), uint64(m.Capacity())}}
	})
	if err := s.insert(name, dirEntry{kind: kindHashMap, f: [5]uint64{m.Table(), uint64(m.Len()), uint64(m.Capacity())}}); err != nil {
		return nil, err
	}
	return m, nil
}

// OpenHashMap reconstructs a previously created named hash map.
func OpenHashMap[K any, V any](s *Store, name string, kc codec.Codec[K], vc codec.Codec[V]) (*shmap.Map[K, V], error) {
	e, found, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("sm: no such collection %q", name)
	}
	if e.kind != kindHashMap {
		return nil, kindMismatch(name, kindHashMap, e.kind)
	}

	m := shmap.Load[K, V](s.a, e.f[0], int(e.f[1]), int(e.f[2]), kc, vc)
	s.register(name, func() dirEntry {
		return dirEntry{kind: kindHashMap, f: [5]uint64{m.Table(), uint64(m.Len()), uint64(m.Capacity())}}
	})
	return m, nil
}
