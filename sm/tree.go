// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sm

import (
	"fmt"

	"github.com/cznic/sm/codec"
	"github.com/cznic/sm/sbtree"
)

// CreateTree creates a new, empty named B⁺-tree map under the Store. It
// is an error for name to already be in use.
func CreateTree[K any, V any](s *Store, name string, kc codec.Codec[K], vc codec.Codec[V]) (*sbtree.Map[K, V], error) {
	if _, found, err := s.lookup(name); err != nil {
		return nil, err
	} else if found {
		return nil, fmt.Errorf("sm: %q already exists", name)
	}

	t := sbtree.New[K, V](s.a, kc, vc)
	s.register(name, func() dirEntry {
		return dirEntry{kind: kindTree, f: [5]uint64{t.Root(), t.Len()}}
	})
	if err := s.insert(name, dirEntry{kind: kindTree, f: [5]uint64{t.Root(), t.Len()}}); err != nil {
		return nil, err
	}
	return t, nil
}

// OpenTree reconstructs a previously created named B⁺-tree map.
func OpenTree[K any, V any](s *Store, name string, kc codec.Codec[K], vc codec.Codec[V]) (*sbtree.Map[K, V], error) {
	e, found, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("sm: no such collection %q", name)
	}
	if e.kind != kindTree {
		return nil, kindMismatch(name, kindTree, e.kind)
	}

	t := sbtree.Load[K, V](s.a, e.f[0], e.f[1], kc, vc)
	s.register(name, func() dirEntry {
		return dirEntry{kind: kindTree, f: [5]uint64{t.Root(), t.Len()}}
	})
	return t, nil
}
