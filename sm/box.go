// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sm

import (
	"fmt"

	"github.com/cznic/sm/codec"
	"github.com/cznic/sm/sbox"
)

func boxDescriptor[T any](bx *sbox.Box[T]) dirEntry {
	return dirEntry{kind: kindBox, f: [5]uint64{bx.Ptr(), bx.BlockLen(), bx.ValLen()}}
}

// CreateBox creates a new named box holding v under the Store. It is an
// error for name to already be in use.
func CreateBox[T any](s *Store, name string, c codec.DynCodec[T], v T) (*sbox.Box[T], error) {
	if _, found, err := s.lookup(name); err != nil {
		return nil, err
	} else if found {
		return nil, fmt.Errorf("sm: %q already exists", name)
	}

	bx, err := sbox.New[T](s.a, c, v)
	if err != nil {
		return nil, err
	}
	s.register(name, func() dirEntry { return boxDescriptor(bx) })
	if err := s.insert(name, boxDescriptor(bx)); err != nil {
		return nil, err
	}
	return bx, nil
}

// OpenBox reconstructs a previously created named box.
func OpenBox[T any](s *Store, name string, c codec.DynCodec[T]) (*sbox.Box[T], error) {
	e, found, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("sm: no such collection %q", name)
	}
	if e.kind != kindBox {
		return nil, kindMismatch(name, kindBox, e.kind)
	}

	bx := sbox.Load[T](s.a, c, e.f[0], e.f[1], e.f[2])
	s.register(name, func() dirEntry { return boxDescriptor(bx) })
	return bx, nil
}
