// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sm

import (
	"fmt"

	"github.com/cznic/sm/codec"
	"github.com/cznic/sm/slog"
)

func logDescriptor[T any](l *slog.Log[T]) dirEntry {
	return dirEntry{kind: kindLog, f: [5]uint64{
		l.Len(),
		l.FirstSector(),
		l.CurSector(),
		uint64(l.CurSectorCapacity()),
		uint64(l.CurSectorLen()),
	}}
}

// CreateLog creates a new, empty named log under the Store. It is an
// error for name to already be in use.
func CreateLog[T any](s *Store, name string, c codec.Codec[T]) (*slog.Log[T], error) {
	if _, found, err := s.lookup(name); err != nil {
		return nil, err
	} else if found {
		return nil, fmt.Errorf("sm: %q already exists", name)
	}

	l := slog.New[T](s.a, c)
	s.register(name, func() dirEntry { return logDescriptor(l) })
	if err := s.insert(name, logDescriptor(l)); err != nil {
		return nil, err
	}
	return l, nil
}

// OpenLog reconstructs a previously created named log.
func OpenLog[T any](s *Store, name string, c codec.Codec[T]) (*slog.Log[T], error) {
	e, found, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("sm: no such collection %q", name)
	}
	if e.kind != kindLog {
		return nil, kindMismatch(name, kindLog, e.kind)
	}

	l := slog.Load[T](s.a, c, e.f[0], e.f[1], e.f[2], int(e.f[3]), int(e.f[4]))
	s.register(name, func() dirEntry { return logDescriptor(l) })
	return l, nil
}
