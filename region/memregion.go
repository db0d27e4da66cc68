// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// A memory-only implementation of Region, adapted from lldb's MemFiler:
// pages are allocated lazily on first write and an unwritten page reads
// back as all zeros without ever being materialized.

package region

import (
	"bytes"

	"github.com/cznic/mathutil"
)

var _ Region = (*MemRegion)(nil)

type memRegionMap map[int64]*[PageSize]byte

// MemRegion is a memory-backed Region. It is not persistent across
// process restarts on its own; callers wanting persistence should use
// FileRegion.
type MemRegion struct {
	m     memRegionMap
	pages int64
}

// NewMemRegion returns a new, empty MemRegion.
func NewMemRegion() *MemRegion {
	return &MemRegion{m: memRegionMap{}}
}

var zeroPage [PageSize]byte

// SizePages implements Region.
func (r *MemRegion) SizePages() int64 { return r.pages }

// Grow implements Region.
func (r *MemRegion) Grow(n int64) (prevPages int64, err error) {
	if n <= 0 {
		return r.pages, &ErrOutOfRange{Off: 0, Size: r.pages * PageSize, Len: n * PageSize}
	}

	prevPages = r.pages
	r.pages += n
	return prevPages, nil
}

// ReadAt implements Region.
func (r *MemRegion) ReadAt(b []byte, off int64) (n int, err error) {
	size := r.pages * PageSize
	avail := size - off
	if off < 0 || avail < 0 {
		return 0, &ErrOutOfRange{Off: off, Size: size, Len: int64(len(b))}
	}

	pgI := off / PageSize
	pgO := int(off % PageSize)
	rem := len(b)
	if int64(rem) > avail {
		rem = int(avail)
	}
	want := len(b)
	for rem != 0 {
		pg := r.m[pgI]
		if pg == nil {
			pg = &zeroPage
		}
		nc := copy(b[n:mathutil.Min(n+rem, n+PageSize)], pg[pgO:])
		pgI++
		pgO = 0
		rem -= nc
		n += nc
	}
	if n < want {
		return n, &ErrOutOfRange{Off: off, Size: size, Len: int64(want)}
	}
	return n, nil
}

// WriteAt implements Region.
func (r *MemRegion) WriteAt(b []byte, off int64) (n int, err error) {
	size := r.pages * PageSize
	if off < 0 || off+int64(len(b)) > size {
		return 0, &ErrOutOfRange{Off: off, Size: size, Len: int64(len(b))}
	}

	pgI := off / PageSize
	pgO := int(off % PageSize)
	want := len(b)
	rem := want
	for rem != 0 {
		var nc int
		if pgO == 0 && rem >= PageSize && bytes.Equal(b[n:n+PageSize], zeroPage[:]) {
			delete(r.m, pgI)
			nc = PageSize
		} else {
			pg := r.m[pgI]
			if pg == nil {
				pg = new([PageSize]byte)
				r.m[pgI] = pg
			}
			nc = copy(pg[pgO:], b[n:])
		}
		pgI++
		pgO = 0
		rem -= nc
		n += nc
	}
	return n, nil
}

// Close implements Region.
func (r *MemRegion) Close() error { return nil }
