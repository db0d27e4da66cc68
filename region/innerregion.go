// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package region

import "github.com/cznic/mathutil"

var _ Region = (*InnerRegion)(nil)

// InnerRegion is a Region with added offset translation, adapted from
// lldb.InnerFiler. It lets an allocator (or a test) address a sub-range of
// a shared outer Region starting at a fixed byte offset, pretending the
// bytes before that offset do not exist.
//
// Grow on an InnerRegion grows the outer Region; SizePages reports
// (outer size in bytes - off) rounded down to whole pages, which is only
// meaningful when off is itself a multiple of PageSize.
type InnerRegion struct {
	outer Region
	off   int64
}

// NewInnerRegion returns a Region that adds off to every access against
// outer.
func NewInnerRegion(outer Region, off int64) *InnerRegion {
	return &InnerRegion{outer: outer, off: off}
}

// SizePages implements Region.
func (r *InnerRegion) SizePages() int64 {
	bytes := r.outer.SizePages()*PageSize - r.off
	return mathutil.MaxInt64(bytes, 0) / PageSize
}

// Grow implements Region.
func (r *InnerRegion) Grow(n int64) (prevPages int64, err error) {
	prev, err := r.outer.Grow(n)
	if err != nil {
		return 0, err
	}

	return prev - r.off/PageSize, nil
}

// ReadAt implements Region.
func (r *InnerRegion) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, &ErrOutOfRange{Off: off, Size: r.SizePages() * PageSize, Len: int64(len(b))}
	}

	return r.outer.ReadAt(b, r.off+off)
}

// WriteAt implements Region.
func (r *InnerRegion) WriteAt(b []byte, off int64) (int, error) {
	if off < 0 {
		return 0, &ErrOutOfRange{Off: off, Size: r.SizePages() * PageSize, Len: int64(len(b))}
	}

	return r.outer.WriteAt(b, r.off+off)
}

// Close implements Region. Notice: InnerRegion.Close is a nop, as only
// the outer Region owns the underlying resource.
func (r *InnerRegion) Close() error { return nil }
