// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package region provides the growable, byte-addressable backing store on
// top of which package smalloc manages heap space and package sbtree lays
// out its nodes.
//
// A Region is a []byte-like model of a durable store, addressed by
// absolute byte offset and grown a whole page at a time. In contrast to a
// Filer (see the lineage this package is adapted from), a Region exposes
// its growth in page units directly, since the allocator and every
// collection built on it reason about the backing store only in terms of
// "current size in pages" and "grow by n pages".
package region

import (
	"fmt"

	"github.com/cznic/mathutil"
)

// PageSize is the fixed page size, in bytes, that a Region grows by. This
// value is part of the on-region layout (the allocator's grow-rounding
// arithmetic) and must never change for a given store.
const PageSize = 1 << 16 // 65536

// Region is a durable, byte-addressable, page-grown backing store. A
// Region is not safe for concurrent use; callers coordinate access the
// same way lldb.Filer consumers do — from one goroutine, or behind a
// mutex.
type Region interface {
	// SizePages reports the current size of the Region in whole pages.
	SizePages() int64

	// Grow extends the Region by n pages, zero-initialized, and returns
	// the page count the Region had before growing. n must be > 0.
	Grow(n int64) (prevPages int64, err error)

	// ReadAt reads len(b) bytes starting at off. It is an error to read
	// beyond the current size.
	ReadAt(b []byte, off int64) (n int, err error)

	// WriteAt writes len(b) bytes starting at off. WriteAt never
	// implicitly grows the Region; callers must Grow first.
	WriteAt(b []byte, off int64) (n int, err error)

	// Close releases any resources held by the Region.
	Close() error
}

// ErrOutOfRange is returned by ReadAt/WriteAt when the requested range
// falls outside the Region's current size.
type ErrOutOfRange struct {
	Off, Size, Len int64
}

func (e *ErrOutOfRange) Error() string {
	return fmt.Sprintf("region: access [%d, %d) out of range, size %d", e.Off, e.Off+e.Len, e.Size)
}

func clampNonNeg(v int64) int64 { return mathutil.MaxInt64(v, 0) }
