// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// An os.File backed Region, adapted from lldb's SimpleFileFiler/OSFiler
// pair: it tracks its own size rather than trusting repeated stat calls,
// and leans on fileutil for hole punching the same way SimpleFileFiler
// does.

package region

import (
	"os"

	"github.com/cznic/fileutil"
	"github.com/cznic/mathutil"
)

var _ Region = (*FileRegion)(nil)

// FileRegion is an os.File backed Region. It does not itself provide any
// structural-consistency guarantees across a crash; the allocator's
// restart story relies only on Store()/Reinit() being called around a
// clean process lifetime, exactly as the teacher's Filer family assumes.
type FileRegion struct {
	f     *os.File
	pages int64
}

// OpenFileRegion opens (creating if necessary) the file at path as a
// FileRegion. A file whose size is not a whole multiple of PageSize is
// extended up to the next page boundary.
func OpenFileRegion(path string) (*FileRegion, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	sz := fi.Size()
	pages := sz / PageSize
	if pages*PageSize != sz {
		// Truncate up to a page boundary rather than refuse to open;
		// any partial trailing page is treated as not yet committed.
		pages++
		if err := f.Truncate(pages * PageSize); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &FileRegion{f: f, pages: pages}, nil
}

// SizePages implements Region.
func (r *FileRegion) SizePages() int64 { return r.pages }

// Grow implements Region.
func (r *FileRegion) Grow(n int64) (prevPages int64, err error) {
	if n <= 0 {
		return r.pages, &ErrOutOfRange{Off: 0, Size: r.pages * PageSize, Len: n * PageSize}
	}

	prevPages = r.pages
	if err = r.f.Truncate((r.pages + n) * PageSize); err != nil {
		return prevPages, err
	}

	r.pages += n
	return prevPages, nil
}

// ReadAt implements Region.
func (r *FileRegion) ReadAt(b []byte, off int64) (n int, err error) {
	size := r.pages * PageSize
	if off < 0 || off+int64(len(b)) > size {
		return 0, &ErrOutOfRange{Off: off, Size: size, Len: int64(len(b))}
	}

	return r.f.ReadAt(b, off)
}

// WriteAt implements Region.
func (r *FileRegion) WriteAt(b []byte, off int64) (n int, err error) {
	size := r.pages * PageSize
	if off < 0 || off+int64(len(b)) > size {
		return 0, &ErrOutOfRange{Off: off, Size: size, Len: int64(len(b))}
	}

	return r.f.WriteAt(b, off)
}

// PunchHole deallocates backing space in the byte range [off, off+size)
// without changing the Region's reported size, the same contract as
// lldb.Filer.PunchHole. It is advisory: a FileRegion is free to retain the
// space if the platform cannot punch holes.
func (r *FileRegion) PunchHole(off, size int64) error {
	return fileutil.PunchHole(r.f, off, mathutil.MinInt64(size, r.pages*PageSize-off))
}

// Close implements Region.
func (r *FileRegion) Close() error { return r.f.Close() }
