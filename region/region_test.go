// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package region

import (
	"bytes"
	"testing"
)

func TestMemRegionGrowReadWrite(t *testing.T) {
	r := NewMemRegion()
	if r.SizePages() != 0 {
		t.Fatalf("new region not empty: %d pages", r.SizePages())
	}

	prev, err := r.Grow(2)
	if err != nil {
		t.Fatal(err)
	}
	if prev != 0 {
		t.Fatalf("prevPages = %d, want 0", prev)
	}
	if r.SizePages() != 2 {
		t.Fatalf("SizePages = %d, want 2", r.SizePages())
	}

	buf := []byte("hello, region")
	if _, err := r.WriteAt(buf, 100); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, len(buf))
	if _, err := r.ReadAt(got, 100); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, buf) {
		t.Fatalf("got %q, want %q", got, buf)
	}

	// Unwritten bytes read back as zero.
	zeros := make([]byte, 16)
	if _, err := r.ReadAt(zeros, PageSize+42); err != nil {
		t.Fatal(err)
	}
	for _, b := range zeros {
		if b != 0 {
			t.Fatalf("unwritten byte = %d, want 0", b)
		}
	}

	if _, err := r.ReadAt(make([]byte, 8), 2*PageSize); err == nil {
		t.Fatal("expected out-of-range error reading past size")
	}
}

func TestInnerRegionTranslatesOffsets(t *testing.T) {
	outer := NewMemRegion()
	if _, err := outer.Grow(2); err != nil {
		t.Fatal(err)
	}

	inner := NewInnerRegion(outer, PageSize)
	if inner.SizePages() != 1 {
		t.Fatalf("inner.SizePages() = %d, want 1", inner.SizePages())
	}

	if _, err := inner.WriteAt([]byte{1, 2, 3}, 4); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, 3)
	if _, err := outer.ReadAt(got, PageSize+4); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("outer saw %v, want [1 2 3]", got)
	}
}
