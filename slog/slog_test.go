// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package slog

import (
	"testing"

	"github.com/cznic/sm/codec"
	"github.com/cznic/sm/region"
	"github.com/cznic/sm/smalloc"
)

func newTestLog(t *testing.T) *Log[uint64] {
	t.Helper()
	r := region.NewMemRegion()
	if _, err := r.Grow(1); err != nil {
		t.Fatal(err)
	}
	a, err := smalloc.Init(r, 0, 0, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	return New[uint64](a, codec.Uint64Codec{})
}

// Scenario 8: push/pop symmetry, sector regrowth, and indexed Get
// after refill.
func TestPushPopAndReuse(t *testing.T) {
	l := newTestLog(t)

	const n = 1000
	for i := uint64(0); i < n; i++ {
		if err := l.Push(i * i); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	if l.Len() != n {
		t.Fatalf("len = %d, want %d", l.Len(), n)
	}

	for i := uint64(0); i < n; i++ {
		v, ok, err := l.Get(i)
		if err != nil || !ok {
			t.Fatalf("get %d: ok=%v err=%v", i, ok, err)
		}
		if v != i*i {
			t.Fatalf("get %d = %d, want %d", i, v, i*i)
		}
	}

	for i := uint64(0); i < n/2; i++ {
		v, ok, err := l.Pop()
		if err != nil || !ok {
			t.Fatalf("pop %d: ok=%v err=%v", i, ok, err)
		}
		want := (n - 1 - i)
		if v != want*want {
			t.Fatalf("pop %d = %d, want %d", i, v, want*want)
		}
	}
	if l.Len() != n/2 {
		t.Fatalf("len after half pop = %d, want %d", l.Len(), n/2)
	}

	// Refill past the old tail to exercise sector regrowth.
	for i := uint64(0); i < n/2; i++ {
		if err := l.Push(i + 1_000_000); err != nil {
			t.Fatalf("refill push %d: %v", i, err)
		}
	}
	if l.Len() != n {
		t.Fatalf("len after refill = %d, want %d", l.Len(), n)
	}

	for i := uint64(0); i < n/2; i++ {
		v, ok, err := l.Get(i)
		if err != nil || !ok {
			t.Fatalf("get %d: ok=%v err=%v", i, ok, err)
		}
		if v != i*i {
			t.Fatalf("get %d = %d, want %d", i, v, i*i)
		}
	}
	for i := uint64(0); i < n/2; i++ {
		idx := n/2 + i
		v, ok, err := l.Get(idx)
		if err != nil || !ok {
			t.Fatalf("get %d: ok=%v err=%v", idx, ok, err)
		}
		if v != i+1_000_000 {
			t.Fatalf("get %d = %d, want %d", idx, v, i+1_000_000)
		}
	}
}

func TestPopEmpty(t *testing.T) {
	l := newTestLog(t)
	_, ok, err := l.Pop()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("pop on empty log reported ok")
	}
}

func TestSetOverwrite(t *testing.T) {
	l := newTestLog(t)
	for i := uint64(0); i < 20; i++ {
		if err := l.Push(i); err != nil {
			t.Fatal(err)
		}
	}
	ok, err := l.Set(5, 999)
	if err != nil || !ok {
		t.Fatalf("set: ok=%v err=%v", ok, err)
	}
	v, ok, err := l.Get(5)
	if err != nil || !ok || v != 999 {
		t.Fatalf("get after set = (%d, %v), want (999, true)", v, ok)
	}

	if ok, err := l.Set(1000, 1); err != nil || ok {
		t.Fatalf("set out of range: ok=%v err=%v", ok, err)
	}
}

func TestGetOutOfRange(t *testing.T) {
	l := newTestLog(t)
	if err := l.Push(1); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := l.Get(5); err != nil || ok {
		t.Fatalf("get out of range: ok=%v err=%v", ok, err)
	}
}
