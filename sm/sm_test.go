// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sm

import (
	"path/filepath"
	"testing"

	"github.com/cznic/sm/codec"
)

// Scenario 10: store round-trip.
func TestCreateOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.sm")

	s, err := Create(path)
	if err != nil {
		t.Fatal(err)
	}

	tr, err := CreateTree[uint64, uint64](s, "tree1", codec.Uint64Codec{}, codec.Uint64Codec{})
	if err != nil {
		t.Fatal(err)
	}
	for i := uint64(0); i < 50; i++ {
		if _, _, err := tr.Insert(i, i*i); err != nil {
			t.Fatal(err)
		}
	}

	lg, err := CreateLog[uint64](s, "log1", codec.Uint64Codec{})
	if err != nil {
		t.Fatal(err)
	}
	for i := uint64(0); i < 30; i++ {
		if err := lg.Push(i + 7); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	tr2, err := OpenTree[uint64, uint64](s2, "tree1", codec.Uint64Codec{}, codec.Uint64Codec{})
	if err != nil {
		t.Fatal(err)
	}
	for i := uint64(0); i < 50; i++ {
		v, ok, err := tr2.Get(i)
		if err != nil || !ok || v != i*i {
			t.Fatalf("tree get %d = (%d, %v), want (%d, true): err=%v", i, v, ok, i*i, err)
		}
	}

	lg2, err := OpenLog[uint64](s2, "log1", codec.Uint64Codec{})
	if err != nil {
		t.Fatal(err)
	}
	if lg2.Len() != 30 {
		t.Fatalf("log len = %d, want 30", lg2.Len())
	}
	for i := uint64(0); i < 30; i++ {
		v, ok, err := lg2.Get(i)
		if err != nil || !ok || v != i+7 {
			t.Fatalf("log get %d = (%d, %v), want (%d, true): err=%v", i, v, ok, i+7, err)
		}
	}

	if _, err := OpenHashMap[uint64, uint64](s2, "tree1", codec.Uint64Codec{}, codec.Uint64Codec{}); err == nil {
		t.Fatal("expected kind-mismatch error opening a tree as a hashmap")
	}
	if _, err := OpenTree[uint64, uint64](s2, "nosuch", codec.Uint64Codec{}, codec.Uint64Codec{}); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestCreateMemAndHashMapBox(t *testing.T) {
	s, err := CreateMem()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	hm, err := CreateHashMap[uint64, uint64](s, "hm", codec.Uint64Codec{}, codec.Uint64Codec{})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := hm.Insert(1, 100); err != nil {
		t.Fatal(err)
	}

	if _, err := CreateBox[[]byte](s, "bx", codec.BytesDynCodec{}, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := s.Sync(); err != nil {
		t.Fatal(err)
	}

	hm2, err := OpenHashMap[uint64, uint64](s, "hm", codec.Uint64Codec{}, codec.Uint64Codec{})
	if err != nil {
		t.Fatal(err)
	}
	if v, ok, err := hm2.Get(1); err != nil || !ok || v != 100 {
		t.Fatalf("hm2 get = (%d, %v), err=%v", v, ok, err)
	}

	bx2, err := OpenBox[[]byte](s, "bx", codec.BytesDynCodec{})
	if err != nil {
		t.Fatal(err)
	}
	got, err := bx2.Get()
	if err != nil || string(got) != "hello" {
		t.Fatalf("bx2 get = %q, err=%v", got, err)
	}
}
