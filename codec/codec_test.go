// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"testing"
)

func TestUint64CodecOrderMatchesBytes(t *testing.T) {
	c := Uint64Codec{}
	a, b := make([]byte, 8), make([]byte, 8)
	c.Encode(5, a)
	c.Encode(9, b)
	if bytes.Compare(a, b) >= 0 {
		t.Fatal("encoding of 5 should sort before encoding of 9")
	}
	if c.Compare(5, 9) >= 0 {
		t.Fatal("5 should compare less than 9")
	}
	if got := c.Decode(a); got != 5 {
		t.Fatalf("got %d, want 5", got)
	}
}

func TestInt64CodecOrdersNegatives(t *testing.T) {
	c := Int64Codec{}
	buf := make([]byte, 8)
	c.Encode(-1, buf)
	if got := c.Decode(buf); got != -1 {
		t.Fatalf("got %d, want -1", got)
	}
	if c.Compare(-1, 1) >= 0 {
		t.Fatal("-1 should compare less than 1")
	}
	if c.Compare(-5, -1) >= 0 {
		t.Fatal("-5 should compare less than -1")
	}
}

func TestBytesCodecRoundTrip(t *testing.T) {
	c := NewBytesCodec(4)
	buf := make([]byte, 4)
	c.Encode([]byte("abcd"), buf)
	if got := string(c.Decode(buf)); got != "abcd" {
		t.Fatalf("got %q, want abcd", got)
	}
}
