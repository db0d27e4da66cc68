// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package codec provides the fixed-size encoding contract that
// smalloc-backed collections need for their keys and values. The original
// source left this as an unprescribed "any total, injective, comparable
// encoding will do" trait (AsFixedSizeBytes); this package expresses that
// contract the idiomatic Go way, as a generic interface plus a handful of
// built-in implementations for the integer families and fixed-length byte
// strings.
package codec

import (
	"bytes"
	"encoding/binary"

	"github.com/cznic/sm/smerr"
)

// Codec converts values of type T to and from a fixed-size byte
// representation and orders them for ordered collections (sbtree). Size
// must be constant for a given Codec value: every Encode call writes
// exactly Size() bytes and every Decode call reads exactly Size() bytes.
type Codec[T any] interface {
	// Size is the fixed number of bytes Encode writes and Decode reads.
	Size() int

	// Encode writes v's fixed-size representation into buf, which has
	// length exactly Size().
	Encode(v T, buf []byte)

	// Decode reads a value back from buf, which has length exactly
	// Size().
	Decode(buf []byte) T

	// Compare returns a negative number, zero, or a positive number as
	// a is less than, equal to, or greater than b. Ordered collections
	// rely on this matching the natural order of the encoded bytes is
	// not required — the codec, not the byte layout, defines order.
	Compare(a, b T) int
}

func checkLen(buf []byte, want int) {
	if len(buf) != want {
		panic(&smerr.InvariantViolation{Msg: "codec: buffer has wrong fixed size"})
	}
}

// Uint64Codec codes uint64 values big-endian, so that unsigned lexicographic
// byte comparison agrees with numeric order (the property spec.md §4.2
// calls out for "comparable fixed-size encodings").
type Uint64Codec struct{}

func (Uint64Codec) Size() int { return 8 }
func (Uint64Codec) Encode(v uint64, buf []byte) {
	checkLen(buf, 8)
	binary.BigEndian.PutUint64(buf, v)
}
func (Uint64Codec) Decode(buf []byte) uint64 {
	checkLen(buf, 8)
	return binary.BigEndian.Uint64(buf)
}
func (Uint64Codec) Compare(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Int64Codec codes int64 values by flipping the sign bit before encoding
// big-endian, which keeps unsigned lexicographic byte order consistent
// with signed numeric order across the zero crossing.
type Int64Codec struct{}

func (Int64Codec) Size() int { return 8 }
func (Int64Codec) Encode(v int64, buf []byte) {
	checkLen(buf, 8)
	binary.BigEndian.PutUint64(buf, uint64(v)^(1<<63))
}
func (Int64Codec) Decode(buf []byte) int64 {
	checkLen(buf, 8)
	return int64(binary.BigEndian.Uint64(buf) ^ (1 << 63))
}
func (Int64Codec) Compare(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Uint32Codec codes uint32 values big-endian.
type Uint32Codec struct{}

func (Uint32Codec) Size() int { return 4 }
func (Uint32Codec) Encode(v uint32, buf []byte) {
	checkLen(buf, 4)
	binary.BigEndian.PutUint32(buf, v)
}
func (Uint32Codec) Decode(buf []byte) uint32 {
	checkLen(buf, 4)
	return binary.BigEndian.Uint32(buf)
}
func (Uint32Codec) Compare(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// BytesCodec codes fixed-length []byte values (the slice length is fixed
// by construction; callers must not change it). Ordering is unsigned
// lexicographic, matching bytes.Compare.
type BytesCodec struct {
	N int
}

func NewBytesCodec(n int) BytesCodec { return BytesCodec{N: n} }

func (c BytesCodec) Size() int { return c.N }
func (c BytesCodec) Encode(v []byte, buf []byte) {
	checkLen(buf, c.N)
	if len(v) != c.N {
		panic(&smerr.InvariantViolation{Msg: "codec: value has wrong fixed size"})
	}
	copy(buf, v)
}
func (c BytesCodec) Decode(buf []byte) []byte {
	checkLen(buf, c.N)
	out := make([]byte, c.N)
	copy(out, buf)
	return out
}
func (c BytesCodec) Compare(a, b []byte) int { return bytes.Compare(a, b) }

// DynCodec converts values of type T to and from a variable-length byte
// representation, the fixed-size Codec's counterpart for sbox.Box, which
// has no use for a Compare method since boxed values are never ordered
// against each other by the collections in this module. This is this
// package's expression of the original source's AsDynSizeBytes trait.
type DynCodec[T any] interface {
	// Encode returns v's variable-length representation.
	Encode(v T) []byte

	// Decode reconstructs a value from bytes previously produced by
	// Encode.
	Decode(buf []byte) T
}

// BytesDynCodec is the identity DynCodec for []byte: Encode and Decode
// both copy, so the caller and the box never alias the same backing
// array.
type BytesDynCodec struct{}

func (BytesDynCodec) Encode(v []byte) []byte {
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

func (BytesDynCodec) Decode(buf []byte) []byte {
	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}
