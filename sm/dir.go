// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sm

import (
	"encoding/binary"
	"hash/fnv"
)

// kind tags what a directory entry's five uint64 fields mean.
type kind byte

const (
	kindTree kind = 1 + iota
	kindHashMap
	kindLog
	kindBox
)

// dirEntry is the fixed-size, kind-tagged descriptor a named collection
// is reduced to for storage in the directory hash map: a tree's root and
// length, a hash map's table/length/capacity, a log's five persisted
// fields, or a box's ptr/blkLen/valLen, depending on kind.
type dirEntry struct {
	kind kind
	f    [5]uint64
}

// dirEntryCodec is the fixed-size codec.Codec for dirEntry, the value
// type of the directory hash map built on shmap.
type dirEntryCodec struct{}

func (dirEntryCodec) Size() int { return 1 + 5*8 }

func (dirEntryCodec) Encode(v dirEntry, buf []byte) {
	buf[0] = byte(v.kind)
	for i, f := range v.f {
		binary.LittleEndian.PutUint64(buf[1+8*i:], f)
	}
}

func (dirEntryCodec) Decode(buf []byte) dirEntry {
	var v dirEntry
	v.kind = kind(buf[0])
	for i := range v.f {
		v.f[i] = binary.LittleEndian.Uint64(buf[1+8*i:])
	}
	return v
}

// Compare is never exercised — the directory is a hash map, not an
// ordered collection — but shmap's codec.Codec contract requires it.
func (dirEntryCodec) Compare(a, b dirEntry) int {
	switch {
	case a.kind != b.kind:
		return int(a.kind) - int(b.kind)
	default:
		for i := range a.f {
			if a.f[i] != b.f[i] {
				if a.f[i] < b.f[i] {
					return -1
				}
				return 1
			}
		}
		return 0
	}
}

// nameHash reduces a collection name to the directory's fixed-size key.
// Two distinct names that collide under FNV-1a64 would alias the same
// directory slot; this module accepts that remote risk rather than
// storing variable-length names (see DESIGN.md).
func nameHash(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}
