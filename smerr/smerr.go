// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package smerr defines the error kinds surfaced by the allocator, the
// B⁺-tree and the other stable-memory collections in this module.
package smerr

import "fmt"

// OutOfMemory is returned when an allocation or reallocation cannot be
// satisfied because growing the backing Region was refused by the host or
// capped by the allocator's MaxGrowPages.
type OutOfMemory struct {
	// Requested is the payload size, in bytes, that could not be
	// satisfied.
	Requested uint64
}

func (e *OutOfMemory) Error() string {
	return fmt.Sprintf("smerr: out of memory: requested %d bytes", e.Requested)
}

// CorruptMetadata is returned when on-region bookkeeping fails a structural
// check: a bad prologue magic on Reinit, or a block whose header does not
// equal its trailer.
type CorruptMetadata struct {
	Off int64
	Msg string
}

func (e *CorruptMetadata) Error() string {
	return fmt.Sprintf("smerr: corrupt metadata at offset %d: %s", e.Off, e.Msg)
}

// InvariantViolation marks a programmer error: an operation whose
// precondition the caller failed to uphold, e.g. deallocating a block that
// is not currently allocated, or handing a codec a buffer of the wrong
// fixed size.
type InvariantViolation struct {
	Msg string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("smerr: invariant violation: %s", e.Msg)
}
