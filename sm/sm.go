// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*

Package sm is the top-level façade combining a region.Region, a
smalloc.Allocator and a small directory of named collections (trees,
hash maps, logs, boxes) so that data created through it survives a
Close/Open cycle, grounded on dbm/dbm.go's Create/Open/Close lifecycle
and its use of the allocator's custom-data slots to anchor caller state.

A Store is not safe for concurrent use from multiple goroutines without
external synchronization beyond the single advisory mutex it holds
internally to serialize its own directory bookkeeping — the same
big-kernel-lock caveat dbm.DB documents about itself.

*/
package sm

import (
	"fmt"
	"sync"

	"github.com/cznic/sm/codec"
	"github.com/cznic/sm/region"
	"github.com/cznic/sm/shmap"
	"github.com/cznic/sm/smalloc"
)

const (
	slotDirTable    = 0
	slotDirLength   = 1
	slotDirCapacity = 2
)

// syncFunc re-derives a registered collection's current dirEntry from
// the live Go value a caller is still holding, so Sync/Close persist its
// latest state rather than whatever was true when it was created/opened.
type syncFunc func() dirEntry

// Store is a region.Region plus a smalloc.Allocator plus a directory of
// named collections built on the same allocator.
type Store struct {
	mu  sync.Mutex
	r   region.Region
	a   *smalloc.Allocator
	dir *shmap.Map[uint64, dirEntry]

	owned    map[string]syncFunc
	isFile   bool
}

// Create initializes a fresh Store backed by a newly created file at
// path. The file must not already exist.
func Create(path string, opts ...Option) (*Store, error) {
	r, err := region.OpenFileRegion(path)
	if err != nil {
		return nil, err
	}
	return create(r, true, opts)
}

// CreateMem initializes a fresh Store backed by an in-memory Region, not
// persisted anywhere. Intended for tests and scratch use, the same role
// dbm.CreateMem plays for dbm.DB.
func CreateMem(opts ...Option) (*Store, error) {
	return create(region.NewMemRegion(), false, opts)
}

func create(r region.Region, isFile bool, opts []Option) (*Store, error) {
	cfg := buildConfig(opts)

	a, err := smalloc.Init(r, 0, cfg.maxAllocationPages, cfg.maxGrowPages, cfg.onLowMemory)
	if err != nil {
		r.Close()
		return nil, err
	}

	s := &Store{r: r, a: a, isFile: isFile, owned: map[string]syncFunc{}}
	s.dir = shmap.New[uint64, dirEntry](a, codec.Uint64Codec{}, dirEntryCodec{})

	if err := s.persistDir(); err != nil {
		r.Close()
		return nil, err
	}
	return s, nil
}

// Open reinitializes a Store from a previously Closed file at path.
func Open(path string, opts ...Option) (*Store, error) {
	r, err := region.OpenFileRegion(path)
	if err != nil {
		return nil, err
	}
	return open(r, true, opts)
}

func open(r region.Region, isFile bool, opts []Option) (*Store, error) {
	cfg := buildConfig(opts)

	a, err := smalloc.Reinit(r, 0, cfg.onLowMemory)
	if err != nil {
		r.Close()
		return nil, err
	}
	_ = cfg.maxAllocationPages // Reinit carries over the persisted caps; new ones are ignored on Open.
	_ = cfg.maxGrowPages

	s := &Store{r: r, a: a, isFile: isFile, owned: map[string]syncFunc{}}
	s.dir = shmap.Load[uint64, dirEntry](a,
		a.CustomData(slotDirTable), int(a.CustomData(slotDirLength)), int(a.CustomData(slotDirCapacity)),
		codec.Uint64Codec{}, dirEntryCodec{})
	return s, nil
}

// Allocator exposes the Store's underlying allocator, for collections or
// tools that need raw Block access (e.g. cmd/smcli's Verify).
func (s *Store) Allocator() *smalloc.Allocator { return s.a }

// IsFile reports whether the Store is backed by an on-disk FileRegion
// rather than an in-memory one, mirroring dbm.DB's own db.f == nil check
// for telling a real file apart from a MemFiler.
func (s *Store) IsFile() bool { return s.isFile }

func (s *Store) register(name string, f syncFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owned[name] = f
}

func (s *Store) lookup(name string) (dirEntry, bool, error) {
	return s.dir.Get(nameHash(name))
}

func (s *Store) insert(name string, e dirEntry) error {
	_, _, err := s.dir.Insert(nameHash(name), e)
	return err
}

func (s *Store) persistDir() error {
	if err := s.a.SetCustomData(slotDirTable, s.dir.Table()); err != nil {
		return err
	}
	if err := s.a.SetCustomData(slotDirLength, uint64(s.dir.Len())); err != nil {
		return err
	}
	return s.a.SetCustomData(slotDirCapacity, uint64(s.dir.Capacity()))
}

// Sync re-derives every registered collection's current directory entry,
// writes the directory's own table/length/capacity back into the
// allocator's custom-data slots, and flushes the allocator's prologue.
// Close calls this automatically; callers that want a mid-session
// durability checkpoint (on a Store backed by a real file) can call it
// directly.
func (s *Store) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, f := range s.owned {
		if err := s.insert(name, f()); err != nil {
			return err
		}
	}
	if err := s.persistDir(); err != nil {
		return err
	}
	return s.a.Store()
}

// Close flushes every registered collection's directory entry and the
// allocator's prologue, then releases the Region.
func (s *Store) Close() error {
	if err := s.Sync(); err != nil {
		return err
	}
	return s.r.Close()
}

func kindMismatch(name string, want, got kind) error {
	return fmt.Errorf("sm: %q is a %s, not a %s", name, got.String(), want.String())
}

func (k kind) String() string {
	switch k {
	case kindTree:
		return "tree"
	case kindHashMap:
		return "hashmap"
	case kindLog:
		return "log"
	case kindBox:
		return "box"
	default:
		return "unknown"
	}
}
