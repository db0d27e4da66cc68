// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sm

// Option amends the behavior of Create/Open, the same functional-options
// shape as dbm.Options, but expressed as a slice of closures rather than
// a struct literal since there is no on-disk WAL/ACID surface to carry.
type Option func(*config)

type config struct {
	maxAllocationPages uint64
	maxGrowPages       uint64
	onLowMemory        func()
}

// MaxAllocationPages caps the allocator's soft low-memory threshold, in
// Region pages. Zero (the default) disables the threshold.
func MaxAllocationPages(n uint64) Option {
	return func(c *config) { c.maxAllocationPages = n }
}

// MaxGrowPages caps the total number of pages the allocator may grow the
// Region by over this process's lifetime. Zero (the default) means
// unlimited.
func MaxGrowPages(n uint64) Option {
	return func(c *config) { c.maxGrowPages = n }
}

// OnLowMemory registers a callback invoked at most once, the first time
// free space falls below the low-memory threshold and the pre-emptive
// grow that follows is capped by MaxGrowPages or refused by the Region.
func OnLowMemory(f func()) Option {
	return func(c *config) { c.onLowMemory = f }
}

func buildConfig(opts []Option) *config {
	c := &config{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
