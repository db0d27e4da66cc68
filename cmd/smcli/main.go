// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command smcli inspects and exercises an sm.Store file: creating one,
// reporting allocator statistics, and verifying free-list consistency,
// in the spirit of lldb/lab/1/main.go and lldb/db_bench/main_test.go.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/cznic/sm/sm"
)

var (
	dbPath = flag.String("db", "", "store file path")
	create = flag.Bool("create", false, "create the store if it does not exist")
	verify = flag.Bool("verify", false, "run allocator free-list verification")
	stat   = flag.Bool("stat", true, "print allocator statistics")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lshortfile)

	if *dbPath == "" {
		log.Fatal("smcli: -db is required")
	}

	s, err := openOrCreate(*dbPath, *create)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Fatal(err)
		}
	}()

	a := s.Allocator()

	if *stat {
		log.Printf("allocated bytes: %d", a.AllocatedSize())
		log.Printf("free bytes: %d", a.FreeSize())
		n, err := a.FreeBlockCount()
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("free blocks: %d", n)
	}

	if *verify {
		if err := a.Verify(); err != nil {
			log.Fatalf("verify failed: %v", err)
		}
		log.Print("verify ok")
	}
}

func openOrCreate(path string, allowCreate bool) (*sm.Store, error) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) || !allowCreate {
			return nil, err
		}
		return sm.Create(path)
	}
	return sm.Open(path)
}
