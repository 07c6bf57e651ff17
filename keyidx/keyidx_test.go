/*
Copyright 2025 Vimeo Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package keyidx

import (
	"fmt"
	"testing"
)

func TestNextPrime(t *testing.T) {
	var primeTests = []struct {
		in   int
		want int
	}{
		{0, 2},
		{2, 2},
		{8, 11},
		{11, 11},
		{12, 13},
		{22, 23},
		{32, 37},
		{74, 79},
	}
	for _, tt := range primeTests {
		if got := nextPrime(tt.in); got != tt.want {
			t.Errorf("nextPrime(%d) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewSizing(t *testing.T) {
	var sizeTests = []struct {
		capacity int
		want     int
	}{
		{4, 11},
		{16, 37},
		{100, 211},
	}
	for _, tt := range sizeTests {
		idx := New(tt.capacity)
		if got := idx.TableSize(); got != tt.want {
			t.Errorf("New(%d).TableSize() = %d; want %d", tt.capacity, got, tt.want)
		}
	}
}

func TestLookupInsertErase(t *testing.T) {
	idx := New(4)
	if _, ok := idx.Lookup("missing"); ok {
		t.Error("Lookup on empty table reported a hit")
	}
	idx.Insert("alpha", 0)
	idx.Insert("beta", 1)
	idx.Insert("gamma", 2)
	if idx.Len() != 3 {
		t.Errorf("Len() = %d; want 3", idx.Len())
	}
	for i, key := range []string{"alpha", "beta", "gamma"} {
		slot, ok := idx.Lookup(key)
		if !ok {
			t.Fatalf("Lookup(%q) missed", key)
		}
		if slot != i {
			t.Errorf("Lookup(%q) = %d; want %d", key, slot, i)
		}
	}

	idx.Erase("beta")
	if _, ok := idx.Lookup("beta"); ok {
		t.Error("Lookup found an erased key")
	}
	if idx.Len() != 2 {
		t.Errorf("Len() after erase = %d; want 2", idx.Len())
	}

	// erasing an absent key must not disturb the count
	idx.Erase("beta")
	idx.Erase("never-inserted")
	if idx.Len() != 2 {
		t.Errorf("Len() after redundant erases = %d; want 2", idx.Len())
	}
}

func TestInsertOverwrite(t *testing.T) {
	idx := New(4)
	idx.Insert("key", 0)
	idx.Insert("key", 3)
	if idx.Len() != 1 {
		t.Errorf("Len() after duplicate insert = %d; want 1", idx.Len())
	}
	slot, ok := idx.Lookup("key")
	if !ok || slot != 3 {
		t.Errorf("Lookup after overwrite = (%d, %v); want (3, true)", slot, ok)
	}
}

// colliding returns count keys that all land in the same home bucket of a
// table with the given size.
func colliding(size, count int) []string {
	keys := make([]string, 0, count)
	home := hashString("probe-0") % uint32(size)
	for i := 0; len(keys) < count; i++ {
		k := fmt.Sprintf("probe-%d", i)
		if hashString(k)%uint32(size) == home {
			keys = append(keys, k)
		}
	}
	return keys
}

func TestTombstoneKeepsProbeChain(t *testing.T) {
	idx := New(16) // size 37, large enough not to grow below
	keys := colliding(idx.TableSize(), 3)

	for i, k := range keys {
		idx.Insert(k, i)
	}
	// Erase the head of the probe chain; the keys behind it must stay
	// reachable through the tombstone.
	idx.Erase(keys[0])
	for i, k := range keys[1:] {
		slot, ok := idx.Lookup(k)
		if !ok {
			t.Fatalf("Lookup(%q) missed after erasing %q", k, keys[0])
		}
		if slot != i+1 {
			t.Errorf("Lookup(%q) = %d; want %d", k, slot, i+1)
		}
	}

	// A fresh insert on the same chain reuses the tombstone rather than
	// extending the chain.
	before := idx.TableSize()
	idx.Insert(keys[0], 9)
	if idx.TableSize() != before {
		t.Fatalf("table grew unexpectedly: %d -> %d", before, idx.TableSize())
	}
	slot, ok := idx.Lookup(keys[0])
	if !ok || slot != 9 {
		t.Errorf("Lookup(%q) after reinsert = (%d, %v); want (9, true)", keys[0], slot, ok)
	}
}

func TestGrowPreservesMapping(t *testing.T) {
	idx := New(4) // size 11; the 8th fresh insert crosses the 0.7 bound
	want := make(map[string]int)
	for i := 0; i < 12; i++ {
		key := fmt.Sprintf("key-%d", i)
		idx.Insert(key, i)
		want[key] = i
	}
	if idx.TableSize() == 11 {
		t.Fatal("table did not grow past its initial size")
	}
	if idx.TableSize() != 23 {
		t.Errorf("TableSize() = %d; want 23", idx.TableSize())
	}
	if idx.Len() != len(want) {
		t.Errorf("Len() = %d; want %d", idx.Len(), len(want))
	}
	for key, slot := range want {
		got, ok := idx.Lookup(key)
		if !ok {
			t.Fatalf("Lookup(%q) missed after grow", key)
		}
		if got != slot {
			t.Errorf("Lookup(%q) = %d after grow; want %d", key, got, slot)
		}
	}
}

func TestLoadFactorBound(t *testing.T) {
	idx := New(2)
	for i := 0; i < 200; i++ {
		idx.Insert(fmt.Sprintf("key-%d", i), i)
		if idx.Len()*10 >= idx.TableSize()*7 {
			t.Fatalf("load factor bound violated after %d inserts: used=%d size=%d",
				i+1, idx.Len(), idx.TableSize())
		}
	}
}
