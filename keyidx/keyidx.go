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

// Package keyidx implements an open-addressing hash table mapping string
// keys to cache slot indices. It is not safe for concurrent access.
package keyidx // import "github.com/vimeo/clockcache/keyidx"

const (
	stateEmpty = iota
	stateOccupied
	stateTombstone
)

// Erased entries become tombstones rather than reverting to empty so that
// linear probe chains through them stay intact.
type entry struct {
	key   string
	slot  int
	state uint8
}

// Table maps keys to slot indices using linear probing. Sizing stays prime
// and the load factor is kept below 0.7 by growing on insert.
type Table struct {
	entries []entry
	used    int // occupied entries only; tombstones excluded
}

// New creates a Table sized for a cache with the given slot capacity. The
// initial table size is the first prime at or above twice the capacity.
func New(capacity int) *Table {
	return &Table{
		entries: make([]entry, nextPrime(2*capacity)),
	}
}

// Lookup returns the slot index stored for key. Probing skips tombstones
// and stops at the first empty entry, or after visiting every entry once.
func (t *Table) Lookup(key string) (int, bool) {
	h := t.home(key)
	for n := 0; n < len(t.entries) && t.entries[h].state != stateEmpty; n++ {
		if t.entries[h].state == stateOccupied && t.entries[h].key == key {
			return t.entries[h].slot, true
		}
		h = (h + 1) % len(t.entries)
	}
	return 0, false
}

// Insert stores key -> slot. If key is already present its slot is
// overwritten in place. Fresh insertions reuse the first tombstone seen on
// the probe path. Every call first grows the table if one more occupied
// entry would push the load factor to 0.7 or above, even when key turns out
// to be present already.
func (t *Table) Insert(key string, slot int) {
	if (t.used+1)*10 >= len(t.entries)*7 {
		t.grow()
	}

	h := t.home(key)
	tombstone := -1
	for n := 0; n < len(t.entries); n++ {
		switch t.entries[h].state {
		case stateEmpty:
			if tombstone != -1 {
				h = tombstone
			}
			t.entries[h] = entry{key: key, slot: slot, state: stateOccupied}
			t.used++
			return
		case stateTombstone:
			if tombstone == -1 {
				tombstone = h
			}
		case stateOccupied:
			if t.entries[h].key == key {
				t.entries[h].slot = slot
				return
			}
		}
		h = (h + 1) % len(t.entries)
	}
	// No empty entry left and key absent: the load bound guarantees a
	// tombstone, and the first one seen takes the key.
	t.entries[tombstone] = entry{key: key, slot: slot, state: stateOccupied}
	t.used++
}

// Erase removes key from the table, leaving a tombstone in its place.
// Erasing an absent key is a no-op.
func (t *Table) Erase(key string) {
	h := t.home(key)
	for n := 0; n < len(t.entries) && t.entries[h].state != stateEmpty; n++ {
		if t.entries[h].state == stateOccupied && t.entries[h].key == key {
			t.entries[h].key = ""
			t.entries[h].state = stateTombstone
			t.used--
			return
		}
		h = (h + 1) % len(t.entries)
	}
}

// Len returns the number of occupied entries.
func (t *Table) Len() int {
	return t.used
}

// TableSize returns the current (prime) size of the backing array.
func (t *Table) TableSize() int {
	return len(t.entries)
}

// grow migrates every occupied entry into a table of the next prime at or
// above double the current size. Tombstones are not carried over.
func (t *Table) grow() {
	old := t.entries
	t.entries = make([]entry, nextPrime(2*len(old)))
	t.used = 0
	for i := range old {
		if old[i].state != stateOccupied {
			continue
		}
		h := t.home(old[i].key)
		for t.entries[h].state == stateOccupied {
			h = (h + 1) % len(t.entries)
		}
		t.entries[h] = old[i]
		t.used++
	}
}

func (t *Table) home(key string) int {
	return int(hashString(key) % uint32(len(t.entries)))
}

// hashString is 32-bit FNV-1a.
func hashString(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

func nextPrime(n int) int {
	if n < 2 {
		return 2
	}
	for {
		prime := true
		for i := 2; i*i <= n; i++ {
			if n%i == 0 {
				prime = false
				break
			}
		}
		if prime {
			return n
		}
		n++
	}
}
