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
	"math/rand"
	"strconv"
	"testing"
)

// FuzzTableModel drives a Table with a random op sequence and cross-checks
// every lookup against a plain map.
func FuzzTableModel(f *testing.F) {
	f.Add(int64(1), uint(4), uint16(64))
	f.Add(int64(42), uint(1), uint16(300))
	f.Fuzz(func(t *testing.T, seed int64, capacity uint, ops uint16) {
		if capacity < 1 || capacity > 1<<10 {
			t.Skip()
		}
		r := rand.New(rand.NewSource(seed))
		idx := New(int(capacity))
		model := make(map[string]int)

		for i := 0; i < int(ops); i++ {
			key := "k" + strconv.Itoa(r.Intn(64))
			switch r.Intn(3) {
			case 0, 1:
				slot := r.Intn(int(capacity))
				idx.Insert(key, slot)
				model[key] = slot
			case 2:
				idx.Erase(key)
				delete(model, key)
			}
		}

		if idx.Len() != len(model) {
			t.Fatalf("Len() = %d; model has %d keys", idx.Len(), len(model))
		}
		for key, slot := range model {
			got, ok := idx.Lookup(key)
			if !ok {
				t.Fatalf("Lookup(%q) missed; model has slot %d", key, slot)
			}
			if got != slot {
				t.Fatalf("Lookup(%q) = %d; model has %d", key, got, slot)
			}
		}
		for i := 0; i < 64; i++ {
			key := "k" + strconv.Itoa(i)
			if _, inModel := model[key]; inModel {
				continue
			}
			if _, ok := idx.Lookup(key); ok {
				t.Fatalf("Lookup(%q) hit; key absent from model", key)
			}
		}
	})
}
