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

package clockcache

// slotEvicted marks a cell that has been pushed out of its slot but is kept
// alive by outstanding holders.
const slotEvicted = -1

// A Value is one cached datum together with its pin count and clock state.
// Access returns a *Value to the caller; holding it pins the cell until the
// matching Release. All fields are guarded by the owning Cache's mutex; the
// payload bytes themselves are immutable once admitted, so holders may read
// them without further synchronization.
type Value struct {
	data     []byte
	refcount int
	slot     int
	refBit   bool
}

func newValue(data []byte, slot int) *Value {
	payload := make([]byte, len(data))
	copy(payload, data)
	return &Value{
		data:     payload,
		refcount: 1,
		slot:     slot,
		refBit:   true,
	}
}

// Bytes returns the cached payload. The returned slice is shared with the
// cache and any other holders; callers must not modify it. After the final
// Release of a cell that died, Bytes returns nil.
func (v *Value) Bytes() []byte {
	if v == nil {
		return nil
	}
	return v.data
}

// Len returns the payload size in bytes.
func (v *Value) Len() int {
	if v == nil {
		return 0
	}
	return len(v.data)
}

// Decode unmarshals the cached payload into dest.
func (v *Value) Decode(dest Codec) error {
	return dest.UnmarshalBinary(v.Bytes())
}

// pinned reports whether any holder still references the cell.
func (v *Value) pinned() bool {
	return v.refcount > 0
}
