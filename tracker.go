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

import (
	"github.com/axiomhq/hyperloglog"
)

// keyspaceTracker estimates the number of distinct keys ever requested,
// which puts the hit ratio in context: a keyspace far larger than the slot
// capacity explains a low hit rate without any further digging. Guarded by
// the cache mutex.
type keyspaceTracker struct {
	sketch *hyperloglog.Sketch
}

func newKeyspaceTracker() *keyspaceTracker {
	return &keyspaceTracker{sketch: hyperloglog.New16()}
}

func (t *keyspaceTracker) observe(key string) {
	t.sketch.Insert([]byte(key))
}

func (t *keyspaceTracker) estimate() uint64 {
	return t.sketch.Estimate()
}
