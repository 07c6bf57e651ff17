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
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

const (
	unitDimensionless = "1"
	unitBytes         = "By"
	unitMillisecond   = "ms"
)

var (
	defaultBytesDistribution        = view.Distribution(0, 16, 64, 256, 1024, 4096, 16384, 65536, 262144, 1048576)
	defaultMillisecondsDistribution = view.Distribution(0, 0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40, 50)
)

// Opencensus stats
var (
	MAccesses        = stats.Int64("accesses", "The number of Access calls", unitDimensionless)
	MCacheHits       = stats.Int64("cache_hits", "The number of accesses satisfied by a resident entry", unitDimensionless)
	MCacheMisses     = stats.Int64("cache_misses", "The number of accesses that admitted a new entry", unitDimensionless)
	MEvictions       = stats.Int64("evictions", "The number of entries retired from their slot", unitDimensionless)
	MForcedEvictions = stats.Int64("forced_evictions", "The number of evictions forced while every slot was pinned", unitDimensionless)
	MDetachedCells   = stats.Int64("detached_cells", "The number of cells evicted while pinned and kept alive for holders", unitDimensionless)
	MKeyLength       = stats.Int64("key_length", "The length of keys", unitBytes)
	MValueLength     = stats.Int64("value_length", "The length of values", unitBytes)

	MAccessLatencyMilliseconds = stats.Float64("access_latency", "Access latency in milliseconds", unitMillisecond)
)

// CacheNameKey tags measures with the cache's name.
var CacheNameKey = tag.MustNewKey("cache")

// AllViews is a slice of default views for people to use
var AllViews = []*view.View{
	{Name: "clockcache/accesses", Description: "The number of Access calls", TagKeys: []tag.Key{CacheNameKey}, Measure: MAccesses, Aggregation: view.Count()},
	{Name: "clockcache/cache_hits", Description: "The number of accesses satisfied by a resident entry", TagKeys: []tag.Key{CacheNameKey}, Measure: MCacheHits, Aggregation: view.Count()},
	{Name: "clockcache/cache_misses", Description: "The number of accesses that admitted a new entry", TagKeys: []tag.Key{CacheNameKey}, Measure: MCacheMisses, Aggregation: view.Count()},
	{Name: "clockcache/evictions", Description: "The number of entries retired from their slot", TagKeys: []tag.Key{CacheNameKey}, Measure: MEvictions, Aggregation: view.Count()},
	{Name: "clockcache/forced_evictions", Description: "The number of evictions forced while every slot was pinned", TagKeys: []tag.Key{CacheNameKey}, Measure: MForcedEvictions, Aggregation: view.Count()},
	{Name: "clockcache/detached_cells", Description: "The number of cells evicted while pinned", TagKeys: []tag.Key{CacheNameKey}, Measure: MDetachedCells, Aggregation: view.Count()},
	{Name: "clockcache/key_length", Description: "The distribution of key lengths", TagKeys: []tag.Key{CacheNameKey}, Measure: MKeyLength, Aggregation: defaultBytesDistribution},
	{Name: "clockcache/value_length", Description: "The distribution of value lengths", TagKeys: []tag.Key{CacheNameKey}, Measure: MValueLength, Aggregation: defaultBytesDistribution},
	{Name: "clockcache/access_latency", Description: "The Access latency", TagKeys: []tag.Key{CacheNameKey}, Measure: MAccessLatencyMilliseconds, Aggregation: defaultMillisecondsDistribution},
}

func sinceInMilliseconds(start time.Time) float64 {
	d := time.Since(start)
	return float64(d.Nanoseconds()) / 1e6
}
