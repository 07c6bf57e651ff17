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

// clockcache-demo hammers a small cache with concurrent workers, the way
// the cache is meant to be used: every worker accesses random keys from a
// universe larger than the slot capacity and releases each handle right
// away. Each cycle builds a fresh cache, runs the workers to
// completion, logs the stats and final state, and tears the cache down.
package main

import (
	"context"
	"encoding/binary"
	"flag"
	"math/rand"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/jedisct1/dlog"

	"github.com/vimeo/clockcache"
)

// Config mirrors the TOML demo configuration; keys absent from the file keep
// the defaults below, while keys set explicitly (zero included) replace them.
type Config struct {
	LogLevel      int      `toml:"log_level"`
	CacheName     string   `toml:"cache_name"`
	Capacity      int      `toml:"capacity"`
	Workers       int      `toml:"workers"`
	OpsPerWorker  int      `toml:"ops_per_worker"`
	YieldInterval int      `toml:"yield_interval"`
	Keys          []string `toml:"keys"`
	Cycles        int      `toml:"cycles"`
	CycleDelayMs  int      `toml:"cycle_delay_ms"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:      int(dlog.SeverityInfo),
		CacheName:     "RefBitClockCache",
		Capacity:      4,
		Workers:       8,
		OpsPerWorker:  1000,
		YieldInterval: 100,
		Keys:          []string{"A", "B", "C", "D", "E", "F", "G", "H"},
		Cycles:        1,
		CycleDelayMs:  5000,
	}
}

func main() {
	configFile := flag.String("config", "", "path to a TOML configuration file")
	cycles := flag.Int("cycles", 0, "override the number of test cycles (0 = keep the configured count, negative = run forever)")
	flag.Parse()

	dlog.Init("clockcache-demo", dlog.SeverityInfo, "")

	config := defaultConfig()
	if *configFile != "" {
		if _, err := toml.DecodeFile(*configFile, &config); err != nil {
			dlog.Fatalf("Unable to load [%s]: %s", *configFile, err)
		}
	}
	if *cycles != 0 {
		config.Cycles = *cycles
	}
	if config.LogLevel >= 0 && config.LogLevel < int(dlog.SeverityLast) {
		dlog.SetLogLevel(dlog.Severity(config.LogLevel))
	}

	for cycle := 0; config.Cycles <= 0 || cycle < config.Cycles; cycle++ {
		dlog.Noticef("Starting test cycle %d", cycle+1)
		runCycle(&config)
		if config.Cycles <= 0 || cycle+1 < config.Cycles {
			time.Sleep(time.Duration(config.CycleDelayMs) * time.Millisecond)
		}
	}
}

func runCycle(config *Config) {
	freed := 0
	cache, err := clockcache.New(config.Capacity,
		clockcache.WithName(config.CacheName),
		clockcache.WithKeyspaceTracking(),
		clockcache.WithValueFree(func([]byte) { freed++ }),
	)
	if err != nil {
		dlog.Fatalf("Unable to create cache: %s", err)
	}

	values := make([][]byte, len(config.Keys))
	for i := range config.Keys {
		values[i] = make([]byte, 4)
		binary.LittleEndian.PutUint32(values[i], uint32(i+1))
	}

	var wg sync.WaitGroup
	for w := 0; w < config.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			worker(cache, config, values, seed)
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	cache.LogState()
	stats := cache.Stats()
	dlog.Noticef("Cycle done: %d hits, %d misses, %d evictions (%d forced), ~%d distinct keys",
		stats.Hits, stats.Misses, stats.Evictions, stats.ForcedEvictions, stats.DistinctKeys)
	if stats.DetachedCells != 0 {
		dlog.Warnf("%d detached cells still held at end of cycle", stats.DetachedCells)
	}
	cache.Close()
	dlog.Noticef("Cache freed: %d payloads released in total", freed)
}

func worker(cache *clockcache.Cache, config *Config, values [][]byte, seed int64) {
	ctx := context.Background()
	r := rand.New(rand.NewSource(seed))
	for i := 0; i < config.OpsPerWorker; i++ {
		idx := r.Intn(len(config.Keys))
		v := cache.Access(ctx, config.Keys[idx], values[idx])
		if v != nil {
			cache.Release(v)
		}
		if config.YieldInterval > 0 && (i+1)%config.YieldInterval == 0 {
			time.Sleep(10 * time.Millisecond)
		}
	}
}
