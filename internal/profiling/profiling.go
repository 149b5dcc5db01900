package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Lightweight per-update CPU accounting for the streaming loop.

var (
	mu     sync.Mutex
	totals = make(map[string]time.Duration)
	counts = make(map[string]int)
)

// Track returns a stop function that records the elapsed time under name.
// Usage: defer profiling.Track("world.Update")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		totals[name] += d
		counts[name]++
		mu.Unlock()
	}
}

// Reset clears accumulated totals. Call at the start of each update cycle.
func Reset() {
	mu.Lock()
	for k := range totals {
		delete(totals, k)
	}
	for k := range counts {
		delete(counts, k)
	}
	mu.Unlock()
}

// Snapshot returns a copy of the current totals.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(totals))
	for k, v := range totals {
		out[k] = v
	}
	return out
}

// Count returns how many times the named operation completed since Reset.
func Count(name string) int {
	mu.Lock()
	defer mu.Unlock()
	return counts[name]
}

// TopN formats the n largest totals, largest first.
// Example: "world.Update:4.2ms, world.BuildChunk:2.1ms"
func TopN(n int) string {
	snap := Snapshot()
	type entry struct {
		name string
		dur  time.Duration
	}
	list := make([]entry, 0, len(snap))
	for k, v := range snap {
		list = append(list, entry{k, v})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].dur > list[j].dur })
	if n > len(list) {
		n = len(list)
	}
	parts := make([]string, 0, n)
	for _, e := range list[:n] {
		parts = append(parts, fmt.Sprintf("%s:%.1fms", e.name, float64(e.dur.Microseconds())/1000.0))
	}
	return strings.Join(parts, ", ")
}
