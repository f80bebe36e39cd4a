package footprint

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/bool64/ctxd"
)

// DefaultInterval is the default interval between two reports.
const DefaultInterval = 5 * time.Second

// Gauge is a named value sampled on every report, e.g. the length of a queue.
type Gauge struct {
	Name  string
	Value func() int
}

// Track writes the memory usage and the gauges to the log at debug level until the context is done.
func Track(ctx context.Context, log ctxd.Logger, interval time.Duration, gauges ...Gauge) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			log.Debug(ctx, "resource usage", Snapshot(gauges...)...)
		}
	}
}

// Snapshot samples the memory usage and the gauges as log key-value pairs.
func Snapshot(gauges ...Gauge) []interface{} {
	// See: https://golang.org/pkg/runtime/#MemStats
	var m runtime.MemStats

	runtime.ReadMemStats(&m)

	kv := []interface{}{
		"alloc_mb", formatB(m.Alloc),
		"total_alloc_mb", formatB(m.TotalAlloc),
		"sys_mb", formatB(m.Sys),
		"num_gc", m.NumGC,
		"num_goroutine", runtime.NumGoroutine(),
	}

	for _, g := range gauges {
		kv = append(kv, g.Name, g.Value())
	}

	return kv
}

func formatB(b uint64) string {
	return fmt.Sprintf("%dMiB", b/1024/1024) // nolint: gomnd // bytes conversion.
}
