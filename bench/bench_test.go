// Package bench measures the bridge hot paths and guest start-up cost.
//
// Run with: go test -v -run=Test ./bench/
// Benchmarks: go test -bench=. -benchtime=3x ./bench/
package bench

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/caffeineduck/webbridge/executor"
	"github.com/caffeineduck/webbridge/guest"
	"github.com/caffeineduck/webbridge/host"
	"github.com/caffeineduck/webbridge/hostfunc"
)

// emptyGuest is the smallest valid module: header only, no _start.
type emptyGuest struct{}

func (emptyGuest) Name() string { return "bench-empty" }
func (emptyGuest) Module() []byte { return []byte("\x00asm\x01\x00\x00\x00") }
func (emptyGuest) Args() []string { return []string{"bench"} }

func newBridge() (*hostfunc.Bridge, *host.Page) {
	page := host.NewPage(host.WithOrigin("http://localhost:8080"))
	page.OnMessage(func(host.Message) {})
	host.OnExit(page, func(bool) {})
	return hostfunc.NewBridge(page), page
}

// --- Bridge ---

func BenchmarkBridge_SendPayload(b *testing.B) {
	bridge, _ := newBridge()
	ctx := context.Background()
	payload := `{"points":42,"level":"forest","bonus":[1,2,3]}`

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		bridge.SendPayload(ctx, payload)
	}
}

func BenchmarkBridge_SendPayload_Malformed(b *testing.B) {
	bridge, _ := newBridge()
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		bridge.SendPayload(ctx, `{"points":`)
	}
}

func BenchmarkBridge_SendExit(b *testing.B) {
	bridge, _ := newBridge()
	ctx := context.Background()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		bridge.SendExit(ctx)
	}
}

// --- Guest SDK ---

func BenchmarkGuest_SendJSON(b *testing.B) {
	c := guest.NewClient(io.Discard)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := c.SendJSON(`{"points":42}`); err != nil {
			b.Fatal(err)
		}
	}
}

// --- Executor: cold start (new executor each time) ---

func BenchmarkExecutor_ColdStart(b *testing.B) {
	registry := hostfunc.NewRegistry()
	for i := 0; i < b.N; i++ {
		exec, _ := executor.New(registry)
		exec.Run(context.Background(), emptyGuest{})
		exec.Close()
	}
}

// --- Executor: warm start (reuse executor) ---

func BenchmarkExecutor_WarmStart(b *testing.B) {
	registry := hostfunc.NewRegistry()
	bridge, _ := newBridge()
	bridge.Register(registry)

	exec, _ := executor.New(registry, executor.WithPrecompile(emptyGuest{}))
	defer exec.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		exec.Run(context.Background(), emptyGuest{})
	}
}

func formatDuration(d time.Duration) string {
	if d >= time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	if d >= time.Millisecond {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%dµs", d.Microseconds())
}

// =============================================================================
// MEMORY
// =============================================================================

func TestMemoryUsage(t *testing.T) {
	var m runtime.MemStats

	runtime.GC()
	runtime.ReadMemStats(&m)
	before := m.Alloc

	registry := hostfunc.NewRegistry()
	exec, err := executor.New(registry)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		if r := exec.Run(context.Background(), emptyGuest{}); r.Error != nil {
			t.Fatal(r.Error)
		}
	}

	runtime.ReadMemStats(&m)
	after := m.Alloc

	exec.Close()

	runtime.GC()
	runtime.ReadMemStats(&m)
	afterGC := m.Alloc

	t.Logf("Memory before: %d KB", before/1024)
	t.Logf("Memory after 5 runs: %d KB", after/1024)
	t.Logf("Memory after GC: %d KB", afterGC/1024)
}

// =============================================================================
// DISK CACHE (simulates CLI usage)
// =============================================================================

func TestDiskCacheBenefit(t *testing.T) {
	g, err := loadGuestBuild()
	if err != nil {
		t.Skip("guest build not available: ", err)
	}
	cacheDir := t.TempDir()

	registry := hostfunc.NewRegistry()
	bridge, _ := newBridge()
	bridge.Register(registry)

	var times []time.Duration

	// Each iteration is a separate CLI invocation with a fresh executor.
	for i := 0; i < 5; i++ {
		start := time.Now()

		exec, err := executor.New(registry, executor.WithDiskCache(cacheDir))
		if err != nil {
			t.Fatal(err)
		}
		if r := exec.Run(context.Background(), g); r.Error != nil {
			t.Fatal(r.Error)
		}
		exec.Close()

		times = append(times, time.Since(start))
	}

	for i, d := range times {
		label := "cached"
		if i == 0 {
			label = "compile"
		}
		t.Logf("Call %d (%s): %s", i+1, label, formatDuration(d))
	}
}

func loadGuestBuild() (executor.Guest, error) {
	path := "../executor/testdata/guest.wasm"
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return executor.LoadGuest(path)
}
