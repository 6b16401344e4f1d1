package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
)

// Profiler tracks frame rate, memory and accumulation statistics.
// Outputs stats to the shared logger at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	lastDispatches int
	now            func() time.Time
}

// Sample is what the frame driver knows about the frame that just finished.
type Sample struct {
	// SampleCount is the number of samples in the accumulation.
	SampleCount uint32
	// Resets is the number of accumulation resets since the previous report.
	Resets int
	// Renderer holds the backend counters.
	Renderer renderer.Stats
}

// NewProfiler creates a new Profiler reporting every interval.
// An interval <= 0 defaults to 1 second.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(interval time.Duration) *Profiler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: interval,
		now:            time.Now,
	}
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include FPS, dispatch rate, sample count, live device memory, heap usage,
// allocation rate and GC pauses.
//
// Parameters:
//   - s: the state after the frame
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(s Sample) bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}
	seconds := elapsed.Seconds()
	if seconds <= 0 {
		seconds = p.updateInterval.Seconds()
	}

	runtime.ReadMemStats(&p.memStats)
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc

	// PauseNs is a circular buffer of the last 256 GC pauses.
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	common.Logger().Info("profiler",
		"fps", float64(p.frameCount)/seconds,
		"dispatches_per_sec", float64(s.Renderer.Dispatches-p.lastDispatches)/seconds,
		"samples", s.SampleCount,
		"resets", s.Resets,
		"device_mb", float64(s.Renderer.LiveBytes)/1024/1024,
		"buffers", s.Renderer.LiveBuffers,
		"heap_mb", float64(p.memStats.Alloc)/1024/1024,
		"alloc_mb_per_sec", float64(allocDelta)/1024/1024/seconds,
		"gc", gcCount,
		"gc_last_us", lastPauseUs,
		"gc_max_us", maxPauseUs,
		"sys_mb", float64(p.memStats.Sys)/1024/1024,
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.lastDispatches = s.Renderer.Dispatches
	return true
}
