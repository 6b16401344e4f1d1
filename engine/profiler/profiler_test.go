package profiler

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
)

func TestTickReportsEveryInterval(t *testing.T) {
	var buf bytes.Buffer
	common.SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { common.SetLogger(nil) })

	start := time.Unix(1000, 0)
	clock := start
	p := NewProfiler(time.Second)
	p.lastTime = start
	p.now = func() time.Time { return clock }

	for i := range 9 {
		clock = start.Add(time.Duration(i+1) * 100 * time.Millisecond)
		if p.Tick(Sample{SampleCount: uint32(i + 1)}) {
			t.Fatalf("reported after %v", clock.Sub(start))
		}
	}
	clock = start.Add(time.Second)
	if !p.Tick(Sample{SampleCount: 10, Renderer: renderer.Stats{Dispatches: 10, LiveBuffers: 2}}) {
		t.Fatal("no report after the interval elapsed")
	}

	out := buf.String()
	for _, want := range []string{"msg=profiler", "fps=10", "dispatches_per_sec=10", "samples=10", "buffers=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("report %q does not contain %q", out, want)
		}
	}

	clock = clock.Add(500 * time.Millisecond)
	if p.Tick(Sample{}) {
		t.Error("reported again before the next interval")
	}
}

func TestNewProfilerDefaultsInterval(t *testing.T) {
	if p := NewProfiler(0); p.updateInterval != time.Second {
		t.Errorf("updateInterval = %v, want 1s", p.updateInterval)
	}
}
