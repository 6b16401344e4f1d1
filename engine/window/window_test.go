package window

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/cogentcore/webgpu/wgpu"
)

type fakePlatform struct {
	polls     int
	maxPolls  int
	closed    bool
	destroyed bool
}

func (f *fakePlatform) surfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (f *fakePlatform) running() bool                              { return !f.closed }
func (f *fakePlatform) requestClose()                              { f.closed = true }
func (f *fakePlatform) destroy()                                   { f.destroyed = true }

func (f *fakePlatform) poll() bool {
	f.polls++
	if f.polls >= f.maxPolls {
		f.closed = true
	}
	return !f.closed
}

func TestProcessMessagesRunsUntilClosed(t *testing.T) {
	w := newEngineWindow()
	p := &fakePlatform{maxPolls: 4}
	w.platform = p
	updates := 0
	w.SetUpdateCallback(func() { updates++ })

	w.ProcessMessages()
	if p.polls != 4 || updates != 3 {
		t.Errorf("polls = %d, updates = %d, want 4 and 3", p.polls, updates)
	}
	if w.IsRunning() {
		t.Error("window still running")
	}
}

func TestCloseReleasesPlatform(t *testing.T) {
	w := newEngineWindow()
	p := &fakePlatform{}
	w.platform = p
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if !p.destroyed {
		t.Error("platform window not destroyed")
	}
	if err := w.Close(); err == nil {
		t.Error("second Close should fail")
	}
	if w.IsRunning() || w.SurfaceDescriptor() != nil {
		t.Error("closed window should report nothing")
	}
	w.RequestClose()
}

func TestResizedIgnoresMinimize(t *testing.T) {
	w := newEngineWindow(WithSize(640, 480))
	var calls [][2]int
	w.SetResizeCallback(func(width, height int) { calls = append(calls, [2]int{width, height}) })

	w.resized(0, 0)
	if w.Width() != 640 || w.Height() != 480 || len(calls) != 0 {
		t.Errorf("minimize changed the size to %dx%d (%d callbacks)", w.Width(), w.Height(), len(calls))
	}
	w.resized(800, 600)
	if w.Width() != 800 || w.Height() != 600 || len(calls) != 1 {
		t.Errorf("size = %dx%d after resize, callbacks %v", w.Width(), w.Height(), calls)
	}
}

func TestKeyEventEscapeCloses(t *testing.T) {
	w := newEngineWindow()
	p := &fakePlatform{}
	w.platform = p
	var down, up []uint32
	w.SetKeyDownCallback(func(k uint32) { down = append(down, k) })
	w.SetKeyUpCallback(func(k uint32) { up = append(up, k) })

	w.keyEvent(common.KeyW, true)
	w.keyEvent(common.KeyW, false)
	if len(down) != 1 || len(up) != 1 {
		t.Fatalf("down %v, up %v", down, up)
	}
	w.keyEvent(common.KeyEsc, true)
	if !p.closed {
		t.Error("Escape did not request close")
	}
	if len(down) != 1 {
		t.Error("Escape should not reach the key callback")
	}
}

func TestBuilderOptions(t *testing.T) {
	w := newEngineWindow(WithTitle("t"), WithSize(320, 200), WithMinSize(64, 48), WithMaxSize(1920, 0))
	if w.title != "t" || w.Width() != 320 || w.Height() != 200 {
		t.Errorf("title %q size %dx%d", w.title, w.Width(), w.Height())
	}
	if w.minWidth != 64 || w.minHeight != 48 || w.maxWidth != 1920 || w.maxHeight != 0 {
		t.Errorf("limits = %d %d %d %d", w.minWidth, w.minHeight, w.maxWidth, w.maxHeight)
	}
}
