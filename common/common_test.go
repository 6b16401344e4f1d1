package common

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestLoggerDefaultSilent(t *testing.T) {
	l := Logger()
	if l == nil {
		t.Fatal("Logger() returned nil")
	}
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if l.Enabled(context.Background(), level) {
			t.Errorf("default logger enabled for %v", level)
		}
	}
}

func TestSetLogger(t *testing.T) {
	orig := Logger()
	t.Cleanup(func() { SetLogger(orig) })

	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	Logger().Info("scene generated", "spheres", 3)
	if !bytes.Contains(buf.Bytes(), []byte("spheres=3")) {
		t.Errorf("log output %q missing attribute", buf.String())
	}

	SetLogger(nil)
	if Logger().Enabled(context.Background(), slog.LevelError) {
		t.Error("SetLogger(nil) should restore the silent logger")
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce(0, 0, 7, 9); got != 7 {
		t.Errorf("Coalesce = %d, want 7", got)
	}
	if got := Coalesce("", ""); got != "" {
		t.Errorf("Coalesce of zeros = %q, want empty", got)
	}
}

func TestCeilDiv(t *testing.T) {
	tests := []struct {
		n, d, want int
	}{
		{1920, 8, 240},
		{1921, 8, 241},
		{7, 8, 1},
		{0, 8, 0},
		{8, 0, 0},
	}
	for _, tt := range tests {
		if got := CeilDiv(tt.n, tt.d); got != tt.want {
			t.Errorf("CeilDiv(%d, %d) = %d, want %d", tt.n, tt.d, got, tt.want)
		}
	}
}

func TestBytesRoundTripPreservesLayout(t *testing.T) {
	in := []mgl32.Vec3{{1, 2, 3}, {4, 5, 6}}
	raw := SliceToBytes(in)
	if len(raw) != 24 {
		t.Fatalf("len(raw) = %d, want 24", len(raw))
	}
	out := BytesToSlice[mgl32.Vec3](raw)
	if len(out) != 2 || out[1] != in[1] {
		t.Errorf("BytesToSlice = %v, want %v", out, in)
	}
	if BytesToSlice[mgl32.Vec3](raw[:5]) != nil {
		t.Error("partial element should decode to nil")
	}
}

func TestBuildModelMatrixTranslationOnly(t *testing.T) {
	m := BuildModelMatrix(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{}, mgl32.Vec3{1, 1, 1})
	want := mgl32.Translate3D(1, 2, 3)
	if !m.ApproxEqualThreshold(want, 1e-6) {
		t.Errorf("BuildModelMatrix = %v, want %v", m, want)
	}
}

func TestPerspectiveDepthRange(t *testing.T) {
	near, far := float32(0.5), float32(100)
	p := Perspective(mgl32.DegToRad(60), 1.5, near, far)

	ndcDepth := func(z float32) float32 {
		clip := p.Mul4x1(mgl32.Vec4{0, 0, z, 1})
		return clip[2] / clip[3]
	}
	if d := ndcDepth(-near); mgl32.Abs(d) > 1e-5 {
		t.Errorf("near plane depth = %f, want 0", d)
	}
	if d := ndcDepth(-far); mgl32.Abs(d-1) > 1e-4 {
		t.Errorf("far plane depth = %f, want 1", d)
	}
}

func TestColorHSV(t *testing.T) {
	tests := []struct {
		name    string
		h, s, v float32
		want    mgl32.Vec3
	}{
		{"red", 0, 1, 1, mgl32.Vec3{1, 0, 0}},
		{"green", 1.0 / 3.0, 1, 1, mgl32.Vec3{0, 1, 0}},
		{"blue", 2.0 / 3.0, 1, 1, mgl32.Vec3{0, 0, 1}},
		{"grey", 0.5, 0, 0.25, mgl32.Vec3{0.25, 0.25, 0.25}},
		{"hdr", 0, 1, 5, mgl32.Vec3{5, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ColorHSV(tt.h, tt.s, tt.v)
			if !got.ApproxEqualThreshold(tt.want, 1e-5) {
				t.Errorf("ColorHSV(%v, %v, %v) = %v, want %v", tt.h, tt.s, tt.v, got, tt.want)
			}
		})
	}
}
