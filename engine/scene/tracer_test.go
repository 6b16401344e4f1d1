package scene

import (
	"context"
	"testing"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/Carmen-Shannon/oxy-rt/engine/camera"
	"github.com/Carmen-Shannon/oxy-rt/engine/light"
	"github.com/Carmen-Shannon/oxy-rt/engine/mesh_registry"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

func TestTracerRendersScene(t *testing.T) {
	r := renderer.NewRenderer(renderer.BackendTypeSoftware, nil,
		renderer.WithSoftwareKernel(NewTracer()),
		renderer.WithOutputSize(16, 12),
		renderer.WithTileSize(8, 8),
		renderer.WithWorkers(4),
	)
	defer r.Release()

	p := DefaultParameters()
	p.Generator.CountMax = 10
	p.Generator.PlacementRadius = 30
	p.MaxBounces = 3
	cam := camera.NewCamera(camera.WithController(camera.NewCameraController(camera.WithRadius(80))))
	s := NewScene(r, cam, light.NewLight(light.WithDirection(mgl32.Vec3{-0.4, -1, 0.3})), WithParameters(p))
	defer s.Shutdown()
	if err := s.Initialize(); err != nil {
		t.Fatal(err)
	}

	for range 3 {
		if _, err := s.Tick(context.Background()); err != nil {
			t.Fatalf("Tick() error: %v", err)
		}
	}
	pixels, _, err := s.Snapshot()
	if err != nil {
		t.Fatal(err)
	}

	lit := false
	for i, px := range pixels {
		for c := range 3 {
			if math32.IsNaN(px[c]) || math32.IsInf(px[c], 0) || px[c] < 0 {
				t.Fatalf("pixel %d channel %d = %g", i, c, px[c])
			}
			if px[c] > 0 {
				lit = true
			}
		}
	}
	if !lit {
		t.Error("every pixel is black")
	}
}

func TestTracerSkyAboveHorizon(t *testing.T) {
	cam := camera.NewCamera(camera.WithController(camera.NewCameraController(
		camera.WithElevation(0.05),
		camera.WithTarget(mgl32.Vec3{0, 40, 0}),
	)))
	cam.Update()

	tr := NewTracer()
	in := &renderer.KernelInputs{
		Width:                   4,
		Height:                  4,
		CameraToWorld:           cam.CameraToWorld(),
		CameraInverseProjection: cam.InverseProjection(),
		PixelOffset:             mgl32.Vec2{0.5, 0.5},
		MaxBounces:              2,
	}
	if err := tr.Prepare(in); err != nil {
		t.Fatal(err)
	}

	px := tr.Shade(1, 0)
	if px[2] <= 0 || px[2] < px[0] {
		t.Errorf("top row %v is not sky blue", px)
	}
	if px[3] != 1 {
		t.Errorf("alpha = %g, want 1", px[3])
	}
}

func TestTracerPrepareRejectsBadMeshWindow(t *testing.T) {
	vertices := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	tests := []struct {
		name    string
		indices []uint32
		object  mesh_registry.MeshObject
	}{
		{"window past the end", []uint32{0, 1, 2}, mesh_registry.MeshObject{WorldTransform: mgl32.Ident4(), IndexOffset: 0, IndexCount: 6}},
		{"negative offset", []uint32{0, 1, 2}, mesh_registry.MeshObject{WorldTransform: mgl32.Ident4(), IndexOffset: -3, IndexCount: 3}},
		{"index past the vertices", []uint32{0, 1, 7}, mesh_registry.MeshObject{WorldTransform: mgl32.Ident4(), IndexOffset: 0, IndexCount: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &renderer.KernelInputs{
				Width:  1,
				Height: 1,
				Buffers: map[string][]byte{
					renderer.BufferVertices:    common.SliceToBytes(vertices),
					renderer.BufferIndices:     common.SliceToBytes(tt.indices),
					renderer.BufferMeshObjects: common.SliceToBytes([]mesh_registry.MeshObject{tt.object}),
				},
			}
			if err := NewTracer().Prepare(in); err == nil {
				t.Error("Prepare() accepted a bad mesh object")
			}
		})
	}
}

func TestTracerSkipsDegenerateTriangles(t *testing.T) {
	vertices := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {0, 1, 0}}
	in := &renderer.KernelInputs{
		Width:  1,
		Height: 1,
		Buffers: map[string][]byte{
			renderer.BufferVertices: common.SliceToBytes(vertices),
			renderer.BufferIndices:  common.SliceToBytes([]uint32{0, 1, 2, 0, 1, 3}),
			renderer.BufferMeshObjects: common.SliceToBytes([]mesh_registry.MeshObject{
				{WorldTransform: mgl32.Translate3D(0, 5, 0), IndexOffset: 0, IndexCount: 6},
			}),
		},
	}
	tr := NewTracer()
	if err := tr.Prepare(in); err != nil {
		t.Fatal(err)
	}
	if len(tr.triangles) != 1 {
		t.Fatalf("got %d triangles, want 1", len(tr.triangles))
	}
	if got := tr.triangles[0].v2; got != (mgl32.Vec3{0, 6, 0}) {
		t.Errorf("triangle not moved to world space: v2 = %v", got)
	}
}

func TestToImage(t *testing.T) {
	pixels := []mgl32.Vec4{
		{0, 0, 0, 0},
		{1, 1, 1, 0.2},
		{0.5, 0.5, 0.5, 1},
		{-3, 7, 0, 1},
	}

	linear := ToImage(pixels, 2, 2, 1)
	if c := linear.RGBAAt(0, 0); c.R != 0 || c.A != 255 {
		t.Errorf("black pixel = %+v", c)
	}
	if c := linear.RGBAAt(1, 0); c.R != 255 || c.G != 255 || c.A != 255 {
		t.Errorf("white pixel = %+v", c)
	}
	if c := linear.RGBAAt(0, 1); c.R != 128 {
		t.Errorf("linear mid gray R = %d, want 128", c.R)
	}
	if c := linear.RGBAAt(1, 1); c.R != 0 || c.G != 255 {
		t.Errorf("out of range pixel not clamped: %+v", c)
	}

	encoded := ToImage(pixels, 2, 2, 0)
	if c := encoded.RGBAAt(0, 1); c.R <= 128 {
		t.Errorf("gamma encoded mid gray R = %d, want above 128", c.R)
	}
	if c := encoded.RGBAAt(1, 0); c.R != 255 {
		t.Errorf("gamma encoded white R = %d, want 255", c.R)
	}
}
