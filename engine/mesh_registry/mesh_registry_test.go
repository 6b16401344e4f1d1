package mesh_registry

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

type staticMesh struct {
	name      string
	vertices  []mgl32.Vec3
	indices   []uint32
	transform mgl32.Mat4
}

func (m *staticMesh) Vertices() []mgl32.Vec3     { return m.vertices }
func (m *staticMesh) Indices() []uint32          { return m.indices }
func (m *staticMesh) WorldTransform() mgl32.Mat4 { return m.transform }

func quadMesh() *staticMesh {
	return &staticMesh{
		name:      "quad",
		vertices:  []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 0, 1}, {0, 0, 1}},
		indices:   []uint32{0, 1, 2, 0, 2, 3},
		transform: mgl32.Translate3D(1, 0, 0),
	}
}

func prismMesh() *staticMesh {
	return &staticMesh{
		name:      "prism",
		vertices:  []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}, {0, 1, 0}, {1, 1, 0}, {0, 1, 1}},
		indices:   []uint32{0, 1, 2, 3, 5, 4},
		transform: mgl32.Ident4(),
	}
}

func TestRebuildFlattensInRegistrationOrder(t *testing.T) {
	r := NewRegistry(4)
	defer r.Close()
	a, b := quadMesh(), prismMesh()
	r.Register(a)
	r.Register(b)

	geom, ok := r.RebuildIfDirty()
	if !ok {
		t.Fatal("expected a rebuild")
	}
	if len(geom.Vertices) != 10 {
		t.Errorf("vertices = %d, want 10", len(geom.Vertices))
	}
	if len(geom.Indices) != 12 || len(geom.Objects) != 2 {
		t.Fatalf("indices = %d, objects = %d", len(geom.Indices), len(geom.Objects))
	}

	wantIdx := []uint32{0, 1, 2, 0, 2, 3, 4, 5, 6, 7, 9, 8}
	for i, want := range wantIdx {
		if geom.Indices[i] != want {
			t.Errorf("Indices[%d] = %d, want %d", i, geom.Indices[i], want)
		}
	}
	if geom.Objects[0].IndexOffset != 0 || geom.Objects[0].IndexCount != 6 {
		t.Errorf("object 0 = %+v", geom.Objects[0])
	}
	if geom.Objects[1].IndexOffset != 6 || geom.Objects[1].IndexCount != 6 {
		t.Errorf("object 1 = %+v", geom.Objects[1])
	}
	if geom.Objects[0].WorldTransform != a.transform {
		t.Error("world transform not sampled")
	}
	if geom.Vertices[4] != b.vertices[0] {
		t.Errorf("Vertices[4] = %v, want first prism vertex", geom.Vertices[4])
	}
	if geom.Generation != 1 || r.Generation() != 1 {
		t.Errorf("generation = %d", geom.Generation)
	}
}

func TestRebuildOnlyWhenDirty(t *testing.T) {
	r := NewRegistry(2)
	defer r.Close()
	if _, ok := r.RebuildIfDirty(); ok {
		t.Error("empty registry should not rebuild")
	}

	q := quadMesh()
	r.Register(q)
	r.RebuildIfDirty()

	r.Register(q)
	if r.Dirty() {
		t.Error("re-registering a present object dirtied the registry")
	}
	r.Unregister(prismMesh())
	if r.Dirty() {
		t.Error("unregistering an absent object dirtied the registry")
	}
	if _, ok := r.RebuildIfDirty(); ok {
		t.Error("no-op registrations triggered a rebuild")
	}
}

func TestUnregisterToEmpty(t *testing.T) {
	r := NewRegistry(2)
	defer r.Close()
	q := quadMesh()
	r.Register(q)
	r.RebuildIfDirty()
	r.Unregister(q)

	geom, ok := r.RebuildIfDirty()
	if !ok {
		t.Fatal("unregister should trigger a rebuild")
	}
	if len(geom.Vertices) != 0 || len(geom.Indices) != 0 || len(geom.Objects) != 0 {
		t.Errorf("expected empty geometry, got %+v", geom)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d", r.Len())
	}
}

func TestUnregisterKeepsOrder(t *testing.T) {
	r := NewRegistry(2)
	defer r.Close()
	a, b, c := quadMesh(), prismMesh(), quadMesh()
	r.Register(a)
	r.Register(b)
	r.Register(c)
	r.Unregister(b)

	geom, _ := r.RebuildIfDirty()
	if len(geom.Vertices) != 8 || geom.Objects[1].IndexOffset != 6 {
		t.Fatalf("unexpected geometry %+v", geom.Objects)
	}
	if geom.Indices[6] != 4 {
		t.Errorf("third object indices not rebased: %v", geom.Indices[6:])
	}
}

func TestConcurrentRegistration(t *testing.T) {
	r := NewRegistry(4)
	defer r.Close()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register(quadMesh())
		}()
	}
	wg.Wait()

	geom, ok := r.RebuildIfDirty()
	if !ok || len(geom.Objects) != 32 || len(geom.Vertices) != 128 {
		t.Fatalf("objects = %d, vertices = %d", len(geom.Objects), len(geom.Vertices))
	}
	if err := geom.Validate(); err != nil {
		t.Error(err)
	}
}

func TestRebuildAfterClose(t *testing.T) {
	r := NewRegistry(2)
	r.Close()
	r.Register(quadMesh())
	r.Register(prismMesh())
	geom, ok := r.RebuildIfDirty()
	if !ok || len(geom.Vertices) != 10 {
		t.Errorf("serial rebuild produced %d vertices", len(geom.Vertices))
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		geom FlattenedGeometry
		ok   bool
	}{
		{"empty", FlattenedGeometry{}, true},
		{"window past end", FlattenedGeometry{
			Vertices: make([]mgl32.Vec3, 3),
			Indices:  []uint32{0, 1, 2},
			Objects:  []MeshObject{{IndexOffset: 1, IndexCount: 3}},
		}, false},
		{"index out of range", FlattenedGeometry{
			Vertices: make([]mgl32.Vec3, 3),
			Indices:  []uint32{0, 1, 3},
			Objects:  []MeshObject{{IndexCount: 3}},
		}, false},
		{"valid", FlattenedGeometry{
			Vertices: make([]mgl32.Vec3, 3),
			Indices:  []uint32{0, 1, 2},
			Objects:  []MeshObject{{IndexCount: 3}},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.geom.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestRebuildPanicsOnBadObject(t *testing.T) {
	r := NewRegistry(1)
	defer r.Close()
	r.Register(&staticMesh{vertices: make([]mgl32.Vec3, 2), indices: []uint32{0, 1, 5}})
	defer func() {
		if recover() == nil {
			t.Error("expected panic for out-of-range index")
		}
	}()
	r.RebuildIfDirty()
}
