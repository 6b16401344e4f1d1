package mesh_registry

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
)

// Object is a mesh instance that can be registered for ray tracing.
// Vertices are in local space; the kernel applies WorldTransform per instance.
type Object interface {
	// Vertices returns the local-space vertex positions.
	//
	// Returns:
	//   - []mgl32.Vec3: the vertex positions
	Vertices() []mgl32.Vec3

	// Indices returns the triangle list relative to Vertices.
	//
	// Returns:
	//   - []uint32: three indices per triangle
	Indices() []uint32

	// WorldTransform returns the local-to-world matrix, sampled when geometry is rebuilt.
	//
	// Returns:
	//   - mgl32.Mat4: the model matrix
	WorldTransform() mgl32.Mat4
}

// FlattenedGeometry is the concatenation of every registered object, in registration order.
// Indices are rebased onto the shared vertex pool, so they reference only vertices of this generation.
type FlattenedGeometry struct {
	Vertices   []mgl32.Vec3
	Indices    []uint32
	Objects    []MeshObject
	Generation uint64
}

// Validate checks that every index window lies inside Indices and every index inside Vertices.
//
// Returns:
//   - error: the first inconsistency found, or nil
func (g FlattenedGeometry) Validate() error {
	for i, o := range g.Objects {
		if o.IndexOffset < 0 || o.IndexCount < 0 || int(o.IndexOffset)+int(o.IndexCount) > len(g.Indices) {
			return fmt.Errorf("mesh object %d index window [%d, %d) exceeds %d indices", i, o.IndexOffset, int(o.IndexOffset)+int(o.IndexCount), len(g.Indices))
		}
	}
	for i, idx := range g.Indices {
		if int(idx) >= len(g.Vertices) {
			return fmt.Errorf("index %d at position %d out of range for %d vertices", idx, i, len(g.Vertices))
		}
	}
	return nil
}

// Registry tracks the set of mesh objects that take part in ray tracing and flattens them on demand.
// Register and Unregister may be called from any goroutine.
type Registry struct {
	mu         *sync.Mutex
	objects    *list.List
	index      map[Object]*list.Element
	dirty      bool
	generation uint64

	pool   worker.DynamicWorkerPool
	closed bool
}

// NewRegistry creates an empty Registry whose flattening copies run on a pool of the given size.
// A worker count below 1 is raised to 1.
//
// Parameters:
//   - workers: the number of copy workers
//
// Returns:
//   - *Registry: the new registry
func NewRegistry(workers int) *Registry {
	workers = max(workers, 1)
	return &Registry{
		mu:      &sync.Mutex{},
		objects: list.New(),
		index:   make(map[Object]*list.Element),
		pool:    worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
	}
}

// Register adds obj to the registry. Registering an object that is already present is a no-op.
//
// Parameters:
//   - obj: the object to add
func (r *Registry) Register(obj Object) {
	if obj == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.index[obj]; ok {
		return
	}
	r.index[obj] = r.objects.PushBack(obj)
	r.dirty = true
}

// Unregister removes obj from the registry. Removing an absent object is a no-op.
//
// Parameters:
//   - obj: the object to remove
func (r *Registry) Unregister(obj Object) {
	if obj == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	el, ok := r.index[obj]
	if !ok {
		return
	}
	r.objects.Remove(el)
	delete(r.index, obj)
	r.dirty = true
}

// Dirty reports whether the registered set changed since the last rebuild.
func (r *Registry) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dirty
}

// Len returns the number of registered objects.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.objects.Len()
}

// Generation returns the number of rebuilds performed so far.
func (r *Registry) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// RebuildIfDirty flattens every registered object when the set changed since the last call.
// Offsets are assigned serially in registration order; the per-object copies run on the worker pool.
// Panics if the result is inconsistent, which only happens if an object mutated its geometry mid-rebuild.
//
// Returns:
//   - FlattenedGeometry: the new geometry, zero when nothing changed
//   - bool: true if a rebuild happened
func (r *Registry) RebuildIfDirty() (FlattenedGeometry, bool) {
	r.mu.Lock()
	if !r.dirty {
		r.mu.Unlock()
		return FlattenedGeometry{}, false
	}
	objs := make([]Object, 0, r.objects.Len())
	for el := r.objects.Front(); el != nil; el = el.Next() {
		objs = append(objs, el.Value.(Object))
	}
	r.dirty = false
	r.generation++
	gen := r.generation
	parallel := !r.closed && len(objs) > 1
	r.mu.Unlock()

	geom := flatten(objs, r.pool, parallel)
	geom.Generation = gen
	if err := geom.Validate(); err != nil {
		panic(fmt.Sprintf("mesh registry generation %d: %v", gen, err))
	}
	common.Logger().Debug("mesh geometry rebuilt",
		"generation", gen,
		"objects", len(geom.Objects),
		"vertices", len(geom.Vertices),
		"indices", len(geom.Indices))
	return geom, true
}

// Close stops handing work to the pool; its idle workers exit on their own.
// Later rebuilds run on the calling goroutine.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

type objectWindow struct {
	obj         Object
	vertices    []mgl32.Vec3
	indices     []uint32
	vertexStart int
	indexStart  int
}

func flatten(objs []Object, pool worker.DynamicWorkerPool, parallel bool) FlattenedGeometry {
	windows := make([]objectWindow, len(objs))
	vertexTotal, indexTotal := 0, 0
	for i, obj := range objs {
		w := objectWindow{
			obj:         obj,
			vertices:    obj.Vertices(),
			indices:     obj.Indices(),
			vertexStart: vertexTotal,
			indexStart:  indexTotal,
		}
		vertexTotal += len(w.vertices)
		indexTotal += len(w.indices)
		windows[i] = w
	}

	geom := FlattenedGeometry{
		Vertices: make([]mgl32.Vec3, vertexTotal),
		Indices:  make([]uint32, indexTotal),
		Objects:  make([]MeshObject, len(objs)),
	}

	if !parallel {
		for i := range windows {
			copyWindow(&geom, i, windows[i])
		}
		return geom
	}

	var wg sync.WaitGroup
	for i := range windows {
		wg.Add(1)
		w := windows[i]
		id := i
		pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				copyWindow(&geom, id, w)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return geom
}

// copyWindow writes one object's slice of the flattened pools. Windows never overlap,
// so concurrent calls for different objects are safe.
func copyWindow(geom *FlattenedGeometry, i int, w objectWindow) {
	copy(geom.Vertices[w.vertexStart:], w.vertices)
	dst := geom.Indices[w.indexStart : w.indexStart+len(w.indices)]
	base := uint32(w.vertexStart)
	for j, idx := range w.indices {
		dst[j] = idx + base
	}
	geom.Objects[i] = MeshObject{
		WorldTransform: w.obj.WorldTransform(),
		IndexOffset:    int32(w.indexStart),
		IndexCount:     int32(len(w.indices)),
	}
}
