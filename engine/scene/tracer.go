package scene

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-rt/engine/mesh_registry"
	"github.com/Carmen-Shannon/oxy-rt/engine/renderer"
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	traceFar     = 1e30
	traceEpsilon = 1e-4
)

// Tracer is the CPU implementation of the built-in tracing kernel. It reads the same kernel
// parameters and buffers as the WGSL kernel and follows the same shading model: a ground plane,
// the generated spheres and mirror-like mesh triangles, lit by the directional light and a sky gradient.
//
// Prepare runs once per dispatch; Shade is safe for concurrent use between Prepare calls.
type Tracer struct {
	in        *renderer.KernelInputs
	spheres   []Sphere
	triangles []triangle
	origin    mgl32.Vec3
	sun       mgl32.Vec3
	sunPower  float32
}

var _ renderer.SoftwareKernel = &Tracer{}

type triangle struct {
	v0, v1, v2 mgl32.Vec3
	normal     mgl32.Vec3
}

type ray struct {
	origin    mgl32.Vec3
	direction mgl32.Vec3
	energy    mgl32.Vec3
}

type hit struct {
	position   mgl32.Vec3
	distance   float32
	normal     mgl32.Vec3
	albedo     mgl32.Vec3
	specular   mgl32.Vec3
	smoothness float32
	emission   mgl32.Vec3
}

// NewTracer creates a Tracer for the software renderer backend.
func NewTracer() *Tracer {
	return &Tracer{}
}

// Prepare decodes the bound buffers and moves every mesh triangle into world space.
//
// Parameters:
//   - in: the kernel inputs of the dispatch
//
// Returns:
//   - error: an error if a mesh object references indices or vertices outside the bound buffers
func (t *Tracer) Prepare(in *renderer.KernelInputs) error {
	t.in = in
	t.spheres = renderer.BufferData[Sphere](in, renderer.BufferSpheres)
	vertices := renderer.BufferData[mgl32.Vec3](in, renderer.BufferVertices)
	indices := renderer.BufferData[uint32](in, renderer.BufferIndices)
	objects := renderer.BufferData[mesh_registry.MeshObject](in, renderer.BufferMeshObjects)

	t.triangles = t.triangles[:0]
	for i, o := range objects {
		end := int(o.IndexOffset) + int(o.IndexCount)
		if o.IndexOffset < 0 || end > len(indices) {
			return fmt.Errorf("mesh object %d: index window [%d, %d) outside %d indices", i, o.IndexOffset, end, len(indices))
		}
		for j := int(o.IndexOffset); j+2 < end; j += 3 {
			var tri [3]mgl32.Vec3
			for k := range tri {
				idx := indices[j+k]
				if int(idx) >= len(vertices) {
					return fmt.Errorf("mesh object %d: index %d outside %d vertices", i, idx, len(vertices))
				}
				tri[k] = o.WorldTransform.Mul4x1(vertices[idx].Vec4(1)).Vec3()
			}
			n := tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0]))
			if n.Len() == 0 {
				continue
			}
			t.triangles = append(t.triangles, triangle{v0: tri[0], v1: tri[1], v2: tri[2], normal: n.Normalize()})
		}
	}

	t.origin = in.CameraToWorld.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	t.sun, t.sunPower = in.DirectionalLight.Vec3(), in.DirectionalLight[3]
	if t.sun.Len() > 0 {
		t.sun = t.sun.Normalize().Mul(-1)
	}
	return nil
}

// Shade traces one sample for pixel (x, y). Row 0 is the top of the image.
func (t *Tracer) Shade(x, y int) mgl32.Vec4 {
	in := t.in
	rng := pcg(uint32(x)*1973 + uint32(y)*9277 + math.Float32bits(in.Seed)*26699)

	ndcX := (float32(x)+in.PixelOffset[0])/float32(in.Width)*2 - 1
	ndcY := (float32(y)+in.PixelOffset[1])/float32(in.Height)*2 - 1
	r := t.cameraRay(ndcX, -ndcY)

	var color mgl32.Vec3
	for bounce := uint32(0); bounce <= in.MaxBounces; bounce++ {
		h := t.trace(&r)
		energy := r.energy
		color = color.Add(mulv(energy, t.shade(&r, h, &rng)))
		if r.energy == (mgl32.Vec3{}) {
			break
		}
	}
	return color.Vec4(1)
}

func (t *Tracer) cameraRay(u, v float32) ray {
	view := t.in.CameraInverseProjection.Mul4x1(mgl32.Vec4{u, v, 0, 1}).Vec3()
	dir := t.in.CameraToWorld.Mul4x1(view.Vec4(0)).Vec3()
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return ray{origin: t.origin, direction: dir, energy: mgl32.Vec3{1, 1, 1}}
}

func (t *Tracer) trace(r *ray) hit {
	best := hit{distance: traceFar}

	if r.direction[1] != 0 {
		if d := -r.origin[1] / r.direction[1]; d > 0 && d < best.distance {
			best = hit{
				distance:   d,
				position:   r.origin.Add(r.direction.Mul(d)),
				normal:     mgl32.Vec3{0, 1, 0},
				albedo:     mgl32.Vec3{0.8, 0.8, 0.8},
				specular:   mgl32.Vec3{0.03, 0.03, 0.03},
				smoothness: 0.2,
			}
		}
	}

	for i := range t.spheres {
		s := &t.spheres[i]
		d := r.origin.Sub(s.Position)
		p1 := -r.direction.Dot(d)
		p2sqr := p1*p1 - d.Dot(d) + s.Radius*s.Radius
		if p2sqr < 0 {
			continue
		}
		p2 := math32.Sqrt(p2sqr)
		dist := p1 - p2
		if dist <= 0 {
			dist = p1 + p2
		}
		if dist > 0 && dist < best.distance {
			pos := r.origin.Add(r.direction.Mul(dist))
			best = hit{
				distance:   dist,
				position:   pos,
				normal:     pos.Sub(s.Position).Normalize(),
				albedo:     s.Albedo,
				specular:   s.Specular,
				smoothness: s.Smoothness,
				emission:   s.Emission,
			}
		}
	}

	for i := range t.triangles {
		tri := &t.triangles[i]
		if dist, ok := intersectTriangle(r, tri); ok && dist < best.distance {
			best = hit{
				distance:   dist,
				position:   r.origin.Add(r.direction.Mul(dist)),
				normal:     tri.normal,
				specular:   mgl32.Vec3{0.65, 0.65, 0.65},
				smoothness: 0.99,
			}
		}
	}
	return best
}

// intersectTriangle is the Moller-Trumbore test.
func intersectTriangle(r *ray, tri *triangle) (float32, bool) {
	e1 := tri.v1.Sub(tri.v0)
	e2 := tri.v2.Sub(tri.v0)
	p := r.direction.Cross(e2)
	det := e1.Dot(p)
	if math32.Abs(det) < traceEpsilon {
		return 0, false
	}
	inv := 1 / det
	tv := r.origin.Sub(tri.v0)
	u := tv.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := tv.Cross(e1)
	v := r.direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	dist := e2.Dot(q) * inv
	return dist, dist > traceEpsilon
}

// shade returns the light gathered at h and turns r into the next bounce,
// or zeroes its energy when the path ends.
func (t *Tracer) shade(r *ray, h hit, rng *pcg) mgl32.Vec3 {
	if h.distance >= traceFar {
		r.energy = mgl32.Vec3{}
		f := 0.5 * (r.direction[1] + 1)
		sky := mgl32.Vec3{1, 1, 1}.Mul(1 - f).Add(mgl32.Vec3{0.5, 0.7, 1}.Mul(f))
		return sky.Mul(0.6)
	}

	albedo := minv(mgl32.Vec3{1, 1, 1}.Sub(h.specular), h.albedo)
	specChance := average(h.specular)
	diffChance := average(albedo)
	direct := t.directLight(h, albedo)
	roulette := rng.float()

	r.origin = h.position.Add(h.normal.Mul(traceEpsilon))
	switch {
	case roulette < specChance:
		alpha := math32.Pow(1000, h.smoothness*h.smoothness)
		r.direction = sampleHemisphere(reflect(r.direction, h.normal), alpha, rng)
		f := (alpha + 2) / (alpha + 1)
		r.energy = mulv(r.energy, h.specular.Mul((1/specChance)*mgl32.Clamp(h.normal.Dot(r.direction)*f, 0, 1)))
	case diffChance > 0 && roulette < specChance+diffChance:
		r.direction = sampleHemisphere(h.normal, 1, rng)
		r.energy = mulv(r.energy, albedo.Mul(1/diffChance))
	default:
		r.energy = mgl32.Vec3{}
	}
	return h.emission.Add(direct)
}

func (t *Tracer) directLight(h hit, albedo mgl32.Vec3) mgl32.Vec3 {
	if t.sun.Len() == 0 {
		return mgl32.Vec3{}
	}
	shadow := ray{origin: h.position.Add(h.normal.Mul(traceEpsilon)), direction: t.sun}
	if t.trace(&shadow).distance < traceFar {
		return mgl32.Vec3{}
	}
	return albedo.Mul(mgl32.Clamp(h.normal.Dot(t.sun), 0, 1) * t.sunPower)
}

func sampleHemisphere(n mgl32.Vec3, alpha float32, rng *pcg) mgl32.Vec3 {
	cosTheta := math32.Pow(rng.float(), 1/(alpha+1))
	sinTheta := math32.Sqrt(max(0, 1-cosTheta*cosTheta))
	phi := 2 * math32.Pi * rng.float()

	helper := mgl32.Vec3{1, 0, 0}
	if math32.Abs(n[0]) > 0.99 {
		helper = mgl32.Vec3{0, 0, 1}
	}
	tangent := n.Cross(helper).Normalize()
	binormal := n.Cross(tangent).Normalize()
	return tangent.Mul(math32.Cos(phi) * sinTheta).
		Add(binormal.Mul(math32.Sin(phi) * sinTheta)).
		Add(n.Mul(cosTheta))
}

func reflect(d, n mgl32.Vec3) mgl32.Vec3 {
	return d.Sub(n.Mul(2 * d.Dot(n)))
}

func average(c mgl32.Vec3) float32 {
	return (c[0] + c[1] + c[2]) / 3
}

func mulv(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

func minv(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{min(a[0], b[0]), min(a[1], b[1]), min(a[2], b[2])}
}

// pcg is the per-pixel PCG hash generator shared with the WGSL kernel.
type pcg uint32

func (p *pcg) float() float32 {
	*p = *p*747796405 + 2891336453
	w := ((uint32(*p) >> ((uint32(*p) >> 28) + 4)) ^ uint32(*p)) * 277803737
	w = (w >> 22) ^ w
	return float32(w) / 4294967295.0
}
