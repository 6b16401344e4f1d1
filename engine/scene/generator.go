package scene

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-rt/common"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidOptions is wrapped by every error returned from GeneratorOptions.Validate.
var ErrInvalidOptions = errors.New("invalid generator options")

const (
	metalChance      = 0.4
	reflectiveChance = 0.8

	dielectricSpecular = 0.04

	emissionValueMin = 3
	emissionValueMax = 8
)

// GeneratorOptions controls procedural sphere placement.
type GeneratorOptions struct {
	// Seed selects the sequence. Equal options always produce equal spheres.
	Seed uint64
	// CountMax is the number of candidates drawn; overlapping candidates are dropped, not retried.
	CountMax int
	// RadiusMin and RadiusMax bound the sphere radius, drawn uniformly in [RadiusMin, RadiusMax).
	RadiusMin, RadiusMax float32
	// PlacementRadius is the radius of the disk around the origin sphere centers are placed in.
	PlacementRadius float32
}

// DefaultGeneratorOptions returns 100 candidates with radii in [3, 8) on a disk of radius 100, seed 12345.
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		Seed:            12345,
		CountMax:        100,
		RadiusMin:       3,
		RadiusMax:       8,
		PlacementRadius: 100,
	}
}

// Validate checks the options for values Generate cannot work with.
//
// Returns:
//   - error: nil, or an error wrapping ErrInvalidOptions
func (o GeneratorOptions) Validate() error {
	switch {
	case o.CountMax < 0:
		return fmt.Errorf("%w: count %d is negative", ErrInvalidOptions, o.CountMax)
	case o.RadiusMin < 0:
		return fmt.Errorf("%w: minimum radius %g is negative", ErrInvalidOptions, o.RadiusMin)
	case o.RadiusMax < o.RadiusMin:
		return fmt.Errorf("%w: radius range [%g, %g) is inverted", ErrInvalidOptions, o.RadiusMin, o.RadiusMax)
	case o.PlacementRadius <= 0:
		return fmt.Errorf("%w: placement radius %g must be positive", ErrInvalidOptions, o.PlacementRadius)
	}
	return nil
}

// Generate places up to CountMax non-overlapping spheres resting on the ground plane.
//
// Every candidate draws a radius and a point uniformly distributed over the placement disk.
// A candidate intersecting an already accepted sphere is skipped; only accepted spheres draw
// a material, so the sequence of accepted spheres depends on the seed alone.
//
// The generator is a PCG seeded from opts.Seed, so results are stable across platforms and Go releases.
// Panics if the options do not validate.
//
// Parameters:
//   - opts: the generation parameters
//
// Returns:
//   - []Sphere: the accepted spheres in draw order, never more than CountMax
func Generate(opts GeneratorOptions) []Sphere {
	if err := opts.Validate(); err != nil {
		panic(fmt.Sprintf("scene: %v", err))
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	spheres := make([]Sphere, 0, opts.CountMax)

candidates:
	for range opts.CountMax {
		radius := uniform(rng, opts.RadiusMin, opts.RadiusMax)
		x, y := diskPoint(rng, opts.PlacementRadius)
		position := mgl32.Vec3{x, radius, y}

		for i := range spheres {
			minDist := radius + spheres[i].Radius
			if lengthSq(position.Sub(spheres[i].Position)) < float32(minDist*minDist) {
				continue candidates
			}
		}

		s := Sphere{Position: position, Radius: radius}
		applyMaterial(rng, &s)
		spheres = append(spheres, s)
	}

	common.Logger().Debug("spheres generated",
		"seed", opts.Seed,
		"candidates", opts.CountMax,
		"accepted", len(spheres))
	return spheres
}

// applyMaterial draws a surface color and decides between metal, dielectric and emitter.
func applyMaterial(rng *rand.Rand, s *Sphere) {
	color := common.ColorHSV(rng.Float32(), rng.Float32(), rng.Float32())
	chance := rng.Float32()

	if chance < reflectiveChance {
		if chance < metalChance {
			s.Specular = color
		} else {
			s.Albedo = color
			s.Specular = mgl32.Vec3{dielectricSpecular, dielectricSpecular, dielectricSpecular}
		}
		s.Smoothness = rng.Float32()
		return
	}

	s.Emission = common.ColorHSV(rng.Float32(), rng.Float32(), uniform(rng, emissionValueMin, emissionValueMax))
}

// Products below are rounded by explicit conversions before they are added, so they are never
// fused into FMA instructions and a seed yields the same spheres on every architecture.

// uniform returns a float in [lo, hi), or lo when the range is empty.
func uniform(rng *rand.Rand, lo, hi float32) float32 {
	return lerp(lo, hi, rng.Float32())
}

func lerp(lo, hi, t float32) float32 {
	return lo + float32((hi-lo)*t)
}

func lengthSq(d mgl32.Vec3) float32 {
	return float32(d[0]*d[0]) + float32(d[1]*d[1]) + float32(d[2]*d[2])
}

// diskPoint returns a point uniformly distributed over the area of a disk of the given radius.
// Points are rejection sampled from the enclosing square, which keeps trigonometry out of the
// placement.
func diskPoint(rng *rand.Rand, radius float32) (float32, float32) {
	for {
		x := float32(2*rng.Float32()) - 1
		y := float32(2*rng.Float32()) - 1
		if float32(x*x)+float32(y*y) <= 1 {
			return x * radius, y * radius
		}
	}
}
