package scene

import (
	"math/rand/v2"

	"github.com/Carmen-Shannon/oxy-rt/engine/mesh_registry"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithParameters sets the initial generation parameters and bounce limit.
// Unusable generator options make Initialize panic; validate them first when they come from user input.
//
// Parameters:
//   - p: the parameters
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithParameters(p Parameters) SceneBuilderOption {
	return func(s *scene) {
		s.params = p
	}
}

// WithSeedSource sets the function Randomize draws new seeds from. Defaults to rand.Uint64.
//
// Parameters:
//   - source: returns a fresh seed on every call
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSeedSource(source func() uint64) SceneBuilderOption {
	return func(s *scene) {
		if source != nil {
			s.seedSource = source
		}
	}
}

// WithRandom sets the generator for per-frame pixel jitter and kernel seeds.
// Defaults to a PCG seeded from the seed source.
func WithRandom(rng *rand.Rand) SceneBuilderOption {
	return func(s *scene) {
		s.rng = rng
	}
}

// WithRegistry makes the scene trace the objects of an existing registry.
// The scene does not close a registry it did not create.
//
// Parameters:
//   - r: the registry
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithRegistry(r *mesh_registry.Registry) SceneBuilderOption {
	return func(s *scene) {
		s.registry = r
	}
}

// WithRegistryWorkers sets the number of flattening workers of the registry the scene creates.
// Ignored when WithRegistry is given.
func WithRegistryWorkers(n int) SceneBuilderOption {
	return func(s *scene) {
		s.registryWorkers = max(n, 1)
	}
}

// WithEpsilon sets the per-component tolerance under which camera and light changes are ignored.
//
// Parameters:
//   - eps: the absolute tolerance
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithEpsilon(eps float32) SceneBuilderOption {
	return func(s *scene) {
		s.epsilon = eps
	}
}

// WithMaxBounces sets the initial bounce limit.
func WithMaxBounces(n uint32) SceneBuilderOption {
	return func(s *scene) {
		s.params.MaxBounces = n
	}
}
