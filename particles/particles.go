// Package particles implements the GPU marine-snow particle field from
// spec.md's component C6: an adaptive-count, boundary-wrapped particle
// system whose CPU side owns the position/velocity/size buffers and whose
// GPU side animates and fogs them in shader stages (shader.go). The
// buffer-population approach — flat float32 slices filled from a seeded
// *rand.Rand and handed to the renderer in one shot — follows the
// teacher's own CPU/GPU particle example (eg/ps.go's makeParticles).
package particles

import (
	"math"
	"math/rand"

	"github.com/fathomline/abyssviewer/render"
	"github.com/gazed/vu/math/lin"
)

// BoundsExpandFactor enlarges the loaded model's bounding box before
// computing the particle field's extent, per spec.md §4.3.
const BoundsExpandFactor = 2.5

// RebuildThreshold is the fractional change in target particle count that
// forces a full geometry rebuild rather than an in-place redistribute,
// per spec.md §4.3 and the literal boundary scenario in spec.md §8.
const RebuildThreshold = 0.2

const (
	minCount = 100
	maxCount = 8000
)

// baseVelocity and noise scales from spec.md §4.3.
var (
	baseVelocity = lin.V3{X: 0.00001, Y: -0.000005, Z: 0.000005}
)

const (
	xzNoiseScale   = 2e-5
	yDownwardBias  = -0.000005
	smallFraction  = 0.7
	mediumFraction = 0.9 // cumulative: 70% small + 20% medium = 90%; remaining 10% large.
	smallMin, smallMax   = 0.0075, 0.0125
	mediumMin, mediumMax = 0.0125, 0.02
	largeMin, largeMax   = 0.02, 0.03
)

// TargetCount computes the particle count for bounds expanded by
// BoundsExpandFactor, using the piecewise density rule from spec.md §4.3:
// density 0.0625 below 5000 m³, linearly interpolated to 2 across
// [5000,20000), saturating at 3.5 above, count clamped to [100,8000].
func TargetCount(modelBounds render.Bounds) int {
	v := modelBounds.Expand(BoundsExpandFactor).Volume()
	var density float64
	switch {
	case v < 5000:
		density = 0.0625
	case v < 20000:
		t := (v - 5000) / (20000 - 5000)
		density = lin.Lerp(0.0625, 2, t)
	default:
		density = 3.5
	}
	count := int(density * v)
	if count < minCount {
		count = minCount
	}
	if count > maxCount {
		count = maxCount
	}
	return count
}

// Field is the live marine-snow particle system: a GPU point cloud whose
// buffers are rewritten on bounds change and whose animation runs entirely
// in the vertex/fragment shaders from shader.go.
type Field struct {
	renderer render.Renderer
	node     render.NodeHandle
	random   *rand.Rand

	bounds        render.Bounds
	count         int
	globalSize    float64
	globalOpacity float64

	positions  []float32
	velocities []float32
	sizes      []float32
}

// New builds a marine-snow field sized for modelBounds and uploads its
// initial buffers. seed makes particle placement reproducible for tests;
// callers outside tests should seed from a real entropy source.
func New(r render.Renderer, modelBounds render.Bounds, seed int64) *Field {
	f := &Field{
		renderer:      r,
		random:        rand.New(rand.NewSource(seed)),
		globalSize:    1,
		globalOpacity: 1,
	}
	f.bounds = modelBounds.Expand(BoundsExpandFactor)
	f.count = TargetCount(modelBounds)
	f.node = r.CreateNode()
	f.populate()
	f.upload()
	return f
}

// SetGlobalUniforms sets the size/opacity multipliers the vertex/fragment
// stages apply on top of per-particle values.
func (f *Field) SetGlobalUniforms(size, opacity float64) {
	f.globalSize, f.globalOpacity = size, opacity
	f.renderer.SetParticleUniforms(f.node, f.globalSize, f.globalOpacity, f.bounds)
}

// Count returns the current particle count.
func (f *Field) Count() int { return f.count }

// Bounds returns the (already-expanded) wrap bounds.
func (f *Field) Bounds() render.Bounds { return f.bounds }

// Rebuilt reports whether the most recent UpdateBounds call performed a
// full rebuild (true) or an in-place redistribute (false); exposed for
// tests asserting the 20% threshold policy.
type UpdateResult struct {
	Rebuilt  bool
	OldCount int
	NewCount int
}

// UpdateBounds reacts to a model change: recomputes the target count for
// newModelBounds and either tears down and rebuilds the full geometry (if
// the count changed by more than RebuildThreshold) or redistributes
// positions in place within the new bounds (spec.md §4.3's "avoid GC
// pressure for incremental resizes").
func (f *Field) UpdateBounds(newModelBounds render.Bounds) UpdateResult {
	oldCount := f.count
	newCount := TargetCount(newModelBounds)
	f.bounds = newModelBounds.Expand(BoundsExpandFactor)

	rebuild := rebuildNeeded(oldCount, newCount)

	if rebuild {
		f.renderer.Dispose(f.node)
		f.node = f.renderer.CreateNode()
		f.count = newCount
		f.populate()
	} else {
		f.redistributePositions()
	}
	f.upload()
	f.renderer.SetParticleUniforms(f.node, f.globalSize, f.globalOpacity, f.bounds)
	return UpdateResult{Rebuilt: rebuild, OldCount: oldCount, NewCount: f.count}
}

// rebuildNeeded implements spec.md §4.3's rebuild-vs-redistribute policy:
// a full rebuild is required whenever the count change exceeds
// RebuildThreshold of the old count (or there was no prior field at all).
func rebuildNeeded(oldCount, newCount int) bool {
	if oldCount == 0 {
		return true
	}
	diff := math.Abs(float64(newCount - oldCount))
	return diff > RebuildThreshold*float64(oldCount)
}

// populate allocates fresh position/velocity/size buffers for f.count
// particles, uniformly distributed in f.bounds.
func (f *Field) populate() {
	n := f.count
	f.positions = make([]float32, n*3)
	f.velocities = make([]float32, n*3)
	f.sizes = make([]float32, n)
	f.fillPositions(0, n)
	for i := 0; i < n; i++ {
		f.velocities[i*3+0] = float32(baseVelocity.X + (f.random.Float64()*2-1)*xzNoiseScale)
		f.velocities[i*3+1] = float32(baseVelocity.Y + f.random.Float64()*yDownwardBias)
		f.velocities[i*3+2] = float32(baseVelocity.Z + (f.random.Float64()*2-1)*xzNoiseScale)
		f.sizes[i] = f.sampleSize()
	}
}

// redistributePositions rewrites only the position buffer (count
// unchanged), leaving velocity/size as-is, matching spec.md §4.3's
// "rewrite the position attribute with fresh random samples in the new
// bounds" redistribute path.
func (f *Field) redistributePositions() {
	f.fillPositions(0, f.count)
}

func (f *Field) fillPositions(from, to int) {
	size := f.bounds.Size()
	for i := from; i < to; i++ {
		f.positions[i*3+0] = float32(f.bounds.Min.X + f.random.Float64()*size.X)
		f.positions[i*3+1] = float32(f.bounds.Min.Y + f.random.Float64()*size.Y)
		f.positions[i*3+2] = float32(f.bounds.Min.Z + f.random.Float64()*size.Z)
	}
}

// sampleSize draws a particle size from the 70/20/10 small/medium/large
// tiers in spec.md §4.3.
func (f *Field) sampleSize() float32 {
	r := f.random.Float64()
	switch {
	case r < smallFraction:
		return float32(smallMin + f.random.Float64()*(smallMax-smallMin))
	case r < mediumFraction:
		return float32(mediumMin + f.random.Float64()*(mediumMax-mediumMin))
	default:
		return float32(largeMin + f.random.Float64()*(largeMax-largeMin))
	}
}

func (f *Field) upload() {
	f.renderer.SetParticleBuffers(f.node, f.positions, f.velocities, f.sizes)
}

// Dispose tears down the particle field's geometry.
func (f *Field) Dispose() {
	f.renderer.Dispose(f.node)
}
