// Package render defines the host boundary: the set of interfaces a
// browser (WebGL/WebXR) or native embedder implements so the core engine
// in this module never touches a GPU handle, a DOM node, or a glTF byte
// stream directly. This mirrors spec.md §1's externalization of the
// renderer, the XR surface, and the mesh loader.
package render

import "github.com/gazed/vu/math/lin"

// NodeHandle is an opaque reference to whatever the host renderer uses to
// identify a scene node (a three.js Object3D, a vu.Pov, ...). The core
// never dereferences it — only compares, stores, and hands it back to the
// host through the Renderer interface.
type NodeHandle any

// Renderer mirrors declarative scene/camera state to the host's actual
// draw surface. Every method is expected to be cheap and non-blocking —
// per SPEC_FULL.md §5 no per-frame call may suspend.
type Renderer interface {
	// SetBackground sets the clear color, r/g/b/a in [0,1].
	SetBackground(r, g, b, a float64)
	// SetFog sets exponential-squared fog color and near/far distances.
	// Passing enabled=false must not require a material swap downstream.
	SetFog(enabled bool, color [3]float64, near, far float64)

	// CreateNode creates an empty transform node and returns its handle.
	CreateNode() NodeHandle
	// SetTransform sets a node's local position and rotation (quaternion).
	SetTransform(n NodeHandle, pos lin.V3, rot lin.Q)
	// SetParent re-parents a node; pos/rot passed are LOCAL to the new
	// parent, matching the ghost-sphere re-anchoring rule in spec.md §4.2.
	SetParent(n, parent NodeHandle, localPos lin.V3, localRot lin.Q)
	// SetVisible toggles a node's visibility without destroying it.
	SetVisible(n NodeHandle, visible bool)
	// Dispose releases a node and any GPU resource it owns. Must be
	// idempotent — calling it twice is a no-op the second time.
	Dispose(n NodeHandle)

	// LocalPosition returns a node's position relative to its parent,
	// used by the ghost-sphere corruption check (local magnitude > 1m).
	LocalPosition(n NodeHandle) lin.V3

	Line

	ParticleSink
}

// Line renders the single measurement line segment shared across
// modalities (spec.md §4.2 — "shares one visible line/label across
// modalities").
type Line interface {
	CreateLine() NodeHandle
	SetLineEndpoints(n NodeHandle, a, b lin.V3)
}

// ParticleSink receives the marine-snow particle engine's (C6) per-frame
// buffers. The host is expected to upload these to the GPU as a point
// sprite draw call using the shader sources in package particles.
type ParticleSink interface {
	SetParticleBuffers(n NodeHandle, positions, velocities, sizes []float32)
	SetParticleUniforms(n NodeHandle, globalSize, globalOpacity float64, bounds Bounds)
}

// Bounds is an axis-aligned box, used both for model bounding volumes and
// for the particle field's wrap-around extent.
type Bounds struct {
	Min, Max lin.V3
}

// Center returns the midpoint of the box.
func (b Bounds) Center() lin.V3 {
	return lin.V3{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2, Z: (b.Min.Z + b.Max.Z) / 2}
}

// Size returns the per-axis extent of the box.
func (b Bounds) Size() lin.V3 {
	return lin.V3{X: b.Max.X - b.Min.X, Y: b.Max.Y - b.Min.Y, Z: b.Max.Z - b.Min.Z}
}

// Volume returns the box's volume in cubic world units.
func (b Bounds) Volume() float64 {
	s := b.Size()
	return s.X * s.Y * s.Z
}

// Expand returns a copy of b scaled about its center by factor.
func (b Bounds) Expand(factor float64) Bounds {
	c, s := b.Center(), b.Size()
	hx, hy, hz := s.X*factor/2, s.Y*factor/2, s.Z*factor/2
	return Bounds{
		Min: lin.V3{X: c.X - hx, Y: c.Y - hy, Z: c.Z - hz},
		Max: lin.V3{X: c.X + hx, Y: c.Y + hy, Z: c.Z + hz},
	}
}
