// Package scene owns the 3D world graph handle: background color and fog
// parameters (spec.md §4 component C3). It keeps no registry of nodes:
// CreateNode and Dispose delegate straight to the host renderer. It does
// not know about models, cameras, or measurement — those subsystems own
// their own handles.
package scene

import (
	"github.com/fathomline/abyssviewer/render"
)

// Mode selects between the two atmospheric presets from the glossary:
// Survey (bright, fog-free, no particles) and Dive (attenuated lighting,
// fog on, particle field on).
type Mode int

const (
	Survey Mode = iota
	Dive
)

// Scene is the scene holder. All mutation goes through its methods so
// the host renderer only ever sees SetBackground/SetFog calls in
// response to an explicit decision, never implicitly.
type Scene struct {
	r render.Renderer

	background [4]float64
	fogColor   [3]float64
	fogNear    float64
	fogFar     float64
	fogOn      bool
	mode       Mode
}

// New creates a Scene bound to the given host renderer.
func New(r render.Renderer) *Scene {
	return &Scene{r: r}
}

// SetBackground sets and immediately applies the clear color.
func (s *Scene) SetBackground(rr, g, b, a float64) {
	s.background = [4]float64{rr, g, b, a}
	s.r.SetBackground(rr, g, b, a)
}

// Background returns the last-set clear color.
func (s *Scene) Background() [4]float64 { return s.background }

// SetFog sets and immediately applies fog parameters. Disabling fog never
// requires a material swap downstream — the host integrates fog in-shader
// so it can be toggled freely (spec.md §4.3's rendering-flags note).
func (s *Scene) SetFog(enabled bool, color [3]float64, near, far float64) {
	s.fogOn, s.fogColor, s.fogNear, s.fogFar = enabled, color, near, far
	s.r.SetFog(enabled, color, near, far)
}

// Fog returns the current fog state.
func (s *Scene) Fog() (enabled bool, color [3]float64, near, far float64) {
	return s.fogOn, s.fogColor, s.fogNear, s.fogFar
}

// SetMode applies the Survey/Dive atmospheric preset: Dive turns fog on
// at the given near/far and color; Survey turns fog off. The background
// color and the lighting are left unchanged in both modes.
// The particle engine's own enablement is driven by the viewer
// orchestrator, not by Scene, since Scene has no particle knowledge.
func (s *Scene) SetMode(mode Mode, diveFogNear, diveFogFar float64, diveFogColor [3]float64) {
	s.mode = mode
	switch mode {
	case Dive:
		s.SetFog(true, diveFogColor, diveFogNear, diveFogFar)
	case Survey:
		s.SetFog(false, s.fogColor, s.fogNear, s.fogFar)
	}
}

// Mode returns the current atmospheric mode.
func (s *Scene) Mode() Mode { return s.mode }

// CreateNode creates a new, empty scene node through the bound renderer.
func (s *Scene) CreateNode() render.NodeHandle { return s.r.CreateNode() }

// Dispose releases a node. Idempotent, delegated to the renderer.
func (s *Scene) Dispose(n render.NodeHandle) { s.r.Dispose(n) }
