// Package noop provides in-memory implementations of the render package's
// host interfaces, used by tests and by headless embedding (a server
// process that only needs the measurement/VR state machine, not pixels).
package noop

import (
	"context"
	"sync"

	"github.com/fathomline/abyssviewer/render"
	"github.com/gazed/vu/math/lin"
)

// Node is one node in the in-memory scene graph.
type Node struct {
	disposed bool
	visible  bool
	parent   *Node
	pos, rot struct {
		p lin.V3
		q lin.Q
	}
	lineA, lineB  lin.V3
	particlePos   []float32
	particleVel   []float32
	particleSize  []float32
}

// Renderer is a minimal in-memory Renderer, enough to assert on node
// transforms, line endpoints, and particle buffers in tests.
type Renderer struct {
	mu         sync.Mutex
	nodes      map[*Node]bool
	Background [4]float64
	FogOn      bool
	FogColor   [3]float64
	FogNear    float64
	FogFar     float64
}

// New creates an empty in-memory renderer.
func New() *Renderer {
	return &Renderer{nodes: map[*Node]bool{}}
}

func (r *Renderer) SetBackground(rr, g, b, a float64) { r.Background = [4]float64{rr, g, b, a} }

func (r *Renderer) SetFog(enabled bool, color [3]float64, near, far float64) {
	r.FogOn, r.FogColor, r.FogNear, r.FogFar = enabled, color, near, far
}

func (r *Renderer) CreateNode() render.NodeHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := &Node{visible: true}
	r.nodes[n] = true
	return n
}

func (r *Renderer) CreateLine() render.NodeHandle { return r.CreateNode() }

func (r *Renderer) SetTransform(h render.NodeHandle, pos lin.V3, rot lin.Q) {
	n := h.(*Node)
	n.parent = nil
	n.pos.p, n.pos.q = pos, rot
}

func (r *Renderer) SetParent(h, parent render.NodeHandle, localPos lin.V3, localRot lin.Q) {
	n := h.(*Node)
	if parent == nil {
		n.parent = nil
	} else {
		n.parent = parent.(*Node)
	}
	n.pos.p, n.pos.q = localPos, localRot
}

func (r *Renderer) SetVisible(h render.NodeHandle, visible bool) { h.(*Node).visible = visible }

func (r *Renderer) Dispose(h render.NodeHandle) {
	n := h.(*Node)
	r.mu.Lock()
	defer r.mu.Unlock()
	if n.disposed {
		return // idempotent, per SPEC_FULL.md §5.
	}
	n.disposed = true
	delete(r.nodes, n)
}

func (r *Renderer) LocalPosition(h render.NodeHandle) lin.V3 { return h.(*Node).pos.p }

func (r *Renderer) SetLineEndpoints(h render.NodeHandle, a, b lin.V3) {
	n := h.(*Node)
	n.lineA, n.lineB = a, b
}

// LineEndpoints exposes the last-set endpoints, for test assertions.
func (r *Renderer) LineEndpoints(h render.NodeHandle) (a, b lin.V3) {
	n := h.(*Node)
	return n.lineA, n.lineB
}

func (r *Renderer) SetParticleBuffers(h render.NodeHandle, positions, velocities, sizes []float32) {
	n := h.(*Node)
	n.particlePos = positions
	n.particleVel = velocities
	n.particleSize = sizes
}

func (r *Renderer) SetParticleUniforms(h render.NodeHandle, globalSize, globalOpacity float64, bounds render.Bounds) {
}

// ParticleCount exposes the last-set particle position buffer length
// (divided by 3) for test assertions.
func (r *Renderer) ParticleCount(h render.NodeHandle) int {
	return len(h.(*Node).particlePos) / 3
}

// Visible exposes a node's last-set visibility, for test assertions.
func (r *Renderer) Visible(h render.NodeHandle) bool {
	return h.(*Node).visible
}

// ModelSource is a ModelSource that returns an already-built LoadedModel
// for any URL, useful for tests that don't want to exercise real decode.
type ModelSource struct {
	Bounds render.Bounds
}

func (m ModelSource) Load(ctx context.Context, url string, onProgress func(render.Progress)) (*render.LoadedModel, error) {
	if onProgress != nil {
		onProgress(render.Progress{Loaded: 1, Total: 1})
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return &render.LoadedModel{Root: &Node{visible: true}, Bounds: m.Bounds}, nil
}

// XRSurface is a programmable in-memory XRSurface: tests drive it by
// setting Input and calling the session methods directly.
type XRSurface struct {
	mu           sync.Mutex
	supported    bool
	presenting   bool
	Input        render.InputSample
	rigPos       render.Vec3
	rigYaw       float64
	onSessionEnd func(render.SessionEvent)
}

// NewXRSurface creates a supported-by-default XR surface.
func NewXRSurface() *XRSurface { return &XRSurface{supported: true} }

func (x *XRSurface) SetSupported(v bool) { x.mu.Lock(); x.supported = v; x.mu.Unlock() }

func (x *XRSurface) Supported(ctx context.Context) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.supported
}

func (x *XRSurface) RequestSession(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.supported {
		return context.Canceled
	}
	x.presenting = true
	return nil
}

func (x *XRSurface) EndSession(ctx context.Context) error {
	x.mu.Lock()
	presenting := x.presenting
	x.presenting = false
	cb := x.onSessionEnd
	x.mu.Unlock()
	if presenting && cb != nil {
		cb(render.SessionEvent{Reason: "user"})
	}
	return nil
}

// ForceLostSession simulates the headset disconnecting without a
// terminating EndSession call, per spec.md §4.1's failure semantics.
func (x *XRSurface) ForceLostSession() {
	x.mu.Lock()
	x.presenting = false
	cb := x.onSessionEnd
	x.mu.Unlock()
	if cb != nil {
		cb(render.SessionEvent{Reason: "lost-connection"})
	}
}

func (x *XRSurface) OnSessionEnd(fn func(render.SessionEvent)) {
	x.mu.Lock()
	x.onSessionEnd = fn
	x.mu.Unlock()
}

func (x *XRSurface) PollInput() render.InputSample {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.Input
}

func (x *XRSurface) SetRigTransform(pos render.Vec3, yaw float64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.rigPos, x.rigYaw = pos, yaw
}

func (x *XRSurface) RigTransform() (render.Vec3, float64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.rigPos, x.rigYaw
}
