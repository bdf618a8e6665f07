// Package measurement implements the cross-modal two-point distance tool
// from spec.md's component C7: a FIFO of at most two points fed by a
// desktop raycast path and an HMD trigger-release path, with a rendered
// line and a distance-label sprite kept in sync with the point set. Node
// lifecycle (idempotent Dispose, lazy create-on-demand) follows the same
// pattern the teacher uses for its scene-graph Pov handles.
package measurement

import (
	"math"
	"time"

	"github.com/fathomline/abyssviewer/events"
	"github.com/fathomline/abyssviewer/render"
	"github.com/gazed/vu/math/lin"
	"github.com/google/uuid"
)

// PointsChanged is the "measurement-points-changed" payload: the FIFO's current
// contents (0, 1 or 2 points, oldest first) after any placement, eviction
// or clear. Point.ID lets a host correlate this payload across updates
// (e.g. animating a marker rather than replacing it) instead of relying on
// slice position alone.
type PointsChanged struct {
	Points []Point
}

// Tunables from spec.md §4.2.
const (
	DragThresholdPixels   = 5.0
	DoubleClickThreshold  = 300 * time.Millisecond
	TriggerDebounce       = 200 * time.Millisecond
	GhostLocalZ           = -0.05
	GhostCorruptionRadius = 1.0
	GhostRetryInterval    = 250 * time.Millisecond
	GhostMaxRetries       = 40
)

// HitKind classifies a raycast hit for the ray-target hygiene predicate
// from spec.md §4.2: helper geometry and the subsystem's own objects are
// never valid measurement targets.
type HitKind int

const (
	KindMesh HitKind = iota
	KindRing
	KindTube
	KindPlane
	KindCircle
	KindMeasurementSphere
	KindMeasurementLine
)

func (k HitKind) isHelper() bool {
	switch k {
	case KindRing, KindTube, KindPlane, KindCircle, KindMeasurementSphere, KindMeasurementLine:
		return true
	default:
		return false
	}
}

// Hit is one candidate raycast intersection, supplied by the host after
// it has already restricted the ray to the currently loaded model's scene
// graph (the subsystem only applies the helper/self-intersection filter).
type Hit struct {
	Handle   render.NodeHandle
	Position lin.V3
	Distance float64
	Kind     HitKind
}

// Point is one placed measurement point.
type Point struct {
	ID       uuid.UUID
	Position lin.V3
}

// Subsystem owns the measurement point FIFO plus every node it renders:
// the point-marker spheres, the connecting line, the distance label, and
// the two per-hand HMD ghost-sphere previews.
type Subsystem struct {
	renderer render.Renderer
	bus      *events.Bus

	points      []Point
	sphereNodes []render.NodeHandle
	lineNode    render.NodeHandle
	labelNode   render.NodeHandle

	owned map[render.NodeHandle]bool

	theme              string
	showLabelsDesktop  bool
	presenting         bool

	dragStart    [2]float64
	dragging     bool
	lastClickAt  time.Time

	lastTriggerAt [2]time.Time

	ghosts [2]ghostSphere
}

type ghostSphere struct {
	node       render.NodeHandle
	controller render.NodeHandle
	attached   bool
	retries    int
	lastRetry  time.Time
}

// New creates an empty measurement subsystem. showLabelsDesktop is the
// host-configured `showMeasurementLabels` feature flag (spec.md §4.2: "in
// pure desktop mode the label is hidden by default"). bus receives a
// "measurement-points-changed" (PointsChanged) event after every
// placement, eviction, or clear.
func New(r render.Renderer, theme string, showLabelsDesktop bool, bus *events.Bus) *Subsystem {
	return &Subsystem{
		renderer:          r,
		bus:               bus,
		owned:             map[render.NodeHandle]bool{},
		theme:             theme,
		showLabelsDesktop: showLabelsDesktop,
	}
}

// SetPresenting tells the subsystem whether the HMD is currently
// presenting, which affects label-visibility per spec.md §4.2.
func (s *Subsystem) SetPresenting(presenting bool) {
	s.presenting = presenting
	s.refreshLabelVisibility()
}

// Points returns the current FIFO, 0, 1 or 2 elements, oldest first.
func (s *Subsystem) Points() []Point { return append([]Point(nil), s.points...) }

// ---- Desktop input path ----

// PointerDown records the start of a drag/click gesture.
func (s *Subsystem) PointerDown(x, y float64) {
	s.dragStart = [2]float64{x, y}
	s.dragging = true
}

// PointerUp completes a click gesture at (x,y) observed at now. If the
// movement since PointerDown exceeds DragThresholdPixels it is treated as
// a drag and ignored. If it falls within DoubleClickThreshold of the
// previous click, onFocus is invoked instead of placing a point (spec.md
// §4.2: double-click focuses the camera, it never places a point).
// hits supplies the ray's candidate intersections in any order; the
// nearest non-helper hit (smallest Distance) is the one placed.
func (s *Subsystem) PointerUp(x, y float64, now time.Time, hits []Hit, onFocus func()) {
	wasDragging := s.dragging
	s.dragging = false
	if !wasDragging {
		return
	}
	dx, dy := x-s.dragStart[0], y-s.dragStart[1]
	if math.Hypot(dx, dy) > DragThresholdPixels {
		return // accidental drag, not a click.
	}
	if !s.lastClickAt.IsZero() && now.Sub(s.lastClickAt) <= DoubleClickThreshold {
		s.lastClickAt = time.Time{} // consume, so a third click isn't also "double".
		if onFocus != nil {
			onFocus()
		}
		return
	}
	s.lastClickAt = now

	if pos, ok := s.filterHits(hits); ok {
		s.place(pos)
	}
}

// filterHits rejects helper-geometry and self-owned hits, then returns
// the nearest remaining candidate.
func (s *Subsystem) filterHits(hits []Hit) (lin.V3, bool) {
	best := -1
	for i, h := range hits {
		if h.Kind.isHelper() || s.owned[h.Handle] {
			continue
		}
		if best == -1 || h.Distance < hits[best].Distance {
			best = i
		}
	}
	if best == -1 {
		return lin.V3{}, false
	}
	return hits[best].Position, true
}

// ---- HMD input path ----

// OnTriggerRelease places a point from hand's ghost-sphere position
// (approximated as the controller position offset along its forward
// vector by |GhostLocalZ|, mirroring the ghost's local (0,0,-0.05)
// parenting) unless within TriggerDebounce of the previous release on
// that hand. Returns whether a point was placed.
func (s *Subsystem) OnTriggerRelease(hand render.Hand, controllerPos, controllerForward lin.V3, now time.Time) bool {
	last := s.lastTriggerAt[hand]
	if !last.IsZero() && now.Sub(last) < TriggerDebounce {
		return false
	}
	s.lastTriggerAt[hand] = now

	ghostPos := lin.V3{
		X: controllerPos.X + controllerForward.X*(-GhostLocalZ),
		Y: controllerPos.Y + controllerForward.Y*(-GhostLocalZ),
		Z: controllerPos.Z + controllerForward.Z*(-GhostLocalZ),
	}
	s.place(ghostPos)
	return true
}

// ---- Ghost-sphere lifecycle ----

// AttachGhost (re)parents hand's ghost sphere to controller at the
// canonical local transform, per spec.md §4.2's attach-on-(re)acquire
// robustness requirement.
func (s *Subsystem) AttachGhost(hand render.Hand, controller render.NodeHandle) {
	g := &s.ghosts[hand]
	if g.node == nil {
		g.node = s.renderer.CreateNode()
		s.owned[g.node] = true
	}
	g.controller = controller
	s.renderer.SetParent(g.node, controller, lin.V3{Z: GhostLocalZ}, lin.Q{W: 1})
	g.attached = true
	g.retries = 0
}

// DetachGhost marks hand's controller as lost; per-tick retry takes over.
func (s *Subsystem) DetachGhost(hand render.Hand) {
	s.ghosts[hand].attached = false
}

// TickGhosts runs once per frame: retries lost attachments up to
// GhostMaxRetries at GhostRetryInterval, and detects+heals the
// local-position corruption signal on attached ghosts.
func (s *Subsystem) TickGhosts(now time.Time, controllerLookup func(render.Hand) (render.NodeHandle, bool)) {
	for hand := range s.ghosts {
		g := &s.ghosts[hand]
		if g.node == nil {
			continue
		}
		if !g.attached {
			if g.retries >= GhostMaxRetries {
				continue // gave up; caller may log a warning on the edge.
			}
			if !g.lastRetry.IsZero() && now.Sub(g.lastRetry) < GhostRetryInterval {
				continue
			}
			g.lastRetry = now
			g.retries++
			if ctrl, ok := controllerLookup(render.Hand(hand)); ok {
				s.AttachGhost(render.Hand(hand), ctrl)
			}
			continue
		}
		pos := s.renderer.LocalPosition(g.node)
		if pos.Len() > GhostCorruptionRadius {
			s.renderer.SetParent(g.node, g.controller, lin.V3{Z: GhostLocalZ}, lin.Q{W: 1})
		}
	}
}

// ---- Point FIFO and visuals ----

func (s *Subsystem) place(pos lin.V3) {
	if len(s.points) >= 2 {
		s.evictOldest()
	}
	p := Point{ID: uuid.New(), Position: pos}
	s.points = append(s.points, p)

	sphere := s.renderer.CreateNode()
	s.owned[sphere] = true
	s.renderer.SetTransform(sphere, pos, lin.Q{W: 1})
	s.sphereNodes = append(s.sphereNodes, sphere)

	s.rebuildVisuals()
	s.emitPointsChanged()
}

func (s *Subsystem) evictOldest() {
	s.renderer.Dispose(s.sphereNodes[0])
	delete(s.owned, s.sphereNodes[0])
	s.points = s.points[1:]
	s.sphereNodes = s.sphereNodes[1:]
}

// Clear atomically removes every placed point, sphere, the line and the
// label, per spec.md §4.2's atomicity invariant. Ghost spheres are left
// attached — they are previews, not placed points.
func (s *Subsystem) Clear() {
	for _, n := range s.sphereNodes {
		s.renderer.Dispose(n)
		delete(s.owned, n)
	}
	s.points = nil
	s.sphereNodes = nil
	s.disposeLine()
	s.disposeLabel()
	s.emitPointsChanged()
}

// emitPointsChanged publishes the FIFO's current contents. bus is nil when
// the subsystem is constructed without an event bus, matching the
// nil-safe-optional-collaborator pattern used elsewhere.
func (s *Subsystem) emitPointsChanged() {
	if s.bus != nil {
		s.bus.Emit("measurement-points-changed", PointsChanged{Points: s.Points()})
	}
}

// DisposeAll clears every placed point plus both ghost spheres, for use by
// the orchestrator's full teardown path (Clear alone deliberately leaves
// ghost previews attached, since they track controllers, not placements).
func (s *Subsystem) DisposeAll() {
	s.Clear()
	for hand := range s.ghosts {
		g := &s.ghosts[hand]
		if g.node != nil {
			s.renderer.Dispose(g.node)
			delete(s.owned, g.node)
			*g = ghostSphere{}
		}
	}
}

func (s *Subsystem) rebuildVisuals() {
	if len(s.points) != 2 {
		s.disposeLine()
		s.disposeLabel()
		return
	}
	a, b := s.points[0].Position, s.points[1].Position
	if s.lineNode == nil {
		s.lineNode = s.renderer.CreateLine()
		s.owned[s.lineNode] = true
	}
	s.renderer.SetLineEndpoints(s.lineNode, a, b)

	d := Distance(a, b)
	if s.labelNode == nil {
		s.labelNode = s.renderer.CreateNode()
		s.owned[s.labelNode] = true
	}
	mid := lin.V3{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2, Z: (a.Z + b.Z) / 2}
	mid.Y += LabelYOffset(d)
	s.renderer.SetTransform(s.labelNode, mid, lin.Q{W: 1})
	s.refreshLabelVisibility()
}

func (s *Subsystem) refreshLabelVisibility() {
	if s.labelNode == nil {
		return
	}
	visible := len(s.points) == 2 && (s.presenting || s.showLabelsDesktop)
	s.renderer.SetVisible(s.labelNode, visible)
}

func (s *Subsystem) disposeLine() {
	if s.lineNode == nil {
		return
	}
	s.renderer.Dispose(s.lineNode)
	delete(s.owned, s.lineNode)
	s.lineNode = nil
}

func (s *Subsystem) disposeLabel() {
	if s.labelNode == nil {
		return
	}
	s.renderer.Dispose(s.labelNode)
	delete(s.owned, s.labelNode)
	s.labelNode = nil
}

// Distance returns the straight-line distance between two points.
func Distance(a, b lin.V3) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// LabelFontSize is the piecewise font-size curve from spec.md §4.2.
func LabelFontSize(d float64) float64 {
	switch {
	case d <= 2:
		return 0.4 + 0.15*d
	case d <= 4:
		return 0.7 + 0.1*(d-2)
	default:
		return 0.9 + 0.5*math.Min((d-4)/16, 1)
	}
}

// LabelYOffset is the label sprite's world-Y raise above the segment
// midpoint, from spec.md §4.2.
func LabelYOffset(d float64) float64 {
	return math.Max(0.05, math.Min(0.2, 0.03*d))
}
