// Package camera owns the perspective projection and the desktop orbit
// controls, including the smooth focus animation described in spec.md's
// component C4. It never touches HMD state directly — the VR coordinator
// and the viewer orchestrator disable/re-enable it and snapshot/restore
// its parameters across HMD sessions.
package camera

import (
	"math"

	"github.com/gazed/vu/math/lin"
)

// Desktop holds the orbit-control tuning knobs from spec.md §3.
type Desktop struct {
	Damping     float64
	MinDistance float64
	MaxDistance float64
}

// Manager is the desktop orbit camera: a target point, a yaw/pitch/
// distance orbit around it, and a perspective projection. Position is
// derived from Target + yaw/pitch/distance rather than stored
// independently, so SetTarget/Orbit/Dolly always keep it consistent.
type Manager struct {
	fov, near, far float64

	target             lin.V3
	yaw, pitch         float64
	distance           float64
	zoom               float64
	desktop            Desktop
	zoomEnabled        bool
	panEnabled         bool
	rotateEnabled      bool
	autoRotate         bool
	dampingEnabled     bool
	enabled            bool // desktop interaction master switch, off while presenting in HMD.

	focus *focusAnimation
}

// New creates a Manager at a reasonable default orbit, with interaction
// enabled (the state it is in before any HMD session starts).
func New(fov, near, far float64, desktop Desktop) *Manager {
	return &Manager{
		fov: fov, near: near, far: far,
		target:         lin.V3{},
		yaw:            0,
		pitch:          0.3,
		distance:       5,
		zoom:           1,
		desktop:        desktop,
		zoomEnabled:    true,
		panEnabled:     true,
		rotateEnabled:  true,
		dampingEnabled: true,
		enabled:        true,
	}
}

// Position returns the camera's world position, derived from the orbit
// parameters.
func (m *Manager) Position() lin.V3 {
	cp := math.Cos(m.pitch)
	return lin.V3{
		X: m.target.X + m.distance*cp*math.Sin(m.yaw),
		Y: m.target.Y + m.distance*math.Sin(m.pitch),
		Z: m.target.Z + m.distance*cp*math.Cos(m.yaw),
	}
}

// Target returns the orbit target (look-at point).
func (m *Manager) Target() lin.V3 { return m.target }

// SetTarget sets the orbit target directly (used by camera-state restore
// and by model-load reframing), canceling any in-flight focus animation.
func (m *Manager) SetTarget(t lin.V3) {
	m.target = t
	m.cancelFocus()
}

// SetDistance sets the orbit distance, clamped to [MinDistance,MaxDistance].
func (m *Manager) SetDistance(d float64) {
	m.distance = lin.Clamp(d, m.desktop.MinDistance, m.desktop.MaxDistance)
}

// Distance returns the current orbit distance.
func (m *Manager) Distance() float64 { return m.distance }

// Orbit applies a user-input yaw/pitch delta in radians, canceling any
// in-flight focus animation (spec.md C4: "user-input cancelable").
func (m *Manager) Orbit(dyaw, dpitch float64) {
	if !m.enabled || !m.rotateEnabled {
		return
	}
	m.yaw = lin.Nang(m.yaw + dyaw)
	m.pitch = lin.Clamp(m.pitch+dpitch, -math.Pi/2+0.01, math.Pi/2-0.01)
	m.cancelFocus()
}

// Dolly multiplies the orbit distance by factor (e.g. from scroll input).
func (m *Manager) Dolly(factor float64) {
	if !m.enabled || !m.zoomEnabled {
		return
	}
	m.SetDistance(m.distance * factor)
	m.cancelFocus()
}

// Pan translates the orbit target within the camera's local XY plane.
func (m *Manager) Pan(dx, dy float64) {
	if !m.enabled || !m.panEnabled {
		return
	}
	right := lin.V3{X: math.Cos(m.yaw), Y: 0, Z: -math.Sin(m.yaw)}
	up := lin.V3{X: 0, Y: 1, Z: 0}
	m.target.X += right.X*dx + up.X*dy
	m.target.Y += right.Y*dx + up.Y*dy
	m.target.Z += right.Z*dx + up.Z*dy
	m.cancelFocus()
}

// SetZoom sets the orthographic-style zoom factor used for UI framing;
// kept distinct from Dolly/distance so PreHMDCameraState can restore it
// independently, matching spec.md §3's PreHmdCameraState fields.
func (m *Manager) SetZoom(z float64) { m.zoom = z }
func (m *Manager) Zoom() float64     { return m.zoom }

// SetEnabled toggles desktop orbit interaction; the VR coordinator
// disables this on session-start and re-enables it on session-end.
func (m *Manager) SetEnabled(enabled bool) { m.enabled = enabled }
func (m *Manager) Enabled() bool           { return m.enabled }

// SetDamping sets the damping factor and whether it is applied.
func (m *Manager) SetDamping(enabled bool, factor float64) {
	m.dampingEnabled = enabled
	m.desktop.Damping = factor
}
func (m *Manager) Damping() (enabled bool, factor float64) {
	return m.dampingEnabled, m.desktop.Damping
}

// SetMinMaxDistance sets the orbit distance clamp range.
func (m *Manager) SetMinMaxDistance(min, max float64) {
	m.desktop.MinDistance, m.desktop.MaxDistance = min, max
	m.distance = lin.Clamp(m.distance, min, max)
}
func (m *Manager) MinMaxDistance() (min, max float64) {
	return m.desktop.MinDistance, m.desktop.MaxDistance
}

// SetInteractionFlags sets the zoom/pan/rotate/autoRotate enablement.
func (m *Manager) SetInteractionFlags(zoom, pan, rotate, autoRotate bool) {
	m.zoomEnabled, m.panEnabled, m.rotateEnabled, m.autoRotate = zoom, pan, rotate, autoRotate
}
func (m *Manager) InteractionFlags() (zoom, pan, rotate, autoRotate bool) {
	return m.zoomEnabled, m.panEnabled, m.rotateEnabled, m.autoRotate
}

// Perspective returns the projection parameters, for a host renderer to
// apply via its own projection matrix construction.
func (m *Manager) Perspective() (fov, near, far float64) { return m.fov, m.near, m.far }

// SetPerspective updates the projection parameters.
func (m *Manager) SetPerspective(fov, near, far float64) { m.fov, m.near, m.far = fov, near, far }
