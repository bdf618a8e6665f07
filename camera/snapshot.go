package camera

import "github.com/gazed/vu/math/lin"

// Snapshot is PreHmdCameraState from spec.md §3: every orbit-camera
// parameter that must survive an HMD session untouched. It is populated
// once on session-start and consumed exactly once on session-end, with a
// deferred restore to defeat a race with the host renderer's own
// session-end handling (SPEC_FULL.md §9 design notes).
type Snapshot struct {
	Target              lin.V3
	Position            lin.V3
	Distance            float64
	Zoom                float64
	MinDistance         float64
	MaxDistance         float64
	DampingEnabled      bool
	DampingFactor       float64
	ZoomEnabled         bool
	PanEnabled          bool
	RotateEnabled       bool
	AutoRotate          bool
}

// Capture snapshots every field Restore will need.
func (m *Manager) Capture() Snapshot {
	dampingEnabled, dampingFactor := m.Damping()
	minD, maxD := m.MinMaxDistance()
	zoomEn, panEn, rotEn, autoRot := m.InteractionFlags()
	return Snapshot{
		Target:         m.Target(),
		Position:       m.Position(),
		Distance:       m.Distance(),
		Zoom:           m.Zoom(),
		MinDistance:    minD,
		MaxDistance:    maxD,
		DampingEnabled: dampingEnabled,
		DampingFactor:  dampingFactor,
		ZoomEnabled:    zoomEn,
		PanEnabled:     panEn,
		RotateEnabled:  rotEn,
		AutoRotate:     autoRot,
	}
}

// Restore applies a previously captured Snapshot back onto the manager.
// Target and distance are assigned directly rather than through Focus, so
// the restore is immediate, not animated.
func (m *Manager) Restore(s Snapshot) {
	m.cancelFocus()
	m.SetMinMaxDistance(s.MinDistance, s.MaxDistance)
	m.target = s.Target
	m.distance = s.Distance
	m.zoom = s.Zoom
	m.SetDamping(s.DampingEnabled, s.DampingFactor)
	m.SetInteractionFlags(s.ZoomEnabled, s.PanEnabled, s.RotateEnabled, s.AutoRotate)
}
