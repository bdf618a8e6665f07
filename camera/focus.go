package camera

import "github.com/gazed/vu/math/lin"

// FocusDurationSeconds is the smooth-focus animation length from spec.md
// §2 (C4): "smooth focus animation (1000 ms ease-out cubic, user-input
// cancelable)".
const FocusDurationSeconds = 1.0

// focusAnimation interpolates the orbit target and distance toward a
// destination over FocusDurationSeconds using an ease-out cubic curve.
// Any user-input method on Manager (Orbit/Dolly/Pan/SetTarget) cancels it
// mid-flight by clearing Manager.focus.
type focusAnimation struct {
	fromTarget, toTarget     lin.V3
	fromDistance, toDistance float64
	elapsed                  float64
}

// Focus starts a camera focus animation toward target at the given orbit
// distance, canceling any focus already in flight. Matches the "double
// click focuses the camera" behavior from spec.md §6/§8.
func (m *Manager) Focus(target lin.V3, distance float64) {
	m.focus = &focusAnimation{
		fromTarget:   m.target,
		toTarget:     target,
		fromDistance: m.distance,
		toDistance:   lin.Clamp(distance, m.desktop.MinDistance, m.desktop.MaxDistance),
	}
}

// Focusing reports whether a focus animation is currently in flight.
func (m *Manager) Focusing() bool { return m.focus != nil }

// cancelFocus drops any in-flight focus animation without finishing it,
// used both by user-input methods and by CancelFocus for HMD-session-end
// cancellation (spec.md §5: "HMD-session end cancels any ongoing camera
// focus animation by clearing its frame-request identifier").
func (m *Manager) cancelFocus() { m.focus = nil }

// CancelFocus is the public entry point the viewer orchestrator calls on
// HMD session transitions.
func (m *Manager) CancelFocus() { m.cancelFocus() }

// Update advances any in-flight focus animation by dt seconds; it applies
// no orbit damping (the damping settings are only stored). It must be called once per tick, after C8.update, per
// spec.md §5's ordering guarantee (C8.update -> C4.update -> render).
func (m *Manager) Update(dt float64) {
	if m.focus == nil {
		return
	}
	m.focus.elapsed += dt
	t := lin.Clamp(m.focus.elapsed/FocusDurationSeconds, 0, 1)
	eased := easeOutCubic(t)
	m.target = lin.V3{
		X: lin.Lerp(m.focus.fromTarget.X, m.focus.toTarget.X, eased),
		Y: lin.Lerp(m.focus.fromTarget.Y, m.focus.toTarget.Y, eased),
		Z: lin.Lerp(m.focus.fromTarget.Z, m.focus.toTarget.Z, eased),
	}
	m.distance = lin.Lerp(m.focus.fromDistance, m.focus.toDistance, eased)
	if t >= 1 {
		m.focus = nil
	}
}

// easeOutCubic is the standard ease-out-cubic easing curve: 1-(1-t)^3.
func easeOutCubic(t float64) float64 {
	inv := 1 - t
	return 1 - inv*inv*inv
}
