package vr

import (
	"math"

	"github.com/fathomline/abyssviewer/render"
	"github.com/gazed/vu/math/lin"
)

const (
	gravity          = 9.8
	teleportMinRange = 3.0
	teleportMaxRange = 30.0
	arcSampleCount   = 40
)

// TeleportDistance maps a normalized stick magnitude (already divided by
// AimThreshold and clamped to 1) to a target horizontal distance, per
// spec.md §4.1's teleport gesture protocol: a sub-linear curve for finer
// control at short range.
func TeleportDistance(normalized float64) float64 {
	return 3 + 27*math.Pow(normalized, 0.7)
}

// updateTeleportGesture runs spec.md §4.1's teleport gesture protocol for
// one tick: enter aim on crossing AimThreshold, recompute the arc while
// aiming, and release (validate + translate the rig) on falling through
// ReleaseThreshold.
func (c *Coordinator) updateTeleportGesture(hand render.Hand, mag float64, input render.InputSample, dt float64) {
	pose := input.Pose[hand]
	forward := lin.V3{X: pose.Forward.X, Y: pose.Forward.Y, Z: pose.Forward.Z}
	origin := lin.V3{X: pose.Position.X, Y: pose.Position.Y, Z: pose.Position.Z}

	if c.teleport == nil {
		if mag < AimThreshold {
			return
		}
		c.teleport = &TeleportArc{
			Hand:         hand,
			MaxMagnitude: mag,
			FloorOffset:  DefaultFloorOffset,
		}
	}

	arc := c.teleport
	if mag > arc.MaxMagnitude {
		arc.MaxMagnitude = mag
	}

	if mag <= ReleaseThreshold {
		c.releaseTeleport()
		return
	}

	normalized := math.Min(arc.MaxMagnitude/AimThreshold, 1)
	arc.Distance = TeleportDistance(normalized)
	arc.AimDirection = forward

	floorY := c.rig.Position.Y + arc.FloorOffset
	arc.Samples, arc.HasIntersect, arc.Intersection = buildArc(origin, forward, arc.Distance, floorY)
}

// buildArc constructs the teleport parabola from origin along forward
// toward targetDistance, finds its intersection with the virtual floor at
// floorY, and returns the sampled points plus the intersection if found.
func buildArc(origin, forward lin.V3, targetDistance, floorY float64) (samples []lin.V3, hasIntersect bool, intersection lin.V3) {
	v := math.Sqrt(targetDistance * gravity / 2)
	switch {
	case forward.Y > 0.3:
		v *= 1 - 0.5*forward.Y
	case forward.Y < -0.5:
		v *= 1 + 0.3*math.Abs(forward.Y)
	}

	vy := forward.Y * v
	if vy < 0.3*v {
		vy = 0.3 * v
	}
	vx, vz := forward.X*v, forward.Z*v

	duration := math.Max(2.2*(vy/gravity), 1.5)
	samples = make([]lin.V3, arcSampleCount)
	apexIndex := -1
	for i := 0; i < arcSampleCount; i++ {
		t := duration * float64(i) / float64(arcSampleCount-1)
		p := lin.V3{
			X: origin.X + vx*t,
			Y: origin.Y + vy*t - 0.5*gravity*t*t,
			Z: origin.Z + vz*t,
		}
		samples[i] = p
		if apexIndex == -1 && i > 0 && samples[i].Y < samples[i-1].Y {
			apexIndex = i - 1
		}
	}
	if apexIndex == -1 {
		apexIndex = arcSampleCount - 1
	}

	apexTime := duration * float64(apexIndex) / float64(arcSampleCount-1)
	for i := apexIndex + 1; i < arcSampleCount; i++ {
		t := duration * float64(i) / float64(arcSampleCount-1)
		if t-apexTime < 0.1 {
			continue
		}
		if samples[i].Y <= floorY {
			prev := samples[i-1]
			cur := samples[i]
			frac := (floorY - prev.Y) / (cur.Y - prev.Y)
			p := lin.V3{
				X: lin.Lerp(prev.X, cur.X, frac),
				Y: floorY,
				Z: lin.Lerp(prev.Z, cur.Z, frac),
			}
			if horizontalDistance(origin, p) <= teleportMaxRange {
				return samples[:i+1], true, p
			}
			break
		}
	}

	// No valid intersection found: force an endpoint at the virtual floor
	// at the lowest horizontal point, but only if it's in the latter half
	// of the sampled arc, per spec.md §4.1.
	lowestIdx := 0
	for i, s := range samples {
		if s.Y < samples[lowestIdx].Y {
			lowestIdx = i
		}
	}
	if lowestIdx >= arcSampleCount/2 {
		p := samples[lowestIdx]
		p.Y = floorY
		return samples[:lowestIdx+1], true, p
	}
	return samples, false, lin.V3{}
}

func horizontalDistance(a, b lin.V3) float64 {
	dx, dz := a.X-b.X, a.Z-b.Z
	return math.Hypot(dx, dz)
}

// releaseTeleport validates the current arc's intersection and, if it
// falls within [3,30] m, translates the rig's XZ there (preserving Y).
// Otherwise it reports failure via onTeleportFailure and the bus. Either
// way the aim state is cleared.
func (c *Coordinator) releaseTeleport() {
	arc := c.teleport
	c.teleport = nil
	if arc == nil {
		return
	}
	if !arc.HasIntersect {
		c.reportTeleportFailure()
		return
	}
	dist := horizontalDistance(lin.V3{X: c.rig.Position.X, Z: c.rig.Position.Z}, lin.V3{X: arc.Intersection.X, Z: arc.Intersection.Z})
	if dist < teleportMinRange || dist > teleportMaxRange {
		c.reportTeleportFailure()
		return
	}
	c.rig.Position.X = arc.Intersection.X
	c.rig.Position.Z = arc.Intersection.Z
	// Y is intentionally left untouched: teleport never changes user height.
	c.bus.Emit("teleport", teleportEvent{Position: c.rig.Position})
}

func (c *Coordinator) reportTeleportFailure() {
	if c.onTeleportFailure != nil {
		c.onTeleportFailure()
	}
	if c.audio != nil {
		c.audio.PlayFailureTone()
	}
	c.bus.Emit("teleport-failed", nil)
}

type teleportEvent struct {
	Position lin.V3
}

// updateTeleportFloor implements spec.md §4.1 step 4: while the teleport
// arc is active, the right stick's y-axis raises/lowers the virtual
// teleport floor instead of turning or flying.
func (c *Coordinator) updateTeleportFloor(input render.InputSample, dt float64) {
	if c.teleport == nil {
		return
	}
	y := input.Gamepad[render.Right].StickY
	if math.Abs(y) <= StickDeadzone {
		return
	}
	c.teleport.FloorOffset = lin.Clamp(c.teleport.FloorOffset-y*FloorRaiseRate*dt, MinFloorOffset, MaxFloorOffset)
}

// ResetTeleportState clears any in-flight teleport aim and hides its
// visuals immediately, per spec.md §4.1's mode-change-mid-aim rule.
func (c *Coordinator) ResetTeleportState() {
	c.teleport = nil
}

// TeleportArcState exposes the in-flight arc for a host renderer to draw,
// or nil when no aim is active.
func (c *Coordinator) TeleportArcState() *TeleportArc { return c.teleport }
