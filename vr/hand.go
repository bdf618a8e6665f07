package vr

import (
	"github.com/fathomline/abyssviewer/render"
	"github.com/gazed/vu/math/lin"
)

// sampleHandFallback implements spec.md §4.1's hand-tracking fallback:
// when no gamepad is present for hand, detect pinch/fist from joint
// positions and translate their rising/falling edges into select-start/
// select-end and squeeze-start/squeeze-end events on the bus. The fist
// state also stands in for the grip button (see grip); hand tracking
// supplies no stick input and does not drive mode-toggle.
func (c *Coordinator) sampleHandFallback(hand render.Hand, joints render.HandJoints) {
	if !joints.Present {
		c.hand[hand] = handState{}
		return
	}
	pinching := dist(joints.ThumbTip, joints.IndexTip) < HandPinchThreshold
	gripping := dist(joints.MiddleTip, joints.Wrist) < HandFistThreshold &&
		dist(joints.RingTip, joints.Wrist) < HandFistThreshold &&
		dist(joints.PinkyTip, joints.Wrist) < HandFistThreshold &&
		dist(joints.IndexTip, joints.Wrist) < HandFistThreshold

	wrist := lin.V3{X: joints.Wrist.X, Y: joints.Wrist.Y, Z: joints.Wrist.Z}
	dir := handDirection(joints)

	prev := c.hand[hand]
	if pinching && !prev.pinching {
		c.bus.Emit("select-start", HandEvent{Hand: hand, Position: wrist, Forward: dir})
	} else if !pinching && prev.pinching {
		c.bus.Emit("select-end", HandEvent{Hand: hand, Position: wrist, Forward: dir})
	}
	if gripping && !prev.gripping {
		c.bus.Emit("squeeze-start", HandEvent{Hand: hand, Position: wrist, Forward: dir})
	} else if !gripping && prev.gripping {
		c.bus.Emit("squeeze-end", HandEvent{Hand: hand, Position: wrist, Forward: dir})
	}
	c.hand[hand] = handState{pinching: pinching, gripping: gripping}
}

// HandEvent is the payload for select-start/end and squeeze-start/end:
// which hand, its wrist position, and its handDirection, so a listener can
// drive the same placement/aim logic the controller path drives from
// gamepad pose without re-reading raw joints.
type HandEvent struct {
	Hand     render.Hand
	Position lin.V3
	Forward  lin.V3
}

// handDirection returns the wrist->index-tip direction used in place of
// a controller's forward vector when driven by hand tracking.
func handDirection(joints render.HandJoints) lin.V3 {
	d := lin.V3{
		X: joints.IndexTip.X - joints.Wrist.X,
		Y: joints.IndexTip.Y - joints.Wrist.Y,
		Z: joints.IndexTip.Z - joints.Wrist.Z,
	}
	if l := d.Len(); l > 0 {
		return lin.V3{X: d.X / l, Y: d.Y / l, Z: d.Z / l}
	}
	return lin.V3{Z: -1}
}

func dist(a, b render.Vec3) float64 {
	dx, dy, dz := a.X-b.X, a.Y-b.Y, a.Z-b.Z
	v := lin.V3{X: dx, Y: dy, Z: dz}
	return v.Len()
}
