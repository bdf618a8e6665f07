package vr

import (
	"math"

	"github.com/fathomline/abyssviewer/render"
	"github.com/gazed/vu/math/lin"
)

// comfortSpeedMultiplier returns settings.ComfortSpeed when reduced
// motion is enabled, else 1.0, per spec.md §4.1's comfortSpeed rule.
func (c *Coordinator) comfortSpeedMultiplier() float64 {
	if c.comfort.ReducedMotion {
		return c.comfort.ComfortSpeed
	}
	return 1.0
}

// updateLeftController runs spec.md §4.1 step 2: smooth ground movement
// or teleport-gesture processing, depending on the locomotion mode.
func (c *Coordinator) updateLeftController(input render.InputSample, dt float64) {
	gp := input.Gamepad[render.Left]
	x, y := gp.StickX, gp.StickY
	moving := false

	switch c.comfort.LocomotionMode {
	case LocomotionSmooth:
		speedMultiplier := 1.0
		if c.grip(render.Left, input) {
			speedMultiplier = 3.0
		}
		comfortSpeed := c.comfortSpeedMultiplier()
		forward, right := c.groundBasis()

		if math.Abs(x) > StickDeadzone {
			c.translateRig(right, x*MoveSpeed*speedMultiplier*comfortSpeed*c.loco.CurrentSpeed*dt)
			moving = true
		}
		if math.Abs(y) > StickDeadzone {
			// Stick-forward (negative y in the WebXR convention) should move
			// the rig forward.
			c.translateRig(forward, -y*MoveSpeed*speedMultiplier*comfortSpeed*c.loco.CurrentSpeed*dt)
			moving = true
		}
	case LocomotionTeleport:
		mag := math.Hypot(x, y)
		c.updateTeleportGesture(render.Left, mag, input, dt)
		moving = moving || c.teleport != nil
	}

	c.setMoving(moving)
}

// groundBasis returns the rig's forward and right vectors projected to
// the horizontal plane, derived purely from rig yaw (no pitch/roll).
func (c *Coordinator) groundBasis() (forward, right lin.V3) {
	s, cYaw := math.Sin(c.rig.Yaw), math.Cos(c.rig.Yaw)
	forward = lin.V3{X: s, Y: 0, Z: cYaw}
	right = lin.V3{X: -cYaw, Y: 0, Z: s}
	return forward, right
}

func (c *Coordinator) translateRig(axis lin.V3, amount float64) {
	c.rig.Position.X += axis.X * amount
	c.rig.Position.Y += axis.Y * amount
	c.rig.Position.Z += axis.Z * amount
}

// updateRightController runs spec.md §4.1 step 3: turning (snap or
// smooth) and vertical flight, only while no teleport arc is active.
func (c *Coordinator) updateRightController(input render.InputSample, dt float64) {
	gp := input.Gamepad[render.Right]
	x, y := gp.StickX, gp.StickY
	moving := false

	c.snapCooldownLeft -= dt * 1000 // milliseconds.
	switch c.comfort.TurningMode {
	case TurningSnap:
		if math.Abs(x) > SnapThreshold && c.snapCooldownLeft <= 0 {
			sign := 1.0
			if x < 0 {
				sign = -1.0
			}
			c.rig.Yaw = lin.Nang(c.rig.Yaw + lin.Rad(c.comfort.SnapTurnAngle)*sign)
			c.snapCooldownLeft = SnapCooldownMS
		}
	case TurningSmooth:
		if math.Abs(x) <= TurnDeadzone {
			x = 0
		}
		c.loco.LastTurnInput = lin.Lerp(c.loco.LastTurnInput, x, TurnSmoothing)
		turnSpeed := TurnSpeed
		if c.comfort.ReducedMotion {
			turnSpeed *= 0.5
		}
		clampedDt := math.Min(dt, 1.0/30.0)
		c.rig.Yaw = lin.Nang(c.rig.Yaw + lin.Rad(c.loco.LastTurnInput*turnSpeed*clampedDt))
	}

	if math.Abs(y) > StickDeadzone {
		verticalMultiplier := 1.0
		if c.grip(render.Right, input) {
			verticalMultiplier = 3.0
		}
		comfortSpeed := c.comfortSpeedMultiplier()
		c.rig.Position.Y += -y * FlySpeed * verticalMultiplier * comfortSpeed * c.loco.CurrentSpeed * dt
		moving = true
	}
	c.setMoving(moving)
}

// setMoving ORs a per-controller moving signal into targetSpeed for this
// tick; both controllers may contribute within the same tick.
func (c *Coordinator) setMoving(moving bool) {
	if moving {
		c.loco.TargetSpeed = 1.0
	}
}

// rampSpeed implements spec.md §4.1 step 5: ramp currentSpeed/currentBoost
// toward their targets and emit movement-start/update/stop on threshold
// crossings. Called once per tick after both controllers update.
func (c *Coordinator) rampSpeed(dt float64) {
	before := c.loco.CurrentSpeed
	c.loco.CurrentSpeed = rampToward(c.loco.CurrentSpeed, c.loco.TargetSpeed, SpeedRampRate, dt)
	c.loco.CurrentBoost = rampToward(c.loco.CurrentBoost, c.loco.TargetBoost, BoostRampRate, dt)

	wasAbove := before >= MovementThreshold
	isAbove := c.loco.CurrentSpeed >= MovementThreshold
	switch {
	case isAbove && !wasAbove:
		c.loco.IsMoving = true
		c.bus.Emit("movement-start", nil)
		if c.audio != nil {
			c.audio.Start()
		}
	case !isAbove && wasAbove:
		c.loco.IsMoving = false
		c.bus.Emit("movement-stop", nil)
		if c.audio != nil {
			c.audio.Stop()
		}
	}
	if isAbove {
		c.bus.Emit("movement-update", MovementUpdate{Speed: c.loco.CurrentSpeed, Boost: c.loco.CurrentBoost})
		if c.audio != nil {
			c.audio.SetLevel(c.loco.CurrentSpeed)
		}
	}
	// Reset the per-tick target; each controller's update re-raises it if
	// input is still present next tick.
	c.loco.TargetSpeed = 0
}

// MovementUpdate is the payload delivered on "movement-update", once per
// tick while currentSpeed is above MovementThreshold.
type MovementUpdate struct {
	Speed float64
	Boost float64
}

func rampToward(current, target, rate, dt float64) float64 {
	if current < target {
		return math.Min(current+rate*dt, target)
	}
	if current > target {
		return math.Max(current-rate*dt, target)
	}
	return current
}
