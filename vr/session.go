package vr

import (
	"context"
	"math"

	"github.com/fathomline/abyssviewer/camera"
	"github.com/fathomline/abyssviewer/events"
	"github.com/fathomline/abyssviewer/render"
	"github.com/gazed/vu/math/lin"
)

// RigPose is the HMD rig's world transform: XZ position plus yaw, and Y
// height (vertical flight changes Y; teleport moves only X and Z).
type RigPose struct {
	Position lin.V3
	Yaw      float64 // radians.
}

// Coordinator owns the HMD session lifecycle and drives the locomotion
// state machine described across this package's sibling files. It shares
// a non-owning reference to the desktop camera solely for
// PreHmdCameraState capture/restore, per spec.md §3's ownership note.
type Coordinator struct {
	xr  render.XRSurface
	bus *events.Bus
	cam *camera.Manager

	state SessionState
	rig   RigPose

	comfort ComfortSettings
	loco    LocomotionState

	buttons  buttonEdges
	teleport *TeleportArc

	tickCount        int
	sinceRevalidate  float64
	snapCooldownLeft float64

	hand [2]handState

	preSessionSnapshot camera.Snapshot
	deferred           []deferredCall

	audio AudioSink

	onModeToggle      func()
	onTeleportFailure func()
}

type deferredCall struct {
	remaining float64
	fn        func()
}

// New creates a Coordinator in LocomotionMode/TurningMode PresetFree,
// idle, with the rig at the origin and no teleport aim in progress.
func New(xr render.XRSurface, bus *events.Bus, cam *camera.Manager) *Coordinator {
	c := &Coordinator{
		xr:      xr,
		bus:     bus,
		cam:     cam,
		comfort: PresetFree,
	}
	xr.OnSessionEnd(func(render.SessionEvent) { c.handleSessionEnd() })
	return c
}

// State returns the current session lifecycle state.
func (c *Coordinator) State() SessionState { return c.state }

// RequestSession asks the XR surface to start presenting. On success the
// surface is expected to drive the actual idle->presenting transition via
// its own session-start signal; since render.XRSurface models that as a
// synchronous RequestSession call, the transition happens here on success.
func (c *Coordinator) RequestSession(ctx context.Context) error {
	c.state = Pending
	if err := c.xr.RequestSession(ctx); err != nil {
		c.state = Idle
		return err
	}
	c.enterPresenting()
	return nil
}

// enterPresenting runs the idle->presenting side effects in the exact
// order spec.md §4.1 mandates.
func (c *Coordinator) enterPresenting() {
	c.preSessionSnapshot = c.cam.Capture()
	c.cam.SetEnabled(false)
	c.state = Presenting
	// Audio-context initialization and model-specific HMD pose application
	// are host/viewer-level concerns invoked by the orchestrator, which
	// observes this transition via the "hmd-session-start" event below.
	c.tickCount = 0
	c.sinceRevalidate = 0
	c.bus.Emit("hmd-session-start", nil)
}

// EndSession asks the XR surface to end the session explicitly (user
// pressed an in-scene exit button, for instance).
func (c *Coordinator) EndSession(ctx context.Context) error {
	return c.xr.EndSession(ctx)
}

// handleSessionEnd runs the presenting->idle side effects in the exact
// order spec.md §4.1 mandates; of the deferred steps, only the 100 ms
// camera restore is scheduled here (the desktop initial-pose applications
// are left to the orchestrator, see below). It is also how loss of the
// HMD session without a terminating event (spec.md §4.1 "Failure
// semantics") is observed, since the surface invokes this same callback.
func (c *Coordinator) handleSessionEnd() {
	if c.state != Presenting {
		return
	}
	c.state = Exiting
	c.cam.CancelFocus()
	c.rig = RigPose{}
	c.teleport = nil

	c.deferred = append(c.deferred, deferredCall{remaining: 0.1, fn: func() {
		c.cam.Restore(c.preSessionSnapshot)
	}})
	c.cam.SetEnabled(true)
	c.bus.Emit("hmd-session-end", nil)
	// The two applications of the model's desktop initial pose (immediate
	// and 50ms later) are the viewer orchestrator's responsibility (it owns
	// model state); it subscribes to hmd-session-end and runs them itself. This coordinator only guarantees the camera
	// and rig are reset before that event fires.
	c.state = Idle
}

// Tick advances deferred callbacks and, while presenting, runs the full
// per-frame update described in controllers.go/locomotion.go/teleport.go.
func (c *Coordinator) Tick(dt float64, input render.InputSample) {
	c.runDeferred(dt)
	if c.state != Presenting {
		return
	}
	c.sampleControllers(input)
	c.updateLeftController(input, dt)
	if c.teleport == nil {
		c.updateRightController(input, dt)
	} else {
		c.updateTeleportFloor(input, dt)
	}
	c.rampSpeed(dt)

	c.tickCount++
	if c.tickCount%DriftCorrectionEveryTicks == 0 {
		c.driftCorrect()
	}
	c.sinceRevalidate += dt
	if c.sinceRevalidate >= TeleportRevalidateInterval {
		c.sinceRevalidate = 0
		c.revalidateTeleportVisuals()
	}
	c.xr.SetRigTransform(render.Vec3{X: c.rig.Position.X, Y: c.rig.Position.Y, Z: c.rig.Position.Z}, c.rig.Yaw)
}

func (c *Coordinator) runDeferred(dt float64) {
	var remaining []deferredCall
	for _, d := range c.deferred {
		d.remaining -= dt
		if d.remaining <= 0 {
			d.fn()
		} else {
			remaining = append(remaining, d)
		}
	}
	c.deferred = remaining
}

// driftCorrect wraps the rig yaw to (-pi,pi] and damps residual turn
// input below the noise floor, per spec.md §4.1 step 6.
func (c *Coordinator) driftCorrect() {
	c.rig.Yaw = lin.Nang(c.rig.Yaw)
	if math.Abs(c.loco.LastTurnInput) < 0.01 {
		c.loco.LastTurnInput = 0
	}
}

// revalidateTeleportVisuals is a no-op at this layer (no visuals are
// owned here) but is where a host-visual revalidation hook would plug in;
// kept as an explicit step to mirror spec.md §4.1 step 7's cadence.
func (c *Coordinator) revalidateTeleportVisuals() {}

// RigPose returns the current rig transform, for the viewer orchestrator
// to apply to the camera rig's parent node.
func (c *Coordinator) RigPose() RigPose { return c.rig }

// OnModeToggle/OnTeleportFailure register callbacks for mode-toggle
// button rising edges and failed teleport releases, respectively. The
// coordinator also emits the equivalent named events on its bus.
func (c *Coordinator) OnModeToggle(fn func())      { c.onModeToggle = fn }
func (c *Coordinator) OnTeleportFailure(fn func()) { c.onTeleportFailure = fn }
