package vr

import (
	"context"
	"math"
	"testing"

	"github.com/fathomline/abyssviewer/camera"
	"github.com/fathomline/abyssviewer/events"
	"github.com/fathomline/abyssviewer/logging"
	"github.com/fathomline/abyssviewer/render"
	"github.com/fathomline/abyssviewer/render/noop"
	"github.com/gazed/vu/math/lin"
)

func newTestCoordinator(t *testing.T) (*Coordinator, *noop.XRSurface) {
	t.Helper()
	bus := events.New(logging.Discard())
	cam := camera.New(60, 0.1, 1000, camera.Desktop{MinDistance: 0.5, MaxDistance: 100})
	xr := noop.NewXRSurface()
	c := New(xr, bus, cam)
	if err := c.RequestSession(context.Background()); err != nil {
		t.Fatalf("RequestSession: %v", err)
	}
	if c.State() != Presenting {
		t.Fatalf("expected Presenting after RequestSession, got %v", c.State())
	}
	return c, xr
}

func TestSessionLifecycleDisablesDesktopControls(t *testing.T) {
	bus := events.New(logging.Discard())
	cam := camera.New(60, 0.1, 1000, camera.Desktop{MinDistance: 0.5, MaxDistance: 100})
	xr := noop.NewXRSurface()
	c := New(xr, bus, cam)

	if err := c.RequestSession(context.Background()); err != nil {
		t.Fatal(err)
	}
	if cam.Enabled() {
		t.Error("desktop camera should be disabled while presenting")
	}

	if err := c.EndSession(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.State() != Idle {
		t.Errorf("expected Idle after EndSession, got %v", c.State())
	}
	if !cam.Enabled() {
		t.Error("desktop camera should be re-enabled after session end")
	}
}

func TestLostSessionRevertsToIdleWithoutTerminatingEvent(t *testing.T) {
	bus := events.New(logging.Discard())
	cam := camera.New(60, 0.1, 1000, camera.Desktop{MinDistance: 0.5, MaxDistance: 100})
	xr := noop.NewXRSurface()
	c := New(xr, bus, cam)
	if err := c.RequestSession(context.Background()); err != nil {
		t.Fatal(err)
	}

	xr.ForceLostSession()
	if c.State() != Idle {
		t.Errorf("a lost connection should still revert to idle, got %v", c.State())
	}
}

// TestTeleportDistanceMapping is the literal boundary scenario from
// spec.md §8: maxMagnitude 0.7 (normalized 1.0) maps to 30m; maxMagnitude
// 0.35 (normalized 0.5) maps to ~19.62m.
func TestTeleportDistanceMapping(t *testing.T) {
	if got := TeleportDistance(1.0); !lin.Aeq(got, 30) {
		t.Errorf("normalized=1.0: got %v want 30", got)
	}
	want := 3 + 27*math.Pow(0.5, 0.7)
	if got := TeleportDistance(0.5); math.Abs(got-want) > 1e-9 {
		t.Errorf("normalized=0.5: got %v want %v", got, want)
	}
	if got := TeleportDistance(0.5); math.Abs(got-19.62) > 0.01 {
		t.Errorf("normalized=0.5: got %v want ~19.62", got)
	}
}

func TestSnapTurnCooldown(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.SetComfort(PresetComfort) // snap turning.

	input := render.InputSample{}
	input.Gamepad[render.Right] = render.Gamepad{Connected: true, StickX: 0.9}

	c.Tick(0.016, input)
	firstYaw := c.RigPose().Yaw
	if firstYaw == 0 {
		t.Fatal("expected the first snap turn to rotate the rig")
	}

	c.Tick(0.016, input)
	if c.RigPose().Yaw != firstYaw {
		t.Error("a second snap turn within the 500ms cooldown should not rotate further")
	}

	// Advance past the cooldown.
	for i := 0; i < 35; i++ {
		c.Tick(0.016, input)
	}
	if c.RigPose().Yaw == firstYaw {
		t.Error("expected another snap turn once the cooldown elapsed")
	}
}

func TestModeToggleRisingEdge(t *testing.T) {
	c, _ := newTestCoordinator(t)
	toggled := 0
	c.OnModeToggle(func() { toggled++ })

	input := render.InputSample{}
	input.Gamepad[render.Left] = render.Gamepad{Connected: true}
	input.Gamepad[render.Left].Buttons[4] = true

	c.Tick(0.016, input)
	c.Tick(0.016, input) // held, not a new edge.
	if toggled != 1 {
		t.Errorf("expected exactly one mode-toggle on the rising edge, got %d", toggled)
	}

	input.Gamepad[render.Left].Buttons[4] = false
	c.Tick(0.016, input)
	input.Gamepad[render.Left].Buttons[4] = true
	c.Tick(0.016, input)
	if toggled != 2 {
		t.Errorf("expected a second toggle after release+re-press, got %d", toggled)
	}
}

func TestHandTrackingPinchEmitsSelectEvents(t *testing.T) {
	bus := events.New(logging.Discard())
	cam := camera.New(60, 0.1, 1000, camera.Desktop{MinDistance: 0.5, MaxDistance: 100})
	xr := noop.NewXRSurface()
	c := New(xr, bus, cam)
	if err := c.RequestSession(context.Background()); err != nil {
		t.Fatal(err)
	}

	var starts, ends int
	var endEvent HandEvent
	bus.On("select-start", func(any) { starts++ })
	bus.On("select-end", func(p any) {
		ends++
		endEvent, _ = p.(HandEvent)
	})

	input := render.InputSample{}
	input.Hand[render.Left] = render.HandJoints{
		Present:  true,
		ThumbTip: render.Vec3{X: 0, Y: 0, Z: 0},
		IndexTip: render.Vec3{X: 0.01, Y: 0, Z: 0}, // 1cm apart, pinching.
		Wrist:    render.Vec3{X: 0, Y: -0.2, Z: 0},
	}
	c.Tick(0.016, input)
	if starts != 1 {
		t.Fatalf("expected select-start on pinch, got %d starts", starts)
	}

	input.Hand[render.Left].IndexTip = render.Vec3{X: 0.1, Y: 0, Z: 0} // release the pinch.
	c.Tick(0.016, input)
	if ends != 1 {
		t.Errorf("expected select-end when pinch releases, got %d ends", ends)
	}
	if endEvent.Hand != render.Left {
		t.Errorf("expected select-end to report the pinching hand, got %v", endEvent.Hand)
	}
	if endEvent.Position.Y != -0.2 {
		t.Errorf("expected select-end's Position to be the wrist joint, got %+v", endEvent.Position)
	}
	wantForward := handDirection(input.Hand[render.Left])
	if endEvent.Forward != wantForward {
		t.Errorf("expected select-end's Forward to be handDirection(joints), got %+v want %+v", endEvent.Forward, wantForward)
	}
}

func TestMovementStartStopEvents(t *testing.T) {
	bus := events.New(logging.Discard())
	cam := camera.New(60, 0.1, 1000, camera.Desktop{MinDistance: 0.5, MaxDistance: 100})
	xr := noop.NewXRSurface()
	c := New(xr, bus, cam)
	if err := c.RequestSession(context.Background()); err != nil {
		t.Fatal(err)
	}

	var starts, stops int
	bus.On("movement-start", func(any) { starts++ })
	bus.On("movement-stop", func(any) { stops++ })

	input := render.InputSample{}
	input.Gamepad[render.Left] = render.Gamepad{Connected: true, StickY: -1}
	for i := 0; i < 10; i++ {
		c.Tick(0.1, input)
	}
	if starts != 1 {
		t.Fatalf("expected exactly one movement-start while ramping up, got %d", starts)
	}

	input.Gamepad[render.Left] = render.Gamepad{Connected: true}
	for i := 0; i < 10; i++ {
		c.Tick(0.1, input)
	}
	if stops != 1 {
		t.Errorf("expected exactly one movement-stop after input released, got %d", stops)
	}
}

func TestTeleportReleaseOutOfRangeFails(t *testing.T) {
	c, _ := newTestCoordinator(t)
	c.SetComfort(PresetComfort) // teleport locomotion.

	failed := false
	c.OnTeleportFailure(func() { failed = true })

	input := render.InputSample{}
	// Aim straight up: the stick magnitude 0.71 just clears the aim
	// threshold, but with no horizontal velocity the arc meets the floor
	// directly below the rig, 0 m away, under the 3 m minimum distance.
	input.Gamepad[render.Left] = render.Gamepad{Connected: true, StickX: 0, StickY: -0.71}
	input.Pose[render.Left] = render.ControllerPose{Position: render.Vec3{}, Forward: render.Vec3{X: 0, Y: 1, Z: 0}}
	c.Tick(0.016, input)

	input.Gamepad[render.Left].StickY = -0.1 // release.
	c.Tick(0.016, input)

	if !failed {
		t.Error("expected a reported failure for a straight-up aim with no horizontal reach")
	}
	if c.rig.Position.X != 0 || c.rig.Position.Z != 0 {
		t.Error("a failed teleport must not move the rig")
	}
}
