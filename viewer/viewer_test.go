package viewer

import (
	"context"
	"testing"
	"time"

	"github.com/fathomline/abyssviewer/config"
	"github.com/fathomline/abyssviewer/logging"
	"github.com/fathomline/abyssviewer/measurement"
	"github.com/fathomline/abyssviewer/render"
	"github.com/fathomline/abyssviewer/render/noop"
	"github.com/fathomline/abyssviewer/scene"
	"github.com/gazed/vu/math/lin"
)

func newTestOrchestrator(t *testing.T, cfg *config.Config, xr render.XRSurface, bounds render.Bounds) (*Orchestrator, *noop.Renderer) {
	t.Helper()
	r := noop.New()
	source := noop.ModelSource{Bounds: bounds}
	o, err := New(cfg, r, source, xr, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o, r
}

func waitForTick(t *testing.T, o *Orchestrator, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		o.Tick(0.016)
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting on orchestrator condition")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestLoadModelEmitsStartThenLoadedAndReframesCamera(t *testing.T) {
	cfg := config.Default()
	cfg.Features.DiveSystem = false
	bounds := render.Bounds{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}
	o, _ := newTestOrchestrator(t, cfg, nil, bounds)

	var started, loaded, reframed bool
	o.Bus().On(EventModelLoadStart, func(any) { started = true })
	o.Bus().On(EventModelLoaded, func(p any) {
		loaded = true
		if m, ok := p.(ModelLoaded); !ok || m.ModelKey != "wreck" {
			t.Errorf("unexpected model-loaded payload: %#v", p)
		}
	})
	o.Bus().On(EventCameraReset, func(any) { reframed = true })

	o.LoadModel(context.Background(), "wreck", "http://example.test/wreck.glb")
	if !started {
		t.Fatal("expected model-load-start to fire synchronously")
	}

	waitForTick(t, o, func() bool { return loaded })
	if !reframed {
		t.Error("expected camera-reset on the first model loaded")
	}
	if o.cam.Distance() <= 0 {
		t.Error("expected a positive framing distance after reframe")
	}
}

func TestLoadModelClearsMeasurementBeforeSwap(t *testing.T) {
	cfg := config.Default()
	bounds := render.Bounds{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}
	o, _ := newTestOrchestrator(t, cfg, nil, bounds)

	o.Measurement().PointerDown(0, 0)
	o.Measurement().PointerUp(0, 0, time.Now(), []measurement.Hit{{Position: lin.V3{X: 1}, Kind: measurement.KindMesh, Distance: 1}}, nil)
	if len(o.Measurement().Points()) != 1 {
		t.Fatalf("expected 1 point placed, got %d", len(o.Measurement().Points()))
	}

	o.LoadModel(context.Background(), "second", "http://example.test/second.glb")
	if len(o.Measurement().Points()) != 0 {
		t.Error("expected LoadModel to clear measurement points before the new fetch even starts")
	}
}

func TestPointerUpPlacesPointWhenMeasurementEnabled(t *testing.T) {
	cfg := config.Default()
	bounds := render.Bounds{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}
	o, _ := newTestOrchestrator(t, cfg, nil, bounds)

	o.PointerDown(10, 10)
	hits := []measurement.Hit{{Position: lin.V3{X: 2, Y: 0, Z: 0}, Kind: measurement.KindMesh, Distance: 5}}
	o.PointerUp(10, 10, time.Now(), hits)

	if len(o.Measurement().Points()) != 1 {
		t.Fatalf("expected the click to place a measurement point, got %d points", len(o.Measurement().Points()))
	}
}

// TestDoubleClickFocusesWhenMeasurementDisabled is the literal scenario
// from spec.md §6: with measurement off, a double-click still focuses the
// camera rather than doing nothing.
func TestDoubleClickFocusesWhenMeasurementDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Features.Measurement = false
	bounds := render.Bounds{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}
	o, _ := newTestOrchestrator(t, cfg, nil, bounds)
	if o.Measurement() != nil {
		t.Fatal("expected no measurement subsystem when the feature is disabled")
	}

	var focused int
	o.Bus().On(EventFocus, func(any) { focused++ })

	hits := []measurement.Hit{{Position: lin.V3{X: 3, Y: 0, Z: 0}, Distance: 3}}
	now := time.Now()
	o.PointerDown(5, 5)
	o.PointerUp(5, 5, now, hits) // first click: not a double-click yet.
	if focused != 0 {
		t.Fatalf("expected no focus on the first click, got %d", focused)
	}
	o.PointerDown(5, 5)
	o.PointerUp(5, 5, now.Add(50*time.Millisecond), hits) // within the 300ms window.
	if focused != 1 {
		t.Errorf("expected exactly one focus on the double-click, got %d", focused)
	}
}

func TestHMDSessionStartAppliesModelInitialPose(t *testing.T) {
	cfg := config.Default()
	cfg.Models = map[string]config.ModelEntry{
		"wreck": {
			Key: "wreck",
			URL: "http://example.test/wreck.glb",
			InitialPositions: map[string]config.Pose{
				"hmd": {Position: [3]float64{0, 2, 10}, Target: [3]float64{0, 1, 0}},
			},
		},
	}
	bounds := render.Bounds{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}
	xr := noop.NewXRSurface()
	o, _ := newTestOrchestrator(t, cfg, xr, bounds)

	o.LoadModel(context.Background(), "wreck", cfg.Models["wreck"].URL)
	waitForTick(t, o, func() bool { return o.current != nil })

	if err := o.coordinator.RequestSession(context.Background()); err != nil {
		t.Fatalf("RequestSession: %v", err)
	}

	target := o.cam.Target()
	if target.Y != 1 {
		t.Errorf("expected the hmd initial pose target to apply on session start, got %+v", target)
	}
}

func TestHandTrackingSelectEndPlacesMeasurementPoint(t *testing.T) {
	cfg := config.Default()
	cfg.Features.Measurement = true
	bounds := render.Bounds{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}
	xr := noop.NewXRSurface()
	o, _ := newTestOrchestrator(t, cfg, xr, bounds)

	if err := o.coordinator.RequestSession(context.Background()); err != nil {
		t.Fatalf("RequestSession: %v", err)
	}

	input := render.InputSample{}
	input.Hand[render.Left] = render.HandJoints{
		Present:  true,
		ThumbTip: render.Vec3{X: 0, Y: 0, Z: 0},
		IndexTip: render.Vec3{X: 0.01, Y: 0, Z: 0}, // pinching.
		Wrist:    render.Vec3{X: 0, Y: 1, Z: -2},
	}
	o.coordinator.Tick(0.016, input)

	input.Hand[render.Left].IndexTip = render.Vec3{X: 0.1, Y: 0, Z: 0} // release.
	o.coordinator.Tick(0.016, input)

	if got := len(o.measure.Points()); got != 1 {
		t.Fatalf("expected the hand-tracking pinch release to place one measurement point, got %d", got)
	}
}

func TestResizeReemitsEvent(t *testing.T) {
	cfg := config.Default()
	bounds := render.Bounds{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}
	o, _ := newTestOrchestrator(t, cfg, nil, bounds)

	var got ResizeEvent
	o.Bus().On(EventResize, func(p any) { got, _ = p.(ResizeEvent) })
	o.Resize(800, 600)
	if got.Width != 800 || got.Height != 600 {
		t.Errorf("expected resize payload 800x600, got %+v", got)
	}
}

func TestSetDiveModeTogglesFogAndParticles(t *testing.T) {
	cfg := config.Default()
	cfg.Features.DiveSystem = false
	bounds := render.Bounds{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}
	o, _ := newTestOrchestrator(t, cfg, nil, bounds)

	if o.scene.Mode() != scene.Survey {
		t.Fatalf("expected Survey mode at construction, got %v", o.scene.Mode())
	}
	if o.field != nil {
		t.Fatal("expected no particle field in Survey mode")
	}

	o.LoadModel(context.Background(), "wreck", "http://example.test/wreck.glb")
	waitForTick(t, o, func() bool { return o.current != nil })

	var changed bool
	var enabled bool
	o.Bus().On("dive-mode-changed", func(p any) {
		changed = true
		enabled, _ = p.(bool)
	})

	o.SetDiveMode(true)
	if !changed || !enabled {
		t.Fatalf("expected dive-mode-changed(true), got changed=%v enabled=%v", changed, enabled)
	}
	if o.scene.Mode() != scene.Dive {
		t.Error("expected Dive mode after SetDiveMode(true)")
	}
	if fogOn, _, _, _ := o.scene.Fog(); !fogOn {
		t.Error("expected fog enabled in Dive mode")
	}
	if o.field == nil {
		t.Error("expected a particle field once Dive mode is enabled with a model loaded")
	}

	o.SetDiveMode(false)
	if o.scene.Mode() != scene.Survey {
		t.Error("expected Survey mode after SetDiveMode(false)")
	}
	if o.field != nil {
		t.Error("expected the particle field to be disposed in Survey mode")
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	cfg := config.Default()
	bounds := render.Bounds{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}
	o, _ := newTestOrchestrator(t, cfg, nil, bounds)
	o.Dispose()
	o.Dispose()
}
