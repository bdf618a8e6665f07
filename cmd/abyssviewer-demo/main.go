// abyssviewer-demo drives the viewer façade headlessly against the noop
// render backend, for smoke-testing a config file's model registry and
// exercising the measurement/teleport state machines without a browser.
// Invoke with a scenario name:
//
//	abyssviewer-demo [scenario]
//
// Invoking without arguments lists the available scenarios, mirroring the
// way the underlying engine's own example launcher lists its demos.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fathomline/abyssviewer"
	"github.com/fathomline/abyssviewer/config"
	"github.com/fathomline/abyssviewer/logging"
	"github.com/fathomline/abyssviewer/measurement"
	"github.com/fathomline/abyssviewer/render"
	"github.com/fathomline/abyssviewer/render/noop"
	"github.com/fathomline/abyssviewer/vr"
	"github.com/gazed/vu/math/lin"
)

type scenario struct {
	tag         string
	description string
	run         func(*os.File) error
}

func main() {
	scenarios := []scenario{
		{"load", "load: fetch a model and report when it has loaded", scenarioLoad},
		{"switch", "switch: load two models, then reload the first from cache", scenarioSwitch},
		{"measure", "measure: place two points and print the distance between them", scenarioMeasure},
		{"teleport", "teleport: drive an HMD session through a teleport gesture", scenarioTeleport},
		{"config", "config: load a YAML file given as the second argument and dump its models", scenarioConfig},
	}

	if len(os.Args) < 2 {
		fmt.Println("Usage: abyssviewer-demo [scenario]")
		fmt.Println("Scenarios are:")
		for _, s := range scenarios {
			fmt.Printf("   %s\n", s.description)
		}
		return
	}

	for _, s := range scenarios {
		if s.tag == os.Args[1] {
			if err := s.run(os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", s.tag, err)
				os.Exit(1)
			}
			return
		}
	}
	fmt.Fprintf(os.Stderr, "unknown scenario %q\n", os.Args[1])
	os.Exit(1)
}

func demoConfig() *config.Config {
	cfg := config.Default()
	cfg.Features.HMD = true
	cfg.Models = map[string]config.ModelEntry{
		"wreck":  {Key: "wreck", URL: "https://example.test/wreck.glb", Name: "Coastal Trader"},
		"bridge": {Key: "bridge", URL: "https://example.test/bridge.glb", Name: "Collapsed Bridge Span"},
	}
	cfg.ModelOrder = []string{"wreck", "bridge"}
	return cfg
}

func waitForLoad(v *abyssviewer.Viewer, deadline time.Duration) bool {
	loaded := make(chan struct{}, 1)
	unsub := v.On("model-loaded", func(any) {
		select {
		case loaded <- struct{}{}:
		default:
		}
	})
	defer unsub()

	stop := time.Now().Add(deadline)
	for time.Now().Before(stop) {
		v.Tick(0.016)
		select {
		case <-loaded:
			return true
		default:
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func scenarioLoad(out *os.File) error {
	bounds := render.Bounds{Min: lin.V3{X: -4, Y: -2, Z: -6}, Max: lin.V3{X: 4, Y: 2, Z: 6}}
	v, err := abyssviewer.New(demoConfig(), abyssviewer.Dependencies{
		Renderer:    noop.New(),
		ModelSource: noop.ModelSource{Bounds: bounds},
		Logger:      logging.Discard(),
	})
	if err != nil {
		return err
	}
	defer v.Dispose()

	if err := v.LoadModel(context.Background(), "wreck"); err != nil {
		return err
	}
	if !waitForLoad(v, 2*time.Second) {
		return fmt.Errorf("timed out waiting for the model to load")
	}
	fmt.Fprintln(out, "wreck loaded")
	return nil
}

func scenarioSwitch(out *os.File) error {
	bounds := render.Bounds{Min: lin.V3{X: -4, Y: -2, Z: -6}, Max: lin.V3{X: 4, Y: 2, Z: 6}}
	v, err := abyssviewer.New(demoConfig(), abyssviewer.Dependencies{
		Renderer:    noop.New(),
		ModelSource: noop.ModelSource{Bounds: bounds},
		Logger:      logging.Discard(),
	})
	if err != nil {
		return err
	}
	defer v.Dispose()

	var switched int
	v.On("model-switched", func(any) { switched++ })

	if err := v.LoadModel(context.Background(), "wreck"); err != nil {
		return err
	}
	waitForLoad(v, 2*time.Second)
	if err := v.LoadModel(context.Background(), "bridge"); err != nil {
		return err
	}
	waitForLoad(v, 2*time.Second)

	if err := v.LoadModel(context.Background(), "wreck"); err != nil {
		return err
	}
	fmt.Fprintf(out, "reload of wreck was a cache hit: %v\n", switched == 1)
	return nil
}

func scenarioMeasure(out *os.File) error {
	bounds := render.Bounds{Min: lin.V3{X: -4, Y: -2, Z: -6}, Max: lin.V3{X: 4, Y: 2, Z: 6}}
	v, err := abyssviewer.New(demoConfig(), abyssviewer.Dependencies{
		Renderer:    noop.New(),
		ModelSource: noop.ModelSource{Bounds: bounds},
		Logger:      logging.Discard(),
	})
	if err != nil {
		return err
	}
	defer v.Dispose()

	if err := v.LoadModel(context.Background(), "wreck"); err != nil {
		return err
	}
	waitForLoad(v, 2*time.Second)

	now := time.Now()
	v.PointerDown(10, 10)
	v.PointerUp(10, 10, now, []measurement.Hit{{Position: lin.V3{X: 0, Y: 0, Z: 0}, Kind: measurement.KindMesh, Distance: 1}})
	v.PointerDown(40, 40)
	v.PointerUp(40, 40, now.Add(time.Second), []measurement.Hit{{Position: lin.V3{X: 3, Y: 4, Z: 0}, Kind: measurement.KindMesh, Distance: 1}})

	pts := v.Orchestrator().Measurement().Points()
	if len(pts) != 2 {
		return fmt.Errorf("expected 2 placed points, got %d", len(pts))
	}
	fmt.Fprintf(out, "distance: %.3f\n", measurement.Distance(pts[0].Position, pts[1].Position))
	return nil
}

func scenarioTeleport(out *os.File) error {
	bounds := render.Bounds{Min: lin.V3{X: -10, Y: -1, Z: -10}, Max: lin.V3{X: 10, Y: 2, Z: 10}}
	xr := noop.NewXRSurface()
	v, err := abyssviewer.New(demoConfig(), abyssviewer.Dependencies{
		Renderer:    noop.New(),
		ModelSource: noop.ModelSource{Bounds: bounds},
		XR:          xr,
		Logger:      logging.Discard(),
	})
	if err != nil {
		return err
	}
	defer v.Dispose()

	if err := v.LoadModel(context.Background(), "wreck"); err != nil {
		return err
	}
	waitForLoad(v, 2*time.Second)

	if err := v.Orchestrator().Coordinator().RequestSession(context.Background()); err != nil {
		return err
	}
	v.Orchestrator().Coordinator().SetComfort(vr.PresetComfort)

	xr.Input.Gamepad[render.Left].Connected = true
	xr.Input.Pose[render.Left] = render.ControllerPose{
		Position: render.Vec3{X: 0, Y: 1.5, Z: 0},
		Forward:  render.Vec3{X: 0, Y: -0.3, Z: -1},
	}

	xr.Input.Gamepad[render.Left].StickY = -0.8 // aim.
	v.Tick(0.016)
	xr.Input.Gamepad[render.Left].StickY = 0.1 // release.
	v.Tick(0.016)

	pos, _ := xr.RigTransform()
	fmt.Fprintf(out, "rig position after teleport: (%.2f, %.2f, %.2f)\n", pos.X, pos.Y, pos.Z)
	return nil
}

func scenarioConfig(out *os.File) error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: abyssviewer-demo config <path-to-yaml>")
	}
	cfg, err := config.Load(os.Args[2], logging.Discard())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "initial model: %s\n", cfg.InitialModel)
	for _, key := range cfg.ModelOrder {
		fmt.Fprintf(out, "  %s: %s (%s)\n", key, cfg.Models[key].Name, cfg.Models[key].URL)
	}
	return nil
}
