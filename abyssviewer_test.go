package abyssviewer

import (
	"context"
	"testing"
	"time"

	"github.com/fathomline/abyssviewer/config"
	"github.com/fathomline/abyssviewer/logging"
	"github.com/fathomline/abyssviewer/render"
	"github.com/fathomline/abyssviewer/render/noop"
	"github.com/fathomline/abyssviewer/viewer"
	"github.com/gazed/vu/math/lin"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.AutoLoadFirst = false
	cfg.Models = map[string]config.ModelEntry{
		"wreck":  {Key: "wreck", URL: "http://example.test/wreck.glb"},
		"bridge": {Key: "bridge", URL: "http://example.test/bridge.glb"},
	}
	cfg.ModelOrder = []string{"wreck", "bridge"}
	return cfg
}

func waitUntil(t *testing.T, v *Viewer, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		v.Tick(0.016)
		if time.Now().After(deadline) {
			t.Fatal("timeout waiting on viewer condition")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewRequiresRenderer(t *testing.T) {
	if _, err := New(testConfig(), Dependencies{}); err == nil {
		t.Fatal("expected an error when no Renderer is supplied")
	}
}

func TestLoadModelUnknownKeyFails(t *testing.T) {
	bounds := render.Bounds{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}
	v, err := New(testConfig(), Dependencies{Renderer: noop.New(), ModelSource: noop.ModelSource{Bounds: bounds}, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.LoadModel(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for an unconfigured model key")
	}
}

func TestLoadModelCacheHitEmitsSwitchedNotLoaded(t *testing.T) {
	bounds := render.Bounds{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}
	v, err := New(testConfig(), Dependencies{Renderer: noop.New(), ModelSource: noop.ModelSource{Bounds: bounds}, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var loadedCount, switchedCount int
	v.On(viewer.EventModelLoaded, func(any) { loadedCount++ })
	v.On(viewer.EventModelSwitched, func(any) { switchedCount++ })

	if err := v.LoadModel(context.Background(), "wreck"); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	waitUntil(t, v, func() bool { return loadedCount == 1 })

	if err := v.LoadModel(context.Background(), "bridge"); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	waitUntil(t, v, func() bool { return loadedCount == 2 })

	if err := v.LoadModel(context.Background(), "wreck"); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if switchedCount != 1 {
		t.Fatalf("expected exactly one model-switched on the cache-hit reload, got %d", switchedCount)
	}
	if loadedCount != 2 {
		t.Errorf("expected no additional model-loaded from the cache hit, got %d", loadedCount)
	}
}

func TestClearModelsForcesFreshFetch(t *testing.T) {
	bounds := render.Bounds{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}
	v, err := New(testConfig(), Dependencies{Renderer: noop.New(), ModelSource: noop.ModelSource{Bounds: bounds}, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	var loadedCount int
	v.On(viewer.EventModelLoaded, func(any) { loadedCount++ })

	if err := v.LoadModel(context.Background(), "wreck"); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	waitUntil(t, v, func() bool { return loadedCount == 1 })

	v.ClearModels()

	if err := v.LoadModel(context.Background(), "wreck"); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	waitUntil(t, v, func() bool { return loadedCount == 2 })
}

func TestModelsReturnsDeclaredOrder(t *testing.T) {
	v, err := New(testConfig(), Dependencies{Renderer: noop.New(), Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got := v.Models()
	if len(got) != 2 || got[0] != "wreck" || got[1] != "bridge" {
		t.Errorf("expected [wreck bridge] in declaration order, got %v", got)
	}
}

// TestInitialModelLoadsOnConstruction covers the case config.Parse resolves
// for an autoLoadFirst document (InitialModel pre-set to the first declared
// key): New must kick off that fetch itself, before the caller ticks.
func TestInitialModelLoadsOnConstruction(t *testing.T) {
	cfg := testConfig()
	cfg.InitialModel = "wreck"
	bounds := render.Bounds{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}

	v, err := New(cfg, Dependencies{Renderer: noop.New(), ModelSource: noop.ModelSource{Bounds: bounds}, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var loaded int
	v.On(viewer.EventModelLoaded, func(any) { loaded++ })
	waitUntil(t, v, func() bool { return loaded == 1 })
}

func TestModelBoundsPopulatesFromPrefetch(t *testing.T) {
	cfg := testConfig()
	cfg.InitialModel = "wreck"
	bounds := render.Bounds{Min: lin.V3{X: -2, Y: -2, Z: -2}, Max: lin.V3{X: 2, Y: 2, Z: 2}}
	v, err := New(cfg, Dependencies{Renderer: noop.New(), ModelSource: noop.ModelSource{Bounds: bounds}, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer v.Dispose()

	if _, ok := v.ModelBounds("bridge"); ok {
		t.Fatal("expected no bounds before the background prefetch has had a chance to run")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		v.Tick(0.016)
		if _, ok := v.ModelBounds("bridge"); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the background prefetch of 'bridge'")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	v, err := New(testConfig(), Dependencies{Renderer: noop.New(), Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	v.Dispose()
	v.Dispose()
}
