// Package viewer implements the orchestrator (spec.md's component C9):
// it constructs the scene, camera, model loader, particle engine,
// measurement subsystem and VR coordinator in dependency order, drains the
// loader's async results once per tick, and enforces the mode-transition
// invariants that tie those subsystems together (camera reframing on
// first load, measurement clearing on model swap, HMD/desktop initial
// pose application, pointer-event routing). It mirrors the teacher's own
// app.go in spirit — one type owning construction order and the single
// per-frame update — generalized from a game loop to this viewer's
// narrower tick/event contract.
package viewer

import (
	"context"
	"fmt"
	"time"

	"github.com/fathomline/abyssviewer/camera"
	"github.com/fathomline/abyssviewer/config"
	"github.com/fathomline/abyssviewer/events"
	"github.com/fathomline/abyssviewer/logging"
	"github.com/fathomline/abyssviewer/measurement"
	"github.com/fathomline/abyssviewer/model"
	"github.com/fathomline/abyssviewer/particles"
	"github.com/fathomline/abyssviewer/render"
	"github.com/fathomline/abyssviewer/scene"
	"github.com/fathomline/abyssviewer/vr"
	"github.com/gazed/vu/math/lin"
)

// deferredCall is the same "remaining seconds, then run" shape vr.session.go
// uses for its own post-session-end camera restore; the orchestrator needs
// an independent copy since it schedules the belt-and-braces desktop-pose
// reapply on its own clock, not the coordinator's.
type deferredCall struct {
	remaining float64
	fn        func()
}

// Orchestrator binds components C3 through C8 behind the single Tick
// entry point the façade (C10) drives once per animation frame.
type Orchestrator struct {
	cfg      *config.Config
	bus      *events.Bus
	log      logging.Logger
	renderer render.Renderer
	xr       render.XRSurface

	scene       *scene.Scene
	cam         *camera.Manager
	loader      *model.Loader
	coordinator *vr.Coordinator
	field       *particles.Field
	measure     *measurement.Subsystem

	current    *model.Loaded
	currentKey string
	hasFramed  bool

	pendingKey string
	pendingURL string

	deferred []deferredCall
	click    clickTracker

	controllerLookup func(render.Hand) (render.NodeHandle, bool)

	disposed bool
}

// New constructs every subsystem cfg.Features enables, in the order
// scene -> camera -> loader -> particles/measurement -> vr, and wires the
// cross-subsystem event bridges described in SPEC_FULL.md §4.4.
func New(cfg *config.Config, renderer render.Renderer, source render.ModelSource, xr render.XRSurface, log logging.Logger) (*Orchestrator, error) {
	if renderer == nil {
		return nil, fmt.Errorf("viewer: renderer is required")
	}
	if log == nil {
		log = logging.Default()
	}

	o := &Orchestrator{
		cfg:              cfg,
		bus:              events.New(log),
		log:              log,
		renderer:         renderer,
		xr:               xr,
		controllerLookup: func(render.Hand) (render.NodeHandle, bool) { return nil, false },
	}

	o.scene = scene.New(renderer)
	o.scene.SetBackground(cfg.Scene.Background[0], cfg.Scene.Background[1], cfg.Scene.Background[2], cfg.Scene.Background[3])
	o.SetDiveMode(cfg.Features.DiveSystem)

	o.cam = camera.New(cfg.Camera.FOV, cfg.Camera.Near, cfg.Camera.Far, camera.Desktop{
		Damping:     cfg.Camera.Desktop.Damping,
		MinDistance: cfg.Camera.Desktop.MinDistance,
		MaxDistance: cfg.Camera.Desktop.MaxDistance,
	})

	o.loader = model.New(source, renderer)

	if cfg.Features.Measurement {
		o.measure = measurement.New(renderer, cfg.MeasurementTheme, cfg.ShowMeasurementLabels, o.bus)
	}

	if cfg.Features.HMD && xr != nil {
		o.coordinator = vr.New(xr, o.bus, o.cam)
		o.wireCoordinatorBridge()
	}

	return o, nil
}

// wireCoordinatorBridge subscribes to the coordinator's internal event
// names and re-emits the façade's public vr-* names, plus runs the
// viewer-owned initial-pose side effects session.go documents as this
// orchestrator's responsibility rather than the coordinator's.
func (o *Orchestrator) wireCoordinatorBridge() {
	o.bus.On("hmd-session-start", func(any) {
		o.onHMDSessionStart()
		o.bus.Emit(EventVRSessionStart, nil)
	})
	o.bus.On("hmd-session-end", func(any) {
		o.onHMDSessionEnd()
		o.bus.Emit(EventVRSessionEnd, nil)
	})
	o.bus.On("mode-toggle", func(any) { o.bus.Emit(EventVRModeToggle, nil) })
	o.bus.On("movement-start", func(any) { o.bus.Emit(EventVRMovementStart, nil) })
	o.bus.On("movement-stop", func(any) { o.bus.Emit(EventVRMovementStop, nil) })
	o.bus.On("movement-update", func(p any) {
		if u, ok := p.(vr.MovementUpdate); ok {
			o.bus.Emit(EventVRMovementUpdate, VRMovementUpdate{Speed: u.Speed, BoostLevel: u.Boost})
		}
	})
	o.bus.On("select-end", func(p any) {
		if o.measure == nil {
			return
		}
		if e, ok := p.(vr.HandEvent); ok {
			o.measure.OnTriggerRelease(e.Hand, e.Position, e.Forward, tickNow())
		}
	})
}

// Bus exposes the shared event bus for the façade to subscribe to (and to
// re-expose to embedders via its own On method).
func (o *Orchestrator) Bus() *events.Bus { return o.bus }

// Coordinator exposes the VR coordinator, or nil when HMD support is
// disabled/unavailable, so a host can drive SetComfort/SetAudioSink.
func (o *Orchestrator) Coordinator() *vr.Coordinator { return o.coordinator }

// CurrentModel returns the model ApplyModel last activated, for a caller
// (the façade's multi-model cache) that needs to record it against the key
// it was loaded under.
func (o *Orchestrator) CurrentModel() (loaded *model.Loaded, key string, ok bool) {
	if o.current == nil {
		return nil, "", false
	}
	return o.current, o.currentKey, true
}

// Measurement exposes the measurement subsystem, or nil when disabled, so
// a host can call AttachGhost/DetachGhost from its own WebXR input-source
// bookkeeping (something no render.XRSurface-level interface can do
// generically, since controller node handles are host-specific).
func (o *Orchestrator) Measurement() *measurement.Subsystem { return o.measure }

// SetControllerLookup installs the callback TickGhosts uses to find each
// hand's current controller node handle, for ghost-sphere re-attachment
// after a lost-and-regained controller.
func (o *Orchestrator) SetControllerLookup(fn func(render.Hand) (render.NodeHandle, bool)) {
	if fn == nil {
		fn = func(render.Hand) (render.NodeHandle, bool) { return nil, false }
	}
	o.controllerLookup = fn
}

// LoadModel starts (or restarts, canceling any in-flight load) a fetch of
// url under key. Completion is reported asynchronously via the
// model-loaded/model-load-error/model-load-cancelled events the next time
// Tick drains the loader.
func (o *Orchestrator) LoadModel(ctx context.Context, key, url string) {
	if o.measure != nil {
		o.measure.Clear() // spec.md §4.2: clear before swapping the raycast target set.
	}
	o.pendingKey, o.pendingURL = key, url
	o.bus.Emit(EventModelLoadStart, ModelLoadStart{URL: url})
	o.loader.Load(ctx, key, url)
}

// ApplyModel runs every mode-transition invariant a freshly loaded or
// cache-restored model must trigger (SPEC_FULL.md §4.4): reframe the
// camera the first time any model is shown, apply this model's initial
// pose for the active modality, and resize the particle field to its
// bounds. It does not itself emit model-loaded/model-switched — the
// caller (Tick's drain loop, or the façade's cache-hit path) emits the
// event that fits how the model became active.
func (o *Orchestrator) ApplyModel(key string, loaded *model.Loaded) {
	o.current = loaded
	o.currentKey = key

	if !o.hasFramed {
		o.hasFramed = true
		radius := model.BoundingRadius(loaded.Bounds)
		o.cam.SetTarget(lin.V3{})
		o.cam.SetDistance(radius * 2.5)
		o.bus.Emit(EventCameraReset, CameraReset{ModelKey: key, Position: o.cam.Position()})
	}

	o.applyInitialPose(key, o.activeModality())

	if o.scene.Mode() == scene.Dive {
		if o.field == nil {
			o.field = particles.New(o.renderer, loaded.Bounds, int64(len(key))+1)
		} else {
			o.field.UpdateBounds(loaded.Bounds)
		}
	}
}

// SetDiveMode switches between the Survey and Dive atmospheric presets
// (glossary): Dive turns on scene fog and the marine-snow particle field
// sized to the current model's bounds, Survey turns both off. A host
// toggles this at runtime through the façade; cfg.Features.DiveSystem only
// picks the mode the orchestrator starts in.
func (o *Orchestrator) SetDiveMode(enabled bool) {
	if enabled {
		o.scene.SetMode(scene.Dive, o.cfg.Scene.Fog.Near, o.cfg.Scene.Fog.Far, o.cfg.Scene.Fog.Color)
		if o.field == nil && o.current != nil {
			o.field = particles.New(o.renderer, o.current.Bounds, int64(len(o.currentKey))+1)
		}
	} else {
		o.scene.SetMode(scene.Survey, 0, 0, [3]float64{})
		if o.field != nil {
			o.field.Dispose()
			o.field = nil
		}
	}
	o.bus.Emit("dive-mode-changed", enabled)
}

// activeModality returns "hmd" while presenting, else "desktop", matching
// the ModelEntry.InitialPositions key convention from spec.md §3.
func (o *Orchestrator) activeModality() string {
	if o.coordinator != nil && o.coordinator.State() == vr.Presenting {
		return "hmd"
	}
	return "desktop"
}

// applyInitialPose applies entry.InitialPositions[modality], if present,
// directly (not animated — load-time and session-transition pose
// application is instantaneous per spec.md §4.1/§4.4, unlike the
// double-click focus animation). Yaw/pitch are not part of config.Pose, so
// only target and an equivalent orbit distance are applied; a host that
// needs exact orbit orientation restoration should prefer a camera
// snapshot (camera.Snapshot) over a configured initial pose.
func (o *Orchestrator) applyInitialPose(key, modality string) {
	entry, ok := o.cfg.Models[key]
	if !ok {
		return
	}
	pose, ok := entry.InitialPositions[modality]
	if !ok {
		return
	}
	target := lin.V3{X: pose.Target[0], Y: pose.Target[1], Z: pose.Target[2]}
	pos := lin.V3{X: pose.Position[0], Y: pose.Position[1], Z: pose.Position[2]}
	d := lin.V3{X: pos.X - target.X, Y: pos.Y - target.Y, Z: pos.Z - target.Z}
	o.cam.SetTarget(target)
	o.cam.SetDistance(d.Len())
}

// onHMDSessionStart applies the current model's HMD initial pose, the
// viewer-level half of spec.md §4.1's idle->presenting side effects (the
// coordinator itself only handles camera-snapshot/disable, per session.go).
func (o *Orchestrator) onHMDSessionStart() {
	if o.current != nil {
		o.applyInitialPose(o.currentKey, "hmd")
	}
	if o.measure != nil {
		o.measure.SetPresenting(true)
	}
}

// onHMDSessionEnd applies the current model's desktop initial pose twice —
// immediately and again after 50 ms — per spec.md §4.1's "belt-and-braces"
// rule for defeating a lingering race with the rig reset.
func (o *Orchestrator) onHMDSessionEnd() {
	if o.measure != nil {
		o.measure.SetPresenting(false)
	}
	if o.current == nil {
		return
	}
	key := o.currentKey
	o.applyInitialPose(key, "desktop")
	o.deferred = append(o.deferred, deferredCall{remaining: 0.05, fn: func() {
		o.applyInitialPose(key, "desktop")
	}})
}

// Tick advances deferred callbacks, drains the loader's async results, and
// — while a VR coordinator exists — polls input and drives it. Per
// SPEC_FULL.md §4.4/§5's ordering guarantee this must run as
// C8.update -> C4.update -> scene render; the render step itself is the
// host's concern once this returns.
func (o *Orchestrator) Tick(dt float64) {
	o.runDeferred(dt)
	o.drainLoader()

	if o.coordinator != nil {
		input := o.xr.PollInput()
		o.coordinator.Tick(dt, input)
		if o.measure != nil {
			o.measure.TickGhosts(tickNow(), o.controllerLookup)
		}
	}
	o.cam.Update(dt)
}

// tickNow is the one indirection point for "now" in this package, kept so
// a future deterministic-clock host could override it; today it is just
// time.Now.
func tickNow() time.Time { return time.Now() }

func (o *Orchestrator) runDeferred(dt float64) {
	var remaining []deferredCall
	for _, d := range o.deferred {
		d.remaining -= dt
		if d.remaining <= 0 {
			d.fn()
		} else {
			remaining = append(remaining, d)
		}
	}
	o.deferred = remaining
}

func (o *Orchestrator) drainLoader() {
	for _, p := range o.loader.DrainProgress() {
		o.bus.Emit(EventModelLoadProgress, ModelLoadProgress{URL: p.URL, Loaded: p.Progress.Loaded, Total: p.Progress.Total})
	}
	for _, r := range o.loader.Drain() {
		switch {
		case r.Cancelled:
			o.bus.Emit(EventModelLoadCancelled, ModelLoadCancelled{URL: o.pendingURL})
		case r.Err != nil:
			o.bus.Emit(EventModelLoadError, ModelLoadError{URL: o.pendingURL, Err: r.Err})
			o.bus.Emit(EventError, r.Err)
		default:
			o.ApplyModel(r.Key, r.Loaded)
			info := ModelInfo{ModelKey: r.Key, URL: r.Loaded.URL, Bounds: r.Loaded.Bounds.Size()}
			o.bus.Emit(EventModelLoaded, ModelLoaded{ModelInfo: info})
		}
	}
}

// PointerDown records the start of a click/drag gesture at (x,y), routing
// it to the measurement subsystem when enabled.
func (o *Orchestrator) PointerDown(x, y float64) {
	if o.measure != nil {
		o.measure.PointerDown(x, y)
		return
	}
	o.click.down(x, y)
}

// PointerUp completes a click/drag gesture. hits are the raycast
// candidates the host computed against the currently loaded model's scene
// graph. When measurement is enabled it owns click routing entirely
// (placement on single click, camera focus on double-click) and this
// call stops there ("stops propagation" from
// spec.md §4.4, expressed here as simply not running the fallback path).
// When measurement is disabled, the orchestrator runs its own
// double-click-focuses-the-camera fallback.
func (o *Orchestrator) PointerUp(x, y float64, now time.Time, hits []measurement.Hit) {
	onFocus := func() { o.focusOnNearest(hits) }
	if o.measure != nil {
		o.measure.PointerUp(x, y, now, hits, onFocus)
		return
	}
	if o.click.up(x, y, now) {
		onFocus()
	}
}

// focusOnNearest starts a camera focus animation on the nearest hit, if
// any, keeping the current orbit distance (spec.md doesn't specify a
// dolly-in amount for focus, only that the target moves).
func (o *Orchestrator) focusOnNearest(hits []measurement.Hit) {
	if len(hits) == 0 {
		return
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if h.Distance < best.Distance {
			best = h
		}
	}
	o.cam.Focus(best.Position, o.cam.Distance())
	o.bus.Emit(EventFocus, FocusEvent{Point: best.Position})
}

// Resize re-emits a container resize as the public resize event. The
// camera keeps no projection aspect, so nothing else is changed; the host
// owns the actual canvas/viewport sizing.
func (o *Orchestrator) Resize(width, height int) {
	o.bus.Emit(EventResize, ResizeEvent{Width: width, Height: height})
}

// Dispose aborts any pending load, tears down the particle field and
// measurement subsystem's nodes, and is safe to call more than once.
func (o *Orchestrator) Dispose() {
	if o.disposed {
		return
	}
	o.disposed = true
	o.loader.Cancel()
	if o.field != nil {
		o.field.Dispose()
	}
	if o.measure != nil {
		o.measure.DisposeAll()
	}
}
