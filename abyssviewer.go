// Package abyssviewer is the embedder-facing façade (spec.md's component
// C10): a multi-model registry layered over the viewer orchestrator, with
// the public subscribe/unsubscribe/dispose surface a host integrates
// against. It owns exactly one concern the orchestrator doesn't: knowing
// which models have already been fetched, so switching back to one is a
// cache hit (model-switched) rather than a second network fetch
// (model-loaded).
package abyssviewer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fathomline/abyssviewer/config"
	"github.com/fathomline/abyssviewer/events"
	"github.com/fathomline/abyssviewer/logging"
	"github.com/fathomline/abyssviewer/measurement"
	"github.com/fathomline/abyssviewer/model"
	"github.com/fathomline/abyssviewer/render"
	"github.com/fathomline/abyssviewer/viewer"
)

// Dependencies are the host-supplied collaborators every embedding must
// provide; Renderer is the only one the viewer cannot run without.
type Dependencies struct {
	Renderer    render.Renderer
	ModelSource render.ModelSource
	XR          render.XRSurface // nil disables HMD support regardless of cfg.Features.HMD.
	Logger      logging.Logger
}

// Viewer is the top-level handle an embedder constructs once per viewer
// instance on the page.
type Viewer struct {
	cfg      *config.Config
	o        *viewer.Orchestrator
	prefetch *model.Prefetcher

	mu               sync.Mutex
	cached           map[string]*model.Loaded
	prefetchedBounds map[string]render.Bounds
	disposed         bool
}

// prefetchConcurrency bounds how many catalog entries warm in the
// background at once; small, since this is a courtesy for the
// model-picker UI, not the critical path.
const prefetchConcurrency = 2

// New validates deps and constructs the orchestrator and every subsystem
// cfg.Features enables. If cfg.InitialModel is non-empty (config.Parse
// fills it with the first declared model when AutoLoadFirst is set), it is
// loaded immediately (fire-and-forget, same as any other LoadModel call —
// completion arrives via the model-loaded event once the host starts
// calling Tick); a key that names no configured model makes New return an
// error.
func New(cfg *config.Config, deps Dependencies) (*Viewer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if deps.Renderer == nil {
		return nil, fmt.Errorf("abyssviewer: Dependencies.Renderer is required")
	}
	o, err := viewer.New(cfg, deps.Renderer, deps.ModelSource, deps.XR, deps.Logger)
	if err != nil {
		return nil, err
	}

	v := &Viewer{
		cfg:              cfg,
		o:                o,
		cached:           map[string]*model.Loaded{},
		prefetchedBounds: map[string]render.Bounds{},
	}
	o.Bus().On(viewer.EventModelLoaded, func(p any) {
		if loaded, key, ok := v.o.CurrentModel(); ok {
			v.mu.Lock()
			v.cached[key] = loaded
			v.mu.Unlock()
		}
		_ = p
	})

	v.o.Bus().Emit(viewer.EventInitialized, nil)

	if cfg.InitialModel != "" {
		if err := v.LoadModel(context.Background(), cfg.InitialModel); err != nil {
			return nil, err
		}
	}

	// Warm every other catalog entry's bounds in the background, so a
	// model-picker UI can show sizes before the user actually picks one.
	if deps.ModelSource != nil {
		v.prefetch = model.NewPrefetcher(deps.ModelSource, prefetchConcurrency)
		for _, key := range cfg.ModelOrder {
			if key == cfg.InitialModel {
				continue
			}
			if entry, ok := cfg.Models[key]; ok {
				v.prefetch.Prefetch(context.Background(), key, entry.URL)
			}
		}
	}
	return v, nil
}

// Tick drives the orchestrator's single per-frame update; call it once per
// animation frame (desktop refresh cadence outside HMD sessions, the HMD
// compositor's cadence inside one).
func (v *Viewer) Tick(dt float64) {
	v.o.Tick(dt)
	v.drainPrefetch()
}

// drainPrefetch folds any background catalog-warming results into the
// bounds map ModelBounds reads; load errors are dropped silently, since a
// failed prefetch only means a size readout is unavailable, not that the
// model itself is unusable (LoadModel will surface a real error if the
// host later activates that key).
func (v *Viewer) drainPrefetch() {
	if v.prefetch == nil {
		return
	}
	for _, r := range v.prefetch.Drain() {
		if r.Err != nil || r.Cancelled || r.Loaded == nil {
			continue
		}
		v.mu.Lock()
		v.prefetchedBounds[r.Key] = r.Loaded.Bounds
		v.mu.Unlock()
	}
}

// ModelBounds returns the bounding-box size a background prefetch has
// already recovered for key, for a model-picker UI to show before the
// user activates it. Returns false until that key's prefetch completes
// (or immediately, for whichever key LoadModel has already activated).
func (v *Viewer) ModelBounds(key string) (render.Bounds, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if b, ok := v.prefetchedBounds[key]; ok {
		return b, true
	}
	if loaded, ok := v.cached[key]; ok {
		return loaded.Bounds, true
	}
	return render.Bounds{}, false
}

// LoadModel activates key from cfg.Models. If key was already fetched
// during this Viewer's lifetime, activation is immediate and emits
// model-switched; otherwise it starts a fresh fetch through the
// orchestrator (model-load-start now, model-loaded/-error/-cancelled
// later, once Tick drains it).
func (v *Viewer) LoadModel(ctx context.Context, key string) error {
	entry, ok := v.cfg.Models[key]
	if !ok {
		return fmt.Errorf("abyssviewer: unknown model key %q", key)
	}

	v.mu.Lock()
	cached, hit := v.cached[key]
	v.mu.Unlock()
	if hit {
		if _, cur, ok := v.o.CurrentModel(); !ok || cur != key {
			if m := v.o.Measurement(); m != nil {
				m.Clear() // measurements never carry over to a different model.
			}
		}
		v.o.ApplyModel(key, cached)
		v.o.Bus().Emit(viewer.EventModelSwitched, viewer.ModelSwitched{ModelInfo: viewer.ModelInfo{
			ModelKey: key, URL: cached.URL, Bounds: cached.Bounds.Size(),
		}})
		return nil
	}

	v.o.LoadModel(ctx, key, entry.URL)
	return nil
}

// Models returns the configured model keys in their declared order, for a
// host building a model-picker UI.
func (v *Viewer) Models() []string { return append([]string(nil), v.cfg.ModelOrder...) }

// ClearModels drops every cached model entry (the active one included) and
// emits models-cleared. The orchestrator itself keeps whatever is
// currently displayed — this only resets the façade's cache, so a
// subsequent LoadModel for any key performs a fresh fetch.
func (v *Viewer) ClearModels() {
	v.mu.Lock()
	v.cached = map[string]*model.Loaded{}
	v.mu.Unlock()
	v.o.Bus().Emit(viewer.EventModelsCleared, nil)
}

// PointerDown forwards the start of a click/drag gesture to the orchestrator.
func (v *Viewer) PointerDown(x, y float64) { v.o.PointerDown(x, y) }

// PointerUp completes a click/drag gesture. hits are the raycast
// candidates the host computed against the currently displayed scene graph.
func (v *Viewer) PointerUp(x, y float64, now time.Time, hits []measurement.Hit) {
	v.o.PointerUp(x, y, now, hits)
}

// Resize forwards a container resize to the orchestrator, which re-emits it
// as the public resize event.
func (v *Viewer) Resize(width, height int) { v.o.Resize(width, height) }

// SetDiveMode switches between the Survey (fog-free, no particles) and
// Dive (fog, marine-snow particles) atmospheric presets; the background
// color and lighting are not changed by the switch.
func (v *Viewer) SetDiveMode(enabled bool) { v.o.SetDiveMode(enabled) }

// On subscribes fn to event and returns a function that removes it, the
// idiomatic Go shape for the spec's subscribe/unsubscribe pair.
func (v *Viewer) On(event string, fn events.Listener) (unsubscribe func()) {
	sub := v.o.Bus().On(event, fn)
	return func() { v.o.Bus().Off(sub) }
}

// Orchestrator exposes the underlying orchestrator for operations this
// façade doesn't wrap directly (PointerUp needs raycast hits only the host
// can compute; VR comfort settings; measurement ghost-sphere wiring).
func (v *Viewer) Orchestrator() *viewer.Orchestrator { return v.o }

// Dispose tears down every subsystem; safe to call more than once.
func (v *Viewer) Dispose() {
	v.o.Dispose()
	if v.disposed {
		return
	}
	v.disposed = true
	if v.prefetch != nil {
		v.prefetch.Close()
	}
}
