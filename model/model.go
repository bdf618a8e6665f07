// Package model adapts the external glTF loader (render.ModelSource,
// spec.md component C5) into the viewer's cooperative task queue: a load
// request runs on its own goroutine (the module's only other concurrency
// is the Prefetcher's worker pool), and its result is delivered back to the single-threaded tick
// loop through a channel the orchestrator drains once per tick — mirrored
// on the teacher's own loader.go, which runs asset requests as goroutines
// and hands results back to the engine's update loop over a channel
// rather than letting loader goroutines touch engine state directly.
package model

import (
	"context"
	"math"

	"github.com/fathomline/abyssviewer/render"
	"github.com/gazed/vu/math/lin"
)

// Loaded is ModelEntry "as loaded" from spec.md §3: centered at the
// world origin, with its bounding box recomputed after centering.
type Loaded struct {
	Key          string
	URL          string
	Root         render.NodeHandle
	Bounds       render.Bounds // post-centering.
	CenterOffset lin.V3        // translation applied to center the model.
}

// Result is returned by Loader.Drain for the orchestrator to turn
// into model-loaded / model-load-error / model-load-cancelled events.
type Result struct {
	Key       string
	Loaded    *Loaded
	Err       error
	Cancelled bool
}

// ProgressEvent is returned by Loader.DrainProgress.
type ProgressEvent struct {
	Key      string
	URL      string
	Progress render.Progress
}

// Loader issues model loads against a render.ModelSource, canceling any
// in-flight load when a new one is requested (spec.md §5: "any in-flight
// load is canceled when a new load is requested").
type Loader struct {
	source   render.ModelSource
	renderer render.Renderer

	results  chan Result
	progress chan ProgressEvent

	cancel context.CancelFunc
}

// New creates a Loader. Channel capacity is small and non-blocking reads
// (Drain/DrainProgress) are expected every tick, so a full channel would
// only indicate the host stopped calling Tick.
func New(source render.ModelSource, renderer render.Renderer) *Loader {
	return &Loader{
		source:   source,
		renderer: renderer,
		results:  make(chan Result, 4),
		progress: make(chan ProgressEvent, 16),
	}
}

// Load cancels any in-flight load and starts a new one for key/url. The
// result arrives later; call Drain once per tick to collect it.
func (l *Loader) Load(ctx context.Context, key, url string) {
	if l.cancel != nil {
		l.cancel() // cancel whatever was in flight; becomes a Cancelled result.
	}
	loadCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel

	go func() {
		loaded, err := l.source.Load(loadCtx, url, func(p render.Progress) {
			select {
			case l.progress <- ProgressEvent{Key: key, URL: url, Progress: p}:
			default: // drop progress ticks if the host is behind; not a correctness issue.
			}
		})
		result := Result{Key: key}
		switch {
		case err == context.Canceled:
			result.Cancelled = true
		case err != nil:
			result.Err = err
		default:
			result.Loaded = center(key, url, loaded, l.renderer)
		}
		l.results <- result
	}()
}

// Cancel aborts any in-flight load without starting a new one, used by the
// orchestrator's dispose path to stop a pending fetch cleanly.
func (l *Loader) Cancel() {
	if l.cancel != nil {
		l.cancel()
	}
}

// Drain returns all results available without blocking. Call once per
// tick from the single-threaded orchestrator.
func (l *Loader) Drain() []Result {
	var out []Result
	for {
		select {
		case r := <-l.results:
			out = append(out, r)
		default:
			return out
		}
	}
}

// DrainProgress returns all progress events available without blocking.
func (l *Loader) DrainProgress() []ProgressEvent {
	var out []ProgressEvent
	for {
		select {
		case p := <-l.progress:
			out = append(out, p)
		default:
			return out
		}
	}
}

// center translates the loaded root so its bounding-box center sits at
// the world origin, then recomputes the bounds, per spec.md §3's
// ModelEntry invariant.
func center(key, url string, loaded *render.LoadedModel, r render.Renderer) *Loaded {
	c := loaded.Bounds.Center()
	offset := lin.V3{X: -c.X, Y: -c.Y, Z: -c.Z}
	r.SetTransform(loaded.Root, offset, lin.Q{W: 1})
	centered := render.Bounds{
		Min: lin.V3{X: loaded.Bounds.Min.X + offset.X, Y: loaded.Bounds.Min.Y + offset.Y, Z: loaded.Bounds.Min.Z + offset.Z},
		Max: lin.V3{X: loaded.Bounds.Max.X + offset.X, Y: loaded.Bounds.Max.Y + offset.Y, Z: loaded.Bounds.Max.Z + offset.Z},
	}
	return &Loaded{Key: key, URL: url, Root: loaded.Root, Bounds: centered, CenterOffset: offset}
}

// BoundingRadius returns a scalar radius useful for framing the camera,
// the largest half-extent of the bounds.
func BoundingRadius(b render.Bounds) float64 {
	s := b.Size()
	return math.Max(s.X, math.Max(s.Y, s.Z)) / 2
}
