package render

import "context"

// Progress reports bytes loaded/total for a model-load-progress event.
type Progress struct {
	Loaded int64
	Total  int64
}

// LoadedModel is what the external glTF loader adapter (C5) produces:
// a scene subgraph handle and its computed bounding volume, both still
// opaque to the core beyond the NodeHandle/Bounds contract.
type LoadedModel struct {
	Root   NodeHandle
	Bounds Bounds
}

// ModelSource is the out-of-scope glTF loader from spec.md §1: it fetches
// and decodes a binary glTF (optionally vertex-quantized, geometry- and
// texture-block compressed) and yields a scene subgraph. The core only
// ever sees the interface below.
type ModelSource interface {
	// Load fetches and decodes the asset at url, reporting progress via
	// onProgress (may be called zero or more times before returning).
	// Canceling ctx must make Load return ctx.Err() promptly — the
	// caller translates context.Canceled into model-load-cancelled
	// rather than model-load-error, per SPEC_FULL.md §7.
	Load(ctx context.Context, url string, onProgress func(Progress)) (*LoadedModel, error)
}
