package model

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fathomline/abyssviewer/render"
)

type fixedSource struct {
	bounds render.Bounds
	fail   bool
}

func (s fixedSource) Load(ctx context.Context, url string, onProgress func(render.Progress)) (*render.LoadedModel, error) {
	if s.fail {
		return nil, errors.New("decode failed")
	}
	return &render.LoadedModel{Root: "node", Bounds: s.bounds}, nil
}

func TestPrefetcherDeliversResultsForEveryRequest(t *testing.T) {
	source := fixedSource{bounds: render.Bounds{}}
	p := NewPrefetcher(source, 2)
	defer p.Close()

	keys := []string{"a", "b", "c"}
	for _, k := range keys {
		p.Prefetch(context.Background(), k, "http://example.test/"+k+".glb")
	}

	seen := map[string]bool{}
	deadline := time.Now().Add(2 * time.Second)
	for len(seen) < len(keys) {
		for _, r := range p.Drain() {
			seen[r.Key] = true
			if r.Err != nil {
				t.Errorf("unexpected error for %s: %v", r.Key, r.Err)
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for prefetch results, got %d/%d", len(seen), len(keys))
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPrefetcherPropagatesSourceErrors(t *testing.T) {
	p := NewPrefetcher(fixedSource{fail: true}, 1)
	defer p.Close()

	p.Prefetch(context.Background(), "broken", "http://example.test/broken.glb")

	deadline := time.Now().Add(2 * time.Second)
	for {
		results := p.Drain()
		if len(results) > 0 {
			if results[0].Err == nil {
				t.Fatal("expected the source's error to propagate")
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for prefetch result")
		}
		time.Sleep(time.Millisecond)
	}
}
