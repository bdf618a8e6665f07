package particles

import (
	"testing"

	"github.com/fathomline/abyssviewer/render"
	"github.com/fathomline/abyssviewer/render/noop"
	"github.com/gazed/vu/math/lin"
)

func smallBounds() render.Bounds {
	// Expanded by 2.5 this is well under the 5000 m³ low-density bracket.
	return render.Bounds{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}
}

func TestTargetCountClampedToMinimum(t *testing.T) {
	if got := TargetCount(smallBounds()); got != minCount {
		t.Errorf("got %d want minimum %d", got, minCount)
	}
}

func TestTargetCountClampedToMaximum(t *testing.T) {
	huge := render.Bounds{Min: lin.V3{X: -100, Y: -100, Z: -100}, Max: lin.V3{X: 100, Y: 100, Z: 100}}
	if got := TargetCount(huge); got != maxCount {
		t.Errorf("got %d want maximum %d", got, maxCount)
	}
}

func TestNewFieldUploadsBuffersMatchingCount(t *testing.T) {
	r := noop.New()
	f := New(r, smallBounds(), 1)
	if f.Count() != minCount {
		t.Fatalf("expected clamp to minimum, got %d", f.Count())
	}
	if got := r.ParticleCount(f.node); got != minCount {
		t.Errorf("uploaded particle count %d != field count %d", got, minCount)
	}
}

// TestParticleRebuildThreshold is the literal boundary scenario from
// spec.md §8: current count 1000, new computed count 1150 redistributes
// (diff 150 <= 200); new computed count 1300 rebuilds (diff 300 > 200).
func TestParticleRebuildThreshold(t *testing.T) {
	if rebuildNeeded(1000, 1150) {
		t.Error("diff of 150 against 1000 (threshold 200) should redistribute, not rebuild")
	}
	if !rebuildNeeded(1000, 1300) {
		t.Error("diff of 300 against 1000 (threshold 200) should force a rebuild")
	}
}

func TestUpdateBoundsRedistributeKeepsNodeAndCount(t *testing.T) {
	r := noop.New()
	f := New(r, smallBounds(), 1)
	node := f.node
	count := f.count

	// A tiny bump in volume that keeps TargetCount within the same
	// clamped-to-minimum bucket should redistribute, not rebuild.
	res := f.UpdateBounds(render.Bounds{Min: lin.V3{X: -1.01, Y: -1, Z: -1}, Max: lin.V3{X: 1.01, Y: 1, Z: 1}})
	if res.Rebuilt {
		t.Fatal("expected redistribute for an unchanged clamped count")
	}
	if f.node != node {
		t.Error("redistribute must not replace the node handle")
	}
	if f.count != count {
		t.Error("redistribute must not change particle count")
	}
}

func TestUpdateBoundsRebuildReplacesNode(t *testing.T) {
	r := noop.New()
	f := New(r, smallBounds(), 1)
	oldNode := f.node

	huge := render.Bounds{Min: lin.V3{X: -100, Y: -100, Z: -100}, Max: lin.V3{X: 100, Y: 100, Z: 100}}
	res := f.UpdateBounds(huge)
	if !res.Rebuilt {
		t.Fatal("expected a full rebuild when jumping from 100 to 8000 particles")
	}
	if f.node == oldNode {
		t.Error("rebuild must dispose the old node and create a new one")
	}
	if got := r.ParticleCount(f.node); got != f.count {
		t.Errorf("uploaded count %d != field count %d after rebuild", got, f.count)
	}
}

func TestPopulatePositionsWithinBounds(t *testing.T) {
	r := noop.New()
	f := New(r, smallBounds(), 7)
	for i := 0; i < len(f.positions); i += 3 {
		x, y, z := f.positions[i], f.positions[i+1], f.positions[i+2]
		if float64(x) < f.bounds.Min.X || float64(x) > f.bounds.Max.X {
			t.Fatalf("x %v outside bounds %+v", x, f.bounds)
		}
		if float64(y) < f.bounds.Min.Y || float64(y) > f.bounds.Max.Y {
			t.Fatalf("y %v outside bounds %+v", y, f.bounds)
		}
		if float64(z) < f.bounds.Min.Z || float64(z) > f.bounds.Max.Z {
			t.Fatalf("z %v outside bounds %+v", z, f.bounds)
		}
	}
}
