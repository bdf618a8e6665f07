package config

import "testing"

func TestDefaultsAppliedWhenEmpty(t *testing.T) {
	cfg, err := Parse([]byte(``), nil)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.AutoLoadFirst {
		t.Error("expected AutoLoadFirst default true")
	}
	if cfg.MeasurementTheme != "dark" {
		t.Errorf("got theme %q want dark", cfg.MeasurementTheme)
	}
	if cfg.ShowMeasurementLabels {
		t.Error("expected ShowMeasurementLabels default false")
	}
}

func TestInvalidAllowedValueFallsBackToDefault(t *testing.T) {
	cfg, err := Parse([]byte(`measurementTheme: neon`), nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MeasurementTheme != "dark" {
		t.Errorf("got %q want dark fallback", cfg.MeasurementTheme)
	}
}

func TestModelOrderPreserved(t *testing.T) {
	doc := []byte(`
models:
  wreck-b:
    url: "https://example/b.glb"
  wreck-a:
    url: "https://example/a.glb"
  wreck-c:
    url: "https://example/c.glb"
`)
	cfg, err := Parse(doc, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"wreck-b", "wreck-a", "wreck-c"}
	if len(cfg.ModelOrder) != len(want) {
		t.Fatalf("got %v want %v", cfg.ModelOrder, want)
	}
	for i, k := range want {
		if cfg.ModelOrder[i] != k {
			t.Fatalf("got %v want %v", cfg.ModelOrder, want)
		}
	}
	if cfg.InitialModel != "wreck-b" {
		t.Errorf("got initial model %q want wreck-b (first declared)", cfg.InitialModel)
	}
}

func TestModelInitialPositionsDecoded(t *testing.T) {
	doc := []byte(`
models:
  wreck:
    url: "https://example/wreck.glb"
    initialPositions:
      hmd:
        position: [0, 2, 10]
        target: [0, 1, 0]
      desktop:
        position: [5, 5, 5]
        target: [0, 0, 0]
`)
	cfg, err := Parse(doc, nil)
	if err != nil {
		t.Fatal(err)
	}
	entry, ok := cfg.Models["wreck"]
	if !ok {
		t.Fatal("expected wreck model entry")
	}
	hmd, ok := entry.InitialPositions["hmd"]
	if !ok {
		t.Fatal("expected an hmd initial position")
	}
	if hmd.Position != [3]float64{0, 2, 10} || hmd.Target != [3]float64{0, 1, 0} {
		t.Errorf("unexpected hmd pose: %+v", hmd)
	}
	desktop, ok := entry.InitialPositions["desktop"]
	if !ok {
		t.Fatal("expected a desktop initial position")
	}
	if desktop.Position != [3]float64{5, 5, 5} {
		t.Errorf("unexpected desktop pose: %+v", desktop)
	}
}

func TestModelMissingURLRejected(t *testing.T) {
	doc := []byte(`
models:
  bad:
    name: "No URL"
`)
	if _, err := Parse(doc, nil); err == nil {
		t.Fatal("expected error for model missing url")
	}
}

func TestFeatureFlagsDefaultTrue(t *testing.T) {
	cfg := Default()
	if !cfg.Features.Measurement || !cfg.Features.HMD || !cfg.Features.DiveSystem {
		t.Errorf("expected feature flags to default true, got %+v", cfg.Features)
	}
}
