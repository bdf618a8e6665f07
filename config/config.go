package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/fathomline/abyssviewer/logging"
	"gopkg.in/yaml.v3"
)

// Pose is a camera pose override for one modality, used by
// ModelEntry.InitialPositions (spec.md §3's model-specific initial poses
// applied by the viewer orchestrator on load and on mode transitions).
type Pose struct {
	Position [3]float64 `yaml:"position"`
	Target   [3]float64 `yaml:"target"`
}

// ModelEntry describes one entry of the models map (spec.md §3).
type ModelEntry struct {
	Key              string          `yaml:"-"`
	URL              string          `yaml:"url"`
	Name             string          `yaml:"name"`
	Credit           string          `yaml:"credit,omitempty"`
	InitialPositions map[string]Pose `yaml:"initialPositions,omitempty"`
}

// Features holds the enablement flags from spec.md §3.
type Features struct {
	HMD          bool `yaml:"hmd"`
	HMDAudio     bool `yaml:"hmdAudio"`
	Measurement  bool `yaml:"measurement"`
	DiveSystem   bool `yaml:"diveSystem"`
	Fullscreen   bool `yaml:"fullscreen"`
	ComfortGlyph bool `yaml:"comfortGlyph"`
}

// Fog mirrors the scene's exponential-squared fog parameters.
type Fog struct {
	Color [3]float64 `yaml:"color"`
	Near  float64    `yaml:"near"`
	Far   float64    `yaml:"far"`
}

// SceneConfig holds background + fog, as owned by the scene holder (C3).
type SceneConfig struct {
	Background [4]float64 `yaml:"background"`
	Fog        Fog        `yaml:"fog"`
}

// DesktopCamera holds the orbit-control tuning from spec.md §3.
type DesktopCamera struct {
	Damping     float64 `yaml:"damping"`
	MinDistance float64 `yaml:"minDistance"`
	MaxDistance float64 `yaml:"maxDistance"`
}

// CameraConfig holds the camera manager's (C4) configurable parameters.
type CameraConfig struct {
	FOV      float64       `yaml:"fov"`
	Near     float64       `yaml:"near"`
	Far      float64       `yaml:"far"`
	Position [3]float64    `yaml:"position"`
	Desktop  DesktopCamera `yaml:"desktop"`
}

// Config is the fully-validated, fully-defaulted option tree (spec.md §3).
type Config struct {
	Models      map[string]ModelEntry `yaml:"-"`
	ModelOrder  []string              `yaml:"-"` // preserves map iteration order for default selection.
	AutoLoadFirst         bool    `yaml:"autoLoadFirst"`
	InitialModel          string  `yaml:"initialModel"`
	Features              Features `yaml:"features"`
	MeasurementTheme      string  `yaml:"measurementTheme"`
	ShowMeasurementLabels bool    `yaml:"showMeasurementLabels"`
	Scene                 SceneConfig  `yaml:"scene"`
	Camera                CameraConfig `yaml:"camera"`
	HMDAudioDir           string  `yaml:"hmdAudioDir"`
}

// topLevelSchema validates every scalar/nested option except the dynamic
// "models" map, which is handled separately in Load to preserve key order.
func topLevelSchema() Schema {
	return Schema{
		"autoLoadFirst": {Kind: KBool, Default: true},
		"initialModel":  {Kind: KString, Default: ""},
		"measurementTheme": {Kind: KString, Default: "dark",
			Allowed: []any{"dark", "light"}},
		"showMeasurementLabels": {Kind: KBool, Default: false},
		"hmdAudioDir":           {Kind: KString, Default: ""},
		"features": {Kind: KMap, Default: map[string]any{}, Sub: Schema{
			"hmd":          {Kind: KBool, Default: true},
			"hmdAudio":     {Kind: KBool, Default: true},
			"measurement":  {Kind: KBool, Default: true},
			"diveSystem":   {Kind: KBool, Default: true},
			"fullscreen":   {Kind: KBool, Default: true},
			"comfortGlyph": {Kind: KBool, Default: true},
		}},
		"scene": {Kind: KMap, Default: map[string]any{}, Sub: Schema{
			"background": {Kind: KMap, Default: map[string]any{}}, // validated loosely; see decodeScene.
			"fog": {Kind: KMap, Default: map[string]any{}, Sub: Schema{
				"near": {Kind: KFloat, Default: 10.0},
				"far":  {Kind: KFloat, Default: 80.0},
			}},
		}},
		"camera": {Kind: KMap, Default: map[string]any{}, Sub: Schema{
			"fov":  {Kind: KFloat, Default: 60.0},
			"near": {Kind: KFloat, Default: 0.1},
			"far":  {Kind: KFloat, Default: 1000.0},
			"desktop": {Kind: KMap, Default: map[string]any{}, Sub: Schema{
				"damping":     {Kind: KFloat, Default: 0.08},
				"minDistance": {Kind: KFloat, Default: 0.5},
				"maxDistance": {Kind: KFloat, Default: 100.0},
			}},
		}},
	}
}

// Default returns a Config with every option at its schema default and
// an empty model registry — the zero-config embedding case.
func Default() *Config {
	cfg, _ := FromRaw(map[string]any{}, logging.Discard())
	return cfg
}

// Load reads a YAML document from path and produces a validated Config.
// JSON is accepted too: JSON is a syntactic subset of YAML, so the same
// decoder handles an embedder that serializes its options as JSON (e.g. a
// browser host round-tripping a JS options object).
func Load(path string, log logging.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, log)
}

// Parse validates a raw YAML/JSON document into a Config. Unlike a plain
// map[string]any decode, Parse first walks a yaml.Node document tree to
// recover the declaration order of the "models" mapping — Go maps don't
// preserve insertion order, but spec.md §3 requires it for default-model
// selection, so the order has to be captured before anything touches a map.
func Parse(data []byte, log logging.Logger) (*Config, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	order, err := modelKeyOrder(data)
	if err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return fromRaw(raw, order, log)
}

// FromRaw validates an already-decoded option tree (e.g. handed over by a
// host that parsed its own config file) into a Config. Because map
// iteration order is not recoverable from an already-decoded
// map[string]any, model order falls back to lexical sort — callers that
// need the original declaration order should use Parse on the raw bytes
// instead.
func FromRaw(raw map[string]any, log logging.Logger) (*Config, error) {
	return fromRaw(raw, nil, log)
}

func fromRaw(raw map[string]any, order []string, log logging.Logger) (*Config, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	validated := Validate(raw, topLevelSchema(), log)

	cfg := &Config{
		AutoLoadFirst:         validated["autoLoadFirst"].(bool),
		InitialModel:          validated["initialModel"].(string),
		MeasurementTheme:      validated["measurementTheme"].(string),
		ShowMeasurementLabels: validated["showMeasurementLabels"].(bool),
		HMDAudioDir:           validated["hmdAudioDir"].(string),
	}
	cfg.Features = decodeFeatures(validated["features"].(map[string]any))
	cfg.Scene = decodeScene(validated["scene"].(map[string]any))
	cfg.Camera = decodeCamera(validated["camera"].(map[string]any))

	models, resolvedOrder, err := decodeModels(raw["models"], order)
	if err != nil {
		return nil, err
	}
	cfg.Models = models
	cfg.ModelOrder = resolvedOrder
	if cfg.InitialModel == "" && cfg.AutoLoadFirst && len(resolvedOrder) > 0 {
		cfg.InitialModel = resolvedOrder[0]
	}
	return cfg, nil
}

// modelKeyOrder walks the document looking for a top-level "models"
// mapping and returns its keys in declaration order.
func modelKeyOrder(data []byte) ([]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, nil
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Value == "models" {
			models := root.Content[i+1]
			order := make([]string, 0, len(models.Content)/2)
			for j := 0; j+1 < len(models.Content); j += 2 {
				order = append(order, models.Content[j].Value)
			}
			return order, nil
		}
	}
	return nil, nil
}

func decodeFeatures(m map[string]any) Features {
	return Features{
		HMD:          boolOr(m["hmd"], true),
		HMDAudio:     boolOr(m["hmdAudio"], true),
		Measurement:  boolOr(m["measurement"], true),
		DiveSystem:   boolOr(m["diveSystem"], true),
		Fullscreen:   boolOr(m["fullscreen"], true),
		ComfortGlyph: boolOr(m["comfortGlyph"], true),
	}
}

func decodeScene(m map[string]any) SceneConfig {
	sc := SceneConfig{Background: [4]float64{0.02, 0.08, 0.12, 1.0}}
	if bg, ok := m["background"].(map[string]any); ok {
		sc.Background = [4]float64{
			floatOr(bg["r"], sc.Background[0]),
			floatOr(bg["g"], sc.Background[1]),
			floatOr(bg["b"], sc.Background[2]),
			floatOr(bg["a"], sc.Background[3]),
		}
	}
	if fog, ok := m["fog"].(map[string]any); ok {
		sc.Fog.Near = floatOr(fog["near"], 10.0)
		sc.Fog.Far = floatOr(fog["far"], 80.0)
		sc.Fog.Color = [3]float64{sc.Background[0], sc.Background[1], sc.Background[2]} // default fog tint to background.
		if c, ok := fog["color"].([]any); ok && len(c) == 3 {
			for i := 0; i < 3; i++ {
				sc.Fog.Color[i] = floatOr(c[i], sc.Fog.Color[i])
			}
		}
	}
	return sc
}

func decodeCamera(m map[string]any) CameraConfig {
	cam := CameraConfig{
		FOV:      floatOr(m["fov"], 60.0),
		Near:     floatOr(m["near"], 0.1),
		Far:      floatOr(m["far"], 1000.0),
		Position: [3]float64{0, 1.6, 5},
	}
	if d, ok := m["desktop"].(map[string]any); ok {
		cam.Desktop = DesktopCamera{
			Damping:     floatOr(d["damping"], 0.08),
			MinDistance: floatOr(d["minDistance"], 0.5),
			MaxDistance: floatOr(d["maxDistance"], 100.0),
		}
	} else {
		cam.Desktop = DesktopCamera{Damping: 0.08, MinDistance: 0.5, MaxDistance: 100.0}
	}
	return cam
}

// decodeModels validates each model entry. knownOrder, when non-nil, is
// the declaration order recovered by modelKeyOrder; otherwise keys are
// sorted lexically so the result is at least deterministic.
func decodeModels(raw any, knownOrder []string) (map[string]ModelEntry, []string, error) {
	models := map[string]ModelEntry{}
	m, ok := raw.(map[string]any)
	if !ok {
		return models, nil, nil
	}
	for key, v := range m {
		entryMap, _ := v.(map[string]any)
		entry := ModelEntry{Key: key}
		entry.URL, _ = entryMap["url"].(string)
		entry.Name, _ = entryMap["name"].(string)
		entry.Credit, _ = entryMap["credit"].(string)
		entry.InitialPositions = decodeInitialPositions(entryMap["initialPositions"])
		if entry.URL == "" {
			return nil, nil, fmt.Errorf("config: model %q missing required url", key)
		}
		models[key] = entry
	}

	order := knownOrder
	if order == nil {
		order = make([]string, 0, len(models))
		for key := range models {
			order = append(order, key)
		}
		sort.Strings(order)
	}
	return models, order, nil
}

// decodeInitialPositions decodes a model entry's per-modality pose
// overrides ("hmd"/"desktop" keyed, per spec.md §3), applied by
// viewer.applyInitialPose on load and on HMD session transitions.
func decodeInitialPositions(raw any) map[string]Pose {
	m, ok := raw.(map[string]any)
	if !ok || len(m) == 0 {
		return nil
	}
	out := make(map[string]Pose, len(m))
	for modality, v := range m {
		pm, ok := v.(map[string]any)
		if !ok {
			continue
		}
		out[modality] = Pose{
			Position: decodeVec3(pm["position"]),
			Target:   decodeVec3(pm["target"]),
		}
	}
	return out
}

func decodeVec3(raw any) [3]float64 {
	var v [3]float64
	if a, ok := raw.([]any); ok {
		for i := 0; i < 3 && i < len(a); i++ {
			v[i] = floatOr(a[i], 0)
		}
	}
	return v
}

func boolOr(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}

func floatOr(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return def
}
