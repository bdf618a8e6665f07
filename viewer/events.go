package viewer

import "github.com/gazed/vu/math/lin"

// Named events on the orchestrator/façade bus, carried verbatim from
// spec.md §6's enumeration. Each constant's comment names its payload
// type; callers subscribed to an event type-assert the payload themselves.
const (
	EventInitialized        = "initialized"         // nil payload.
	EventModelLoadStart     = "model-load-start"     // ModelLoadStart
	EventModelLoadProgress  = "model-load-progress"  // ModelLoadProgress
	EventModelLoaded        = "model-loaded"         // ModelLoaded
	EventModelLoadError     = "model-load-error"     // ModelLoadError
	EventModelLoadCancelled = "model-load-cancelled" // ModelLoadCancelled
	EventModelSwitched      = "model-switched"       // ModelSwitched
	EventModelsCleared      = "models-cleared"       // nil payload.
	EventCameraReset        = "camera-reset"         // CameraReset
	EventFocus              = "focus"                // FocusEvent
	EventVRSessionStart     = "vr-session-start"     // nil payload.
	EventVRSessionEnd       = "vr-session-end"       // nil payload.
	EventVRModeToggle       = "vr-mode-toggle"       // nil payload.
	EventVRMovementStart    = "vr-movement-start"    // nil payload.
	EventVRMovementStop     = "vr-movement-stop"     // nil payload.
	EventVRMovementUpdate   = "vr-movement-update"   // VRMovementUpdate
	EventResize             = "resize"                // ResizeEvent
	EventError              = "error"                 // error
)

// ModelLoadStart is the model-load-start payload.
type ModelLoadStart struct {
	URL string
}

// ModelLoadProgress is the model-load-progress payload.
type ModelLoadProgress struct {
	URL     string
	Loaded  int64
	Total   int64
}

// ModelInfo is the shared shape of ModelLoaded/ModelSwitched: the model
// key, its URL and its bounding-box size.
type ModelInfo struct {
	ModelKey string
	URL      string
	Bounds   lin.V3 // bounding-box size, for a host status readout.
}

// ModelLoaded is the model-loaded payload, emitted after a fresh fetch.
type ModelLoaded struct{ ModelInfo }

// ModelSwitched is the model-switched payload, emitted when the façade
// activates an already-cached model without a new fetch.
type ModelSwitched struct{ ModelInfo }

// ModelLoadError is the model-load-error payload.
type ModelLoadError struct {
	URL string
	Err error
}

// ModelLoadCancelled is the model-load-cancelled payload.
type ModelLoadCancelled struct {
	URL string
}

// CameraReset is the camera-reset payload, emitted the first time a model
// is framed.
type CameraReset struct {
	ModelKey string
	Position lin.V3
}

// FocusEvent is the focus payload, emitted when a desktop double-click
// starts a camera focus animation.
type FocusEvent struct {
	Point lin.V3
}

// VRMovementUpdate is the vr-movement-update payload.
type VRMovementUpdate struct {
	Speed       float64
	BoostLevel  float64
}

// ResizeEvent is the resize payload; the host calls Orchestrator.Resize to
// have it re-emitted here.
type ResizeEvent struct {
	Width, Height int
}
