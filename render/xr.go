package render

import "context"

// Hand identifies which controller/hand a sample came from.
type Hand int

const (
	Left Hand = iota
	Right
)

// Gamepad is a standard WebXR gamepad-mapping snapshot for one hand:
// axes[2],axes[3] carry the thumbstick per spec.md §4.1, and Buttons is
// indexed the same way a browser's Gamepad.buttons array is (index 1 is
// grip, indices 4/5 are the X/Y or A/B face buttons used for mode-toggle).
type Gamepad struct {
	Connected  bool
	StickX     float64
	StickY     float64
	Buttons    [8]bool // pressed state, indices per the WebXR standard gamepad mapping.
}

// HandJoints carries the subset of WebXR hand-tracking joints the
// pinch/fist fallback needs (spec.md §4.1's hand-tracking fallback).
type HandJoints struct {
	Present   bool
	ThumbTip  Vec3
	IndexTip  Vec3
	MiddleTip Vec3
	RingTip   Vec3
	PinkyTip  Vec3
	Wrist     Vec3
}

// Vec3 is a plain coordinate triple for the render-boundary input types,
// kept distinct from lin.V3 so this package's public API doesn't force
// every host implementation to import the math library just to satisfy
// a struct literal.
type Vec3 struct{ X, Y, Z float64 }

// ControllerPose is a tracked controller or hand's world-space pose,
// needed for teleport-arc construction (origin + forward direction).
type ControllerPose struct {
	Position Vec3
	Forward  Vec3 // unit vector, controller's local -Z in world space.
}

// InputSample is everything the VR coordinator reads once per tick from
// the XR surface, for both hands.
type InputSample struct {
	Gamepad [2]Gamepad    // indexed by Hand.
	Hand    [2]HandJoints // indexed by Hand.
	Pose    [2]ControllerPose
}

// SessionEvent is delivered to the callback registered with OnSessionEnd.
type SessionEvent struct {
	Reason string // e.g. "user", "lost-connection".
}

// XRSurface mirrors a WebXR XRSession/XRFrame pair: the session
// lifecycle, the per-frame input sample, and the rig-level transform the
// coordinator drives. The host owns the actual WebXR API calls.
type XRSurface interface {
	// Supported reports whether the host device can present at all —
	// used to keep the HMD button visible-but-disabled per spec.md §7.
	Supported(ctx context.Context) bool

	// RequestSession asks the host to start presenting. The returned
	// error is nil only once presentation has actually begun.
	RequestSession(ctx context.Context) error
	// EndSession asks the host to stop presenting.
	EndSession(ctx context.Context) error
	// OnSessionEnd registers a callback invoked when the session ends for
	// any reason, including ones the core did not initiate (e.g. the user
	// removed the headset) — spec.md §4.1's "surfaced to the orchestrator
	// via the session-end callback" even without a terminating event.
	OnSessionEnd(fn func(SessionEvent))

	// PollInput returns this tick's controller/hand sample.
	PollInput() InputSample

	// SetRigTransform sets the dolly/rig's world position and yaw-only
	// rotation (radians about +Y), per the glossary's "Dolly / rig".
	SetRigTransform(pos Vec3, yaw float64)
	RigTransform() (pos Vec3, yaw float64)
}
