package vr

// SetComfort applies new comfort settings mid-session, comparing against
// the prior settings and reacting per spec.md §4.1: a locomotion-mode
// change clears any in-flight teleport aim (this package draws no
// teleport visuals; TeleportArcState reports none afterwards), a
// turning-mode change
// resets the snap cooldown, and a reduced-motion change takes effect on
// the very next tick with no snapshot needed.
func (c *Coordinator) SetComfort(settings ComfortSettings) {
	prior := c.comfort
	c.comfort = settings

	if prior.LocomotionMode != settings.LocomotionMode {
		c.ResetTeleportState()
	}
	if prior.TurningMode != settings.TurningMode {
		c.snapCooldownLeft = 0
	}
	// ReducedMotion is read live from c.comfort every tick in
	// locomotion.go, so no further action is needed for it here.
}

// Comfort returns the currently active comfort settings.
func (c *Coordinator) Comfort() ComfortSettings { return c.comfort }
