package viewer

import (
	"math"
	"time"

	"github.com/fathomline/abyssviewer/measurement"
)

// clickTracker duplicates measurement's drag/double-click detection for
// use when the measurement subsystem is disabled (spec.md §6: double-click
// still focuses the camera even with measurement off). Kept as a small
// standalone type rather than a partial measurement.Subsystem so this
// package never instantiates scene nodes it has no use for.
type clickTracker struct {
	start       [2]float64
	dragging    bool
	lastClickAt time.Time
}

func (c *clickTracker) down(x, y float64) {
	c.start = [2]float64{x, y}
	c.dragging = true
}

// up reports whether (x,y) completes a double-click, per the same
// drag-threshold and double-click-window constants measurement.Subsystem
// uses.
func (c *clickTracker) up(x, y float64, now time.Time) bool {
	wasDragging := c.dragging
	c.dragging = false
	if !wasDragging {
		return false
	}
	dx, dy := x-c.start[0], y-c.start[1]
	if math.Hypot(dx, dy) > measurement.DragThresholdPixels {
		return false
	}
	isDouble := !c.lastClickAt.IsZero() && now.Sub(c.lastClickAt) <= measurement.DoubleClickThreshold
	if isDouble {
		c.lastClickAt = time.Time{}
	} else {
		c.lastClickAt = now
	}
	return isDouble
}
