package vr

import "github.com/fathomline/abyssviewer/render"

// buttonEdges tracks pressed state keyed by (hand, buttonIndex), the same
// shape as the teacher's device/input.go recordPress/recordRelease
// pressed-bit map, adapted from keyboard keys to controller buttons.
type buttonEdges map[[2]int]bool

// risingEdge reports whether button (hand,index) transitioned from not
// pressed to pressed since the last call, updating the remembered state.
func (b buttonEdges) risingEdge(hand render.Hand, index int, pressed bool) bool {
	key := [2]int{int(hand), index}
	was := b[key]
	b[key] = pressed
	return pressed && !was
}

// handState is the per-hand pinch/fist fallback state (hand.go).
type handState struct {
	pinching bool
	gripping bool
}

// sampleControllers reads both hands' mode-toggle buttons (indices 4 and
// 5, per spec.md §4.1 step 1) and emits "mode-toggle" on a rising edge.
// It also runs the hand-tracking fallback (hand.go) for any hand with no
// connected gamepad.
func (c *Coordinator) sampleControllers(input render.InputSample) {
	if c.buttons == nil {
		c.buttons = buttonEdges{}
	}
	for _, hand := range []render.Hand{render.Left, render.Right} {
		gp := input.Gamepad[hand]
		if gp.Connected {
			for _, idx := range [2]int{4, 5} {
				if c.buttons.risingEdge(hand, idx, gp.Buttons[idx]) {
					c.emitModeToggle()
				}
			}
		} else {
			c.sampleHandFallback(hand, input.Hand[hand])
		}
	}
}

func (c *Coordinator) emitModeToggle() {
	if c.onModeToggle != nil {
		c.onModeToggle()
	}
	c.bus.Emit("mode-toggle", nil)
}

// grip reports whether the grip button (index 1) is pressed for hand,
// from either its gamepad or its hand-tracking fist fallback.
func (c *Coordinator) grip(hand render.Hand, input render.InputSample) bool {
	gp := input.Gamepad[hand]
	if gp.Connected {
		return gp.Buttons[1]
	}
	return c.hand[hand].gripping
}
