package vr

// AudioSink is the host boundary for the locomotion audio feedback
// spec.md §4.1 calls for: a continuous movement level while moving, and a
// brief tone on a failed teleport release. Wrapping a host-provided sink
// behind a small interface instead of reaching for a concrete audio
// package mirrors the teacher's own sound.go, which wraps the engine's
// audio.Data behind the sounds manager rather than exposing it directly.
type AudioSink interface {
	Start()
	Stop()
	SetLevel(level float64)
	PlayFailureTone()
}

// SetAudioSink attaches (or detaches, with nil) the audio feedback
// surface. The coordinator calls the sink directly: Start/Stop when
// movement starts or stops, SetLevel every tick while moving, and
// PlayFailureTone on a failed teleport release. The movement and
// teleport-failed events are emitted on the bus as well, for any other
// listeners.
func (c *Coordinator) SetAudioSink(sink AudioSink) {
	c.audio = sink
}
