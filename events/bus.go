// Package events implements a named-event publish/subscribe bus. Each
// event name keeps its own ordered listener sequence; a listener panic is
// isolated and logged rather than allowed to stop sibling listeners or
// the emitting caller, per the error-handling design in SPEC_FULL.md §7.
package events

import (
	"context"
	"sync"

	"github.com/fathomline/abyssviewer/logging"
)

// Listener receives the payload passed to Emit. Payloads are the typed
// event-data structs documented next to each constant in viewer/events.go;
// callers type-assert based on the event name they subscribed to.
type Listener func(payload any)

// Bus is a synchronous, single-threaded pub/sub registry. Emit delivers to
// all subscribers of an event, in subscription order, before returning —
// there is no queuing or async dispatch, matching the cooperative,
// single-threaded scheduling model in SPEC_FULL.md §5.
type Bus struct {
	mu        sync.Mutex // guards listeners; Emit itself still runs serially.
	listeners map[string][]entry
	seq       uint64
	log       logging.Logger
}

type entry struct {
	id uint64
	fn Listener
}

// New creates an empty bus. A nil logger falls back to logging.Default().
func New(log logging.Logger) *Bus {
	if log == nil {
		log = logging.Default()
	}
	return &Bus{listeners: map[string][]entry{}, log: log}
}

// Subscription identifies a listener for targeted removal via Off.
type Subscription struct {
	event string
	id    uint64
}

// On subscribes fn to event, appending it to that event's listener
// sequence. The returned Subscription can be passed to Off.
func (b *Bus) On(event string, fn Listener) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	sub := Subscription{event: event, id: b.seq}
	b.listeners[event] = append(b.listeners[event], entry{id: sub.id, fn: fn})
	return sub
}

// Off removes a single listener identified by Subscription.
func (b *Bus) Off(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	list := b.listeners[sub.event]
	for i, e := range list {
		if e.id == sub.id {
			b.listeners[sub.event] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// OffAll removes every listener registered for event.
func (b *Bus) OffAll(event string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, event)
}

// Emit delivers payload to every listener of event, in subscription
// order. A listener that panics is recovered and logged; the remaining
// listeners still run.
func (b *Bus) Emit(event string, payload any) {
	b.mu.Lock()
	list := make([]entry, len(b.listeners[event]))
	copy(list, b.listeners[event])
	b.mu.Unlock()

	ctx := context.Background()
	for _, e := range list {
		fn := e.fn
		logging.RecoverListener(ctx, b.log, event, func() { fn(payload) })
	}
}

// ListenerCount reports how many listeners are registered for event,
// mostly useful for tests asserting removal worked.
func (b *Bus) ListenerCount(event string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners[event])
}
