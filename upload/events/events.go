// Package events is the notification surface of the upload engine: named
// events with any number of independent listeners each.
package events

import "sync"

// Name identifies an event emitted by the upload engine.
type Name string

const (
	// Progress carries the overall upload progress. Payload: ProgressEvent
	Progress Name = "progress"

	// Attempt is sent when a chunk is dispatched. Payload: ChunkAttemptEvent
	Attempt Name = "attempt"

	// ChunkAttempt fires together with Attempt and carries the same payload.
	ChunkAttempt Name = "chunkAttempt"

	// ChunkSuccess is sent after a chunk's transport succeeded.
	// Payload: ChunkSuccessEvent
	ChunkSuccess Name = "chunkSuccess"

	// ChunkAttemptFailure is sent for a transient chunk failure that will be
	// retried. Payload: ChunkAttemptFailureEvent
	ChunkAttemptFailure Name = "chunkAttemptFailure"

	// Error is sent exactly once for any terminal failure. Payload: ErrorEvent
	Error Name = "error"

	// Success is sent exactly once when the whole upload finished. Payload: nil
	Success Name = "success"

	// Online and Offline report connectivity transitions. Payload: StatusEvent
	Online  Name = "online"
	Offline Name = "offline"
)

// Handler receives the payload of an emitted event.
type Handler func(payload interface{})

type subscription struct {
	id int
	fn Handler
}

// Emitter dispatches named events to subscribed handlers, synchronously and
// in subscription order. The zero value is not usable, call NewEmitter.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[Name][]subscription
	nextID   int
}

// NewEmitter creates an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{handlers: map[Name][]subscription{}}
}

// On subscribes fn to the named event and returns an unsubscribe func.
func (e *Emitter) On(name Name, fn Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.handlers[name] = append(e.handlers[name], subscription{id: id, fn: fn})

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()

		subs := e.handlers[name]
		for i, s := range subs {
			if s.id == id {
				e.handlers[name] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Emit calls every handler subscribed to the named event with the payload.
func (e *Emitter) Emit(name Name, payload interface{}) {
	e.mu.RLock()
	subs := make([]subscription, len(e.handlers[name]))
	copy(subs, e.handlers[name])
	e.mu.RUnlock()

	for _, s := range subs {
		s.fn(payload)
	}
}
