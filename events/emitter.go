// Package events provides the synchronous event emitter used for the SDK's
// domain events (ready, balance updates, token lifecycle, logout).
package events

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handler receives the payload of an emitted event.
type Handler func(payload any)

// Subscription identifies a registered handler so it can be removed.
type Subscription struct {
	event string
	id    uint64
}

type registration struct {
	id      uint64
	handler Handler
	once    bool
}

// Emitter dispatches events synchronously to all handlers registered for the
// event name. Handlers are isolated: one panicking handler does not prevent
// the rest from running.
type Emitter struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[string][]registration
	logger   zerolog.Logger
}

// NewEmitter creates an emitter. The logger is only used to report recovered
// handler panics; pass zerolog.Nop() to silence it.
func NewEmitter(logger zerolog.Logger) *Emitter {
	return &Emitter{
		handlers: make(map[string][]registration),
		logger:   logger,
	}
}

// On registers a handler for the named event.
func (e *Emitter) On(event string, handler Handler) *Subscription {
	return e.register(event, handler, false)
}

// Once registers a handler that is removed after its first invocation.
func (e *Emitter) Once(event string, handler Handler) *Subscription {
	return e.register(event, handler, true)
}

func (e *Emitter) register(event string, handler Handler, once bool) *Subscription {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	e.handlers[event] = append(e.handlers[event], registration{
		id:      e.nextID,
		handler: handler,
		once:    once,
	})
	return &Subscription{event: event, id: e.nextID}
}

// Off removes a previously registered handler. Removing an already removed
// subscription is a no-op.
func (e *Emitter) Off(sub *Subscription) {
	if sub == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.removeLocked(sub.event, sub.id)
}

func (e *Emitter) removeLocked(event string, id uint64) {
	regs := e.handlers[event]
	for i := range regs {
		if regs[i].id == id {
			e.handlers[event] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// RemoveAll drops every handler, for teardown.
func (e *Emitter) RemoveAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = make(map[string][]registration)
}

// Emit invokes all handlers for the event, in registration order, on the
// calling goroutine. Once-handlers are unregistered before they run, so a
// reentrant Emit cannot invoke them twice.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.Lock()
	regs := make([]registration, len(e.handlers[event]))
	copy(regs, e.handlers[event])
	for _, r := range regs {
		if r.once {
			e.removeLocked(event, r.id)
		}
	}
	e.mu.Unlock()

	for _, r := range regs {
		e.invoke(event, r.handler, payload)
	}
}

func (e *Emitter) invoke(event string, handler Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().Str("event", event).Interface("panic", r).Msg("event handler panicked")
		}
	}()
	handler(payload)
}
