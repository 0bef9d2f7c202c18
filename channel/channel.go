package channel

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Sentinel errors for send failures.
var (
	ErrNotChildFrame = errors.New("not running in a child frame")
	ErrClosed        = errors.New("channel closed")
)

// Transport moves encoded messages between the two ends of a parent/child
// link. Implementations stamp the sender origin on outbound messages and
// deliver inbound ones to the receiver callback.
type Transport interface {
	// Send posts a message to the counterpart end.
	Send(Message) error
	// SetReceiver installs the inbound delivery callback. It must be set
	// before the first message can arrive.
	SetReceiver(func(Message))
	// IsChild reports whether this end is the embedded (child frame) side.
	IsChild() bool
	// Origin is the origin this end stamps on outbound messages.
	Origin() string
	Close() error
}

// Options configures a Channel.
type Options struct {
	// AllowedOrigins lists the origins accepted on inbound messages, in
	// addition to the channel's own origin. An empty list accepts any
	// origin; this mirrors the original protocol's permissive default and
	// is logged as such.
	AllowedOrigins []string
	Logger         zerolog.Logger
}

type subscription struct {
	id      uint64
	handler func(Message)
}

// Subscription identifies a registered message handler.
type Subscription struct {
	msgType  Type
	wildcard bool
	id       uint64
}

// Channel validates, routes and publishes messages over a Transport.
// Dispatch is synchronous and per-handler isolated.
type Channel struct {
	transport Transport
	allowed   []string
	logger    zerolog.Logger

	mu       sync.Mutex
	nextID   uint64
	subs     map[Type][]subscription
	wildcard []subscription
	closed   bool
}

// New creates a channel over the transport and starts receiving.
func New(transport Transport, opts Options) *Channel {
	c := &Channel{
		transport: transport,
		allowed:   opts.AllowedOrigins,
		logger:    opts.Logger,
		subs:      make(map[Type][]subscription),
	}
	if len(c.allowed) == 0 {
		c.logger.Debug().Msg("channel: empty origin allow-list, accepting any origin")
	}
	transport.SetReceiver(c.dispatch)
	return c
}

// IsChild reports whether this channel is the embedded side of the link.
func (c *Channel) IsChild() bool {
	return c.transport.IsChild()
}

// Origin returns the channel's own origin.
func (c *Channel) Origin() string {
	return c.transport.Origin()
}

// Subscribe registers a handler for one message type. All handlers for a type
// run independently on receipt.
func (c *Channel) Subscribe(t Type, handler func(Message)) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.subs[t] = append(c.subs[t], subscription{id: c.nextID, handler: handler})
	return &Subscription{msgType: t, id: c.nextID}
}

// SubscribeAll registers a wildcard handler receiving every accepted message.
func (c *Channel) SubscribeAll(handler func(Message)) *Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	c.wildcard = append(c.wildcard, subscription{id: c.nextID, handler: handler})
	return &Subscription{wildcard: true, id: c.nextID}
}

// Unsubscribe removes a handler. Unsubscribing twice is a no-op.
func (c *Channel) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub.wildcard {
		c.wildcard = removeSub(c.wildcard, sub.id)
		return
	}
	c.subs[sub.msgType] = removeSub(c.subs[sub.msgType], sub.id)
}

func removeSub(subs []subscription, id uint64) []subscription {
	for i := range subs {
		if subs[i].id == id {
			return append(subs[:i:i], subs[i+1:]...)
		}
	}
	return subs
}

// Send posts a payload to the counterpart end of the link.
func (c *Channel) Send(payload Payload) error {
	return c.post(payload)
}

// SendToParent posts a payload to the parent. It fails without panicking when
// this end is not a child frame.
func (c *Channel) SendToParent(payload Payload) error {
	if !c.transport.IsChild() {
		return errors.Wrap(ErrNotChildFrame, "[Channel.SendToParent]")
	}
	return c.post(payload)
}

func (c *Channel) post(payload Payload) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return errors.Wrap(ErrClosed, "[Channel.post]")
	}
	msg := Message{
		Type:      payload.MessageType(),
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Origin:    c.transport.Origin(),
		Payload:   payload,
	}
	if err := c.transport.Send(msg); err != nil {
		return errors.Wrapf(err, "[Channel.post] send %s", msg.Type)
	}
	return nil
}

// dispatch validates the origin and fans the message out to type and
// wildcard subscribers. Rejected messages are dropped silently, logged only
// at debug level.
func (c *Channel) dispatch(msg Message) {
	if !c.acceptOrigin(msg.Origin) {
		c.logger.Debug().
			Str("type", string(msg.Type)).
			Str("origin", msg.Origin).
			Msg("channel: dropped message from unlisted origin")
		return
	}

	c.mu.Lock()
	handlers := make([]subscription, 0, len(c.subs[msg.Type])+len(c.wildcard))
	handlers = append(handlers, c.subs[msg.Type]...)
	handlers = append(handlers, c.wildcard...)
	c.mu.Unlock()

	for _, s := range handlers {
		c.invoke(msg, s.handler)
	}
}

func (c *Channel) invoke(msg Message, handler func(Message)) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().
				Str("type", string(msg.Type)).
				Interface("panic", r).
				Msg("channel: message handler panicked")
		}
	}()
	handler(msg)
}

func (c *Channel) acceptOrigin(origin string) bool {
	if origin == c.transport.Origin() {
		return true
	}
	// An empty allow-list accepts any origin. Permissive, but matches the
	// original protocol; tighten via Options.AllowedOrigins.
	if len(c.allowed) == 0 {
		return true
	}
	for _, allowed := range c.allowed {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Close tears down subscriptions and the underlying transport.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.subs = make(map[Type][]subscription)
	c.wildcard = nil
	c.mu.Unlock()
	return c.transport.Close()
}
