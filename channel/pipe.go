package channel

import (
	"sync"

	"github.com/pkg/errors"
)

// PipeTransport is one end of an in-process transport pair. Delivery is
// synchronous, on the sender's goroutine, which mirrors how a same-process
// host answers a frame immediately and keeps tests deterministic.
type PipeTransport struct {
	origin  string
	isChild bool

	mu       sync.Mutex
	peer     *PipeTransport
	receiver func(Message)
	closed   bool
}

var _ Transport = (*PipeTransport)(nil)

// NewPipe creates a linked parent/child transport pair. parentOrigin and
// childOrigin are stamped on messages sent from the respective ends.
func NewPipe(parentOrigin, childOrigin string) (parent, child *PipeTransport) {
	parent = &PipeTransport{origin: parentOrigin}
	child = &PipeTransport{origin: childOrigin, isChild: true}
	parent.peer = child
	child.peer = parent
	return parent, child
}

func (p *PipeTransport) Send(msg Message) error {
	p.mu.Lock()
	peer := p.peer
	closed := p.closed
	p.mu.Unlock()
	if closed || peer == nil {
		return errors.New("[PipeTransport.Send] pipe closed")
	}

	peer.mu.Lock()
	receiver := peer.receiver
	peerClosed := peer.closed
	peer.mu.Unlock()
	if peerClosed || receiver == nil {
		return errors.New("[PipeTransport.Send] peer not receiving")
	}
	receiver(msg)
	return nil
}

func (p *PipeTransport) SetReceiver(fn func(Message)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.receiver = fn
}

func (p *PipeTransport) IsChild() bool { return p.isChild }

func (p *PipeTransport) Origin() string { return p.origin }

func (p *PipeTransport) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.receiver = nil
	return nil
}
