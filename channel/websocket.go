package channel

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// WebsocketTransport carries channel messages as JSON frames over a
// websocket, for hosts running the parent side out of process. Each frame is
// one encoded Message envelope.
type WebsocketTransport struct {
	conn    *websocket.Conn
	origin  string
	isChild bool
	logger  zerolog.Logger

	writeMu  sync.Mutex
	mu       sync.Mutex
	receiver func(Message)
	closed   bool
	done     chan struct{}
}

var _ Transport = (*WebsocketTransport)(nil)

// WebsocketOptions configures a websocket transport end.
type WebsocketOptions struct {
	// Origin stamped on outbound messages.
	Origin string
	// IsChild marks this end as the embedded side.
	IsChild bool
	Logger  zerolog.Logger
}

// DialWebsocket connects to a websocket host and returns a transport over
// the connection. The read loop starts once a receiver is installed.
func DialWebsocket(ctx context.Context, url string, opts WebsocketOptions) (*WebsocketTransport, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[DialWebsocket] dial")
	}
	return NewWebsocketTransport(conn, opts), nil
}

// NewWebsocketTransport wraps an established websocket connection. The server
// side of a host can pass a connection obtained from an upgrader.
func NewWebsocketTransport(conn *websocket.Conn, opts WebsocketOptions) *WebsocketTransport {
	return &WebsocketTransport{
		conn:    conn,
		origin:  opts.Origin,
		isChild: opts.IsChild,
		logger:  opts.Logger,
		done:    make(chan struct{}),
	}
}

func (t *WebsocketTransport) Send(msg Message) error {
	data, err := Encode(msg)
	if err != nil {
		return errors.Wrap(err, "[WebsocketTransport.Send]")
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return errors.Wrap(err, "[WebsocketTransport.Send] write")
	}
	return nil
}

func (t *WebsocketTransport) SetReceiver(fn func(Message)) {
	t.mu.Lock()
	start := t.receiver == nil && fn != nil
	t.receiver = fn
	t.mu.Unlock()
	if start {
		go t.readLoop()
	}
}

func (t *WebsocketTransport) readLoop() {
	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.done:
			default:
				t.logger.Debug().Err(err).Msg("websocket transport: read loop ended")
			}
			return
		}
		msg, err := Decode(data)
		if err != nil {
			t.logger.Debug().Err(err).Msg("websocket transport: dropped undecodable frame")
			continue
		}
		t.mu.Lock()
		receiver := t.receiver
		t.mu.Unlock()
		if receiver != nil {
			receiver(msg)
		}
	}
}

func (t *WebsocketTransport) IsChild() bool { return t.isChild }

func (t *WebsocketTransport) Origin() string { return t.origin }

func (t *WebsocketTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.receiver = nil
	close(t.done)
	t.mu.Unlock()
	return t.conn.Close()
}
