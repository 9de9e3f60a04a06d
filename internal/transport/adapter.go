// Package transport owns the persistent WebSocket connection to the chat
// server. It exposes connect/send/close and surfaces everything inbound,
// including connection lifecycle, as a single ordered stream of envelopes.
package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"newschat/internal/core"
	"newschat/pkg/wire"
)

// ErrNotConnected is returned by Send outside the connected state. The
// request gate is the real guard against this; the adapter never queues.
var ErrNotConnected = errors.New("transport: not connected")

// ErrAlreadyConnected is returned by a second Connect. The adapter is
// one-shot: a dropped connection means a new session, not a redial.
var ErrAlreadyConnected = errors.New("transport: already connected")

// Adapter is a one-shot WebSocket transport. Connect dials, the background
// pump decodes inbound frames in arrival order onto Events, and a read
// failure or Close ends the stream with a synthesized disconnect envelope.
// There is no reconnection and no backoff.
type Adapter struct {
	log core.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	dialed bool

	events    chan wire.Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// NewAdapter creates an unconnected adapter.
func NewAdapter(log core.Logger) *Adapter {
	if log == nil {
		log = core.NopLogger()
	}
	return &Adapter{
		log:    log,
		events: make(chan wire.Envelope, 32),
		done:   make(chan struct{}),
	}
}

// Events returns the ordered inbound stream. The first element after a
// successful Connect is a synthesized connect envelope; the last, before the
// channel closes, is a synthesized disconnect envelope.
func (a *Adapter) Events() <-chan wire.Envelope {
	return a.events
}

// Connect dials the endpoint and starts the read pump.
func (a *Adapter) Connect(ctx context.Context, endpoint string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dialed {
		return ErrAlreadyConnected
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return &core.NetworkError{Operation: "dial", URL: endpoint, Message: "websocket dial failed", Err: err}
	}

	a.conn = conn
	a.dialed = true
	a.events <- wire.Envelope{Event: wire.EventConnect}
	go a.readPump(conn)

	a.log.Info("connected", "endpoint", endpoint)
	return nil
}

// Send writes one event frame. Valid only while connected.
func (a *Adapter) Send(event string, payload any) error {
	env, err := wire.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	raw, err := env.Encode()
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		return ErrNotConnected
	}
	if err := a.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return &core.NetworkError{Operation: "send", Message: "websocket write failed", Err: err}
	}
	a.log.Debug("sent event", "event", event)
	return nil
}

// Close releases the connection. Idempotent; safe on every teardown path,
// connected or not.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
		a.mu.Lock()
		if a.conn != nil {
			a.conn.Close()
			a.conn = nil
		}
		a.mu.Unlock()
	})
	return nil
}

// readPump decodes inbound frames until the connection fails or closes,
// then emits the final disconnect envelope and ends the stream.
func (a *Adapter) readPump(conn *websocket.Conn) {
	defer close(a.events)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				a.log.Debug("read loop ended", "error", err)
			}
			break
		}

		env, err := wire.ParseEnvelope(raw)
		if err != nil {
			// A frame we cannot even frame-decode is dropped here; payload
			// level problems are the router's call.
			a.log.Warn("dropping unparseable frame", "error", err)
			continue
		}

		select {
		case a.events <- env:
		case <-a.done:
			return
		}
	}

	a.mu.Lock()
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
	a.mu.Unlock()

	select {
	case a.events <- wire.Envelope{Event: wire.EventDisconnect}:
	case <-a.done:
	}
}
