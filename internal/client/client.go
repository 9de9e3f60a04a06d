// Package client wires the transport adapter, the session aggregate and the
// event router into the chat view's session owner. One Client owns one
// Session for one connection; when the connection drops, the view is
// expected to create a new Client, not redial this one.
package client

import (
	"context"

	"newschat/internal/core"
	"newschat/internal/session"
	"newschat/pkg/wire"
)

// Transport is the connection surface the client needs. Satisfied by
// *transport.Adapter; tests substitute a fake.
type Transport interface {
	Connect(ctx context.Context, endpoint string) error
	Send(event string, payload any) error
	Close() error
	Events() <-chan wire.Envelope
}

// Client keeps one session in lock-step with the server and gates outbound
// submissions.
type Client struct {
	endpoint  string
	transport Transport
	session   *session.Session
	router    *session.Router
	log       core.Logger
}

// New creates a client for the given endpoint. The participant identifies
// the local human for role derivation.
func New(endpoint string, participant session.Participant, transport Transport, log core.Logger) *Client {
	if log == nil {
		log = core.NopLogger()
	}
	sess := session.NewSession(participant)
	return &Client{
		endpoint:  endpoint,
		transport: transport,
		session:   sess,
		router:    session.NewRouter(sess, log),
		log:       log,
	}
}

// Run connects and consumes the inbound stream until it ends or ctx is
// cancelled. The transport is closed on every exit path.
func (c *Client) Run(ctx context.Context) error {
	defer c.transport.Close()

	c.session.BeginConnecting()
	if err := c.transport.Connect(ctx, c.endpoint); err != nil {
		// The dial never completed; the session falls back to Disconnected.
		c.router.Dispatch(session.DisconnectedEvent{})
		return err
	}

	c.router.Run(ctx, c.transport.Events())
	return nil
}

// Submit attempts to send one user message. Preconditions (gate free,
// connected, non-blank content) are checked synchronously; on success
// exactly one send_message goes out with the trimmed content and the gate is
// held until the assistant replies or the server reports an error.
func (c *Client) Submit(content string) error {
	trimmed, err := c.session.TrySubmit(content)
	if err != nil {
		return err
	}

	if err := c.transport.Send(wire.EventSendMessage, wire.SendMessage{Content: trimmed}); err != nil {
		// The submission never left; holding the gate would wedge the view.
		c.session.ReleaseGate()
		return err
	}
	return nil
}

// DeleteMessage asks the server to remove one of the user's own messages.
// Not gated: deletion elicits no assistant reply.
func (c *Client) DeleteMessage(id string) error {
	if c.session.State() != session.Connected {
		return &core.PreconditionError{Operation: "delete", Message: "not connected"}
	}
	return c.transport.Send(wire.EventDeleteMessage, wire.DeleteMessage{MessageID: id})
}

// ClearChat asks the server to wipe the conversation and restart the
// preference interview.
func (c *Client) ClearChat() error {
	if c.session.State() != session.Connected {
		return &core.PreconditionError{Operation: "clear", Message: "not connected"}
	}
	return c.transport.Send(wire.EventClearChat, nil)
}

// Snapshot returns the read-only projection of session state for
// presentation.
func (c *Client) Snapshot() session.Snapshot {
	return c.session.Snapshot()
}

// Notifications returns the user-visible error/notice channel. It closes
// when Run returns.
func (c *Client) Notifications() <-chan session.Notification {
	return c.router.Notifications()
}

// Close tears the connection down. Idempotent.
func (c *Client) Close() error {
	return c.transport.Close()
}
