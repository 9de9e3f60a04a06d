package session

import (
	"context"

	"newschat/internal/core"
	"newschat/pkg/wire"
)

// FallbackErrorMessage is surfaced when a server error event carries no
// message of its own.
const FallbackErrorMessage = "Something went wrong. Please try again."

// Notification is a transient user-visible message, surfaced outside the
// conversation log.
type Notification struct {
	Text string
}

// Router dispatches each inbound event to exactly one handler, mutating the
// session. Dispatch is strictly sequential: one event is fully applied
// before the next is admitted, so the stores never expose a torn
// intermediate state.
type Router struct {
	session *Session
	log     core.Logger
	notify  chan Notification
}

// NewRouter creates a router over the given session.
func NewRouter(s *Session, log core.Logger) *Router {
	if log == nil {
		log = core.NopLogger()
	}
	return &Router{
		session: s,
		log:     log,
		notify:  make(chan Notification, 8),
	}
}

// Notifications returns the user-visible error/notice channel.
func (r *Router) Notifications() <-chan Notification {
	return r.notify
}

// Run consumes decoded envelopes until the stream closes or the context is
// cancelled. The notification channel is closed on return.
func (r *Router) Run(ctx context.Context, envelopes <-chan wire.Envelope) {
	defer close(r.notify)
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-envelopes:
			if !ok {
				return
			}
			ev, known, err := Decode(env)
			if err != nil {
				// Malformed payloads are dropped; never fatal to the session.
				r.log.Warn("dropping malformed event", "event", env.Event, "error", err)
				continue
			}
			if !known {
				r.log.Debug("ignoring event", "event", env.Event)
				continue
			}
			r.Dispatch(ev)
		}
	}
}

// Dispatch applies one event to the session. This is the only place session
// state changes in reaction to the server.
func (r *Router) Dispatch(ev Event) {
	s := r.session
	s.mu.Lock()
	var note *Notification

	switch e := ev.(type) {
	case ConnectedEvent:
		s.state = Connected

	case DisconnectedEvent:
		// A drop lands here from any prior state.
		s.state = Disconnected

	case HistoryEvent:
		messages := make([]Message, 0, len(e.Messages))
		for _, m := range e.Messages {
			messages = append(messages, s.ingest(m))
		}
		s.store.ApplySnapshot(messages)

	case AppendEvent:
		m := s.ingest(e.Message)
		s.store.ApplyAppend(m)
		if m.Role == RoleAssistant {
			s.gate.Release()
		}

	case PrefUpdateEvent:
		if !s.prefs.Update(e.PreferenceID, e.Value) {
			r.log.Debug("ignoring unknown preference", "preference_id", e.PreferenceID)
		}

	case PrefResetEvent:
		s.prefs.ResetAll()

	case MessageDeletedEvent:
		if !s.store.Remove(e.MessageID) {
			r.log.Debug("delete for unknown message", "message_id", e.MessageID)
		}

	case ChatClearedEvent:
		// The server resets the interview along with the log.
		s.store.Clear()
		s.prefs.ResetAll()
		if e.Message != "" {
			note = &Notification{Text: e.Message}
		}

	case ErrorEvent:
		text := e.Message
		if text == "" {
			text = FallbackErrorMessage
		}
		note = &Notification{Text: text}
		s.gate.Release()
	}

	s.mu.Unlock()

	if note != nil {
		// A stalled consumer must not stall dispatch.
		select {
		case r.notify <- *note:
		default:
			r.log.Warn("notification dropped", "text", note.Text)
		}
	}
}
