package session

import (
	"encoding/json"

	"newschat/internal/core"
	"newschat/pkg/wire"
)

// Event is one tagged inbound occurrence applied to the session. Events are
// produced by decoding transport envelopes (or synthesized by the transport
// for connection lifecycle) and consumed strictly in arrival order.
type Event interface {
	eventName() string
}

// ConnectedEvent marks the transport as established.
type ConnectedEvent struct{}

// DisconnectedEvent marks a transport drop. Valid from any state.
type DisconnectedEvent struct{}

// HistoryEvent replaces the entire message log with an authoritative
// snapshot.
type HistoryEvent struct {
	Messages []wire.Message
}

// AppendEvent appends a single message to the log.
type AppendEvent struct {
	Message wire.Message
}

// PrefUpdateEvent fills one preference slot.
type PrefUpdateEvent struct {
	PreferenceID string
	Value        string
}

// PrefResetEvent empties every preference slot.
type PrefResetEvent struct{}

// MessageDeletedEvent removes one message from the log.
type MessageDeletedEvent struct {
	MessageID string
}

// ChatClearedEvent wipes the log and the preference slots.
type ChatClearedEvent struct {
	Message string
}

// ErrorEvent is a server-reported error. Message may be empty; the router
// substitutes a generic fallback when surfacing it.
type ErrorEvent struct {
	Message string
}

func (ConnectedEvent) eventName() string      { return wire.EventConnect }
func (DisconnectedEvent) eventName() string   { return wire.EventDisconnect }
func (HistoryEvent) eventName() string        { return wire.EventChatHistory }
func (AppendEvent) eventName() string         { return wire.EventNewMessage }
func (PrefUpdateEvent) eventName() string     { return wire.EventPreferenceUpdate }
func (PrefResetEvent) eventName() string      { return wire.EventPreferencesReset }
func (MessageDeletedEvent) eventName() string { return wire.EventMessageDeleted }
func (ChatClearedEvent) eventName() string    { return wire.EventChatCleared }
func (ErrorEvent) eventName() string          { return wire.EventError }

// Decode maps a wire envelope to its tagged event. The second return is
// false for event names the session does not react to (including
// connection_response, which carries nothing the core consumes). A malformed
// payload yields a ProtocolError; the caller drops the frame and keeps the
// session alive.
func Decode(env wire.Envelope) (Event, bool, error) {
	switch env.Event {
	case wire.EventConnect:
		return ConnectedEvent{}, true, nil

	case wire.EventDisconnect:
		return DisconnectedEvent{}, true, nil

	case wire.EventChatHistory:
		var payload wire.ChatHistory
		if err := unmarshal(env, &payload); err != nil {
			return nil, false, err
		}
		return HistoryEvent{Messages: payload.Messages}, true, nil

	case wire.EventNewMessage:
		var msg wire.Message
		if err := unmarshal(env, &msg); err != nil {
			return nil, false, err
		}
		return AppendEvent{Message: msg}, true, nil

	case wire.EventPreferenceUpdate:
		var payload wire.PreferenceUpdate
		if err := unmarshal(env, &payload); err != nil {
			return nil, false, err
		}
		return PrefUpdateEvent{PreferenceID: payload.PreferenceID, Value: payload.Value}, true, nil

	case wire.EventPreferencesReset:
		return PrefResetEvent{}, true, nil

	case wire.EventMessageDeleted:
		var payload wire.MessageDeleted
		if err := unmarshal(env, &payload); err != nil {
			return nil, false, err
		}
		return MessageDeletedEvent{MessageID: payload.MessageID}, true, nil

	case wire.EventChatCleared:
		var payload wire.ChatCleared
		if err := unmarshal(env, &payload); err != nil {
			return nil, false, err
		}
		return ChatClearedEvent{Message: payload.Message}, true, nil

	case wire.EventError:
		var payload wire.ErrorPayload
		if err := unmarshal(env, &payload); err != nil {
			return nil, false, err
		}
		return ErrorEvent{Message: payload.Message}, true, nil

	default:
		return nil, false, nil
	}
}

func unmarshal(env wire.Envelope, dst any) error {
	if len(env.Data) == 0 {
		// An absent payload decodes to zero values, same as an empty object.
		return nil
	}
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return &core.ProtocolError{Event: env.Event, Message: "malformed payload", Err: err}
	}
	return nil
}
