// Package wire defines the event-based protocol spoken between the chat
// client and the news-agent server. Every frame is one JSON envelope carrying
// an event name and an event-specific payload.
package wire

import (
	"encoding/json"
	"fmt"
)

// Inbound event names (server to client). Connect and Disconnect are
// synthesized by the transport for connection lifecycle; the rest arrive on
// the wire.
const (
	EventConnect            = "connect"
	EventDisconnect         = "disconnect"
	EventConnectionResponse = "connection_response"
	EventChatHistory        = "chat_history"
	EventNewMessage         = "new_message"
	EventPreferenceUpdate   = "preference_update"
	EventPreferencesReset   = "preferences_reset"
	EventMessageDeleted     = "message_deleted"
	EventChatCleared        = "chat_cleared"
	EventError              = "error"
)

// Outbound event names (client to server).
const (
	EventSendMessage   = "send_message"
	EventDeleteMessage = "delete_message"
	EventClearChat     = "clear_chat"
)

// Envelope is one protocol frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ParseEnvelope decodes a raw frame. Unknown event names are not an error;
// the router decides what to ignore.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("parse envelope: %w", err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("parse envelope: missing event name")
	}
	return env, nil
}

// NewEnvelope builds a frame for the given event name and payload.
func NewEnvelope(event string, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Event: event}, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}

// Encode serializes the envelope to one wire frame.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode envelope %s: %w", e.Event, err)
	}
	return data, nil
}

// Message is a conversation message as carried on the wire.
//
// UserID is the explicit participant identity ("user" or "assistant");
// Author is the display name. Role is never transmitted: clients derive it
// from UserID, falling back to the author display name for peers that omit
// the field.
type Message struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Author    string `json:"author"`
	UserID    string `json:"user_id,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ConnectionResponse acknowledges a new connection. Informational only.
type ConnectionResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ChatHistory replaces the client's entire message log.
type ChatHistory struct {
	Messages []Message `json:"messages"`
}

// PreferenceUpdate fills one preference slot.
type PreferenceUpdate struct {
	PreferenceID string `json:"preferenceId"`
	Value        string `json:"value"`
}

// ErrorPayload is a server-reported error. Message may be empty.
type ErrorPayload struct {
	Message string `json:"message,omitempty"`
}

// SendMessage submits one user message.
type SendMessage struct {
	Content string `json:"content"`
}

// DeleteMessage asks the server to delete a previously sent message.
type DeleteMessage struct {
	MessageID string `json:"message_id"`
}

// MessageDeleted notifies all clients that a message was removed.
type MessageDeleted struct {
	MessageID string `json:"message_id"`
	DeletedBy string `json:"deleted_by"`
}

// ChatCleared notifies all clients that the log was wiped.
type ChatCleared struct {
	ClearedBy string `json:"cleared_by"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}
