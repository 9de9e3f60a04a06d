// Package session implements the synchronization core of the chat client:
// one Session aggregate kept in lock-step with the server by applying tagged
// inbound events in arrival order, a closed set of preference slots, and the
// single-submission request gate.
package session

import (
	"strings"
	"sync"

	"newschat/internal/core"
	"newschat/pkg/wire"
)

// Role classifies a message by its originator.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConnState is the transport connection state.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Message is one conversation entry. Role is derived on ingest, never
// transmitted.
type Message struct {
	ID        string
	Content   string
	Author    string
	Role      Role
	Timestamp string
}

// Participant identifies the local human on the wire.
type Participant struct {
	UserID string // explicit participant id, e.g. "user"
	Author string // display-name sentinel fallback, e.g. "User"
}

// RoleOf derives the role of a wire message. The explicit participant id
// wins when present; the author display name is only a fallback for peers
// that omit it.
func (p Participant) RoleOf(m wire.Message) Role {
	if m.UserID != "" {
		if m.UserID == p.UserID {
			return RoleUser
		}
		return RoleAssistant
	}
	if m.Author == p.Author {
		return RoleUser
	}
	return RoleAssistant
}

// Session aggregates the connection state, the message log, the preference
// slots and the request gate for one chat view. It is mutated only through
// the router's Dispatch and the submission path; everything else reads a
// snapshot.
type Session struct {
	mu sync.Mutex

	participant Participant
	state       ConnState
	store       *MessageStore
	prefs       *PreferenceTracker
	gate        *RequestGate
}

// NewSession creates a session with five empty preference slots, an empty
// log, and state Disconnected.
func NewSession(p Participant) *Session {
	return &Session{
		participant: p,
		state:       Disconnected,
		store:       NewMessageStore(),
		prefs:       NewPreferenceTracker(),
		gate:        NewRequestGate(),
	}
}

// BeginConnecting marks the session as dialing. Called by the client right
// before the transport connect.
func (s *Session) BeginConnecting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Connecting
}

// State returns the current connection state.
func (s *Session) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ingest converts a wire message into a domain message, deriving its role.
func (s *Session) ingest(m wire.Message) Message {
	return Message{
		ID:        m.ID,
		Content:   m.Content,
		Author:    m.Author,
		Role:      s.participant.RoleOf(m),
		Timestamp: m.Timestamp,
	}
}

// TrySubmit performs the submission precondition check and, on success,
// takes the gate. It returns the trimmed content to send. The check and the
// acquisition happen under one lock so two submissions cannot race past the
// gate. On failure nothing changes and a PreconditionError describes why.
func (s *Session) TrySubmit(content string) (string, error) {
	trimmed := strings.TrimSpace(content)

	s.mu.Lock()
	defer s.mu.Unlock()

	if trimmed == "" {
		return "", &core.PreconditionError{Operation: "submit", Message: "message is empty"}
	}
	if s.state != Connected {
		return "", &core.PreconditionError{Operation: "submit", Message: "not connected"}
	}
	if !s.gate.TryAcquire() {
		return "", &core.PreconditionError{Operation: "submit", Message: "a submission is already outstanding"}
	}
	return trimmed, nil
}

// ReleaseGate frees the request gate. Used by the router on assistant
// replies and errors, and by the client when a send fails after the gate was
// taken.
func (s *Session) ReleaseGate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate.Release()
}

// GateHeld reports whether a submission is outstanding.
func (s *Session) GateHeld() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gate.Held()
}

// Snapshot is a read-only projection of session state for presentation
// consumers.
type Snapshot struct {
	State           ConnState
	Messages        []Message
	Slots           []PreferenceSlot
	CompletionRatio float64
	GateHeld        bool
}

// Snapshot returns a consistent copy of the observable session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		State:           s.state,
		Messages:        s.store.Messages(),
		Slots:           s.prefs.Slots(),
		CompletionRatio: s.prefs.CompletionRatio(),
		GateHeld:        s.gate.Held(),
	}
}
