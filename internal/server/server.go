// Package server implements the development chat server: the WebSocket peer
// the client synchronizes against. It keeps an in-memory conversation log,
// runs the preference interview for each connection, and hands post-interview
// messages to the news agent.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"newschat/internal/agent"
	"newschat/internal/core"
	"newschat/pkg/wire"
)

const preferencesCompleteReply = "Great! I have all your preferences. Now I can help you with news and information. What would you like to know about?"

// Server is the chat server. One instance serves many concurrent clients
// over a shared message log; preference state is per connection.
type Server struct {
	log       core.Logger
	agent     agent.Agent
	questions []Question
	upgrader  websocket.Upgrader

	mu       sync.Mutex
	messages []wire.Message
	clients  map[*clientConn]struct{}
}

// New creates a server answering with the given agent.
func New(a agent.Agent, log core.Logger) (*Server, error) {
	if log == nil {
		log = core.NopLogger()
	}
	questions, err := loadQuestions()
	if err != nil {
		return nil, err
	}
	return &Server{
		log:       log,
		agent:     a,
		questions: questions,
		upgrader:  websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		messages:  make([]wire.Message, 0),
		clients:   make(map[*clientConn]struct{}),
	}, nil
}

// Handler returns the HTTP mux: a JSON health check at / and the WebSocket
// endpoint at /ws.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "success",
		"message":   "Chat server is running with WebSocket support!",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// clientConn is one connected client and its interview state.
type clientConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	prefs         agent.Preferences
	prefIndex     int
	prefsComplete bool
	messageCount  int
	history       []agent.ChatMessage
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "error", err)
		return
	}

	c := &clientConn{
		conn:  conn,
		prefs: make(agent.Preferences),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	history := make([]wire.Message, len(s.messages))
	copy(history, s.messages)
	s.mu.Unlock()

	s.log.Info("client connected", "remote", conn.RemoteAddr().String())

	s.emit(c, wire.EventConnectionResponse, wire.ConnectionResponse{
		Status:  "connected",
		Message: "Successfully connected to chat server",
	})
	s.emit(c, wire.EventChatHistory, wire.ChatHistory{Messages: history})

	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		conn.Close()
		s.log.Info("client disconnected", "remote", conn.RemoteAddr().String())
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := wire.ParseEnvelope(raw)
		if err != nil {
			s.log.Warn("dropping unparseable frame", "error", err)
			continue
		}
		s.dispatch(r.Context(), c, env)
	}
}

// dispatch handles one inbound client frame.
func (s *Server) dispatch(ctx context.Context, c *clientConn, env wire.Envelope) {
	switch env.Event {
	case wire.EventSendMessage:
		var payload wire.SendMessage
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			s.emitError(c, "Malformed send_message payload")
			return
		}
		s.handleSendMessage(ctx, c, payload.Content)

	case wire.EventDeleteMessage:
		var payload wire.DeleteMessage
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			s.emitError(c, "Malformed delete_message payload")
			return
		}
		s.handleDeleteMessage(c, payload.MessageID)

	case wire.EventClearChat:
		s.handleClearChat(c)

	default:
		s.log.Debug("ignoring event", "event", env.Event)
	}
}

func (s *Server) handleSendMessage(ctx context.Context, c *clientConn, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		s.emitError(c, "Message content cannot be empty")
		return
	}

	c.messageCount++

	userMsg, err := s.appendMessage(content, "User", "user")
	if err != nil {
		s.emitError(c, "Failed to store message")
		return
	}
	s.broadcast(wire.EventNewMessage, userMsg)

	switch {
	case c.messageCount == 1:
		// First message starts the interview.
		s.botReply(c, s.questions[0].Question)

	case !c.prefsComplete:
		s.collectPreference(c, content)

	default:
		s.respondWithAgent(ctx, c, content)
	}
}

// collectPreference records the answer to the current question and asks the
// next one, or hands over to the agent when the interview is done.
func (s *Server) collectPreference(c *clientConn, answer string) {
	if c.prefIndex >= len(s.questions) {
		c.prefsComplete = true
		return
	}

	q := s.questions[c.prefIndex]
	c.prefs[q.Key] = answer
	s.emit(c, wire.EventPreferenceUpdate, wire.PreferenceUpdate{
		PreferenceID: q.Key,
		Value:        answer,
	})

	c.prefIndex++
	if c.prefIndex >= len(s.questions) {
		c.prefsComplete = true
		s.botReply(c, preferencesCompleteReply)
		return
	}
	s.botReply(c, s.questions[c.prefIndex].Question)
}

func (s *Server) respondWithAgent(ctx context.Context, c *clientConn, content string) {
	reply, err := s.agent.Respond(ctx, c.history, content, c.prefs)
	if err != nil {
		s.log.Error("agent failed", "error", err)
		// Degrade to an apologetic reply so the client's gate still releases.
		s.botReply(c, fmt.Sprintf("I apologize, but I encountered an error: %v", err))
		return
	}

	c.history = append(c.history,
		agent.ChatMessage{Role: "user", Content: content},
		agent.ChatMessage{Role: "assistant", Content: reply},
	)
	s.botReply(c, reply)
}

func (s *Server) handleDeleteMessage(c *clientConn, messageID string) {
	if messageID == "" {
		s.emitError(c, "Message ID is required")
		return
	}

	s.mu.Lock()
	found := false
	for i, m := range s.messages {
		if m.ID != messageID {
			continue
		}
		if m.UserID != "user" {
			s.mu.Unlock()
			s.emitError(c, "You can only delete your own messages")
			return
		}
		s.messages = append(s.messages[:i], s.messages[i+1:]...)
		found = true
		break
	}
	s.mu.Unlock()

	if !found {
		s.emitError(c, "Message not found")
		return
	}
	s.broadcast(wire.EventMessageDeleted, wire.MessageDeleted{
		MessageID: messageID,
		DeletedBy: "User",
	})
}

func (s *Server) handleClearChat(c *clientConn) {
	s.mu.Lock()
	removed := len(s.messages)
	s.messages = s.messages[:0]
	s.mu.Unlock()

	c.prefs = make(agent.Preferences)
	c.prefIndex = 0
	c.prefsComplete = false
	c.messageCount = 0
	c.history = nil

	s.emit(c, wire.EventPreferencesReset, nil)
	s.broadcast(wire.EventChatCleared, wire.ChatCleared{
		ClearedBy: "User",
		Message:   fmt.Sprintf("Chat cleared (%d messages removed)", removed),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// appendMessage stores a new message in the shared log.
func (s *Server) appendMessage(content, author, userID string) (wire.Message, error) {
	id, err := wire.NewMessageID()
	if err != nil {
		return wire.Message{}, err
	}
	msg := wire.Message{
		ID:        id,
		Content:   content,
		Author:    author,
		UserID:    userID,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	return msg, nil
}

// botReply stores an assistant message and sends it to one client only.
func (s *Server) botReply(c *clientConn, content string) {
	msg, err := s.appendMessage(content, "Assistant", "assistant")
	if err != nil {
		s.emitError(c, "Failed to store message")
		return
	}
	s.emit(c, wire.EventNewMessage, msg)
}

// emit sends one event to one client.
func (s *Server) emit(c *clientConn, event string, payload any) {
	env, err := wire.NewEnvelope(event, payload)
	if err != nil {
		s.log.Error("encode event", "event", event, "error", err)
		return
	}
	raw, err := env.Encode()
	if err != nil {
		s.log.Error("encode envelope", "event", event, "error", err)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		s.log.Debug("write failed", "event", event, "error", err)
	}
}

func (s *Server) emitError(c *clientConn, message string) {
	s.emit(c, wire.EventError, wire.ErrorPayload{Message: message})
}

// broadcast sends one event to every connected client.
func (s *Server) broadcast(event string, payload any) {
	s.mu.Lock()
	targets := make([]*clientConn, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		s.emit(c, event, payload)
	}
}
