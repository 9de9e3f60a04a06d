package server

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"newschat/internal/agent"
	"newschat/internal/core"
	"newschat/pkg/wire"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestLoadQuestions(t *testing.T) {
	questions, err := loadQuestions()
	require.NoError(t, err)
	require.Len(t, questions, 5)

	keys := make([]string, 0, 5)
	for _, q := range questions {
		keys = append(keys, q.Key)
		assert.NotEmpty(t, q.Question)
	}
	assert.Equal(t, []string{"tone_of_voice", "response_format", "language", "interaction_style", "news_topics"}, keys)
}

// testClient is a raw WebSocket client for driving the server.
type testClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func startServer(t *testing.T, a agent.Agent) *httptest.Server {
	t.Helper()
	srv, err := New(a, core.NopLogger())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *testClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return &testClient{t: t, conn: conn}
}

func (c *testClient) send(event string, payload any) {
	c.t.Helper()
	env, err := wire.NewEnvelope(event, payload)
	require.NoError(c.t, err)
	raw, err := env.Encode()
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, raw))
}

func (c *testClient) recv() wire.Envelope {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := c.conn.ReadMessage()
	require.NoError(c.t, err, "expected another event")
	env, err := wire.ParseEnvelope(raw)
	require.NoError(c.t, err)
	return env
}

// recvEvent asserts the next envelope's name and decodes its payload.
func recvAs[T any](c *testClient, event string) T {
	c.t.Helper()
	env := c.recv()
	require.Equal(c.t, event, env.Event)
	var payload T
	if len(env.Data) > 0 {
		require.NoError(c.t, json.Unmarshal(env.Data, &payload))
	}
	return payload
}

// handshake consumes connection_response and chat_history.
func (c *testClient) handshake() wire.ChatHistory {
	c.t.Helper()
	resp := recvAs[wire.ConnectionResponse](c, wire.EventConnectionResponse)
	assert.Equal(c.t, "connected", resp.Status)
	return recvAs[wire.ChatHistory](c, wire.EventChatHistory)
}

func TestServer_HandshakeSeedsEmptyHistory(t *testing.T) {
	ts := startServer(t, &agent.MockAgent{Reply: "ok"})
	c := dial(t, ts)

	history := c.handshake()
	assert.Empty(t, history.Messages)
}

func TestServer_FirstMessageStartsInterview(t *testing.T) {
	ts := startServer(t, &agent.MockAgent{Reply: "ok"})
	c := dial(t, ts)
	c.handshake()

	c.send(wire.EventSendMessage, wire.SendMessage{Content: "Hello"})

	echo := recvAs[wire.Message](c, wire.EventNewMessage)
	assert.Equal(t, "Hello", echo.Content)
	assert.Equal(t, "User", echo.Author)
	assert.Equal(t, "user", echo.UserID)
	assert.True(t, strings.HasPrefix(echo.ID, "MSG-"))
	_, err := time.Parse(time.RFC3339, echo.Timestamp)
	assert.NoError(t, err)

	question := recvAs[wire.Message](c, wire.EventNewMessage)
	assert.Equal(t, "assistant", question.UserID)
	assert.Contains(t, question.Content, "tone of voice")
}

func TestServer_FullInterviewThenAgent(t *testing.T) {
	mock := &agent.MockAgent{Reply: "Here are today's headlines."}
	ts := startServer(t, mock)
	c := dial(t, ts)
	c.handshake()

	// First message only triggers the first question.
	c.send(wire.EventSendMessage, wire.SendMessage{Content: "Hi"})
	recvAs[wire.Message](c, wire.EventNewMessage) // echo
	recvAs[wire.Message](c, wire.EventNewMessage) // question 1

	answers := []struct{ key, value string }{
		{"tone_of_voice", "casual"},
		{"response_format", "bullet points"},
		{"language", "English"},
		{"interaction_style", "concise"},
		{"news_topics", "technology"},
	}

	for i, answer := range answers {
		c.send(wire.EventSendMessage, wire.SendMessage{Content: answer.value})
		recvAs[wire.Message](c, wire.EventNewMessage) // echo

		update := recvAs[wire.PreferenceUpdate](c, wire.EventPreferenceUpdate)
		assert.Equal(t, answer.key, update.PreferenceID)
		assert.Equal(t, answer.value, update.Value)

		reply := recvAs[wire.Message](c, wire.EventNewMessage)
		if i == len(answers)-1 {
			assert.Contains(t, reply.Content, "I have all your preferences")
		}
	}

	// Interview complete: the agent answers now, with the collected prefs.
	c.send(wire.EventSendMessage, wire.SendMessage{Content: "What's new in tech?"})
	recvAs[wire.Message](c, wire.EventNewMessage) // echo
	reply := recvAs[wire.Message](c, wire.EventNewMessage)
	assert.Equal(t, "Here are today's headlines.", reply.Content)
	assert.Equal(t, []string{"What's new in tech?"}, mock.Calls)
}

func TestServer_EmptyMessageRejected(t *testing.T) {
	ts := startServer(t, &agent.MockAgent{Reply: "ok"})
	c := dial(t, ts)
	c.handshake()

	c.send(wire.EventSendMessage, wire.SendMessage{Content: "   "})

	errPayload := recvAs[wire.ErrorPayload](c, wire.EventError)
	assert.Equal(t, "Message content cannot be empty", errPayload.Message)
}

func TestServer_AgentFailureDegradesToApology(t *testing.T) {
	mock := &agent.MockAgent{Err: errors.New("model unavailable")}
	ts := startServer(t, mock)
	c := dial(t, ts)
	c.handshake()

	// Race through the interview.
	c.send(wire.EventSendMessage, wire.SendMessage{Content: "Hi"})
	recvAs[wire.Message](c, wire.EventNewMessage)
	recvAs[wire.Message](c, wire.EventNewMessage)
	for i := 0; i < 5; i++ {
		c.send(wire.EventSendMessage, wire.SendMessage{Content: "whatever"})
		recvAs[wire.Message](c, wire.EventNewMessage)
		recvAs[wire.PreferenceUpdate](c, wire.EventPreferenceUpdate)
		recvAs[wire.Message](c, wire.EventNewMessage)
	}

	c.send(wire.EventSendMessage, wire.SendMessage{Content: "news please"})
	recvAs[wire.Message](c, wire.EventNewMessage) // echo
	reply := recvAs[wire.Message](c, wire.EventNewMessage)
	// Still a new_message, so the client's gate releases.
	assert.Contains(t, reply.Content, "I apologize")
}

func TestServer_HistorySeedsSecondClient(t *testing.T) {
	ts := startServer(t, &agent.MockAgent{Reply: "ok"})
	first := dial(t, ts)
	first.handshake()

	first.send(wire.EventSendMessage, wire.SendMessage{Content: "Hello"})
	recvAs[wire.Message](first, wire.EventNewMessage)
	recvAs[wire.Message](first, wire.EventNewMessage)

	second := dial(t, ts)
	history := second.handshake()
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "Hello", history.Messages[0].Content)
}

func TestServer_DeleteMessage(t *testing.T) {
	ts := startServer(t, &agent.MockAgent{Reply: "ok"})
	c := dial(t, ts)
	c.handshake()

	c.send(wire.EventSendMessage, wire.SendMessage{Content: "delete me"})
	echo := recvAs[wire.Message](c, wire.EventNewMessage)
	recvAs[wire.Message](c, wire.EventNewMessage) // question 1

	t.Run("assistant messages are protected", func(t *testing.T) {
		c.send(wire.EventSendMessage, wire.SendMessage{Content: "answer one"})
		recvAs[wire.Message](c, wire.EventNewMessage)
		recvAs[wire.PreferenceUpdate](c, wire.EventPreferenceUpdate)
		botMsg := recvAs[wire.Message](c, wire.EventNewMessage)

		c.send(wire.EventDeleteMessage, wire.DeleteMessage{MessageID: botMsg.ID})
		errPayload := recvAs[wire.ErrorPayload](c, wire.EventError)
		assert.Contains(t, errPayload.Message, "your own messages")
	})

	t.Run("own message deleted and broadcast", func(t *testing.T) {
		c.send(wire.EventDeleteMessage, wire.DeleteMessage{MessageID: echo.ID})
		deleted := recvAs[wire.MessageDeleted](c, wire.EventMessageDeleted)
		assert.Equal(t, echo.ID, deleted.MessageID)
	})

	t.Run("unknown id", func(t *testing.T) {
		c.send(wire.EventDeleteMessage, wire.DeleteMessage{MessageID: "MSG-nope"})
		errPayload := recvAs[wire.ErrorPayload](c, wire.EventError)
		assert.Equal(t, "Message not found", errPayload.Message)
	})
}

func TestServer_ClearChat(t *testing.T) {
	ts := startServer(t, &agent.MockAgent{Reply: "ok"})
	c := dial(t, ts)
	c.handshake()

	c.send(wire.EventSendMessage, wire.SendMessage{Content: "Hello"})
	recvAs[wire.Message](c, wire.EventNewMessage)
	recvAs[wire.Message](c, wire.EventNewMessage)

	c.send(wire.EventClearChat, nil)

	recvAs[struct{}](c, wire.EventPreferencesReset)
	cleared := recvAs[wire.ChatCleared](c, wire.EventChatCleared)
	assert.Contains(t, cleared.Message, "2 messages removed")

	// The interview restarts from scratch.
	c.send(wire.EventSendMessage, wire.SendMessage{Content: "Hi again"})
	recvAs[wire.Message](c, wire.EventNewMessage)
	question := recvAs[wire.Message](c, wire.EventNewMessage)
	assert.Contains(t, question.Content, "tone of voice")

	// And the log only holds the post-clear exchange.
	fresh := dial(t, ts)
	history := fresh.handshake()
	assert.Len(t, history.Messages, 2)
}

func TestServer_HealthEndpoint(t *testing.T) {
	ts := startServer(t, &agent.MockAgent{Reply: "ok"})

	resp, err := ts.Client().Get(ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body["status"])
}
