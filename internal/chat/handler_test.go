package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook-ai/booking-assistant/internal/conversation"
	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

// mockService echoes turns and records requests.
type mockService struct {
	starts   []conversation.StartRequest
	messages []conversation.MessageRequest
	history  map[string][]conversation.Message
}

func newMockService() *mockService {
	return &mockService{history: make(map[string][]conversation.Message)}
}

func (m *mockService) StartConversation(_ context.Context, req conversation.StartRequest) (*conversation.Response, error) {
	m.starts = append(m.starts, req)
	return &conversation.Response{
		ConversationID: req.ConversationID,
		Message:        "Hello! How can I help you today?",
		Intent:         conversation.IntentGreeting,
		Timestamp:      time.Now().UTC(),
	}, nil
}

func (m *mockService) ProcessMessage(_ context.Context, req conversation.MessageRequest) (*conversation.Response, error) {
	m.messages = append(m.messages, req)
	return &conversation.Response{
		ConversationID: req.ConversationID,
		Message:        "echo: " + req.Message,
		Intent:         conversation.IntentGeneral,
		Timestamp:      time.Now().UTC(),
	}, nil
}

func (m *mockService) GetHistory(_ context.Context, conversationID string) ([]conversation.Message, error) {
	return m.history[conversationID], nil
}

func TestConversationID(t *testing.T) {
	assert.Equal(t, "web:sess456", ConversationID("sess456"))
}

func TestGenerateSessionID(t *testing.T) {
	s1 := generateSessionID()
	s2 := generateSessionID()
	assert.NotEmpty(t, s1)
	assert.NotEqual(t, s1, s2)
	assert.Len(t, s1, 32) // 16 bytes = 32 hex chars
}

func TestHandleMessageHTTP(t *testing.T) {
	svc := newMockService()
	h := NewHandler(svc, []byte("// widget"), logging.New("error"))

	body := `{"session_id":"sess1","text":"Hello"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.messages, 1)
	assert.Equal(t, "web:sess1", svc.messages[0].ConversationID)
	assert.Equal(t, conversation.ChannelWeb, svc.messages[0].Channel)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "sess1", resp["session_id"])
	assert.Equal(t, "echo: Hello", resp["message"])
}

func TestHandleMessageGeneratesSession(t *testing.T) {
	svc := newMockService()
	h := NewHandler(svc, nil, logging.New("error"))

	body := `{"text":"Hello"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["session_id"])
}

func TestHandleMessageRequiresText(t *testing.T) {
	h := NewHandler(newMockService(), nil, logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"session_id":"s"}`))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStart(t *testing.T) {
	svc := newMockService()
	h := NewHandler(svc, nil, logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/chat/start", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	h.HandleStart(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.starts, 1)
	assert.Equal(t, conversation.ChannelWeb, svc.starts[0].Channel)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Hello! How can I help you today?", resp["message"])
}

func TestHandleHistory(t *testing.T) {
	svc := newMockService()
	svc.history["web:sess1"] = []conversation.Message{
		{Role: "assistant", Content: "Hello!"},
		{Role: "user", Content: "hi"},
	}
	h := NewHandler(svc, nil, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/chat/history?session=sess1", nil)
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "assistant", resp.Messages[0].Role)
	assert.Equal(t, "hi", resp.Messages[1].Text)
}

func TestHandleHistoryRequiresSession(t *testing.T) {
	h := NewHandler(newMockService(), nil, logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/chat/history", nil)
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWidgetJS(t *testing.T) {
	h := NewHandler(newMockService(), []byte("// widget"), logging.New("error"))

	req := httptest.NewRequest(http.MethodGet, "/chat/widget.js", nil)
	w := httptest.NewRecorder()

	h.HandleWidgetJS(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/javascript", w.Header().Get("Content-Type"))
	assert.Equal(t, "// widget", w.Body.String())
}
