package chat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/medbook-ai/booking-assistant/internal/conversation"
	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

// Handler serves the patient-facing chat widget over WebSocket, with an HTTP
// fallback for environments that block the upgrade.
type Handler struct {
	svc      conversation.Service
	logger   *logging.Logger
	widgetJS []byte

	mu       sync.RWMutex
	sessions map[string]*wsConn // conversationID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	done chan struct{}
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type            string           `json:"type"` // "message", "typing", "history", "session", "pong", "error"
	Text            string           `json:"text,omitempty"`
	Role            string           `json:"role,omitempty"`
	SessionID       string           `json:"session_id,omitempty"`
	Timestamp       string           `json:"timestamp,omitempty"`
	BookingID       string           `json:"booking_id,omitempty"`
	BookingComplete bool             `json:"booking_complete,omitempty"`
	Messages        []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// NewHandler creates a chat handler.
func NewHandler(svc conversation.Service, widgetJS []byte, logger *logging.Logger) *Handler {
	if svc == nil {
		panic("chat: conversation service cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		svc:      svc,
		logger:   logger,
		widgetJS: widgetJS,
		sessions: make(map[string]*wsConn),
	}
}

// ConversationID builds the canonical conversation ID for a chat session.
func ConversationID(sessionID string) string {
	return "web:" + sessionID
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	fresh := sessionID == ""
	if fresh {
		sessionID = generateSessionID()
	}
	convID := ConversationID(sessionID)

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "session",
		SessionID: sessionID,
	})

	if fresh {
		resp, err := h.svc.StartConversation(r.Context(), conversation.StartRequest{
			ConversationID: convID,
			Channel:        conversation.ChannelWeb,
		})
		if err != nil {
			h.logger.Error("chat: failed to start conversation", "session_id", sessionID, "error", err)
		} else {
			_ = websocket.JSON.Send(conn, outbound(resp))
		}
	} else if msgs, err := h.svc.GetHistory(r.Context(), convID); err == nil && len(msgs) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: historyMessages(msgs)})
	}

	wsc := &wsConn{conn: conn, done: make(chan struct{})}
	h.mu.Lock()
	h.sessions[convID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[convID] == wsc {
			delete(h.sessions, convID)
		}
		h.mu.Unlock()
		close(wsc.done)
	}()

	h.logger.Info("chat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("chat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}

		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})
		h.processMessage(r.Context(), conn, sessionID, msg.Text)
	}
}

func (h *Handler) processMessage(ctx context.Context, conn *websocket.Conn, sessionID, text string) {
	resp, err := h.svc.ProcessMessage(ctx, conversation.MessageRequest{
		ConversationID: ConversationID(sessionID),
		Message:        text,
		Channel:        conversation.ChannelWeb,
	})
	if err != nil {
		h.logger.Error("chat: failed to process message", "session_id", sessionID, "error", err)
		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type: "error",
			Text: "Sorry, something went wrong. Please try again.",
		})
		return
	}
	_ = websocket.JSON.Send(conn, outbound(resp))
}

func outbound(resp *conversation.Response) OutboundMessage {
	return OutboundMessage{
		Type:            "message",
		Role:            "assistant",
		Text:            resp.Message,
		Timestamp:       resp.Timestamp.Format(time.RFC3339),
		BookingID:       resp.BookingID,
		BookingComplete: resp.BookingComplete,
	}
}

func historyMessages(msgs []conversation.Message) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryMessage{Role: m.Role, Text: m.Content})
	}
	return out
}

// HandleMessage is the HTTP fallback for sending messages.
// POST /chat/message {"session_id": "...", "text": "..."}
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	resp, err := h.svc.ProcessMessage(r.Context(), conversation.MessageRequest{
		ConversationID: ConversationID(req.SessionID),
		Message:        req.Text,
		Channel:        conversation.ChannelWeb,
	})
	if err != nil {
		h.logger.Error("chat: failed to process message", "session_id", req.SessionID, "error", err)
		http.Error(w, "failed to process message", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id":       req.SessionID,
		"message":          resp.Message,
		"intent":           resp.Intent,
		"booking_id":       resp.BookingID,
		"booking_complete": resp.BookingComplete,
		"timestamp":        resp.Timestamp.Format(time.RFC3339),
	})
}

// HandleStart opens a conversation over HTTP and returns the greeting.
// POST /chat/start {"session_id": "..."} (session_id optional)
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	resp, err := h.svc.StartConversation(r.Context(), conversation.StartRequest{
		ConversationID: ConversationID(req.SessionID),
		Channel:        conversation.ChannelWeb,
	})
	if err != nil {
		h.logger.Error("chat: failed to start conversation", "session_id", req.SessionID, "error", err)
		http.Error(w, "failed to start conversation", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"session_id": req.SessionID,
		"message":    resp.Message,
		"timestamp":  resp.Timestamp.Format(time.RFC3339),
	})
}

// HandleHistory returns chat history for a session.
// GET /chat/history?session=...
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	msgs, err := h.svc.GetHistory(r.Context(), ConversationID(sessionID))
	if err != nil {
		h.logger.Error("chat: failed to load history", "session_id", sessionID, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": historyMessages(msgs)})
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(h.widgetJS)
}
