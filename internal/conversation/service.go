package conversation

import (
	"context"
	"time"
)

// Service is the conversational surface the transport handlers talk to.
type Service interface {
	StartConversation(ctx context.Context, req StartRequest) (*Response, error)
	ProcessMessage(ctx context.Context, req MessageRequest) (*Response, error)
	GetHistory(ctx context.Context, conversationID string) ([]Message, error)
}

// Message represents a single message in a conversation transcript.
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Channel identifies which transport the conversation is happening on.
type Channel string

const (
	ChannelUnknown Channel = ""
	ChannelWeb     Channel = "web"
)

// StartRequest opens a conversation.
type StartRequest struct {
	ConversationID string  `json:"conversation_id"`
	Channel        Channel `json:"channel"`
}

// MessageRequest is a single patient turn.
type MessageRequest struct {
	ConversationID string  `json:"conversation_id"`
	Message        string  `json:"message"`
	Channel        Channel `json:"channel"`
}

// Response is the assistant's turn.
type Response struct {
	ConversationID  string    `json:"conversation_id"`
	Message         string    `json:"message"`
	Intent          Intent    `json:"intent"`
	BookingID       string    `json:"booking_id,omitempty"`
	BookingComplete bool      `json:"booking_complete,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}
