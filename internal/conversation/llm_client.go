package conversation

import "context"

// Roles in the chat transcript. The system role never reaches the patient
// history; it carries the clinic persona and retrieved knowledge.
const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one transcript turn in the shape both LLM backends accept.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TokenUsage reports what one completion cost. int32 matches what the Gemini
// SDK reports natively.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// LLMRequest is a backend-neutral completion request. System prompts stay
// separate from Messages because the backends splice them in differently:
// OpenAI-compatible APIs prepend system messages, Gemini sets a single
// system instruction.
type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

// LLMResponse carries the generated text plus enough metadata to account for
// the call.
type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// LLMClient abstracts the chat backend. OpenAIClient talks to Groq through
// its OpenAI-compatible endpoint; GeminiClient covers Google's API. The
// engine treats both the same and degrades to canned replies when neither is
// configured.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}
