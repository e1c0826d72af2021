package conversation

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/medbook-ai/booking-assistant/internal/booking"
	"github.com/medbook-ai/booking-assistant/internal/bookings"
	"github.com/medbook-ai/booking-assistant/internal/observability/metrics"
	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

// llmHistoryWindow is how many recent turns ride along on each completion.
const llmHistoryWindow = 10

// BookingCreator persists completed wizard records and answers lookups for
// existing ones.
type BookingCreator interface {
	PersistAndNotify(ctx context.Context, rec *booking.Record) (*bookings.Detail, error)
	FindByEmail(ctx context.Context, email string) ([]bookings.Detail, error)
}

// Retriever supplies clinic knowledge for general questions.
type Retriever interface {
	Context(ctx context.Context, conversationID, question string) (string, error)
	Summaries() map[string]string
}

// EngineConfig wires the engine's collaborators. LLM, Knowledge, Archive and
// Metrics are optional; Redis, Wizard and Bookings are not.
type EngineConfig struct {
	Redis     *redis.Client
	Wizard    *booking.Wizard
	Bookings  BookingCreator
	LLM       LLMClient
	LLMModel  string
	Knowledge Retriever
	Archive   *ArchiveStore
	Metrics   *metrics.ChatMetrics
	Logger    *logging.Logger
	Clinic    ClinicInfo
}

// Engine routes each inbound message: an in-flight booking session always
// wins, then keyword intents, then the LLM with retrieved clinic knowledge.
type Engine struct {
	wizard    *booking.Wizard
	creator   BookingCreator
	llm       LLMClient
	model     string
	knowledge Retriever
	history   *historyStore
	sessions  *sessionStore
	archive   *ArchiveStore
	metrics   *metrics.ChatMetrics
	logger    *logging.Logger
	clinic    ClinicInfo
	now       func() time.Time
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Redis == nil {
		panic("conversation: redis client required")
	}
	if cfg.Wizard == nil {
		panic("conversation: booking wizard required")
	}
	if cfg.Bookings == nil {
		panic("conversation: booking creator required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Clinic.Name == "" {
		cfg.Clinic.Name = "the clinic"
	}
	return &Engine{
		wizard:    cfg.Wizard,
		creator:   cfg.Bookings,
		llm:       cfg.LLM,
		model:     cfg.LLMModel,
		knowledge: cfg.Knowledge,
		history:   newHistoryStore(cfg.Redis, nil),
		sessions:  newSessionStore(cfg.Redis, nil),
		archive:   cfg.Archive,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		clinic:    cfg.Clinic,
		now:       time.Now,
	}
}

var _ Service = (*Engine)(nil)

// StartConversation opens the conversation with a welcome message.
func (e *Engine) StartConversation(ctx context.Context, req StartRequest) (*Response, error) {
	if strings.TrimSpace(req.ConversationID) == "" {
		return nil, errors.New("conversation: conversation id is required")
	}
	channel := req.Channel
	if channel == ChannelUnknown {
		channel = ChannelWeb
	}

	if _, err := e.archive.EnsureConversation(ctx, req.ConversationID, string(channel)); err != nil {
		e.logger.Warn("conversation archive unavailable", "conversation_id", req.ConversationID, "error", err)
	}

	welcome := fmt.Sprintf(
		"Hello! I'm the virtual assistant for %s. I can answer questions about our services and help you book an appointment. How can I help you today?",
		e.clinic.Name)

	if err := e.history.Save(ctx, req.ConversationID, []ChatMessage{{Role: ChatRoleAssistant, Content: welcome}}); err != nil {
		return nil, err
	}
	e.archiveTurn(ctx, req.ConversationID, ChatRoleAssistant, welcome)

	return &Response{
		ConversationID: req.ConversationID,
		Message:        welcome,
		Intent:         IntentGreeting,
		Timestamp:      e.now().UTC(),
	}, nil
}

// ProcessMessage handles one patient turn.
func (e *Engine) ProcessMessage(ctx context.Context, req MessageRequest) (*Response, error) {
	conversationID := strings.TrimSpace(req.ConversationID)
	if conversationID == "" {
		return nil, errors.New("conversation: conversation id is required")
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return e.respond(conversationID, "I didn't catch that. Could you say it again?", IntentGeneral), nil
	}

	history, err := e.history.Load(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	session, err := e.sessions.Load(ctx, conversationID)
	if err != nil {
		e.logger.Warn("booking session load failed", "conversation_id", conversationID, "error", err)
	}

	var resp *Response
	if session != nil && session.Active() {
		resp = e.continueBooking(ctx, conversationID, session, text)
	} else {
		resp = e.route(ctx, conversationID, text, history)
	}

	e.metrics.ObserveMessage(string(resp.Intent))

	history = append(history,
		ChatMessage{Role: ChatRoleUser, Content: text},
		ChatMessage{Role: ChatRoleAssistant, Content: resp.Message},
	)
	if err := e.history.Save(ctx, conversationID, history); err != nil {
		e.logger.Error("history save failed", "conversation_id", conversationID, "error", err)
	}
	e.archiveTurn(ctx, conversationID, ChatRoleUser, text)
	e.archiveTurn(ctx, conversationID, ChatRoleAssistant, resp.Message)

	return resp, nil
}

// GetHistory returns the live transcript.
func (e *Engine) GetHistory(ctx context.Context, conversationID string) ([]Message, error) {
	history, err := e.history.Load(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(history))
	for _, m := range history {
		if m.Role == ChatRoleSystem {
			continue
		}
		out = append(out, Message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

func (e *Engine) continueBooking(ctx context.Context, conversationID string, session *booking.Session, text string) *Response {
	result, err := e.wizard.Submit(session, text, e.now())
	if err != nil {
		// The stored session already finished; drop it and route the message
		// as if it arrived fresh.
		e.deleteSession(ctx, conversationID)
		history, _ := e.history.Load(ctx, conversationID)
		return e.route(ctx, conversationID, text, history)
	}

	if result.Invalid != nil {
		e.metrics.ObserveValidationFailure(string(result.Invalid.Field))
	}

	switch {
	case result.Cancelled:
		e.metrics.ObserveBookingCancelled()
		e.deleteSession(ctx, conversationID)
		return e.respond(conversationID, result.Reply, IntentBooking)

	case result.Done:
		e.deleteSession(ctx, conversationID)
		detail, err := e.creator.PersistAndNotify(ctx, result.Record)
		if err != nil {
			if errors.Is(err, bookings.ErrRateLimited) {
				return e.respond(conversationID, "You've requested several bookings in a short time, so I can't create another one right now. Please call us instead.",
					IntentBooking)
			}
			e.logger.Error("booking persistence failed", "conversation_id", conversationID, "error", err)
			return e.respond(conversationID, "I'm sorry, something went wrong while saving your booking. Please try again in a moment or call us directly.",
				IntentBooking)
		}
		e.metrics.ObserveBookingCompleted()
		resp := e.respond(conversationID, result.Reply, IntentBooking)
		resp.BookingID = detail.ID.String()
		resp.BookingComplete = true
		return resp

	default:
		if err := e.sessions.Save(ctx, conversationID, session); err != nil {
			e.logger.Error("booking session save failed", "conversation_id", conversationID, "error", err)
		}
		return e.respond(conversationID, result.Reply, IntentBooking)
	}
}

func (e *Engine) route(ctx context.Context, conversationID, text string, history []ChatMessage) *Response {
	intent := Classify(text)

	switch intent {
	case IntentBooking:
		session := booking.NewSession(conversationID, e.now())
		if err := e.sessions.Save(ctx, conversationID, session); err != nil {
			e.logger.Error("booking session save failed", "conversation_id", conversationID, "error", err)
			return e.respond(conversationID, "I'm having trouble starting a booking right now. Please try again in a moment.",
				IntentBooking)
		}
		e.metrics.ObserveBookingStarted()
		return e.respond(conversationID, e.wizard.Greeting(), IntentBooking)

	case IntentGreeting:
		return e.respond(conversationID, fmt.Sprintf(
			"Hello! Welcome to %s. I can answer questions about our services or help you book an appointment. What can I do for you?",
			e.clinic.Name), IntentGreeting)

	case IntentHelp:
		return e.respond(conversationID, fmt.Sprintf(
			"I can answer questions about %s, our services, hours and policies, and I can book an appointment for you. Just say 'book an appointment' to get started.",
			e.clinic.Name), IntentHelp)

	case IntentDocuments:
		return e.respond(conversationID, e.describeKnowledge(), IntentDocuments)

	case IntentLookup:
		return e.lookupBookings(ctx, conversationID, text)

	default:
		// A bare email right after we asked for one is the lookup answer, not
		// a general question.
		if extractEmail(text) != "" && lastAssistantMessage(history) == lookupEmailPrompt {
			return e.lookupBookings(ctx, conversationID, text)
		}
		return e.answerGeneral(ctx, conversationID, text, history)
	}
}

const lookupEmailPrompt = "Sure, I can check that. What's the email address the booking was made under?"

var inlineEmailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

func extractEmail(text string) string {
	return strings.ToLower(inlineEmailRe.FindString(text))
}

func lastAssistantMessage(history []ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == ChatRoleAssistant {
			return history[i].Content
		}
	}
	return ""
}

func (e *Engine) lookupBookings(ctx context.Context, conversationID, text string) *Response {
	email := extractEmail(text)
	if email == "" {
		return e.respond(conversationID, lookupEmailPrompt, IntentLookup)
	}

	details, err := e.creator.FindByEmail(ctx, email)
	if err != nil {
		e.logger.Error("booking lookup failed", "conversation_id", conversationID, "error", err)
		return e.respond(conversationID, fmt.Sprintf(
			"I'm sorry, I couldn't check our records just now. Please try again in a moment or call %s%s.",
			e.clinic.Name, phoneSuffix(e.clinic.Phone)), IntentLookup)
	}
	if len(details) == 0 {
		return e.respond(conversationID, fmt.Sprintf(
			"I couldn't find any bookings under %s. Would you like to book an appointment?", email), IntentLookup)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's what I have for %s:\n", email)
	for _, d := range details {
		fmt.Fprintf(&b, "- %s on %s at %s (%s)\n",
			d.BookingType, d.Date.Format("Monday, January 2, 2006"), d.Time, d.Status)
	}
	b.WriteString("Is there anything else I can help you with?")
	return e.respond(conversationID, b.String(), IntentLookup)
}

func (e *Engine) describeKnowledge() string {
	if e.knowledge == nil {
		return "I don't have any clinic documents loaded yet, but I can still help you book an appointment."
	}
	summaries := e.knowledge.Summaries()
	if len(summaries) == 0 {
		return "I don't have any clinic documents loaded yet, but I can still help you book an appointment."
	}

	docs := make([]string, 0, len(summaries))
	for doc := range summaries {
		docs = append(docs, doc)
	}
	sort.Strings(docs)

	var b strings.Builder
	b.WriteString("Here's what I can answer questions about:\n")
	for _, doc := range docs {
		fmt.Fprintf(&b, "- %s\n", doc)
	}
	b.WriteString("Ask me anything from those, or say 'book an appointment'.")
	return b.String()
}

func (e *Engine) answerGeneral(ctx context.Context, conversationID, text string, history []ChatMessage) *Response {
	fallback := fmt.Sprintf(
		"I'm sorry, I can't answer that right now. Please call %s%s and our staff will help you.",
		e.clinic.Name, phoneSuffix(e.clinic.Phone))

	if e.llm == nil {
		return e.respond(conversationID, fallback, IntentGeneral)
	}

	var knowledgeContext string
	if e.knowledge != nil {
		kctx, err := e.knowledge.Context(ctx, conversationID, text)
		if err != nil {
			e.logger.Warn("knowledge retrieval failed", "conversation_id", conversationID, "error", err)
		} else {
			knowledgeContext = kctx
		}
	}

	window := history
	if len(window) > llmHistoryWindow {
		window = window[len(window)-llmHistoryWindow:]
	}
	messages := make([]ChatMessage, 0, len(window)+1)
	messages = append(messages, window...)
	messages = append(messages, ChatMessage{Role: ChatRoleUser, Content: text})

	started := e.now()
	resp, err := e.llm.Complete(ctx, LLMRequest{
		Model:       e.model,
		System:      buildSystemPrompts(e.clinic, knowledgeContext),
		Messages:    messages,
		MaxTokens:   512,
		Temperature: 0.3,
	})
	e.metrics.ObserveLLMLatency(e.now().Sub(started).Seconds())
	if err != nil {
		e.logger.Error("llm completion failed", "conversation_id", conversationID, "error", err)
		return e.respond(conversationID, fallback, IntentGeneral)
	}

	reply := resp.Text
	if reply == "" {
		reply = fallback
	}
	return e.respond(conversationID, reply, IntentGeneral)
}

func (e *Engine) respond(conversationID, message string, intent Intent) *Response {
	return &Response{
		ConversationID: conversationID,
		Message:        message,
		Intent:         intent,
		Timestamp:      e.now().UTC(),
	}
}

func (e *Engine) deleteSession(ctx context.Context, conversationID string) {
	if err := e.sessions.Delete(ctx, conversationID); err != nil {
		e.logger.Warn("booking session delete failed", "conversation_id", conversationID, "error", err)
	}
}

func (e *Engine) archiveTurn(ctx context.Context, conversationID, role, content string) {
	if err := e.archive.AppendMessage(ctx, conversationID, role, content); err != nil {
		e.logger.Warn("message archive failed", "conversation_id", conversationID, "error", err)
	}
}

func phoneSuffix(phone string) string {
	if phone == "" {
		return ""
	}
	return " at " + phone
}
