package conversation

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medbook-ai/booking-assistant/internal/booking"
	"github.com/medbook-ai/booking-assistant/internal/bookings"
	"github.com/medbook-ai/booking-assistant/pkg/logging"
)

type fakeLLM struct {
	reply    string
	err      error
	requests []LLMRequest
}

func (f *fakeLLM) Complete(_ context.Context, req LLMRequest) (LLMResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return LLMResponse{}, f.err
	}
	return LLMResponse{Text: f.reply}, nil
}

type fakeRetriever struct {
	context   string
	summaries map[string]string
}

func (f *fakeRetriever) Context(_ context.Context, _, _ string) (string, error) {
	return f.context, nil
}

func (f *fakeRetriever) Summaries() map[string]string { return f.summaries }

type engineFixture struct {
	engine *Engine
	llm    *fakeLLM
	repo   *bookings.InMemoryRepository
	sent   *captureNotifier
}

type captureNotifier struct {
	sent []*bookings.Detail
}

func (c *captureNotifier) BookingCreated(_ context.Context, d *bookings.Detail) error {
	c.sent = append(c.sent, d)
	return nil
}

var engineNow = time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	llm := &fakeLLM{reply: "We are open from 8am to 6pm."}
	repo := bookings.NewInMemoryRepository()
	notifier := &captureNotifier{}
	svc := bookings.NewService(repo, notifier, logging.Default())

	engine := NewEngine(EngineConfig{
		Redis:    client,
		Wizard:   booking.NewWizard(booking.DefaultRules()),
		Bookings: svc,
		LLM:      llm,
		Knowledge: &fakeRetriever{
			context:   "[Source: faq]\nA checkup costs $75.",
			summaries: map[string]string{"faq": "Clinic FAQ"},
		},
		Logger: logging.Default(),
		Clinic: ClinicInfo{Name: "HealthFirst Medical Center", Phone: "+1-555-0123"},
	})
	engine.now = func() time.Time { return engineNow }

	return &engineFixture{engine: engine, llm: llm, repo: repo, sent: notifier}
}

func (f *engineFixture) send(t *testing.T, text string) *Response {
	t.Helper()
	resp, err := f.engine.ProcessMessage(context.Background(), MessageRequest{
		ConversationID: "conv-1",
		Message:        text,
	})
	require.NoError(t, err)
	return resp
}

func TestEngineStartConversation(t *testing.T) {
	f := newEngineFixture(t)

	resp, err := f.engine.StartConversation(context.Background(), StartRequest{ConversationID: "conv-1"})
	require.NoError(t, err)
	assert.Contains(t, resp.Message, "HealthFirst Medical Center")
	assert.Equal(t, IntentGreeting, resp.Intent)

	history, err := f.engine.GetHistory(context.Background(), "conv-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "assistant", history[0].Role)
}

func TestEngineGreetingAndHelp(t *testing.T) {
	f := newEngineFixture(t)

	resp := f.send(t, "hello")
	assert.Equal(t, IntentGreeting, resp.Intent)

	resp = f.send(t, "what can you do?")
	assert.Equal(t, IntentHelp, resp.Intent)
	assert.Contains(t, resp.Message, "book an appointment")
}

func TestEngineGeneralQuestionUsesLLMWithKnowledge(t *testing.T) {
	f := newEngineFixture(t)

	resp := f.send(t, "how much does a checkup cost?")
	assert.Equal(t, IntentGeneral, resp.Intent)
	assert.Equal(t, "We are open from 8am to 6pm.", resp.Message)

	require.Len(t, f.llm.requests, 1)
	req := f.llm.requests[0]
	require.Len(t, req.System, 2, "persona plus knowledge context")
	assert.Contains(t, req.System[1], "$75")
	assert.Contains(t, req.System[0], "HealthFirst Medical Center")
}

func TestEngineLLMFailureFallsBack(t *testing.T) {
	f := newEngineFixture(t)
	f.llm.err = context.DeadlineExceeded

	resp := f.send(t, "do you take walk-ins?")
	assert.Contains(t, resp.Message, "+1-555-0123")
}

func TestEngineFullBookingFlow(t *testing.T) {
	f := newEngineFixture(t)

	resp := f.send(t, "I'd like to book an appointment")
	assert.Equal(t, IntentBooking, resp.Intent)
	assert.Contains(t, resp.Message, "full name")

	f.send(t, "jane doe")
	f.send(t, "jane@example.com")
	f.send(t, "9876543210")
	f.send(t, "general checkup")
	f.send(t, "2026-09-11")
	resp = f.send(t, "14:30")
	assert.Contains(t, resp.Message, "Jane Doe")

	resp = f.send(t, "yes")
	assert.True(t, resp.BookingComplete)
	assert.NotEmpty(t, resp.BookingID)
	assert.Contains(t, resp.Message, "pending confirmation")

	// The booking hit the repository and the notifier exactly once.
	all, err := f.repo.ListBookings(context.Background(), bookings.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, booking.StatusPending, all[0].Status)
	assert.Equal(t, "jane@example.com", all[0].CustomerEmail)
	assert.Len(t, f.sent.sent, 1)

	// The session is gone: a stray "yes" routes as a normal message and
	// cannot double-book.
	resp = f.send(t, "yes")
	assert.NotEqual(t, IntentBooking, resp.Intent)
	all, err = f.repo.ListBookings(context.Background(), bookings.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestEngineBookingValidationStaysInSession(t *testing.T) {
	f := newEngineFixture(t)

	f.send(t, "book an appointment")
	f.send(t, "jane doe")
	f.send(t, "jane@example.com")

	resp := f.send(t, "12-34")
	assert.Equal(t, IntentBooking, resp.Intent)
	assert.Contains(t, resp.Message, "phone")

	resp = f.send(t, "9876543210")
	assert.Equal(t, IntentBooking, resp.Intent)
	assert.Contains(t, strings.ToLower(resp.Message), "type of appointment")
}

func TestEngineBookingCancellation(t *testing.T) {
	f := newEngineFixture(t)

	f.send(t, "book an appointment")
	f.send(t, "jane doe")
	resp := f.send(t, "cancel")
	assert.Contains(t, resp.Message, "cancelled")

	// Next message is back to normal routing.
	resp = f.send(t, "hello")
	assert.Equal(t, IntentGreeting, resp.Intent)
}

func TestEngineSessionSurvivesRestart(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := bookings.NewInMemoryRepository()
	svc := bookings.NewService(repo, nil, logging.Default())

	build := func() *Engine {
		e := NewEngine(EngineConfig{
			Redis:    client,
			Wizard:   booking.NewWizard(booking.DefaultRules()),
			Bookings: svc,
			Logger:   logging.Default(),
			Clinic:   ClinicInfo{Name: "HealthFirst Medical Center"},
		})
		e.now = func() time.Time { return engineNow }
		return e
	}

	first := build()
	_, err := first.ProcessMessage(context.Background(), MessageRequest{ConversationID: "conv-9", Message: "book an appointment"})
	require.NoError(t, err)
	_, err = first.ProcessMessage(context.Background(), MessageRequest{ConversationID: "conv-9", Message: "jane doe"})
	require.NoError(t, err)

	// A new engine instance picks the wizard up at the email step.
	second := build()
	resp, err := second.ProcessMessage(context.Background(), MessageRequest{ConversationID: "conv-9", Message: "jane@example.com"})
	require.NoError(t, err)
	assert.Equal(t, IntentBooking, resp.Intent)
	assert.Contains(t, strings.ToLower(resp.Message), "phone")
}

func TestEngineLookupFlow(t *testing.T) {
	f := newEngineFixture(t)

	f.send(t, "book an appointment")
	f.send(t, "jane doe")
	f.send(t, "jane@example.com")
	f.send(t, "9876543210")
	f.send(t, "general checkup")
	f.send(t, "2026-09-11")
	f.send(t, "14:30")
	f.send(t, "yes")

	// No email in the message: the engine asks for one, then treats the bare
	// address on the next turn as the answer.
	resp := f.send(t, "when is my appointment?")
	assert.Equal(t, IntentLookup, resp.Intent)
	assert.Contains(t, resp.Message, "email address")

	resp = f.send(t, "jane@example.com")
	assert.Equal(t, IntentLookup, resp.Intent)
	assert.Contains(t, resp.Message, "September 11")
	assert.Contains(t, resp.Message, "14:30")

	// An inline email skips the prompt.
	resp = f.send(t, "check my booking for jane@example.com")
	assert.Equal(t, IntentLookup, resp.Intent)
	assert.Contains(t, resp.Message, "14:30")
}

func TestEngineLookupUnknownEmail(t *testing.T) {
	f := newEngineFixture(t)

	resp := f.send(t, "look up my appointment for nobody@example.com")
	assert.Equal(t, IntentLookup, resp.Intent)
	assert.Contains(t, resp.Message, "couldn't find any bookings")
}

func TestEngineDocumentsIntent(t *testing.T) {
	f := newEngineFixture(t)

	resp := f.send(t, "what documents do you have?")
	assert.Equal(t, IntentDocuments, resp.Intent)
	assert.Contains(t, resp.Message, "faq")
}

func TestEngineHistoryCapped(t *testing.T) {
	f := newEngineFixture(t)

	for range 20 {
		f.send(t, "hello")
	}
	history, err := f.engine.GetHistory(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(history), maxHistoryMessages)
}
