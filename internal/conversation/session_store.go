package conversation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/medbook-ai/booking-assistant/internal/booking"
)

// sessionStore parks in-flight booking wizard sessions in Redis so a
// conversation survives process restarts mid-wizard.
type sessionStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func newSessionStore(redis *redis.Client, tracer trace.Tracer) *sessionStore {
	if redis == nil {
		panic("conversation: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("medbook.internal.conversation.session")
	}
	return &sessionStore{redis: redis, tracer: tracer}
}

func bookingSessionKey(conversationID string) string {
	return fmt.Sprintf("booking_session:%s", conversationID)
}

// Save persists the wizard session for the conversation.
func (s *sessionStore) Save(ctx context.Context, conversationID string, session *booking.Session) error {
	ctx, span := s.tracer.Start(ctx, "conversation.save_booking_session")
	defer span.End()

	data, err := json.Marshal(session)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal booking session: %w", err)
	}
	if err := s.redis.Set(ctx, bookingSessionKey(conversationID), data, conversationTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist booking session: %w", err)
	}
	return nil
}

// Load returns the active session, or nil when the conversation has none.
func (s *sessionStore) Load(ctx context.Context, conversationID string) (*booking.Session, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_booking_session")
	defer span.End()

	data, err := s.redis.Get(ctx, bookingSessionKey(conversationID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load booking session: %w", err)
	}

	var session booking.Session
	if err := json.Unmarshal(data, &session); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode booking session: %w", err)
	}
	return &session, nil
}

// Delete removes the session once the wizard reaches a terminal state.
func (s *sessionStore) Delete(ctx context.Context, conversationID string) error {
	ctx, span := s.tracer.Start(ctx, "conversation.delete_booking_session")
	defer span.End()

	if err := s.redis.Del(ctx, bookingSessionKey(conversationID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to delete booking session: %w", err)
	}
	return nil
}
