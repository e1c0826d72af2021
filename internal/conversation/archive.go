package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ArchiveStore mirrors conversations into PostgreSQL for long-term history.
// Redis holds the live 24-hour window; this table is what staff and
// compliance look at later. All methods are nil-safe so the engine can run
// without an archive in development.
type ArchiveStore struct {
	db *sql.DB
}

// NewArchiveStore returns nil when no database handle is supplied.
func NewArchiveStore(db *sql.DB) *ArchiveStore {
	if db == nil {
		return nil
	}
	return &ArchiveStore{db: db}
}

// EnsureConversation creates the conversation row on first contact and
// returns its id.
func (s *ArchiveStore) EnsureConversation(ctx context.Context, conversationID, channel string) (uuid.UUID, error) {
	if s == nil || s.db == nil {
		return uuid.Nil, nil
	}

	var existingID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE conversation_id = $1`,
		conversationID,
	).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("conversation: failed to look up conversation: %w", err)
	}

	newID := uuid.New()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, conversation_id, channel, message_count, started_at)
		 VALUES ($1, $2, $3, 0, $4)
		 ON CONFLICT (conversation_id) DO NOTHING`,
		newID, conversationID, channel, time.Now().UTC(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("conversation: failed to create conversation: %w", err)
	}

	// Another writer may have won the insert race; read back the winner.
	if err := s.db.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE conversation_id = $1`,
		conversationID,
	).Scan(&existingID); err != nil {
		return uuid.Nil, fmt.Errorf("conversation: failed to read back conversation: %w", err)
	}
	return existingID, nil
}

// AppendMessage stores one turn and bumps the conversation's counters.
func (s *ArchiveStore) AppendMessage(ctx context.Context, conversationID, role, content string) error {
	if s == nil || s.db == nil {
		return nil
	}

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_messages (id, conversation_id, role, content, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), conversationID, role, content, now,
	)
	if err != nil {
		return fmt.Errorf("conversation: failed to archive message: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE conversations
		 SET message_count = message_count + 1, last_message_at = $2
		 WHERE conversation_id = $1`,
		conversationID, now,
	)
	if err != nil {
		return fmt.Errorf("conversation: failed to update conversation counters: %w", err)
	}
	return nil
}

// ArchivedMessage is one stored turn.
type ArchivedMessage struct {
	ID        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// RecentMessages returns the newest turns of a conversation, oldest first.
func (s *ArchiveStore) RecentMessages(ctx context.Context, conversationID string, limit int) ([]ArchivedMessage, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, created_at
		 FROM (
			SELECT id, role, content, created_at
			FROM conversation_messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		 ) recent
		 ORDER BY created_at ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("conversation: failed to load archived messages: %w", err)
	}
	defer rows.Close()

	var out []ArchivedMessage
	for rows.Next() {
		var m ArchivedMessage
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("conversation: failed to scan archived message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
