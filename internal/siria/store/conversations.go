package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Conversation is a chat thread owned by at most one of a registered user
// (UserID valid) or a guest (GuestKey valid). Ownership is assigned at
// creation and never reassigned.
type Conversation struct {
	ID        string
	UserID    sql.NullInt64
	GuestKey  sql.NullString
	CreatedAt time.Time
}

// OwnedByUser reports whether the conversation is owned by the given user.
func (c *Conversation) OwnedByUser(userID int64) bool {
	return c.UserID.Valid && c.UserID.Int64 == userID
}

// OwnedByGuest reports whether the conversation is owned by the given guest
// key and has no registered owner.
func (c *Conversation) OwnedByGuest(guestKey string) bool {
	return !c.UserID.Valid && c.GuestKey.Valid && c.GuestKey.String == guestKey
}

// CreateConversation inserts a fresh conversation owned by userID when
// non-zero, else by guestKey when non-empty. Returns the generated id.
func (s *Store) CreateConversation(ctx context.Context, userID int64, guestKey string) (string, error) {
	id := uuid.NewString()

	var owner sql.NullInt64
	if userID != 0 {
		owner = sql.NullInt64{Int64: userID, Valid: true}
		guestKey = ""
	}
	var guest sql.NullString
	if guestKey != "" {
		guest = sql.NullString{String: guestKey, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, user_id, guest_key, created_at)
		VALUES (?, ?, ?, ?)
	`, id, owner, guest, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}

	return id, nil
}

// GetConversation retrieves a conversation by id.
// Returns ErrNotFound when the id does not resolve to a stored record.
func (s *Store) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	conv := &Conversation{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, guest_key, created_at
		FROM conversations
		WHERE id = ?
	`, id).Scan(&conv.ID, &conv.UserID, &conv.GuestKey, &conv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conv, nil
}

// ConversationCount returns the total number of stored conversations.
func (s *Store) ConversationCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM conversations").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count conversations: %w", err)
	}
	return n, nil
}

// ListConversations returns all conversations, newest first.
func (s *Store) ListConversations(ctx context.Context) ([]*Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, guest_key, created_at
		FROM conversations
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*Conversation
	for rows.Next() {
		conv := &Conversation{}
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.GuestKey, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}

	return conversations, nil
}
