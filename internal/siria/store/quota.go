package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// GuestMessageCount returns the number of counted messages for a guest key.
// Unknown keys count as zero.
func (s *Store) GuestMessageCount(ctx context.Context, guestKey string) (int, error) {
	if guestKey == "" {
		return 0, nil
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT message_count FROM guest_limits WHERE guest_key = ?",
		guestKey,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get guest message count: %w", err)
	}

	return count, nil
}

// IncrementGuestMessages bumps the guest's message counter by one, creating
// the record on first use. The upsert is a single statement so concurrent
// turns for the same guest never lose an increment.
func (s *Store) IncrementGuestMessages(ctx context.Context, guestKey string) error {
	if guestKey == "" {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO guest_limits (guest_key, message_count, updated_at)
		VALUES (?, 1, ?)
		ON CONFLICT(guest_key) DO UPDATE SET
			message_count = message_count + 1,
			updated_at = excluded.updated_at
	`, guestKey, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to increment guest message count: %w", err)
	}

	return nil
}
