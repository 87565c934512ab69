package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/siria-chat/siria/internal/siria/store"
)

// ResolveScope binds a turn to a conversation. Given the caller's identity
// (userID when registered, else guestKey) and an optional requested
// conversation id, it decides whether to reuse, fork or create:
//
//   - no requested id, or the id no longer resolves → create fresh
//   - registered caller owning the conversation → reuse
//   - registered caller, conversation owned by someone else or by a guest
//     → fork a new conversation owned by the caller
//   - guest caller matching the conversation's guest owner (and no user
//     owner) → reuse
//   - guest caller otherwise → fork a new guest-owned conversation
//
// Ownership is never reassigned in place: cross-ownership access always
// yields a fresh conversation instead of exposing another owner's history.
func (s *Service) ResolveScope(ctx context.Context, requestedID string, userID int64, guestKey string) (string, error) {
	if requestedID == "" {
		return s.createScoped(ctx, userID, guestKey)
	}

	conv, err := s.store.GetConversation(ctx, requestedID)
	if errors.Is(err, store.ErrNotFound) {
		// Stale reference: the handle no longer resolves. Treat it as
		// absent rather than surfacing an error.
		return s.createScoped(ctx, userID, guestKey)
	}
	if err != nil {
		return "", fmt.Errorf("resolve scope: %w", err)
	}

	if userID != 0 {
		if conv.OwnedByUser(userID) {
			return requestedID, nil
		}
		// Registered identity never inherits a guest-owned or
		// foreign-owned conversation.
		return s.createScoped(ctx, userID, "")
	}

	if conv.OwnedByGuest(guestKey) {
		return requestedID, nil
	}
	return s.createScoped(ctx, 0, guestKey)
}

func (s *Service) createScoped(ctx context.Context, userID int64, guestKey string) (string, error) {
	id, err := s.store.CreateConversation(ctx, userID, guestKey)
	if err != nil {
		return "", fmt.Errorf("resolve scope: %w", err)
	}
	return id, nil
}
