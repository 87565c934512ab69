package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/siria-chat/siria/internal/siria/identity"
	"github.com/siria-chat/siria/internal/siria/llm"
	"github.com/siria-chat/siria/internal/siria/memory"
	"github.com/siria-chat/siria/internal/siria/store"
)

// TurnRequest carries one inbound chat turn plus the ambient request
// metadata used to derive a guest identity when no token is supplied.
type TurnRequest struct {
	Message        string
	ConversationID string
	Username       string
	GuestToken     string
	ClientAddr     string
	ClientAgent    string
}

// TurnResult is the successful outcome of a turn.
type TurnResult struct {
	ConversationID string
	Reply          string
}

// Turn processes a single chat turn end to end:
//
//	identity → scope → quota gate (guests) → fact extraction & upsert →
//	persist user message → history window → memory context →
//	completion (once) → persist assistant message
//
// A quota rejection happens before any mutation for that turn: no fact
// writes, no message row, no counter bump. A completion failure is returned
// as ErrUpstream after the user message has been persisted.
func (s *Service) Turn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	text := strings.TrimSpace(req.Message)
	if text == "" {
		return TurnResult{}, ErrEmptyMessage
	}

	userID, err := s.lookupUser(ctx, req.Username)
	if err != nil {
		return TurnResult{}, err
	}

	var guestKey string
	if userID == 0 {
		guestKey = identity.ResolveGuestKey(req.GuestToken, req.ClientAddr, req.ClientAgent)
	}

	conversationID, err := s.ResolveScope(ctx, req.ConversationID, userID, guestKey)
	if err != nil {
		return TurnResult{}, err
	}

	if userID == 0 {
		count, err := s.store.GuestMessageCount(ctx, guestKey)
		if err != nil {
			return TurnResult{}, fmt.Errorf("turn: quota check: %w", err)
		}
		if count >= s.cfg.GuestMessageLimit {
			s.logger.Info("chat: guest quota exceeded", "guest", guestKey, "count", count)
			return TurnResult{}, ErrQuotaExceeded
		}
	}

	owner := memory.UserOwner(userID)
	if userID == 0 {
		owner = memory.GuestOwner(guestKey)
	}

	if facts := s.rules.Extract(text); len(facts) > 0 {
		if err := s.facts.Upsert(ctx, owner, facts, text); err != nil {
			return TurnResult{}, fmt.Errorf("turn: store facts: %w", err)
		}
	}
	if userID == 0 {
		if err := s.store.IncrementGuestMessages(ctx, guestKey); err != nil {
			return TurnResult{}, fmt.Errorf("turn: count guest message: %w", err)
		}
	}

	if err := s.store.AppendMessage(ctx, conversationID, "user", text); err != nil {
		return TurnResult{}, fmt.Errorf("turn: persist message: %w", err)
	}

	history, err := s.store.History(ctx, conversationID, s.cfg.HistoryMaxMessages)
	if err != nil {
		return TurnResult{}, fmt.Errorf("turn: load history: %w", err)
	}

	prompt, err := s.assembleContext(ctx, owner, history)
	if err != nil {
		return TurnResult{}, err
	}

	reply, err := s.provider.Complete(ctx, prompt)
	if err != nil {
		s.logger.Error("chat: completion failed", "conversation", conversationID, "err", err)
		return TurnResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if err := s.store.AppendMessage(ctx, conversationID, "assistant", reply); err != nil {
		return TurnResult{}, fmt.Errorf("turn: persist reply: %w", err)
	}

	return TurnResult{ConversationID: conversationID, Reply: reply}, nil
}

// lookupUser resolves a username to a user id via the auth collaborator.
// Empty or unknown usernames resolve to the guest path (id 0).
func (s *Service) lookupUser(ctx context.Context, username string) (int64, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return 0, nil
	}

	user, err := s.store.FindUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("turn: lookup user: %w", err)
	}
	return user.ID, nil
}

// assembleContext builds the message list for the completion endpoint:
// the fixed system prompt, an optional memory-context block, then the
// windowed history (the current user message is its trailing entry).
func (s *Service) assembleContext(ctx context.Context, owner memory.Owner, history []store.ChatMessage) ([]llm.Message, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: "system", Content: s.cfg.SystemPrompt})

	memoryContext, err := s.facts.ContextFor(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("turn: memory context: %w", err)
	}
	if memoryContext != "" {
		messages = append(messages, llm.Message{Role: "system", Content: memoryContext})
	}

	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}

	return messages, nil
}
