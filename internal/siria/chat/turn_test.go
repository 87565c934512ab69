package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/siria-chat/siria/internal/siria/identity"
)

func TestTurn_EmptyMessageRejected(t *testing.T) {
	provider := &fakeProvider{reply: "hi"}
	svc, st := newTestService(t, provider, Config{SystemPrompt: "be nice"})

	_, err := svc.Turn(context.Background(), TurnRequest{Message: "   "})
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("expected ErrEmptyMessage, got %v", err)
	}
	if provider.calls != 0 {
		t.Error("completion must not be attempted for an empty message")
	}

	// No state mutation at all.
	count, err := st.ConversationCount(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no conversations, got %d", count)
	}
}

func TestTurn_GuestHappyPath(t *testing.T) {
	provider := &fakeProvider{reply: "hello there"}
	svc, st := newTestService(t, provider, Config{SystemPrompt: "be nice"})
	ctx := context.Background()

	result, err := svc.Turn(ctx, TurnRequest{
		Message:     "salam",
		ClientAddr:  "203.0.113.7",
		ClientAgent: "Mozilla/5.0",
	})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if result.Reply != "hello there" {
		t.Errorf("unexpected reply %q", result.Reply)
	}
	if result.ConversationID == "" {
		t.Fatal("expected a conversation id")
	}

	// Both turns are persisted in order.
	history, err := st.History(ctx, result.ConversationID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Role != "user" || history[1].Role != "assistant" {
		t.Fatalf("unexpected history %v", history)
	}

	// The guest counter ticked exactly once.
	guestKey := identity.ResolveGuestKey("", "203.0.113.7", "Mozilla/5.0")
	count, err := st.GuestMessageCount(ctx, guestKey)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected guest count 1, got %d", count)
	}

	// The assembled context opens with the system prompt and ends with the
	// user's message.
	if len(provider.last) < 2 {
		t.Fatalf("unexpected context %v", provider.last)
	}
	if provider.last[0].Role != "system" || provider.last[0].Content != "be nice" {
		t.Errorf("context must open with the system prompt, got %+v", provider.last[0])
	}
	if provider.last[len(provider.last)-1].Content != "salam" {
		t.Errorf("context must end with the user message, got %+v", provider.last[len(provider.last)-1])
	}
}

func TestTurn_GuestQuotaRejection(t *testing.T) {
	provider := &fakeProvider{reply: "hi"}
	svc, st := newTestService(t, provider, Config{GuestMessageLimit: 5})
	ctx := context.Background()

	guestKey := "guest_pinned"
	for i := 0; i < 5; i++ {
		if err := st.IncrementGuestMessages(ctx, guestKey); err != nil {
			t.Fatalf("seed increment: %v", err)
		}
	}

	_, err := svc.Turn(ctx, TurnRequest{Message: "one more?", GuestToken: guestKey})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}

	// The rejected turn left no trace: no message row, no counter bump,
	// no completion attempt.
	count, err := st.GuestMessageCount(ctx, guestKey)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 5 {
		t.Errorf("quota must not be incremented for a rejected turn, got %d", count)
	}
	if provider.calls != 0 {
		t.Error("completion must not be attempted for a rejected turn")
	}

	conversations, err := st.ListConversations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, conv := range conversations {
		n, err := st.MessageCount(ctx, conv.ID)
		if err != nil {
			t.Fatalf("message count: %v", err)
		}
		if n != 0 {
			t.Errorf("rejected turn must not persist messages, found %d in %s", n, conv.ID)
		}
	}
}

func TestTurn_RegisteredUserExemptFromQuota(t *testing.T) {
	provider := &fakeProvider{reply: "sure"}
	svc, st := newTestService(t, provider, Config{GuestMessageLimit: 1})
	ctx := context.Background()
	mustCreateUser(t, st, "Ali", "ali")

	for i := 0; i < 3; i++ {
		if _, err := svc.Turn(ctx, TurnRequest{Message: "hi again", Username: "ali"}); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}
	if provider.calls != 3 {
		t.Errorf("expected 3 completions, got %d", provider.calls)
	}
}

func TestTurn_UpstreamFailureAfterPersist(t *testing.T) {
	provider := &fakeProvider{fail: errors.New("boom")}
	svc, st := newTestService(t, provider, Config{})
	ctx := context.Background()

	_, err := svc.Turn(ctx, TurnRequest{Message: "hello", GuestToken: "guest_pinned"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("completion must be attempted exactly once, got %d", provider.calls)
	}

	// The user's message is already persisted, so a retry resumes from
	// stored history instead of duplicating it.
	conversations, err := st.ListConversations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(conversations) != 1 {
		t.Fatalf("expected one conversation, got %d", len(conversations))
	}
	history, err := st.History(ctx, conversations[0].ID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Role != "user" || history[0].Content != "hello" {
		t.Errorf("expected only the persisted user message, got %v", history)
	}
}

func TestTurn_MemoryFlowsIntoNextContext(t *testing.T) {
	provider := &fakeProvider{reply: "nice to meet you"}
	svc, _ := newTestService(t, provider, Config{SystemPrompt: "be nice"})
	ctx := context.Background()

	result, err := svc.Turn(ctx, TurnRequest{Message: "my name is Ali", GuestToken: "guest_pinned"})
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}

	_, err = svc.Turn(ctx, TurnRequest{
		Message:        "what is my name?",
		ConversationID: result.ConversationID,
		GuestToken:     "guest_pinned",
	})
	if err != nil {
		t.Fatalf("second turn: %v", err)
	}

	if len(provider.last) < 3 {
		t.Fatalf("expected system prompt + memory block + history, got %v", provider.last)
	}
	memoryBlock := provider.last[1]
	if memoryBlock.Role != "system" || !strings.Contains(memoryBlock.Content, "First name: Ali") {
		t.Errorf("expected memory context with the extracted name, got %+v", memoryBlock)
	}
}

func TestTurn_UnknownUsernameFallsBackToGuest(t *testing.T) {
	provider := &fakeProvider{reply: "hi"}
	svc, st := newTestService(t, provider, Config{})
	ctx := context.Background()

	_, err := svc.Turn(ctx, TurnRequest{
		Message:    "hello",
		Username:   "ghost",
		GuestToken: "guest_pinned",
	})
	if err != nil {
		t.Fatalf("turn: %v", err)
	}

	count, err := st.GuestMessageCount(ctx, "guest_pinned")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("unknown username must be treated as guest, count %d", count)
	}
}
