package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// newTestStore creates a Store over an in-memory SQLite database with all
// migrations applied.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestMigrationsApplyOnce(t *testing.T) {
	st := newTestStore(t)

	// Running the migration loop again must be a no-op.
	if err := st.runMigrations(); err != nil {
		t.Fatalf("second migration run: %v", err)
	}

	var version int
	if err := st.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	if version < 1 {
		t.Errorf("expected at least one applied migration, got %d", version)
	}
}

func TestCreateAndFindUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user, err := st.CreateUser(ctx, "Ali Rezaei", "  ALI  ", "secret123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Username != "ali" {
		t.Errorf("username must be lowercased and trimmed, got %q", user.Username)
	}

	found, err := st.FindUserByUsername(ctx, "Ali")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if found.ID != user.ID || found.Credential != "secret123" {
		t.Errorf("unexpected user %+v", found)
	}

	if _, err := st.FindUserByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateUser_DuplicateUsername(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateUser(ctx, "Ali", "ali", "secret123"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	_, err := st.CreateUser(ctx, "Other Ali", "ali", "different")
	if !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestConversationOwnership(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user, err := st.CreateUser(ctx, "Ali", "ali", "secret123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	userConv, err := st.CreateConversation(ctx, user.ID, "")
	if err != nil {
		t.Fatalf("create user conversation: %v", err)
	}
	guestConv, err := st.CreateConversation(ctx, 0, "guest_abc")
	if err != nil {
		t.Fatalf("create guest conversation: %v", err)
	}
	if userConv == guestConv {
		t.Fatal("conversation ids must be unique")
	}

	uc, err := st.GetConversation(ctx, userConv)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if !uc.OwnedByUser(user.ID) || uc.GuestKey.Valid {
		t.Errorf("expected user-owned conversation, got %+v", uc)
	}

	gc, err := st.GetConversation(ctx, guestConv)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if !gc.OwnedByGuest("guest_abc") || gc.UserID.Valid {
		t.Errorf("expected guest-owned conversation, got %+v", gc)
	}

	if _, err := st.GetConversation(ctx, "no-such-id"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for stale id, got %v", err)
	}

	count, err := st.ConversationCount(ctx)
	if err != nil {
		t.Fatalf("count conversations: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 conversations, got %d", count)
	}
}

func TestHistoryWindow(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	conv, err := st.CreateConversation(ctx, 0, "guest_abc")
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}

	// 250 stored messages, window of 200: exactly the last 200 in original
	// order.
	for i := 1; i <= 250; i++ {
		role := "user"
		if i%2 == 0 {
			role = "assistant"
		}
		if err := st.AppendMessage(ctx, conv, role, fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatalf("append message %d: %v", i, err)
		}
	}

	history, err := st.History(ctx, conv, 200)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 200 {
		t.Fatalf("expected 200 messages, got %d", len(history))
	}
	if history[0].Content != "msg-51" {
		t.Errorf("expected window to start at msg-51, got %q", history[0].Content)
	}
	if history[199].Content != "msg-250" {
		t.Errorf("expected window to end at msg-250, got %q", history[199].Content)
	}
}

func TestHistory_ShortLogUnchanged(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	conv, err := st.CreateConversation(ctx, 0, "guest_abc")
	if err != nil {
		t.Fatalf("create conversation: %v", err)
	}
	for _, content := range []string{"hello", "hi there"} {
		if err := st.AppendMessage(ctx, conv, "user", content); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	history, err := st.History(ctx, conv, 200)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Content != "hello" || history[1].Content != "hi there" {
		t.Errorf("unexpected history %v", history)
	}
}

func TestGuestQuotaMonotonic(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	count, err := st.GuestMessageCount(ctx, "guest_unknown")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("unknown guest must count 0, got %d", count)
	}

	for i := 1; i <= 5; i++ {
		if err := st.IncrementGuestMessages(ctx, "guest_abc"); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
		count, err := st.GuestMessageCount(ctx, "guest_abc")
		if err != nil {
			t.Fatalf("count after %d: %v", i, err)
		}
		if count != i {
			t.Errorf("after %d increments expected %d, got %d", i, i, count)
		}
	}

	// Other guests are unaffected.
	count, err = st.GuestMessageCount(ctx, "guest_other")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 for other guest, got %d", count)
	}
}

func TestListConversations_NewestFirst(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := st.CreateConversation(ctx, 0, "guest_abc")
		if err != nil {
			t.Fatalf("create conversation: %v", err)
		}
		ids = append(ids, id)
	}

	list, err := st.ListConversations(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 conversations, got %d", len(list))
	}
}
