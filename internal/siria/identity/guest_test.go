package identity

import (
	"strings"
	"testing"
)

func TestResolveGuestKey_TokenPassthrough(t *testing.T) {
	got := ResolveGuestKey("  my-token  ", "203.0.113.7", "curl/8.0")
	if got != "my-token" {
		t.Errorf("expected caller-pinned token, got %q", got)
	}
}

func TestResolveGuestKey_Deterministic(t *testing.T) {
	a := ResolveGuestKey("", "203.0.113.7", "Mozilla/5.0")
	b := ResolveGuestKey("", "203.0.113.7", "Mozilla/5.0")
	if a != b {
		t.Errorf("same address+agent must yield the same key: %q vs %q", a, b)
	}
}

func TestResolveGuestKey_DerivedShape(t *testing.T) {
	key := ResolveGuestKey("", "203.0.113.7", "Mozilla/5.0")
	if !strings.HasPrefix(key, "guest_") {
		t.Errorf("derived key must carry the guest_ prefix, got %q", key)
	}
	if len(key) != len("guest_")+24 {
		t.Errorf("derived key must keep 24 hex chars, got %d: %q", len(key), key)
	}
}

func TestResolveGuestKey_DistinctInputs(t *testing.T) {
	a := ResolveGuestKey("", "203.0.113.7", "Mozilla/5.0")
	b := ResolveGuestKey("", "203.0.113.8", "Mozilla/5.0")
	c := ResolveGuestKey("", "203.0.113.7", "curl/8.0")
	if a == b || a == c {
		t.Errorf("different address/agent pairs must not collide: %q %q %q", a, b, c)
	}
}

func TestResolveGuestKey_EmptyInputs(t *testing.T) {
	a := ResolveGuestKey("", "", "")
	b := ResolveGuestKey("", "", "")
	if a != b {
		t.Error("empty inputs must still hash deterministically")
	}
	if !strings.HasPrefix(a, "guest_") {
		t.Errorf("unexpected key %q", a)
	}
}
