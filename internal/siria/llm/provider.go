// Package llm defines the completion collaborator: an interface accepting an
// ordered list of role-tagged messages and returning reply text or an error.
// The core's only contract with it is "send assembled context, receive text".
package llm

import "context"

// Message is a single role-tagged entry in the completion context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Provider produces a completion for an assembled conversation context.
// Implementations must be safe for concurrent use. Callers attempt a
// completion at most once per turn; providers must not retry internally.
type Provider interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
