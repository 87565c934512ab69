// Package chat orchestrates a single conversational turn: caller identity,
// conversation scope, guest quota, memory extraction, context assembly and
// the completion call.
package chat

import (
	"errors"
	"log/slog"

	"github.com/siria-chat/siria/internal/siria/llm"
	"github.com/siria-chat/siria/internal/siria/memory"
	"github.com/siria-chat/siria/internal/siria/store"
)

// Sentinel errors forming the turn taxonomy. Handlers map these to fixed
// user-facing responses.
var (
	// ErrEmptyMessage rejects a turn before any state mutation.
	ErrEmptyMessage = errors.New("chat: message required")

	// ErrQuotaExceeded rejects a guest turn at the message cap, before
	// extraction, persistence or the completion call.
	ErrQuotaExceeded = errors.New("chat: guest message limit reached")

	// ErrUpstream wraps completion-collaborator failures. The user's
	// message is already persisted when this is returned, so a client
	// retry resumes from stored history.
	ErrUpstream = errors.New("chat: completion upstream failed")
)

// Fixed user-facing messages, kept verbatim from the product copy.
const (
	// GuestLimitMessage is shown when a guest hits the message cap.
	GuestLimitMessage = "برای ادامه گفتگو بیشتر از 5 پیام، لطفا وارد حساب شوید یا ثبت‌نام کنید."

	// UpstreamFailureMessage is shown for any completion failure.
	UpstreamFailureMessage = "خطای اتصال به سرور"
)

// Config carries the turn policy knobs. All fields are fixed at
// construction; the service holds no other mutable state.
type Config struct {
	// SystemPrompt is prepended to every assembled context.
	SystemPrompt string

	// GuestMessageLimit is the hard cap on counted guest messages.
	GuestMessageLimit int

	// HistoryMaxMessages bounds the trailing history window per turn.
	HistoryMaxMessages int
}

// DefaultGuestMessageLimit is the fixed guest cap when the config leaves it
// unset.
const DefaultGuestMessageLimit = 5

// DefaultHistoryMaxMessages is the default trailing history window.
const DefaultHistoryMaxMessages = 200

// Service runs chat turns against the shared store and the completion
// provider. Safe for concurrent use; each store operation is a single
// short-lived statement and turns are never globally locked.
type Service struct {
	store    *store.Store
	facts    *memory.FactStore
	provider llm.Provider
	rules    memory.Rules
	cfg      Config
	logger   *slog.Logger
}

// NewService creates a chat Service. If logger is nil, the default slog
// logger is used.
func NewService(st *store.Store, facts *memory.FactStore, provider llm.Provider, cfg Config, logger *slog.Logger) *Service {
	if cfg.GuestMessageLimit <= 0 {
		cfg.GuestMessageLimit = DefaultGuestMessageLimit
	}
	if cfg.HistoryMaxMessages <= 0 {
		cfg.HistoryMaxMessages = DefaultHistoryMaxMessages
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    st,
		facts:    facts,
		provider: provider,
		rules:    memory.Bilingual,
		cfg:      cfg,
		logger:   logger,
	}
}
