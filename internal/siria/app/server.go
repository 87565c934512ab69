package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/siria-chat/siria/common/version"
	"github.com/siria-chat/siria/internal/siria/chat"
	"github.com/siria-chat/siria/internal/siria/store"
)

// Server exposes the chat API plus /health and /status.
type Server struct {
	addr      string
	chat      *chat.Service
	store     *store.Store
	startedAt time.Time
	server    *http.Server
	mux       *http.ServeMux
}

// NewServer creates and configures the HTTP server (does not start it).
func NewServer(addr string, chatSvc *chat.Service, st *store.Store) *Server {
	mux := http.NewServeMux()
	s := &Server{
		addr:      addr,
		chat:      chatSvc,
		store:     st,
		startedAt: time.Now(),
		mux:       mux,
	}
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/signup", s.handleSignup)
	mux.HandleFunc("/api/login", s.handleLogin)
	mux.HandleFunc("/api/conversations", s.handleConversations)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	return s
}

// ServeHTTP implements http.Handler so the server can be tested without a
// live network listener (e.g. with httptest.NewRecorder).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start begins listening in the background. Blocks until the listener is
// established so the caller knows the port is open before returning.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.addr, err)
	}

	s.server = &http.Server{
		Handler:      s,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // the completion call dominates
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", ln.Addr().String())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("server stopped", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown error", "err", err)
		}
	}()

	return nil
}

// Stop shuts down the HTTP server.
func (s *Server) Stop() {
	if s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		slog.Warn("server shutdown error", "err", err)
	}
}

// --- Chat ---------------------------------------------------------------

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	Username       string `json:"username"`
	GuestID        string `json:"guest_id"`
}

type chatResponse struct {
	Reply          string `json:"reply"`
	ConversationID string `json:"conversation_id"`
}

// handleChat handles POST /api/chat: the single entry point for a chat turn.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := s.chat.Turn(r.Context(), chat.TurnRequest{
		Message:        req.Message,
		ConversationID: req.ConversationID,
		Username:       req.Username,
		GuestToken:     req.GuestID,
		ClientAddr:     clientAddr(r),
		ClientAgent:    r.UserAgent(),
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, chatResponse{
			Reply:          result.Reply,
			ConversationID: result.ConversationID,
		})
	case errors.Is(err, chat.ErrEmptyMessage):
		writeError(w, http.StatusBadRequest, "message required")
	case errors.Is(err, chat.ErrQuotaExceeded):
		writeError(w, http.StatusForbidden, chat.GuestLimitMessage)
	case errors.Is(err, chat.ErrUpstream):
		writeError(w, http.StatusInternalServerError, chat.UpstreamFailureMessage)
	default:
		slog.Error("chat turn failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// clientAddr extracts the client network address: the first X-Forwarded-For
// entry when present, else the peer address without its port.
func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// --- Accounts -----------------------------------------------------------

type signupRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userPayload struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// handleSignup handles POST /api/signup.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := strings.TrimSpace(req.Name)
	username := strings.ToLower(strings.TrimSpace(req.Username))
	password := strings.TrimSpace(req.Password)

	if name == "" || username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "name, username and password are required")
		return
	}
	if len(password) < 6 {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	user, err := s.store.CreateUser(r.Context(), name, username, password)
	if errors.Is(err, store.ErrUsernameTaken) {
		writeError(w, http.StatusConflict, "username already exists")
		return
	}
	if err != nil {
		slog.Error("signup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "signup successful",
		"user": userPayload{
			ID:        user.ID,
			Name:      user.Name,
			Username:  user.Username,
			CreatedAt: user.CreatedAt,
		},
	})
}

// handleLogin handles POST /api/login. Credentials are opaque strings: the
// comparison below is the entire authentication collaborator.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	username := strings.ToLower(strings.TrimSpace(req.Username))
	password := strings.TrimSpace(req.Password)
	if username == "" || password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := s.store.FindUserByUsername(r.Context(), username)
	if errors.Is(err, store.ErrNotFound) || (err == nil && user.Credential != password) {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if err != nil {
		slog.Error("login failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "login successful",
		"user": userPayload{
			ID:        user.ID,
			Name:      user.Name,
			Username:  user.Username,
			CreatedAt: user.CreatedAt,
		},
	})
}

// --- Conversations ------------------------------------------------------

type conversationPayload struct {
	ID        string    `json:"id"`
	UserID    *int64    `json:"user_id"`
	GuestID   *string   `json:"guest_id"`
	CreatedAt time.Time `json:"created_at"`
}

// handleConversations handles GET /api/conversations, newest first.
func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conversations, err := s.store.ListConversations(r.Context())
	if err != nil {
		slog.Error("list conversations failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	payload := make([]conversationPayload, 0, len(conversations))
	for _, conv := range conversations {
		p := conversationPayload{ID: conv.ID, CreatedAt: conv.CreatedAt}
		if conv.UserID.Valid {
			id := conv.UserID.Int64
			p.UserID = &id
		}
		if conv.GuestKey.Valid {
			key := conv.GuestKey.String
			p.GuestID = &key
		}
		payload = append(payload, p)
	}

	writeJSON(w, http.StatusOK, payload)
}

// --- Health -------------------------------------------------------------

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

type statusResponse struct {
	Status            string    `json:"status"`
	Version           string    `json:"version"`
	Commit            string    `json:"commit"`
	BuildTime         string    `json:"build_time"`
	StartedAt         time.Time `json:"started_at"`
	UptimeSecs        float64   `json:"uptime_seconds"`
	ConversationCount int       `json:"conversation_count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: version.Version,
		Commit:  version.GitCommit,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count := 0
	if s.store != nil {
		if n, err := s.store.ConversationCount(r.Context()); err == nil {
			count = n
		}
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:            "ok",
		Version:           version.Version,
		Commit:            version.GitCommit,
		BuildTime:         version.BuildTime,
		StartedAt:         s.startedAt,
		UptimeSecs:        time.Since(s.startedAt).Seconds(),
		ConversationCount: count,
	})
}

// --- Helpers ------------------------------------------------------------

// writeJSON serialises v as JSON and writes it to w with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode JSON response", "err", err)
	}
}

// writeError writes a JSON error body with the given status code.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
