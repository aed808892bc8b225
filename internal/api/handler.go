// Package api exposes the chat pipeline and its observability surfaces over
// REST.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/congde/emochat/internal/memory"
	"github.com/congde/emochat/internal/orchestrator"
	"github.com/congde/emochat/internal/protocol"
)

// Runner drives one user turn through the pipeline.
type Runner interface {
	Run(ctx context.Context, ownerID, sessionID, message string) (*orchestrator.Result, error)
}

// MemoryReader exposes the read/forget surface of the memory store.
type MemoryReader interface {
	RecentByOwner(ctx context.Context, ownerID string, limit int) ([]*memory.Record, error)
	Forget(ctx context.Context, id string) error
}

// SessionResolver maps an owner and channel to a session id.
type SessionResolver interface {
	FindOrCreateSession(ctx context.Context, ownerID, channel string) (string, error)
}

// FollowUpLister reads pending follow-ups.
type FollowUpLister interface {
	ListPending(ctx context.Context, ownerID string) ([]*orchestrator.FollowUp, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	runner     Runner
	memories   MemoryReader
	sessions   SessionResolver
	followups  FollowUpLister // optional
	trace      *protocol.TraceLog
	experience *orchestrator.ExperienceLog
	logger     *zap.Logger
}

// NewHandler creates an API handler over the pipeline and its stores.
func NewHandler(runner Runner, memories MemoryReader, sessions SessionResolver,
	followups FollowUpLister, trace *protocol.TraceLog,
	experience *orchestrator.ExperienceLog, logger *zap.Logger) *Handler {
	return &Handler{
		runner:     runner,
		memories:   memories,
		sessions:   sessions,
		followups:  followups,
		trace:      trace,
		experience: experience,
		logger:     logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Post("/chat", h.chat)
		r.Get("/memories", h.listMemories)
		r.Delete("/memories/{id}", h.forgetMemory)
		r.Get("/followups", h.listFollowUps)
		r.Get("/trace/{correlationID}", h.getTrace)
		r.Get("/experience", h.experienceSummary)
	})
	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	OwnerID   string `json:"owner_id"`
	SessionID string `json:"session_id,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Message   string `json:"message"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.OwnerID == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner_id and message are required"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		channel := req.Channel
		if channel == "" {
			channel = "web"
		}
		var err error
		sessionID, err = h.sessions.FindOrCreateSession(r.Context(), req.OwnerID, channel)
		if err != nil {
			h.logger.Error("session resolution failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "session unavailable"})
			return
		}
	}

	result, err := h.runner.Run(r.Context(), req.OwnerID, sessionID, req.Message)
	if err != nil {
		h.logger.Error("pipeline run failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"result":     result,
	})
}

func (h *Handler) listMemories(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner_id is required"})
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	recs, err := h.memories.RecentByOwner(r.Context(), ownerID, limit)
	if err != nil {
		h.logger.Error("memory listing failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "memory store unavailable"})
		return
	}
	if recs == nil {
		recs = []*memory.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *Handler) forgetMemory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.memories.Forget(r.Context(), id); err != nil {
		h.logger.Error("forget failed", zap.String("id", id), zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "memory store unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "forgotten", "id": id})
}

func (h *Handler) listFollowUps(w http.ResponseWriter, r *http.Request) {
	if h.followups == nil {
		writeJSON(w, http.StatusOK, []*orchestrator.FollowUp{})
		return
	}
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "owner_id is required"})
		return
	}
	fus, err := h.followups.ListPending(r.Context(), ownerID)
	if err != nil {
		h.logger.Error("follow-up listing failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "follow-up store unavailable"})
		return
	}
	if fus == nil {
		fus = []*orchestrator.FollowUp{}
	}
	writeJSON(w, http.StatusOK, fus)
}

func (h *Handler) getTrace(w http.ResponseWriter, r *http.Request) {
	correlationID := chi.URLParam(r, "correlationID")
	msgs := h.trace.Trace(correlationID)
	if msgs == nil {
		msgs = []*protocol.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handler) experienceSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"summary": h.experience.Summary()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
