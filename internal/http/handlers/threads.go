package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hostwise/guestline-ai-platform/internal/conversation"
	"github.com/hostwise/guestline-ai-platform/pkg/logging"
)

// SuggestionReader returns the most recent drafted decision for a thread.
type SuggestionReader interface {
	LatestSuggestion(ctx context.Context, threadID uuid.UUID) (conversation.Draft, error)
}

// ThreadsHandler exposes read endpoints for the operator console.
type ThreadsHandler struct {
	suggestions SuggestionReader
	logger      *logging.Logger
}

func NewThreadsHandler(suggestions SuggestionReader, logger *logging.Logger) *ThreadsHandler {
	if suggestions == nil {
		panic("handlers: suggestion reader cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ThreadsHandler{suggestions: suggestions, logger: logger}
}

type suggestionResponse struct {
	ThreadID  string                `json:"threadId"`
	Decision  conversation.Decision `json:"decision"`
	CreatedAt string                `json:"createdAt"`
}

// GetSuggestion serves GET /threads/{threadID}/suggestion.
func (h *ThreadsHandler) GetSuggestion(w http.ResponseWriter, r *http.Request) {
	threadID, err := uuid.Parse(chi.URLParam(r, "threadID"))
	if err != nil {
		http.Error(w, "invalid thread id", http.StatusBadRequest)
		return
	}

	draft, err := h.suggestions.LatestSuggestion(r.Context(), threadID)
	if errors.Is(err, conversation.ErrNoDraft) {
		http.Error(w, "no suggestion", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load suggestion", "error", err, "thread_id", threadID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, suggestionResponse{
		ThreadID:  draft.ThreadID.String(),
		Decision:  draft.Decision,
		CreatedAt: draft.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
