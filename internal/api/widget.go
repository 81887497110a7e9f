package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/avelora/concierge/internal/domain"
	"github.com/avelora/concierge/internal/engine"
	"github.com/avelora/concierge/internal/identity"
	"github.com/go-chi/chi/v5"
)

// widgetResponse is the standard reply for state-changing widget calls.
type widgetResponse struct {
	State    engine.State     `json:"state"`
	Messages []domain.Message `json:"messages"`
}

// RegisterRoutes registers the widget API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/widgets/{variant}", func(r chi.Router) {
		r.Post("/open", h.Open)
		r.Post("/close", h.CloseWidget)
		r.Post("/minimize", h.Minimize)
		r.Post("/messages", h.PostMessage)
		r.Get("/messages", h.ListMessages)
		r.Get("/state", h.GetState)
		r.Post("/voice", h.ToggleVoice)
		r.Get("/rewards", h.Rewards)
	})
	r.Get("/api/feedback/stats", h.FeedbackStats)
}

func variantFromRequest(r *http.Request) (domain.VariantID, bool) {
	id := domain.VariantID(strings.ToLower(chi.URLParam(r, "variant")))
	if _, ok := domain.Variant(id); !ok {
		return "", false
	}
	return id, true
}

// session resolves the caller's live session for the variant in the URL.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*engine.Session, bool) {
	variant, ok := variantFromRequest(r)
	if !ok {
		Error(w, http.StatusNotFound, "unknown widget variant")
		return nil, false
	}
	visitorID := identity.VisitorIDFromContext(r.Context())
	if visitorID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	s := h.mgr.Get(visitorID, variant)
	if s == nil {
		Error(w, http.StatusNotFound, "widget not open")
		return nil, false
	}
	return s, true
}

type openRequest struct {
	Language string `json:"language,omitempty"`
}

// Open creates (or reopens) the visitor's session for the variant and
// returns the seeded conversation.
func (h *Handler) Open(w http.ResponseWriter, r *http.Request) {
	variant, ok := variantFromRequest(r)
	if !ok {
		Error(w, http.StatusNotFound, "unknown widget variant")
		return
	}
	visitorID := identity.VisitorIDFromContext(r.Context())
	if visitorID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req openRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			return
		}
	}

	s, err := h.mgr.Open(visitorID, variant)
	if err != nil {
		Error(w, http.StatusNotFound, "unknown widget variant")
		return
	}
	if req.Language != "" {
		s.SetLanguage(req.Language)
	}

	JSON(w, http.StatusOK, widgetResponse{State: s.State(), Messages: s.Messages()})
}

type messageRequest struct {
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// PostMessage submits one user input to the orchestrator.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		Error(w, http.StatusBadRequest, "message cannot be empty")
		return
	}
	if req.Language != "" {
		s.SetLanguage(req.Language)
	}

	err := s.Handle(r.Context(), req.Content)
	switch {
	case errors.Is(err, engine.ErrBusy):
		Error(w, http.StatusConflict, "a request is already being processed")
		return
	case errors.Is(err, engine.ErrClosed):
		Error(w, http.StatusGone, "widget session is closed")
		return
	case errors.Is(err, engine.ErrEmptyMessage):
		Error(w, http.StatusBadRequest, "message cannot be empty")
		return
	case err != nil:
		// The session has already surfaced the toast; mirror it here for
		// shells that poll instead of subscribing.
		Error(w, http.StatusBadGateway, "assistant is unavailable, please try again")
		return
	}

	JSON(w, http.StatusOK, widgetResponse{State: s.State(), Messages: s.Messages()})
}

// ListMessages returns the conversation in append order.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"messages": s.Messages()})
}

// GetState returns the widget-visible session state.
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, s.State())
}

type minimizeRequest struct {
	Minimized bool `json:"minimized"`
}

// Minimize toggles the minimized flag without touching conversation state.
func (h *Handler) Minimize(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var req minimizeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	s.SetMinimized(req.Minimized)
	JSON(w, http.StatusOK, s.State())
}

// CloseWidget disposes the visitor's session for the variant.
func (h *Handler) CloseWidget(w http.ResponseWriter, r *http.Request) {
	variant, ok := variantFromRequest(r)
	if !ok {
		Error(w, http.StatusNotFound, "unknown widget variant")
		return
	}
	visitorID := identity.VisitorIDFromContext(r.Context())
	if visitorID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.mgr.Close(visitorID, variant)
	w.WriteHeader(http.StatusNoContent)
}

// ToggleVoice starts or cancels a voice capture.
func (h *Handler) ToggleVoice(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.ToggleVoice(r.Context()); err != nil {
		if errors.Is(err, engine.ErrVoiceUnavailable) {
			Error(w, http.StatusNotImplemented, "voice input is not available for this widget")
			return
		}
		Error(w, http.StatusGone, "widget session is closed")
		return
	}
	JSON(w, http.StatusOK, s.State())
}

// Rewards returns session reward state plus the visitor's lifetime totals.
func (h *Handler) Rewards(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	resp := map[string]interface{}{
		"session": s.State(),
	}
	if totals, err := h.repo.GetRewardTotals(r.Context(), s.UserID); err != nil {
		slog.Warn("Failed to load lifetime reward totals", "user_id", s.UserID, "error", err)
	} else if totals != nil {
		resp["lifetime"] = totals
	}

	JSON(w, http.StatusOK, resp)
}

// FeedbackStats returns feedback submission counts per variant.
func (h *Handler) FeedbackStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.CountFeedback(r.Context())
	if err != nil {
		slog.Error("Failed to count feedback", "error", err)
		Error(w, http.StatusInternalServerError, "failed to load feedback stats")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"counts": counts})
}
