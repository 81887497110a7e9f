//nolint:revive // "api" package name is intentionally concise for this layer.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avelora/concierge/internal/engine"
	"github.com/avelora/concierge/internal/store"
)

// maxRequestBodySize bounds widget request bodies (64KB). Messages are short.
const maxRequestBodySize = 64 << 10

// Handler provides common handler utilities and dependencies.
type Handler struct {
	mgr  *engine.Manager
	repo store.Repository
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(mgr *engine.Manager, repo store.Repository) *Handler {
	return &Handler{
		mgr:  mgr,
		repo: repo,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a bounded JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return err
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return err
	}
	return nil
}
