package waitlist

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/circl-ai/circl/internal/middleware"
	"github.com/circl-ai/circl/pkg/logger"
)

// Handler exposes the waitlist over HTTP.
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a waitlist handler.
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// SignupRequest is the request body for a waitlist signup.
type SignupRequest struct {
	Email string `json:"email"`
	Code  string `json:"code,omitempty"`
}

// SignupResponse is the response after a successful signup.
type SignupResponse struct {
	Success      bool      `json:"success"`
	User         EntryWire `json:"user"`
	ReferralCode string    `json:"referralCode"`
}

// EntryWire is the waitlist entry shape on the wire.
type EntryWire struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	UsedCode  *string `json:"used_code"`
	CreatedAt string  `json:"created_at"`
}

// Signup handles POST /api/waitlist.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, code, err := h.service.Signup(r.Context(), req.Email, req.Code)
	switch {
	case errors.Is(err, ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrEmailExists):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, ErrInvalidReferral):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error("waitlist signup failed",
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to join waitlist")
		return
	}

	writeJSON(w, http.StatusOK, SignupResponse{
		Success: true,
		User: EntryWire{
			ID:        entry.ID,
			Email:     entry.Email,
			UsedCode:  entry.UsedCode,
			CreatedAt: entry.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		},
		ReferralCode: code,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}
