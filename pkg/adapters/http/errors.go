package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/byland-ai/byland/pkg/domain"
)

// Error classes reported to clients.
const (
	classValidation  = "validation"
	classUpstream    = "upstream"
	classPersistence = "persistence"
	classNotFound    = "not_found"
	classInternal    = "internal"
)

type errorResponse struct {
	Error      string           `json:"error"`
	Class      string           `json:"class,omitempty"`
	Messages   []string         `json:"messages,omitempty"`
	Transcript []domain.Message `json:"transcript,omitempty"`
}

// writeDomainError maps domain sentinels onto status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidTripRequest):
		writeError(w, http.StatusBadRequest, classValidation, err.Error())
	case errors.Is(err, domain.ErrProducerFailed):
		writeError(w, http.StatusBadGateway, classUpstream, err.Error())
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, classNotFound, err.Error())
	case errors.Is(err, domain.ErrPersistence):
		writeError(w, http.StatusServiceUnavailable, classPersistence, GenericFailureReply)
	default:
		s.logger.Error("Unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, classInternal, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, class, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Class: class})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("Response encode failed", "error", err)
	}
}
