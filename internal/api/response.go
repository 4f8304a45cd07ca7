package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"rentbook/internal/domain"
	"rentbook/internal/models"

	"github.com/rs/zerolog"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Message    string      `json:"message,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
}

type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func newPagination(page, limit, total int) *pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

const (
	codeValidation    = "validation_error"
	codeUnauthorized  = "unauthorized"
	codeForbidden     = "forbidden"
	codeNotFound      = "not_found"
	codeDateConflict  = "date_conflict"
	codeConcurrent    = "concurrent_modification"
	codeAlreadyRated  = "already_rated"
	codeInvalidStatus = "invalid_transition"
	codeNotCompleted  = "not_completed"
	codeRateLimited   = "rate_limited"
	codeInternal      = "internal_error"
	codeUnavailable   = "unavailable"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, envelope{Success: false, Error: code, Message: message})
}

type conflictBody struct {
	ItemID   string          `json:"item_id"`
	Conflict models.Conflict `json:"conflict"`
}

// writeServiceError maps booking engine errors onto HTTP statuses.
// Unknown errors are logged and hidden behind a generic message.
func writeServiceError(w http.ResponseWriter, logger *zerolog.Logger, err error) {
	var conflict *domain.DateConflictError
	switch {
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, envelope{
			Error:   codeDateConflict,
			Message: conflict.Error(),
			Data:    conflictBody{ItemID: conflict.ItemID, Conflict: conflict.Conflict},
		})
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
	case errors.Is(err, domain.ErrInvalidRatingValue):
		writeError(w, http.StatusBadRequest, codeValidation, domain.ErrInvalidRatingValue.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, codeUnauthorized, domain.ErrUnauthenticated.Error())
	case errors.Is(err, domain.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, codeForbidden, domain.ErrNotAuthorized.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, codeNotFound, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrConcurrentModification):
		writeError(w, http.StatusConflict, codeConcurrent, domain.ErrConcurrentModification.Error())
	case errors.Is(err, domain.ErrAlreadyRated):
		writeError(w, http.StatusConflict, codeAlreadyRated, domain.ErrAlreadyRated.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, codeInvalidStatus, err.Error())
	case errors.Is(err, domain.ErrNotCompleted):
		writeError(w, http.StatusUnprocessableEntity, codeNotCompleted, domain.ErrNotCompleted.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, codeRateLimited, domain.ErrRateLimited.Error())
	default:
		logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}
