package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, contracts.SuccessResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, code, message, requestID string) {
	writeJSON(w, status, contracts.ErrorResponse{
		Status: "error",
		Error: contracts.ErrorPayload{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	})
}

func mapDomainError(err error) (status int, code string, message string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidEnvelope):
		return http.StatusBadRequest, "invalid_input", err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "invalid or missing credentials"
	case errors.Is(err, domain.ErrAuthorization):
		return http.StatusForbidden, "forbidden", err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", err.Error()
	case errors.Is(err, domain.ErrCustodyCapacity):
		return http.StatusUnprocessableEntity, "custody_capacity", err.Error()
	case errors.Is(err, domain.ErrValueMismatch):
		return http.StatusUnprocessableEntity, "value_mismatch", err.Error()
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusConflict, "idempotency_conflict", err.Error()
	case errors.Is(err, domain.ErrState), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "invalid_state", err.Error()
	case errors.Is(err, domain.ErrExternalFailure):
		return http.StatusServiceUnavailable, "external_failure", "dependency unavailable"
	case errors.Is(err, domain.ErrConservation), errors.Is(err, domain.ErrDealHalted):
		return http.StatusInternalServerError, "deal_halted", err.Error()
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
