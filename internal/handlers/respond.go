package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sevasetu/sevasetu/internal/domain"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	AttemptsRemaining *int   `json:"attempts_remaining,omitempty"`
	ExistingReference string `json:"existing_reference,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// respondWithDomainError maps a typed domain error onto the wire. Business
// rejections keep their structure (remaining attempts, existing reference);
// infrastructure failures collapse to a retryable 503.
func respondWithDomainError(w http.ResponseWriter, err error) {
	var mismatch *domain.MismatchError
	if errors.As(err, &mismatch) {
		remaining := mismatch.AttemptsRemaining
		respondWithJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: ErrorDetail{
				Code:              "OTP_MISMATCH",
				Message:           mismatch.Error(),
				AttemptsRemaining: &remaining,
			},
		})
		return
	}

	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		respondWithJSON(w, http.StatusConflict, ErrorResponse{
			Error: ErrorDetail{
				Code:              "DUPLICATE_APPLICATION",
				Message:           conflict.Error(),
				ExistingReference: conflict.ExistingReference,
			},
		})
		return
	}

	var invalid *domain.InvalidTransitionError
	if errors.As(err, &invalid) {
		respondWithError(w, http.StatusConflict, "INVALID_TRANSITION", invalid.Error())
		return
	}

	var storeErr *domain.StoreError
	if errors.As(err, &storeErr) {
		respondWithError(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "The service is temporarily unavailable")
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "NOT_FOUND", "No matching record was found")
	case errors.Is(err, domain.ErrExpired):
		respondWithError(w, http.StatusUnauthorized, "OTP_EXPIRED", "The code has expired, request a new one")
	case errors.Is(err, domain.ErrTooManyAttempts):
		respondWithError(w, http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "Attempt limit reached, request a new code")
	case errors.Is(err, domain.ErrAlreadyFinalized):
		respondWithError(w, http.StatusConflict, "ALREADY_FINALIZED", "The confirmation was already applied")
	case errors.Is(err, domain.ErrValidation):
		respondWithError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
	}
}
